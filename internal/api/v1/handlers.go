package apiv1

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/app/repository"
	"github.com/PhilDL/shuken/internal/pkg/pricing"
	"github.com/PhilDL/shuken/internal/pkg/usercontext"
)

const requestTimeout = 10 * time.Second

// PlanReader is the read side of the plan catalog.
type PlanReader interface {
	ListPlans(ctx context.Context) ([]models.Product, error)
	GetPlan(ctx context.Context, id string) (*models.Product, error)
}

// APIServer implements the ServerInterface
type APIServer struct {
	plans     PlanReader
	customers repository.CustomerRepository
}

// NewAPIServer creates a new API server instance
func NewAPIServer(plans PlanReader, customers repository.CustomerRepository) *APIServer {
	return &APIServer{plans: plans, customers: customers}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// ListPlans returns the plans that can be subscribed to.
func (s *APIServer) ListPlans(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	products, err := s.plans.ListPlans(ctx)
	if err != nil {
		log.Errorf("[API] Failed to list plans: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(Error{Error: "internal_error"})
	}

	plans := make([]Plan, 0, len(products))
	for i := range products {
		if p := toPlan(&products[i]); len(p.Prices) > 0 {
			plans = append(plans, p)
		}
	}
	return c.JSON(plans)
}

func (s *APIServer) GetPlan(c *fiber.Ctx, id string) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	product, err := s.plans.GetPlan(ctx, id)
	if err != nil {
		if errors.Is(err, pricing.ErrPlanNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(Error{Error: "not_found", Message: "plan not found"})
		}
		log.Errorf("[API] Failed to load plan %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(Error{Error: "internal_error"})
	}
	return c.JSON(toPlan(product))
}

// GetAccountSubscription returns the subscription of the session customer.
// Security is enforced via RequireCustomerAPI in RegisterHandlers.
func (s *APIServer) GetAccountSubscription(c *fiber.Ctx) error {
	customer, err := s.customers.GetByID(usercontext.GetCustomerID(c))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(Error{Error: "unauthorized", Message: "login required"})
	}
	if customer.Subscription == nil {
		return c.Status(fiber.StatusNotFound).JSON(Error{Error: "not_found", Message: "no subscription"})
	}
	sub := customer.Subscription
	return c.JSON(Subscription{
		Status:            sub.Status,
		PriceID:           sub.PriceID,
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		Entitled:          sub.IsEntitling(),
	})
}

// toPlan keeps only active prices.
func toPlan(p *models.Product) Plan {
	plan := Plan{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.DescriptionText(),
		Prices:      []Price{},
	}
	for _, price := range p.Prices {
		if !price.Active {
			continue
		}
		plan.Prices = append(plan.Prices, Price{
			ID:       price.ID,
			Amount:   price.Amount,
			Currency: price.Currency,
			Interval: price.Interval,
		})
	}
	return plan
}
