package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PhilDL/shuken/internal/pkg/middleware"
)

// ServerInterface lists the operations of public/docs/v1/openapi.yml.
type ServerInterface interface {
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// (GET /plans)
	ListPlans(c *fiber.Ctx) error
	// (GET /plans/{id})
	GetPlan(c *fiber.Ctx, id string) error
	// (GET /account/subscription)
	GetAccountSubscription(c *fiber.Ctx) error
}

// RegisterHandlers mounts every operation on router, which is expected to be
// the /api/v1 group.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	router.Get("/ping", si.GetPing)
	router.Get("/plans", si.ListPlans)
	router.Get("/plans/:id", func(c *fiber.Ctx) error {
		return si.GetPlan(c, c.Params("id"))
	})
	router.Get("/account/subscription", middleware.RequireCustomerAPI, si.GetAccountSubscription)
}
