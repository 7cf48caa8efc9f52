package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/internal/pkg/billing"
	"github.com/PhilDL/shuken/internal/pkg/metrics"
)

// Service manages subscription plans and keeps their prices in step with
// the billing provider.
type Service struct {
	store    Store
	provider billing.CatalogProvider
	applier  *Applier
	locker   Locker
	timeout  time.Duration
}

// NewService wires a plan service. A nil locker falls back to an in-process
// one; a zero timeout uses DefaultProviderTimeout.
func NewService(store Store, provider billing.CatalogProvider, locker Locker, timeout time.Duration) *Service {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Service{
		store:    store,
		provider: provider,
		applier:  NewApplier(provider, store, timeout),
		locker:   locker,
		timeout:  timeout,
	}
}

// Applier exposes the service's applier to the reconciler.
func (s *Service) Applier() *Applier {
	return s.applier
}

// ListPlans returns all plans with their active prices.
func (s *Service) ListPlans(ctx context.Context) ([]models.Product, error) {
	return s.store.ListProducts(ctx)
}

// GetPlan returns a plan with its active prices.
func (s *Service) GetPlan(ctx context.Context, id string) (*models.Product, error) {
	return s.store.GetProduct(ctx, id, true)
}

// PriceChanges returns the latest intent log entries of a plan.
func (s *Service) PriceChanges(ctx context.Context, id string) ([]models.PriceChange, error) {
	return s.store.ListChanges(ctx, id, 20)
}

// CreatePlan creates the plan at the provider, stores it and creates a price
// for every enabled interval. Price failures are returned joined; the plan
// itself exists at that point.
func (s *Service) CreatePlan(ctx context.Context, in PlanInput) (*models.Product, error) {
	var productRef string
	err := s.remote(ctx, func(ctx context.Context) error {
		var err error
		productRef, err = s.provider.CreateProduct(ctx, billing.ProductParams{Name: in.Name, Description: in.Description})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create product at provider: %w", err)
	}

	product := &models.Product{
		Name:            in.Name,
		Description:     optionalText(in.Description),
		StripeProductID: productRef,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		if archiveErr := s.remote(ctx, func(ctx context.Context) error {
			return s.provider.ArchiveProduct(ctx, productRef)
		}); archiveErr != nil {
			log.Errorf("[Pricing] Failed to archive orphaned product %s: %v", productRef, archiveErr)
		}
		return nil, fmt.Errorf("store plan: %w", err)
	}
	log.Infof("[Pricing] Created plan %s (%s)", product.ID, productRef)

	return s.reloaded(ctx, product), s.reconcile(ctx, product, in)
}

// UpdatePlan applies an edited plan form. The descriptor is updated at the
// provider first and a failure there aborts the update. Each interval is
// then reconciled on its own; failures are logged and returned joined as
// *IntervalError values.
func (s *Service) UpdatePlan(ctx context.Context, id string, in PlanInput) (*models.Product, error) {
	unlock, err := s.locker.Lock(ctx, id, planLockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	product, err := s.store.GetProduct(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if in.Version != 0 && in.Version != product.Version {
		return nil, ErrStaleVersion
	}
	settled, err := s.settlePending(ctx, product)
	if err != nil {
		return nil, err
	}
	if settled {
		if product, err = s.store.GetProduct(ctx, id, true); err != nil {
			return nil, err
		}
	}

	err = s.remote(ctx, func(ctx context.Context) error {
		return s.provider.UpdateProduct(ctx, product.StripeProductID, billing.ProductParams{Name: in.Name, Description: in.Description})
	})
	if err != nil {
		return nil, fmt.Errorf("update product at provider: %w", err)
	}

	product.Name = in.Name
	product.Description = optionalText(in.Description)
	if err := s.store.UpdateProduct(ctx, product, product.Version); err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}

	return s.reloaded(ctx, product), s.reconcile(ctx, product, in)
}

// settlePending clears the plan's unfinished price changes before a new form
// is classified, so the sweep never replays an intent the admin has since
// replaced. Changes that left the provider and the catalog disagreeing are
// finished first; the others are marked superseded.
func (s *Service) settlePending(ctx context.Context, product *models.Product) (bool, error) {
	pending, err := s.store.PendingChangesFor(ctx, product.ID)
	if err != nil {
		return false, fmt.Errorf("load pending price changes: %w", err)
	}

	for i := range pending {
		pc := &pending[i]
		if pc.Diverged() {
			if err := s.applier.Run(ctx, product, pc); err != nil {
				return false, fmt.Errorf("finish pending %s change %s: %w", pc.Interval, pc.ID, err)
			}
			continue
		}
		pc.Status = models.PriceChangeStatusSuperseded
		if err := s.store.SaveChange(ctx, pc); err != nil {
			return false, fmt.Errorf("supersede price change %s: %w", pc.ID, err)
		}
		log.Infof("[Pricing] Plan %s: pending %s %s change %s superseded", product.ID, pc.Intent, pc.Interval, pc.ID)
	}
	return len(pending) > 0, nil
}

// DeletePlan removes a plan nobody is subscribed to. Provider cleanup is
// best effort.
func (s *Service) DeletePlan(ctx context.Context, id string) error {
	unlock, err := s.locker.Lock(ctx, id, planLockTTL)
	if err != nil {
		return err
	}
	defer unlock()

	product, err := s.store.GetProduct(ctx, id, true)
	if err != nil {
		return err
	}
	subs, err := s.store.CountSubscriptions(ctx, id)
	if err != nil {
		return fmt.Errorf("count subscriptions: %w", err)
	}
	if subs > 0 {
		return ErrPlanInUse
	}

	for _, price := range product.Prices {
		priceID := price.ID
		if err := s.remote(ctx, func(ctx context.Context) error {
			return s.provider.DeactivatePrice(ctx, priceID)
		}); err != nil {
			log.Warnf("[Pricing] Failed to deactivate price %s of deleted plan %s: %v", priceID, id, err)
		}
	}
	if err := s.remote(ctx, func(ctx context.Context) error {
		return s.provider.ArchiveProduct(ctx, product.StripeProductID)
	}); err != nil {
		log.Warnf("[Pricing] Failed to archive product %s of deleted plan %s: %v", product.StripeProductID, id, err)
	}

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	log.Infof("[Pricing] Deleted plan %s", id)
	return nil
}

// reconcile classifies and applies every interval. One failing interval
// never stops the other.
func (s *Service) reconcile(ctx context.Context, product *models.Product, in PlanInput) error {
	var errs []error
	for _, interval := range Intervals {
		req := in.For(interval)
		change := withCurrency(Classify(product.Prices, interval, req.Active(), req.Amount), product.Prices, interval, req)
		if change.Anomaly {
			metrics.PriceAnomaliesTotal.Inc()
			log.Warnf("[Pricing] Plan %s: inactive %s price %s requested active again, creating a new price", product.ID, interval, change.Price.ID)
		}

		if _, err := s.applier.Apply(ctx, product, interval, change, req); err != nil {
			log.Errorf("[Pricing] Plan %s: %s %s failed: %v", product.ID, change.Intent, interval, err)
			errs = append(errs, &IntervalError{Interval: interval, Intent: change.Intent, Err: err})
		}
	}
	return errors.Join(errs...)
}

// withCurrency turns an unchanged amount into PriceAmountChanged when the
// requested currency differs from the active price's.
func withCurrency(change Change, prices []models.Price, interval string, in IntervalInput) Change {
	if change.Intent != NoPriceChange || !in.Active() || in.Currency == "" {
		return change
	}
	current := candidate(prices, interval)
	if current == nil || !current.Active || strings.EqualFold(current.Currency, in.Currency) {
		return change
	}
	return Change{Intent: PriceAmountChanged, Price: current}
}

func (s *Service) reloaded(ctx context.Context, product *models.Product) *models.Product {
	fresh, err := s.store.GetProduct(ctx, product.ID, true)
	if err != nil {
		return product
	}
	return fresh
}

func (s *Service) remote(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
