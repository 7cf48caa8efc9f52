package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/internal/pkg/billing"
	"github.com/PhilDL/shuken/internal/pkg/metrics"
)

const DefaultProviderTimeout = 15 * time.Second

// Applier carries out classified price changes at the provider and in the
// store. Every change is written to the intent log before the first side
// effect, and each step is recorded once done, so a failed change can be
// resumed by Run without repeating completed steps.
type Applier struct {
	provider billing.CatalogProvider
	store    Store
	timeout  time.Duration
}

// NewApplier creates an applier. A zero timeout uses DefaultProviderTimeout.
func NewApplier(provider billing.CatalogProvider, store Store, timeout time.Duration) *Applier {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Applier{provider: provider, store: store, timeout: timeout}
}

// Apply records and runs the change for one interval of the product.
// NoPriceChange does nothing and returns a nil PriceChange.
func (a *Applier) Apply(ctx context.Context, product *models.Product, interval string, change Change, in IntervalInput) (*models.PriceChange, error) {
	if change.Intent == NoPriceChange {
		return nil, nil
	}

	pc := &models.PriceChange{
		ProductID: product.ID,
		Interval:  interval,
		Intent:    string(change.Intent),
	}
	if (change.Intent == PriceDeactivated || change.Intent == PriceAmountChanged) && change.Price != nil {
		pc.OldPriceID = change.Price.ID
		pc.Currency = change.Price.Currency
	}
	if creates(change.Intent) {
		if in.Amount == nil || *in.Amount <= 0 {
			return nil, fmt.Errorf("%s needs a positive amount", change.Intent)
		}
		pc.Amount = *in.Amount
		pc.Currency = in.Currency
		if pc.Currency == "" {
			pc.Currency = models.CurrencyEUR
		}
	}

	if err := a.store.RecordChange(ctx, pc); err != nil {
		return nil, fmt.Errorf("record price change: %w", err)
	}
	return pc, a.Run(ctx, product, pc)
}

// Run executes the remaining steps of a recorded change and marks it
// completed. On failure the error and attempt count are stored and the
// change stays pending.
func (a *Applier) Run(ctx context.Context, product *models.Product, pc *models.PriceChange) error {
	err := a.run(ctx, product, pc)
	metrics.PriceChangesTotal.WithLabelValues(pc.Intent, metrics.Outcome(err)).Inc()
	if err != nil {
		pc.Attempts++
		pc.LastError = err.Error()
		if saveErr := a.store.SaveChange(ctx, pc); saveErr != nil {
			log.Errorf("[Pricing] Failed to store error of price change %s: %v", pc.ID, saveErr)
		}
		return err
	}

	now := time.Now()
	pc.Status = models.PriceChangeStatusCompleted
	pc.CompletedAt = &now
	pc.LastError = ""
	if err := a.store.SaveChange(ctx, pc); err != nil {
		return fmt.Errorf("complete price change %s: %w", pc.ID, err)
	}
	log.Infof("[Pricing] %s %s for plan %s (old=%q new=%q)", pc.Intent, pc.Interval, pc.ProductID, pc.OldPriceID, pc.NewPriceID)

	return a.checkActivePrices(ctx, pc.ProductID, pc.Interval)
}

func (a *Applier) run(ctx context.Context, product *models.Product, pc *models.PriceChange) error {
	if pc.OldPriceID != "" {
		if !pc.RemoteDeactivated {
			err := a.remote(ctx, func(ctx context.Context) error {
				return a.provider.DeactivatePrice(ctx, pc.OldPriceID)
			})
			if err != nil {
				return fmt.Errorf("deactivate price %s at provider: %w", pc.OldPriceID, err)
			}
			pc.RemoteDeactivated = true
			if err := a.store.SaveChange(ctx, pc); err != nil {
				return fmt.Errorf("record remote deactivation: %w", err)
			}
		}
		if !pc.LocalDeactivated {
			if err := a.store.DeactivatePrice(ctx, pc); err != nil {
				return fmt.Errorf("deactivate price %s locally: %w", pc.OldPriceID, err)
			}
		}
	}

	if !creates(Intent(pc.Intent)) {
		return nil
	}

	nickname := Nickname(product.Name, pc.Interval)
	if pc.NewPriceID == "" {
		var priceID string
		err := a.remote(ctx, func(ctx context.Context) error {
			var err error
			priceID, err = a.provider.CreatePrice(ctx, billing.PriceParams{
				ProductRef:     product.StripeProductID,
				Amount:         pc.Amount,
				Currency:       pc.Currency,
				Interval:       pc.Interval,
				Nickname:       nickname,
				IdempotencyKey: pc.ID,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("create price at provider: %w", err)
		}
		pc.NewPriceID = priceID
		if err := a.store.SaveChange(ctx, pc); err != nil {
			return fmt.Errorf("record created price %s: %w", priceID, err)
		}
	}
	if !pc.LocalCreated {
		price := &models.Price{
			ID:        pc.NewPriceID,
			ProductID: product.ID,
			Amount:    pc.Amount,
			Currency:  pc.Currency,
			Interval:  pc.Interval,
			Active:    true,
			Type:      models.PriceTypeRecurring,
			Nickname:  nickname,
		}
		if err := a.store.InsertPrice(ctx, pc, price); err != nil {
			return fmt.Errorf("insert price %s: %w", pc.NewPriceID, err)
		}
	}
	return nil
}

// checkActivePrices enforces at most one active price per product and interval.
func (a *Applier) checkActivePrices(ctx context.Context, productID, interval string) error {
	n, err := a.store.CountActivePrices(ctx, productID, interval)
	if err != nil {
		return fmt.Errorf("count active prices: %w", err)
	}
	if n > 1 {
		log.Errorf("[Pricing] Plan %s has %d active %s prices", productID, n, interval)
		return fmt.Errorf("%w: plan %s has %d active %s prices", ErrActivePriceInvariant, productID, n, interval)
	}
	return nil
}

func (a *Applier) remote(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return fn(ctx)
}

func creates(intent Intent) bool {
	return intent == PriceCreated || intent == PriceAmountChanged
}
