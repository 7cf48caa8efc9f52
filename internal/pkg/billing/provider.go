package billing

import (
	"context"
	"errors"
	"fmt"
)

// CatalogProvider is the product/price surface of the billing provider used
// by plan reconciliation.
type CatalogProvider interface {
	CreateProduct(ctx context.Context, p ProductParams) (string, error)
	UpdateProduct(ctx context.Context, productRef string, p ProductParams) error
	ArchiveProduct(ctx context.Context, productRef string) error
	CreatePrice(ctx context.Context, p PriceParams) (string, error)
	DeactivatePrice(ctx context.Context, priceID string) error
}

// CustomerProvider is the customer/checkout surface of the billing provider.
type CustomerProvider interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	DeleteCustomer(ctx context.Context, customerRef string) error
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error)
	CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error)
}

// SubscriptionFetcher loads the current state of a provider subscription.
type SubscriptionFetcher interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*NormalizedSubscription, error)
}

// ProviderError wraps a failed provider call. Retryable is set for timeouts,
// rate limits, 5xx answers and an open circuit breaker.
type ProviderError struct {
	Op        string
	Code      string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("billing provider %s failed (%s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("billing provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a provider failure worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return errors.Is(err, context.DeadlineExceeded)
}
