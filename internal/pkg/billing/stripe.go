package billing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/PhilDL/shuken/internal/pkg/env"
)

// StripeProvider talks to Stripe through an injected client. Every call goes
// through a circuit breaker so a Stripe outage fails fast.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	breaker       *gobreaker.CircuitBreaker
}

// NewStripeProvider wraps an initialized Stripe client.
func NewStripeProvider(api *client.API, webhookSecret string) *StripeProvider {
	p := &StripeProvider{api: api, webhookSecret: webhookSecret}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// client errors (bad amount, unknown id) say nothing about Stripe health
		IsSuccessful: func(err error) bool {
			return err == nil || !isRetryableStripeError(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("[Billing] circuit breaker %s changed from %s to %s", name, from, to)
		},
	})
	return p
}

// NewStripeProviderFromEnv builds a provider from STRIPE_SECRET_KEY and
// STRIPE_WEBHOOK_SECRET.
func NewStripeProviderFromEnv() *StripeProvider {
	api := &client.API{}
	api.Init(env.GetEnv("STRIPE_SECRET_KEY", ""), nil)
	return NewStripeProvider(api, env.GetEnv("STRIPE_WEBHOOK_SECRET", ""))
}

func (p *StripeProvider) CreateProduct(ctx context.Context, in ProductParams) (string, error) {
	params := &stripe.ProductParams{Name: stripe.String(in.Name)}
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}
	params.Context = ctx

	res, err := p.call(ctx, "create_product", func() (interface{}, error) {
		return p.api.Products.New(params)
	})
	if err != nil {
		return "", err
	}
	return res.(*stripe.Product).ID, nil
}

func (p *StripeProvider) UpdateProduct(ctx context.Context, productRef string, in ProductParams) error {
	params := &stripe.ProductParams{Name: stripe.String(in.Name)}
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}
	params.Context = ctx

	_, err := p.call(ctx, "update_product", func() (interface{}, error) {
		return p.api.Products.Update(productRef, params)
	})
	return err
}

func (p *StripeProvider) ArchiveProduct(ctx context.Context, productRef string) error {
	params := &stripe.ProductParams{Active: stripe.Bool(false)}
	params.Context = ctx

	_, err := p.call(ctx, "archive_product", func() (interface{}, error) {
		return p.api.Products.Update(productRef, params)
	})
	return err
}

func (p *StripeProvider) CreatePrice(ctx context.Context, in PriceParams) (string, error) {
	params := &stripe.PriceParams{
		Product:     stripe.String(in.ProductRef),
		UnitAmount:  stripe.Int64(in.Amount),
		Currency:    stripe.String(in.Currency),
		Nickname:    stripe.String(in.Nickname),
		TaxBehavior: stripe.String(string(stripe.PriceTaxBehaviorInclusive)),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(in.Interval),
		},
	}
	params.Context = ctx
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	res, err := p.call(ctx, "create_price", func() (interface{}, error) {
		return p.api.Prices.New(params)
	})
	if err != nil {
		return "", err
	}
	return res.(*stripe.Price).ID, nil
}

func (p *StripeProvider) DeactivatePrice(ctx context.Context, priceID string) error {
	params := &stripe.PriceParams{Active: stripe.Bool(false)}
	params.Context = ctx

	_, err := p.call(ctx, "deactivate_price", func() (interface{}, error) {
		return p.api.Prices.Update(priceID, params)
	})
	return err
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	if name != "" {
		params.Name = stripe.String(name)
	}
	params.Context = ctx

	res, err := p.call(ctx, "create_customer", func() (interface{}, error) {
		return p.api.Customers.New(params)
	})
	if err != nil {
		return "", err
	}
	return res.(*stripe.Customer).ID, nil
}

func (p *StripeProvider) DeleteCustomer(ctx context.Context, customerRef string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	_, err := p.call(ctx, "delete_customer", func() (interface{}, error) {
		return p.api.Customers.Del(customerRef, params)
	})
	return err
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(in.CustomerRef),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(in.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx

	res, err := p.call(ctx, "create_checkout_session", func() (interface{}, error) {
		return p.api.CheckoutSessions.New(params)
	})
	if err != nil {
		return "", err
	}
	return res.(*stripe.CheckoutSession).URL, nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerRef),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	res, err := p.call(ctx, "create_portal_session", func() (interface{}, error) {
		return p.api.BillingPortalSessions.New(params)
	})
	if err != nil {
		return "", err
	}
	return res.(*stripe.BillingPortalSession).URL, nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*NormalizedSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	res, err := p.call(ctx, "get_subscription", func() (interface{}, error) {
		return p.api.Subscriptions.Get(subscriptionID, params)
	})
	if err != nil {
		return nil, err
	}
	ns := NormalizeStripeSubscription(res.(*stripe.Subscription))
	return &ns, nil
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
func (p *StripeProvider) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if p.webhookSecret == "" {
		return stripe.Event{}, errors.New("stripe webhook secret is not configured")
	}
	return webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func (p *StripeProvider) call(ctx context.Context, op string, fn func() (interface{}, error)) (interface{}, error) {
	res, err := p.breaker.Execute(fn)
	if err != nil {
		return nil, toProviderError(ctx, op, err)
	}
	return res, nil
}

// NormalizeStripeSubscription maps a Stripe subscription to the local shape.
// Only the first item is considered, checkout creates single-item subscriptions.
func NormalizeStripeSubscription(sub *stripe.Subscription) NormalizedSubscription {
	ns := NormalizedSubscription{
		ProviderSubscriptionID: sub.ID,
		Status:                 normalizeStatus(string(sub.Status)),
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		CurrentPeriodStart:     unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:       unixTime(sub.CurrentPeriodEnd),
	}
	if sub.Customer != nil {
		ns.ProviderCustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		pr := sub.Items.Data[0].Price
		ns.PriceID = pr.ID
		if pr.Product != nil {
			ns.ProductRef = pr.Product.ID
		}
		if pr.Recurring != nil {
			ns.BillingInterval = normalizeInterval(string(pr.Recurring.Interval))
		}
	}
	return ns
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func toProviderError(ctx context.Context, op string, err error) error {
	pe := &ProviderError{Op: op, Err: err}

	var se *stripe.Error
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		pe.Code = "circuit_open"
		pe.Retryable = true
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded:
		pe.Code = "timeout"
		pe.Retryable = true
	case errors.As(err, &se):
		pe.Code = string(se.Code)
		if pe.Code == "" {
			pe.Code = string(se.Type)
		}
		pe.Retryable = isRetryableStripeError(err)
	default:
		// transport failure without an API answer
		pe.Retryable = true
	}
	return pe
}

func isRetryableStripeError(err error) bool {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return true
	}
	return se.HTTPStatusCode == http.StatusTooManyRequests ||
		se.HTTPStatusCode >= http.StatusInternalServerError ||
		se.Type == stripe.ErrorTypeAPI
}
