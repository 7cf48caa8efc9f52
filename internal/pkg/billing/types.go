package billing

import "time"

// NormalizedSubscription is the provider-agnostic shape used by the billing
// service when syncing external subscription state into local tables.
type NormalizedSubscription struct {
	ProviderSubscriptionID string
	ProviderCustomerID     string
	PriceID                string
	ProductRef             string
	BillingInterval        string
	Status                 string
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// ProductParams describes a plan descriptor at the provider.
type ProductParams struct {
	Name        string
	Description string
}

// PriceParams describes a recurring price to create at the provider.
type PriceParams struct {
	ProductRef     string
	Amount         int64
	Currency       string
	Interval       string
	Nickname       string
	IdempotencyKey string
}

// CheckoutParams describes a subscription checkout for one price.
type CheckoutParams struct {
	CustomerRef string
	PriceID     string
	SuccessURL  string
	CancelURL   string
}
