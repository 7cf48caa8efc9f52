package controllers

import (
	"context"

	"github.com/stripe/stripe-go/v76"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/internal/pkg/billing"
	"github.com/PhilDL/shuken/internal/pkg/pricing"
)

// PlanService is the plan administration surface of pricing.Service.
type PlanService interface {
	ListPlans(ctx context.Context) ([]models.Product, error)
	GetPlan(ctx context.Context, id string) (*models.Product, error)
	PriceChanges(ctx context.Context, id string) ([]models.PriceChange, error)
	CreatePlan(ctx context.Context, in pricing.PlanInput) (*models.Product, error)
	UpdatePlan(ctx context.Context, id string, in pricing.PlanInput) (*models.Product, error)
	DeletePlan(ctx context.Context, id string) error
}

// PriceSweeper resumes interrupted price changes.
type PriceSweeper interface {
	Sweep(ctx context.Context) (pricing.SweepResult, error)
}

// WebhookVerifier checks the Stripe-Signature header and decodes the event.
type WebhookVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// SubscriptionSync records webhook deliveries and applies them.
type SubscriptionSync interface {
	RecordWebhookEvent(ctx context.Context, in billing.WebhookEventInput) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error
	HandleStripeEvent(ctx context.Context, event stripe.Event) error
}

// MemberAuth is the passwordless sign-in flow for customers.
type MemberAuth interface {
	SendCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (string, error)
	VerifyMagicLink(ctx context.Context, token string) (string, error)
	LoginCustomer(ctx context.Context, email string) (*models.Customer, error)
}

// MediaLibrary stores and lists uploaded images.
type MediaLibrary interface {
	Ingest(ctx context.Context, name string, data []byte, uploadedBy uint) (*models.Media, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, page, perPage int) ([]models.Media, int64, error)
}

// CaptchaVerifier checks the challenge token of public forms.
type CaptchaVerifier interface {
	Enabled() bool
	SiteKey() string
	Verify(ctx context.Context, token, remoteIP string) error
}
