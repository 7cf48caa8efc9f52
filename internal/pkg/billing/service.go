package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"github.com/PhilDL/shuken/app/models"
)

// Stripe event types handled by the webhook.
const (
	EventCheckoutSessionCompleted    = "checkout.session.completed"
	EventCustomerSubscriptionUpdated = "customer.subscription.updated"
	EventCustomerSubscriptionDeleted = "customer.subscription.deleted"
)

var (
	ErrUnknownCustomer = errors.New("no local customer for provider customer")
	ErrUnknownPrice    = errors.New("no local price for provider price")
	ErrIgnoredEvent    = errors.New("event type is not handled")
)

// Service keeps local subscriptions in sync with the billing provider.
type Service struct {
	repo          Repository
	subscriptions SubscriptionFetcher
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository, subscriptions SubscriptionFetcher) *Service {
	return &Service{repo: repo, subscriptions: subscriptions}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, subscriptions SubscriptionFetcher) *Service {
	return NewService(NewRepository(db), subscriptions)
}

// HandleStripeEvent applies a verified Stripe event. Unhandled event types
// return ErrIgnoredEvent.
func (s *Service) HandleStripeEvent(ctx context.Context, event stripe.Event) error {
	if event.Data == nil {
		return errors.New("event has no data")
	}

	switch string(event.Type) {
	case EventCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		if session.Subscription == nil || session.Subscription.ID == "" {
			// one-off checkouts carry no subscription
			return ErrIgnoredEvent
		}
		ns, err := s.subscriptions.GetSubscription(ctx, session.Subscription.ID)
		if err != nil {
			return fmt.Errorf("load subscription %s: %w", session.Subscription.ID, err)
		}
		if ns.ProviderCustomerID == "" && session.Customer != nil {
			ns.ProviderCustomerID = session.Customer.ID
		}
		_, err = s.SyncSubscription(ctx, *ns)
		return err

	case EventCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		_, err := s.SyncSubscription(ctx, NormalizeStripeSubscription(&sub))
		return err

	case EventCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return s.RemoveSubscription(ctx, sub.ID)

	default:
		return ErrIgnoredEvent
	}
}

// SyncSubscription upserts provider subscription data for the matching customer.
func (s *Service) SyncSubscription(ctx context.Context, in NormalizedSubscription) (*models.Subscription, error) {
	_ = ctx
	subID := strings.TrimSpace(in.ProviderSubscriptionID)
	customerRef := strings.TrimSpace(in.ProviderCustomerID)
	if subID == "" || customerRef == "" || in.PriceID == "" {
		return nil, errors.New("subscription id, customer and price are required")
	}

	customer, err := s.repo.FindCustomerByStripeID(customerRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCustomer, customerRef)
		}
		return nil, err
	}

	price, err := s.repo.FindPrice(in.PriceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPrice, in.PriceID)
		}
		return nil, err
	}

	interval := normalizeInterval(in.BillingInterval)
	if interval == "unknown" {
		interval = price.Interval
	}

	sub := &models.Subscription{
		ID:                 subID,
		CustomerID:         customer.ID,
		ProductID:          price.ProductID,
		PriceID:            price.ID,
		Interval:           interval,
		Status:             normalizeStatus(in.Status),
		CurrentPeriodStart: in.CurrentPeriodStart,
		CurrentPeriodEnd:   in.CurrentPeriodEnd,
		CancelAtPeriodEnd:  in.CancelAtPeriodEnd,
	}
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return nil, err
	}
	log.Infof("[Billing] Synced subscription %s for customer %s (%s)", sub.ID, customer.ID, sub.Status)
	return sub, nil
}

// RemoveSubscription deletes the local copy of a cancelled subscription.
func (s *Service) RemoveSubscription(ctx context.Context, subscriptionID string) error {
	_ = ctx
	if strings.TrimSpace(subscriptionID) == "" {
		return errors.New("subscription id is required")
	}
	deleted, err := s.repo.DeleteSubscription(subscriptionID)
	if err != nil {
		return err
	}
	if !deleted {
		log.Warnf("[Billing] Subscription %s was not stored locally", subscriptionID)
	}
	return nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
