package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/app/repository"
	"github.com/PhilDL/shuken/internal/pkg/billing"
	"github.com/PhilDL/shuken/internal/pkg/flash"
	"github.com/PhilDL/shuken/internal/pkg/metrics"
	"github.com/PhilDL/shuken/internal/pkg/usercontext"
)

// BillingController handles Stripe webhooks, checkout and the billing portal.
type BillingController struct {
	verifier      WebhookVerifier
	subscriptions SubscriptionSync
	customers     billing.CustomerProvider
	customerRepo  repository.CustomerRepository
	plans         PlanService
	publicURL     string
}

func NewBillingController(verifier WebhookVerifier, subscriptions SubscriptionSync, customers billing.CustomerProvider,
	customerRepo repository.CustomerRepository, plans PlanService, publicURL string) *BillingController {
	return &BillingController{
		verifier:      verifier,
		subscriptions: subscriptions,
		customers:     customers,
		customerRepo:  customerRepo,
		plans:         plans,
		publicURL:     publicURL,
	}
}

// HandleStripeWebhook verifies, records and applies one Stripe event.
// Deliveries already applied are acknowledged without processing again;
// redeliveries of a failed event are processed again.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	event, err := bc.verifier.ConstructEvent(rawBody, c.Get("Stripe-Signature"))
	if err != nil {
		log.Warnf("[Billing] Rejected webhook from %s: %v", GetClientIP(c), err)
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "invalid_signature").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}
	eventType := string(event.Type)

	ctx, cancel := requestContext(c)
	defer cancel()

	created, stored, err := bc.subscriptions.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       eventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		log.Errorf("[Billing] Failed to persist webhook %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created && !stored.NeedsProcessing() {
		metrics.WebhookEventsTotal.WithLabelValues(eventType, "duplicate").Inc()
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	if !created {
		log.Infof("[Billing] Reprocessing webhook %s (%s) after an earlier failure", event.ID, eventType)
	}

	procErr := bc.subscriptions.HandleStripeEvent(ctx, event)
	if errors.Is(procErr, billing.ErrIgnoredEvent) {
		_ = bc.subscriptions.MarkWebhookProcessed(ctx, stored.ID, nil)
		metrics.WebhookEventsTotal.WithLabelValues(eventType, "ignored").Inc()
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	if err := bc.subscriptions.MarkWebhookProcessed(ctx, stored.ID, procErr); err != nil {
		log.Warnf("[Billing] Failed to mark webhook %s processed: %v", event.ID, err)
	}
	metrics.WebhookEventsTotal.WithLabelValues(eventType, metrics.Outcome(procErr)).Inc()
	if procErr != nil {
		log.Errorf("[Billing] Webhook %s (%s) failed: %v", event.ID, eventType, procErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription_sync_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// HandleCheckout starts a Stripe Checkout session for an active price and
// redirects the customer there.
func (bc *BillingController) HandleCheckout(c *fiber.Ctx) error {
	customer, err := bc.customerRepo.GetByID(usercontext.GetCustomerID(c))
	if err != nil {
		return c.Redirect("/join", fiber.StatusSeeOther)
	}
	if customer.HasActiveSubscription() {
		return flash.Info(c, "You already have an active subscription").Redirect("/account", fiber.StatusSeeOther)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	priceID := c.FormValue("price_id")
	if !bc.isActivePrice(c, priceID) {
		return flash.Error(c, "This price is no longer available").Redirect("/plans", fiber.StatusSeeOther)
	}

	ref := customer.StripeID()
	if ref == "" {
		ref, err = bc.customers.CreateCustomer(ctx, customer.Email, customer.Name)
		if err != nil {
			log.Errorf("[Billing] Failed to create Stripe customer for %s: %v", customer.ID, err)
			return flash.Error(c, "Checkout is not available right now").Redirect("/account", fiber.StatusSeeOther)
		}
		customer.StripeCustomerID = &ref
		if err := bc.customerRepo.Update(customer); err != nil {
			log.Errorf("[Billing] Failed to link Stripe customer %s to %s: %v", ref, customer.ID, err)
			return flash.Error(c, "Checkout is not available right now").Redirect("/account", fiber.StatusSeeOther)
		}
	}

	origin := baseURL(c, bc.publicURL)
	url, err := bc.customers.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerRef: ref,
		PriceID:     priceID,
		SuccessURL:  origin + "/account?checkout=success",
		CancelURL:   origin + "/plans",
	})
	if err != nil {
		log.Errorf("[Billing] Checkout for %s failed: %v", customer.ID, err)
		return flash.Error(c, "Checkout is not available right now").Redirect("/account", fiber.StatusSeeOther)
	}
	return c.Redirect(url, fiber.StatusSeeOther)
}

// HandlePortal sends the customer to the Stripe billing portal.
func (bc *BillingController) HandlePortal(c *fiber.Ctx) error {
	if !models.GetAppSettings().CustomerPortalEnabled {
		return flash.Error(c, "The billing portal is disabled").Redirect("/account", fiber.StatusSeeOther)
	}
	customer, err := bc.customerRepo.GetByID(usercontext.GetCustomerID(c))
	if err != nil {
		return c.Redirect("/join", fiber.StatusSeeOther)
	}
	if customer.StripeID() == "" {
		return flash.Info(c, "There is no billing information yet").Redirect("/account", fiber.StatusSeeOther)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	url, err := bc.customers.CreatePortalSession(ctx, customer.StripeID(), baseURL(c, bc.publicURL)+"/account")
	if err != nil {
		log.Errorf("[Billing] Portal session for %s failed: %v", customer.ID, err)
		return flash.Error(c, "The billing portal is not available right now").Redirect("/account", fiber.StatusSeeOther)
	}
	return c.Redirect(url, fiber.StatusSeeOther)
}

func (bc *BillingController) isActivePrice(c *fiber.Ctx, priceID string) bool {
	if priceID == "" {
		return false
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	plans, err := bc.plans.ListPlans(ctx)
	if err != nil {
		log.Warnf("[Billing] Failed to list plans: %v", err)
		return false
	}
	for _, p := range plans {
		for _, price := range p.Prices {
			if price.ID == priceID && price.Active {
				return true
			}
		}
	}
	return false
}
