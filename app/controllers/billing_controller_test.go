package controllers

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/internal/pkg/billing"
	"github.com/PhilDL/shuken/internal/pkg/usercontext"
)

func newWebhookApp(t *testing.T, sync *fakeSync) *fiber.App {
	app := newTestApp(t, usercontext.UserContext{})
	bc := NewBillingController(&fakeWebhooks{event: stripe.Event{ID: "evt_1", Type: "customer.subscription.updated"}},
		sync, &fakeCustomerProvider{}, newMemCustomers(), newFakePlans(), "")
	app.Post("/webhooks/stripe", bc.HandleStripeWebhook)
	return app
}

func sendWebhook(t *testing.T, app *fiber.App, signature string) (int, string) {
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	req.Header.Set("Stripe-Signature", signature)
	resp, body := do(t, app, req)
	return resp.StatusCode, body
}

func TestStripeWebhook(t *testing.T) {
	t.Run("invalid signature is rejected and not recorded", func(t *testing.T) {
		sync := newFakeSync()
		status, body := sendWebhook(t, newWebhookApp(t, sync), "forged")
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Contains(t, body, "invalid_signature")
		assert.Empty(t, sync.seen)
		assert.Zero(t, sync.handled)
	})

	t.Run("first delivery is applied and marked", func(t *testing.T) {
		sync := newFakeSync()
		status, body := sendWebhook(t, newWebhookApp(t, sync), "valid")
		assert.Equal(t, fiber.StatusOK, status)
		assert.JSONEq(t, `{"ok":true}`, body)
		assert.Equal(t, 1, sync.handled)
		require.Contains(t, sync.marked, uint(1))
		assert.NoError(t, sync.marked[1])
	})

	t.Run("duplicate delivery is acknowledged once", func(t *testing.T) {
		sync := newFakeSync()
		app := newWebhookApp(t, sync)
		sendWebhook(t, app, "valid")
		status, body := sendWebhook(t, app, "valid")
		assert.Equal(t, fiber.StatusOK, status)
		assert.JSONEq(t, `{"ok":true,"duplicate":true}`, body)
		assert.Equal(t, 1, sync.handled)
	})

	t.Run("redelivery of a failed event is processed again", func(t *testing.T) {
		sync := newFakeSync()
		sync.handleErr = errors.New("unknown customer")
		app := newWebhookApp(t, sync)

		status, _ := sendWebhook(t, app, "valid")
		assert.Equal(t, fiber.StatusInternalServerError, status)

		sync.handleErr = nil
		status, body := sendWebhook(t, app, "valid")
		assert.Equal(t, fiber.StatusOK, status)
		assert.JSONEq(t, `{"ok":true}`, body)
		assert.Equal(t, 2, sync.handled)
		assert.NoError(t, sync.marked[1])

		status, body = sendWebhook(t, app, "valid")
		assert.Equal(t, fiber.StatusOK, status)
		assert.JSONEq(t, `{"ok":true,"duplicate":true}`, body)
		assert.Equal(t, 2, sync.handled)
	})

	t.Run("ignored event type", func(t *testing.T) {
		sync := newFakeSync()
		sync.handleErr = billing.ErrIgnoredEvent
		status, body := sendWebhook(t, newWebhookApp(t, sync), "valid")
		assert.Equal(t, fiber.StatusOK, status)
		assert.Contains(t, body, "ignored")
		assert.NoError(t, sync.marked[1])
	})

	t.Run("processing failure is stored and retried by stripe", func(t *testing.T) {
		sync := newFakeSync()
		sync.handleErr = errors.New("db down")
		status, body := sendWebhook(t, newWebhookApp(t, sync), "valid")
		assert.Equal(t, fiber.StatusInternalServerError, status)
		assert.Contains(t, body, "subscription_sync_failed")
		assert.EqualError(t, sync.marked[1], "db down")
	})
}

func newCheckoutApp(t *testing.T, customers *memCustomers, provider *fakeCustomerProvider) *fiber.App {
	app := newTestApp(t, usercontext.UserContext{CustomerID: "c1", CustomerEmail: "ann@example.com"})
	bc := NewBillingController(&fakeWebhooks{}, newFakeSync(), provider, customers, newFakePlans(proPlan()), "https://shuken.test")
	app.Post("/checkout", bc.HandleCheckout)
	app.Post("/account/portal", bc.HandlePortal)
	return app
}

func TestCheckoutCreatesStripeCustomerOnce(t *testing.T) {
	customers := newMemCustomers(&models.Customer{ID: "c1", Email: "ann@example.com"})
	provider := &fakeCustomerProvider{checkoutURL: "https://checkout.stripe.test/s/1"}
	app := newCheckoutApp(t, customers, provider)

	resp, _ := postForm(t, app, "/checkout", url.Values{"price_id": {"price_m"}})
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "https://checkout.stripe.test/s/1", resp.Header.Get("Location"))
	assert.Equal(t, []string{"ann@example.com"}, provider.created)
	assert.Equal(t, "cus_ann", customers.byID["c1"].StripeID())
	assert.Equal(t, billing.CheckoutParams{
		CustomerRef: "cus_ann",
		PriceID:     "price_m",
		SuccessURL:  "https://shuken.test/account?checkout=success",
		CancelURL:   "https://shuken.test/plans",
	}, provider.checkout)

	postForm(t, app, "/checkout", url.Values{"price_id": {"price_m"}})
	assert.Len(t, provider.created, 1)
}

func TestCheckoutRejectsUnknownPriceAndActiveSubscribers(t *testing.T) {
	customers := newMemCustomers(&models.Customer{ID: "c1", Email: "ann@example.com"})
	provider := &fakeCustomerProvider{checkoutURL: "https://checkout.stripe.test/s/1"}
	app := newCheckoutApp(t, customers, provider)

	resp, _ := postForm(t, app, "/checkout", url.Values{"price_id": {"price_gone"}})
	assert.Equal(t, "/plans", resp.Header.Get("Location"))
	assert.Empty(t, provider.created)

	customers.byID["c1"].Subscription = &models.Subscription{Status: models.SubscriptionStatusActive}
	resp, _ = postForm(t, app, "/checkout", url.Values{"price_id": {"price_m"}})
	assert.Equal(t, "/account", resp.Header.Get("Location"))
	assert.Empty(t, provider.checkout.PriceID)
}

func TestPortalRequiresStripeCustomer(t *testing.T) {
	customers := newMemCustomers(&models.Customer{ID: "c1", Email: "ann@example.com"})
	provider := &fakeCustomerProvider{portalURL: "https://billing.stripe.test/p/1"}
	app := newCheckoutApp(t, customers, provider)

	resp, _ := postForm(t, app, "/account/portal", url.Values{})
	assert.Equal(t, "/account", resp.Header.Get("Location"))

	ref := "cus_ann"
	customers.byID["c1"].StripeCustomerID = &ref
	resp, _ = postForm(t, app, "/account/portal", url.Values{})
	assert.Equal(t, "https://billing.stripe.test/p/1", resp.Header.Get("Location"))
}
