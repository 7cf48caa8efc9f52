package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

func newTestStripeProvider(t *testing.T, handler http.HandlerFunc) *StripeProvider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	api := &client.API{}
	api.Init("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return NewStripeProvider(api, "whsec_test")
}

func TestStripeProviderCreatePrice(t *testing.T) {
	provider := newTestStripeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/prices", r.URL.Path)
		assert.Equal(t, "change-1", r.Header.Get("Idempotency-Key"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "prod_1", r.PostForm.Get("product"))
		assert.Equal(t, "999", r.PostForm.Get("unit_amount"))
		assert.Equal(t, "eur", r.PostForm.Get("currency"))
		assert.Equal(t, "month", r.PostForm.Get("recurring[interval]"))
		assert.Equal(t, "inclusive", r.PostForm.Get("tax_behavior"))
		assert.Equal(t, "Pro - monthly", r.PostForm.Get("nickname"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"price_new","object":"price"}`))
	})

	id, err := provider.CreatePrice(context.Background(), PriceParams{
		ProductRef:     "prod_1",
		Amount:         999,
		Currency:       "eur",
		Interval:       "month",
		Nickname:       "Pro - monthly",
		IdempotencyKey: "change-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "price_new", id)
}

func TestStripeProviderDeactivatePrice(t *testing.T) {
	provider := newTestStripeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/prices/price_old", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "false", r.PostForm.Get("active"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"price_old","object":"price","active":false}`))
	})

	require.NoError(t, provider.DeactivatePrice(context.Background(), "price_old"))
}

func TestStripeProviderMapsInvalidRequest(t *testing.T) {
	provider := newTestStripeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"amount_too_small","message":"Amount must be at least 50 cents"}}`))
	})

	_, err := provider.CreatePrice(context.Background(), PriceParams{ProductRef: "prod_1", Amount: 1, Currency: "eur", Interval: "month"})
	require.Error(t, err)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "create_price", pe.Op)
	assert.Equal(t, "amount_too_small", pe.Code)
	assert.False(t, pe.Retryable)
	assert.False(t, IsRetryable(err))
}

func TestStripeProviderServerErrorIsRetryable(t *testing.T) {
	provider := newTestStripeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`))
	})

	err := provider.UpdateProduct(context.Background(), "prod_1", ProductParams{Name: "Pro"})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestStripeProviderOpensBreakerAfterRepeatedFailures(t *testing.T) {
	var calls int32
	provider := newTestStripeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"down"}}`))
	})

	for i := 0; i < 5; i++ {
		require.Error(t, provider.DeactivatePrice(context.Background(), "price_1"))
	}
	err := provider.DeactivatePrice(context.Background(), "price_1")

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "circuit_open", pe.Code)
	assert.True(t, pe.Retryable)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestStripeProviderTimeoutIsRetryable(t *testing.T) {
	provider := newTestStripeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"id":"prod_1","object":"product"}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := provider.UpdateProduct(ctx, "prod_1", ProductParams{Name: "Pro"})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestStripeProviderConstructEvent(t *testing.T) {
	provider := newTestStripeProvider(t, func(w http.ResponseWriter, r *http.Request) {})

	payload := []byte(`{"id":"evt_1","object":"event","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","object":"subscription"}}}`)
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte("whsec_test"))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	header := fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

	event, err := provider.ConstructEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCustomerSubscriptionDeleted, string(event.Type))

	_, err = provider.ConstructEvent(payload, fmt.Sprintf("t=%d,v1=deadbeef", ts))
	assert.Error(t, err)
}
