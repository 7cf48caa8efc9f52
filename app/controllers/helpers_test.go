package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/app/repository"
	"github.com/PhilDL/shuken/internal/pkg/billing"
	"github.com/PhilDL/shuken/internal/pkg/pricing"
	"github.com/PhilDL/shuken/internal/pkg/session"
	"github.com/PhilDL/shuken/internal/pkg/usercontext"
	"github.com/PhilDL/shuken/views"
)

var (
	errNotFound     = gorm.ErrRecordNotFound
	errBadSignature = errors.New("signature mismatch")
)

// newTestApp builds an app with the real templates, an in-memory session
// store and a fixed identity for every request.
func newTestApp(t *testing.T, who usercontext.UserContext) *fiber.App {
	t.Helper()
	session.SetSessionStore(fibersession.New(fibersession.Config{KeyLookup: "cookie:session_id"}))
	t.Cleanup(func() { session.SetSessionStore(nil) })

	app := fiber.New(fiber.Config{Views: views.NewEngine("../../views")})
	app.Use(func(c *fiber.Ctx) error {
		usercontext.SetUserContext(c, who)
		return c.Next()
	})
	return app
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	return do(t, app, req)
}

func get(t *testing.T, app *fiber.App, path string) (*http.Response, string) {
	t.Helper()
	return do(t, app, httptest.NewRequest(fiber.MethodGet, path, nil))
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// fakePlans is an in-memory PlanService.
type fakePlans struct {
	plans     map[string]*models.Product
	changes   []models.PriceChange
	updateErr error
	createErr error
	deleteErr error
	lastInput pricing.PlanInput
	updates   int
}

func newFakePlans(products ...*models.Product) *fakePlans {
	f := &fakePlans{plans: map[string]*models.Product{}}
	for _, p := range products {
		f.plans[p.ID] = p
	}
	return f
}

func (f *fakePlans) ListPlans(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.plans {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePlans) GetPlan(ctx context.Context, id string) (*models.Product, error) {
	if p, ok := f.plans[id]; ok {
		return p, nil
	}
	return nil, pricing.ErrPlanNotFound
}

func (f *fakePlans) PriceChanges(ctx context.Context, id string) ([]models.PriceChange, error) {
	return f.changes, nil
}

func (f *fakePlans) CreatePlan(ctx context.Context, in pricing.PlanInput) (*models.Product, error) {
	f.lastInput = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	p := &models.Product{ID: "plan-new", Name: in.Name, Version: 1}
	f.plans[p.ID] = p
	return p, nil
}

func (f *fakePlans) UpdatePlan(ctx context.Context, id string, in pricing.PlanInput) (*models.Product, error) {
	f.updates++
	f.lastInput = in
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	p, ok := f.plans[id]
	if !ok {
		return nil, pricing.ErrPlanNotFound
	}
	p.Name = in.Name
	return p, nil
}

func (f *fakePlans) DeletePlan(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.plans[id]; !ok {
		return pricing.ErrPlanNotFound
	}
	delete(f.plans, id)
	return nil
}

type fakeSweeper struct {
	result pricing.SweepResult
	calls  int
}

func (f *fakeSweeper) Sweep(ctx context.Context) (pricing.SweepResult, error) {
	f.calls++
	return f.result, nil
}

// fakeCustomerProvider records Stripe customer calls.
type fakeCustomerProvider struct {
	created     []string
	deleted     []string
	createErr   error
	checkout    billing.CheckoutParams
	checkoutURL string
	portalURL   string
}

func (f *fakeCustomerProvider) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, email)
	return "cus_" + strings.Split(email, "@")[0], nil
}

func (f *fakeCustomerProvider) DeleteCustomer(ctx context.Context, ref string) error {
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeCustomerProvider) CreateCheckoutSession(ctx context.Context, in billing.CheckoutParams) (string, error) {
	f.checkout = in
	return f.checkoutURL, nil
}

func (f *fakeCustomerProvider) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error) {
	return f.portalURL, nil
}

// memCustomers is a map-backed CustomerRepository.
type memCustomers struct {
	repository.CustomerRepository
	byID      map[string]*models.Customer
	createErr error
}

func newMemCustomers(customers ...*models.Customer) *memCustomers {
	m := &memCustomers{byID: map[string]*models.Customer{}}
	for _, c := range customers {
		m.byID[c.ID] = c
	}
	return m
}

func (m *memCustomers) Create(c *models.Customer) error {
	if m.createErr != nil {
		return m.createErr
	}
	if c.ID == "" {
		c.ID = "cust-" + strings.Split(c.Email, "@")[0]
	}
	m.byID[c.ID] = c
	return nil
}

func (m *memCustomers) GetByID(id string) (*models.Customer, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, errNotFound
}

func (m *memCustomers) GetByEmail(email string) (*models.Customer, error) {
	for _, c := range m.byID {
		if c.Email == models.NormalizeEmail(email) {
			return c, nil
		}
	}
	return nil, errNotFound
}

func (m *memCustomers) Update(c *models.Customer) error {
	m.byID[c.ID] = c
	return nil
}

func (m *memCustomers) Delete(id string) error {
	delete(m.byID, id)
	return nil
}

// fakeWebhooks verifies a fixed signature and decodes nothing else.
type fakeWebhooks struct {
	event stripe.Event
}

func (f *fakeWebhooks) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if signature != "valid" {
		return stripe.Event{}, errBadSignature
	}
	return f.event, nil
}

type fakeSync struct {
	seen      map[string]bool
	events    map[uint]*models.BillingWebhookEvent
	handleErr error
	marked    map[uint]error
	handled   int
}

func newFakeSync() *fakeSync {
	return &fakeSync{seen: map[string]bool{}, events: map[uint]*models.BillingWebhookEvent{}, marked: map[uint]error{}}
}

func (f *fakeSync) RecordWebhookEvent(ctx context.Context, in billing.WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	if f.seen[in.ProviderEventID] {
		stored := *f.events[1]
		return false, &stored, nil
	}
	f.seen[in.ProviderEventID] = true
	event := &models.BillingWebhookEvent{ID: uint(len(f.seen)), ProviderEventID: in.ProviderEventID}
	f.events[event.ID] = event
	stored := *event
	return true, &stored, nil
}

func (f *fakeSync) MarkWebhookProcessed(ctx context.Context, id uint, processingErr error) error {
	f.marked[id] = processingErr
	if event, ok := f.events[id]; ok {
		now := time.Now()
		event.ProcessedAt = &now
		event.ProcessingError = ""
		if processingErr != nil {
			event.ProcessingError = processingErr.Error()
		}
	}
	return nil
}

func (f *fakeSync) HandleStripeEvent(ctx context.Context, event stripe.Event) error {
	f.handled++
	return f.handleErr
}
