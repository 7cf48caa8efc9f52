package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/internal/pkg/billing"
)

func TestUpdatePlanEnablesMonthly(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t)

	in := monthlyInput(true, 999)
	in.Name = "Pro Plus"
	in.Description = "More of everything"

	product, err := env.service.UpdatePlan(context.Background(), "plan-1", in)
	require.NoError(t, err)
	assert.Equal(t, "Pro Plus", product.Name)
	assert.Equal(t, "More of everything", product.DescriptionText())
	assert.Equal(t, uint(2), product.Version)

	require.NotNil(t, product.ActivePrice(models.PriceIntervalMonth))
	assert.Equal(t, int64(999), product.ActivePrice(models.PriceIntervalMonth).Amount)
	assert.Nil(t, product.ActivePrice(models.PriceIntervalYear))

	created, _ := env.provider.priceCalls()
	require.Len(t, created, 1)
	assert.Equal(t, "Pro Plus - monthly", created[0].Nickname)
	assert.Equal(t, []string{"remote:update_product:prod_pro", "remote:create:999"}, env.journal.list()[:2])
}

func TestUpdatePlanResubmitMakesNoPriceCalls(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t, models.Price{ID: "price_m", Interval: "month", Amount: 999, Active: true})

	_, err := env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 999))
	require.NoError(t, err)
	_, err = env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 999))
	require.NoError(t, err)

	created, deactivated := env.provider.priceCalls()
	assert.Empty(t, created)
	assert.Empty(t, deactivated)
}

func TestUpdatePlanFailsFastOnProductUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t, models.Price{ID: "price_m", Interval: "month", Amount: 999, Active: true})
	env.provider.failUpdateProduct = &billing.ProviderError{Op: "update_product", Code: "api_error", Retryable: true, Err: errors.New("down")}

	in := monthlyInput(false, 0)
	in.Name = "Renamed"
	_, err := env.service.UpdatePlan(context.Background(), "plan-1", in)
	require.Error(t, err)

	assert.Empty(t, env.journal.list())

	var product models.Product
	require.NoError(t, env.db.First(&product, "id = ?", "plan-1").Error)
	assert.Equal(t, "Pro", product.Name)
	assert.Equal(t, uint(1), product.Version)
	assert.True(t, env.prices(t, models.PriceIntervalMonth)[0].Active)
}

func TestUpdatePlanIntervalsAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t)
	env.provider.failCreate[models.PriceIntervalMonth] = &billing.ProviderError{Op: "create_price", Code: "amount_too_small", Err: errors.New("too small")}

	in := PlanInput{
		Name:    "Pro",
		Monthly: IntervalInput{Enabled: true, Amount: amount(10), Currency: "eur"},
		Yearly:  IntervalInput{Enabled: true, Amount: amount(9900), Currency: "eur"},
	}
	product, err := env.service.UpdatePlan(context.Background(), "plan-1", in)
	require.Error(t, err)

	var ie *IntervalError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, models.PriceIntervalMonth, ie.Interval)
	assert.Equal(t, PriceCreated, ie.Intent)

	var pe *billing.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "amount_too_small", pe.Code)

	assert.Nil(t, product.ActivePrice(models.PriceIntervalMonth))
	require.NotNil(t, product.ActivePrice(models.PriceIntervalYear))
	assert.Equal(t, int64(9900), product.ActivePrice(models.PriceIntervalYear).Amount)
}

func TestUpdatePlanRejectsStaleVersion(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t)

	in := monthlyInput(true, 999)
	in.Version = 7
	_, err := env.service.UpdatePlan(context.Background(), "plan-1", in)
	assert.ErrorIs(t, err, ErrStaleVersion)
	assert.Empty(t, env.journal.list())

	in.Version = 1
	_, err = env.service.UpdatePlan(context.Background(), "plan-1", in)
	require.NoError(t, err)

	// the same form submitted twice is now stale
	_, err = env.service.UpdatePlan(context.Background(), "plan-1", in)
	assert.ErrorIs(t, err, ErrStaleVersion)
}

func TestUpdatePlanNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.UpdatePlan(context.Background(), "missing", monthlyInput(true, 999))
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestUpdatePlanLocked(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t)
	locker := NewMemoryLocker()
	env.service = NewService(env.store, env.provider, locker, 0)

	unlock, err := locker.Lock(context.Background(), "plan-1", planLockTTL)
	require.NoError(t, err)

	_, err = env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 999))
	assert.ErrorIs(t, err, ErrPlanLocked)

	unlock()
	_, err = env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 999))
	assert.NoError(t, err)
}

func TestCreatePlan(t *testing.T) {
	env := newTestEnv(t)

	product, err := env.service.CreatePlan(context.Background(), PlanInput{
		Name:    "Team",
		Monthly: IntervalInput{Enabled: true, Amount: amount(2900), Currency: "usd"},
		Yearly:  IntervalInput{Currency: "eur"},
	})
	require.NoError(t, err)
	assert.Equal(t, "prod_1", product.StripeProductID)
	assert.Nil(t, product.Description)

	monthly := product.ActivePrice(models.PriceIntervalMonth)
	require.NotNil(t, monthly)
	assert.Equal(t, int64(2900), monthly.Amount)
	assert.Equal(t, "usd", monthly.Currency)
	assert.Nil(t, product.ActivePrice(models.PriceIntervalYear))

	plans, err := env.service.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Len(t, plans[0].Prices, 1)
}

func TestDeletePlan(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t, models.Price{ID: "price_m", Interval: "month", Amount: 999, Active: true})

	require.NoError(t, env.service.DeletePlan(context.Background(), "plan-1"))

	_, deactivated := env.provider.priceCalls()
	assert.Equal(t, []string{"price_m"}, deactivated)
	assert.Equal(t, []string{"prod_pro"}, env.provider.archived)

	_, err := env.service.GetPlan(context.Background(), "plan-1")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestDeletePlanInUse(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t, models.Price{ID: "price_m", Interval: "month", Amount: 999, Active: true})

	customer := &models.Customer{Email: "member@example.com"}
	require.NoError(t, env.db.Create(customer).Error)
	require.NoError(t, env.db.Create(&models.Subscription{
		ID:         "sub_1",
		CustomerID: customer.ID,
		ProductID:  "plan-1",
		PriceID:    "price_m",
		Interval:   "month",
		Status:     models.SubscriptionStatusActive,
	}).Error)

	err := env.service.DeletePlan(context.Background(), "plan-1")
	assert.ErrorIs(t, err, ErrPlanInUse)
	assert.Empty(t, env.journal.list())
}

func TestUpdatePlanChangesCurrencyAtSameAmount(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t, models.Price{ID: "price_m", Interval: "month", Amount: 999, Currency: "usd", Active: true})

	product, err := env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 999))
	require.NoError(t, err)

	monthly := product.ActivePrice(models.PriceIntervalMonth)
	require.NotNil(t, monthly)
	assert.NotEqual(t, "price_m", monthly.ID)
	assert.Equal(t, models.CurrencyEUR, monthly.Currency)
	assert.Equal(t, int64(999), monthly.Amount)

	_, deactivated := env.provider.priceCalls()
	assert.Equal(t, []string{"price_m"}, deactivated)
}

func TestUpdatePlanRetryAfterFailedCreateKeepsOneActivePrice(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t, models.Price{ID: "price_old", Interval: "month", Amount: 999, Active: true})
	env.provider.failCreate[models.PriceIntervalMonth] = errors.New("stripe is down")
	env.provider.failCreateOnce = true

	_, err := env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 1999))
	require.Error(t, err)
	first := loadChange(t, env)
	assert.True(t, first.LocalDeactivated)
	assert.Empty(t, first.NewPriceID)

	// the admin submits the same form again
	product, err := env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 1999))
	require.NoError(t, err)
	require.NotNil(t, product.ActivePrice(models.PriceIntervalMonth))
	assert.Equal(t, int64(1999), product.ActivePrice(models.PriceIntervalMonth).Amount)

	var stored models.PriceChange
	require.NoError(t, env.db.First(&stored, "id = ?", first.ID).Error)
	assert.Equal(t, models.PriceChangeStatusSuperseded, stored.Status)

	res, err := newTestReconciler(env).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)

	n, err := env.store.CountActivePrices(context.Background(), "plan-1", models.PriceIntervalMonth)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	created, _ := env.provider.priceCalls()
	assert.Len(t, created, 1)
}

func TestUpdatePlanRetryAfterFailedDeactivationKeepsPrice(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t, models.Price{ID: "price_m", Interval: "month", Amount: 999, Active: true})
	env.provider.failDeactivate = errors.New("stripe is down")

	_, err := env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(false, 0))
	require.Error(t, err)
	env.provider.failDeactivate = nil

	// the admin changes their mind and keeps the monthly price
	product, err := env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 999))
	require.NoError(t, err)
	require.NotNil(t, product.ActivePrice(models.PriceIntervalMonth))
	assert.Equal(t, "price_m", product.ActivePrice(models.PriceIntervalMonth).ID)

	res, err := newTestReconciler(env).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)

	_, deactivated := env.provider.priceCalls()
	assert.Empty(t, deactivated)
	assert.True(t, env.prices(t, models.PriceIntervalMonth)[0].Active)
}

func TestUpdatePlanFinishesDivergedChangeFirst(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t, models.Price{ID: "price_old", Interval: "month", Amount: 999, Active: true})
	env.store.failInsertOnce = true

	_, err := env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 1999))
	require.Error(t, err)
	first := loadChange(t, env)
	require.NotEmpty(t, first.NewPriceID)
	require.False(t, first.LocalCreated)

	product, err := env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 1999))
	require.NoError(t, err)
	require.NotNil(t, product.ActivePrice(models.PriceIntervalMonth))
	assert.Equal(t, first.NewPriceID, product.ActivePrice(models.PriceIntervalMonth).ID)

	var stored models.PriceChange
	require.NoError(t, env.db.First(&stored, "id = ?", first.ID).Error)
	assert.Equal(t, models.PriceChangeStatusCompleted, stored.Status)

	created, _ := env.provider.priceCalls()
	assert.Len(t, created, 1)
}
