package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/internal/pkg/billing"
)

func newTestReconciler(env *testEnv) *Reconciler {
	r := NewReconciler(env.store, env.service.Applier(), NewMemoryLocker(), time.Minute, 3)
	r.now = func() time.Time { return time.Now().Add(time.Hour) }
	return r
}

func loadChange(t *testing.T, env *testEnv) models.PriceChange {
	t.Helper()

	var pc models.PriceChange
	require.NoError(t, env.db.Order("created_at DESC").First(&pc).Error)
	return pc
}

func TestSweepResumesAfterLocalInsertFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t, models.Price{ID: "price_old", Interval: "month", Amount: 999, Active: true})
	env.store.failInsertOnce = true

	_, err := env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 1999))
	require.Error(t, err)

	pending := loadChange(t, env)
	assert.Equal(t, models.PriceChangeStatusPending, pending.Status)
	assert.True(t, pending.RemoteDeactivated)
	assert.True(t, pending.LocalDeactivated)
	assert.NotEmpty(t, pending.NewPriceID)
	assert.False(t, pending.LocalCreated)
	assert.Equal(t, 1, pending.Attempts)

	res, err := newTestReconciler(env).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Completed)

	created, deactivated := env.provider.priceCalls()
	assert.Len(t, created, 1, "resume must not create the price again")
	assert.Equal(t, []string{"price_old"}, deactivated)

	done := loadChange(t, env)
	assert.Equal(t, models.PriceChangeStatusCompleted, done.Status)
	assert.True(t, done.LocalCreated)

	prices := env.prices(t, models.PriceIntervalMonth)
	require.Len(t, prices, 2)
	for _, p := range prices {
		assert.Equal(t, p.ID == pending.NewPriceID, p.Active, p.ID)
	}
}

func TestSweepResumesRemoteCreateWithSameIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t)
	env.provider.failCreate[models.PriceIntervalMonth] = &billing.ProviderError{Op: "create_price", Code: "timeout", Retryable: true, Err: context.DeadlineExceeded}
	env.provider.failCreateOnce = true

	_, err := env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 999))
	require.Error(t, err)
	assert.True(t, billing.IsRetryable(err))
	assert.Empty(t, env.prices(t, models.PriceIntervalMonth))

	pending := loadChange(t, env)
	_, err = newTestReconciler(env).Sweep(context.Background())
	require.NoError(t, err)

	created, _ := env.provider.priceCalls()
	require.Len(t, created, 1)
	assert.Equal(t, pending.ID, created[0].IdempotencyKey)

	prices := env.prices(t, models.PriceIntervalMonth)
	require.Len(t, prices, 1)
	assert.True(t, prices[0].Active)
}

func TestSweepGivesUpAfterMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t)
	env.provider.failCreate[models.PriceIntervalMonth] = errors.New("still broken")

	_, err := env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 999))
	require.Error(t, err)

	r := newTestReconciler(env)
	for i := 0; i < 2; i++ {
		res, err := r.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Retried)
	}
	assert.Equal(t, 3, loadChange(t, env).Attempts)

	res, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, models.PriceChangeStatusFailed, loadChange(t, env).Status)

	res, err = r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)
}

func TestSweepSkipsFreshChanges(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t)
	env.provider.failCreate[models.PriceIntervalMonth] = errors.New("broken")

	_, err := env.service.UpdatePlan(context.Background(), "plan-1", monthlyInput(true, 999))
	require.Error(t, err)

	r := NewReconciler(env.store, env.service.Applier(), nil, time.Hour, 3)
	res, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)
}

func TestReconcilerStartRejectsBadSchedule(t *testing.T) {
	env := newTestEnv(t)
	r := newTestReconciler(env)

	require.Error(t, r.Start(context.Background(), "not a schedule"))
	require.NoError(t, r.Start(context.Background(), DefaultReconcileSchedule))
	r.Stop()
}

func TestSweepCountsChangesOfDeletedPlansAsFailed(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t)
	pc := &models.PriceChange{
		ProductID: "gone",
		Interval:  models.PriceIntervalMonth,
		Intent:    string(PriceCreated),
		Amount:    999,
		Currency:  models.CurrencyEUR,
	}
	require.NoError(t, env.store.RecordChange(context.Background(), pc))

	res, err := newTestReconciler(env).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Failed: 1}, res)

	stored, err := env.store.GetChange(context.Background(), pc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriceChangeStatusFailed, stored.Status)
	assert.Equal(t, "plan no longer exists", stored.LastError)
}

func TestSweepSkipsChangeSettledMeanwhile(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlan(t)
	pc := &models.PriceChange{ProductID: "plan-1", Interval: models.PriceIntervalMonth, Intent: string(PriceCreated), Amount: 999}
	require.NoError(t, env.store.RecordChange(context.Background(), pc))

	r := newTestReconciler(env)
	r.store = &settlingStore{Store: env.store}
	res, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Skipped: 1}, res)

	created, _ := env.provider.priceCalls()
	assert.Empty(t, created)
}

// settlingStore reports every change as superseded once it is reloaded.
type settlingStore struct {
	Store
}

func (s *settlingStore) GetChange(ctx context.Context, id string) (*models.PriceChange, error) {
	pc, err := s.Store.GetChange(ctx, id)
	if err != nil {
		return nil, err
	}
	pc.Status = models.PriceChangeStatusSuperseded
	return pc, nil
}
