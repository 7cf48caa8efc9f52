package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/internal/pkg/metrics"
)

const (
	DefaultReconcileSchedule    = "@every 5m"
	DefaultReconcileMinAge      = 2 * time.Minute
	DefaultReconcileMaxAttempts = 10
	reconcileBatchSize          = 50
)

var (
	errChangeSettled = errors.New("price change is no longer pending")
	errPlanGone      = errors.New("plan of price change no longer exists")
)

// SweepResult counts what one sweep did.
type SweepResult struct {
	Completed int
	Retried   int
	Failed    int
	Skipped   int
}

// Reconciler resumes price changes that were left pending by a failed or
// interrupted request.
type Reconciler struct {
	store       Store
	applier     *Applier
	locker      Locker
	minAge      time.Duration
	maxAttempts int
	now         func() time.Time
	cron        *cron.Cron
}

func NewReconciler(store Store, applier *Applier, locker Locker, minAge time.Duration, maxAttempts int) *Reconciler {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if minAge < 0 {
		minAge = DefaultReconcileMinAge
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultReconcileMaxAttempts
	}
	return &Reconciler{
		store:       store,
		applier:     applier,
		locker:      locker,
		minAge:      minAge,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Sweep resumes every pending change that has not been touched for minAge.
// Changes that reached maxAttempts are marked failed instead.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	changes, err := r.store.PendingChanges(ctx, r.now().Add(-r.minAge), reconcileBatchSize)
	if err != nil {
		return res, fmt.Errorf("load pending price changes: %w", err)
	}

	for i := range changes {
		pc := &changes[i]
		if pc.Attempts >= r.maxAttempts {
			pc.Status = models.PriceChangeStatusFailed
			if err := r.store.SaveChange(ctx, pc); err != nil {
				return res, fmt.Errorf("mark price change %s failed: %w", pc.ID, err)
			}
			log.Errorf("[Reconciler] Price change %s gave up after %d attempts: %s", pc.ID, pc.Attempts, pc.LastError)
			metrics.ReconcilerRunsTotal.WithLabelValues("gave_up").Inc()
			res.Failed++
			continue
		}

		err := r.resume(ctx, pc)
		switch {
		case errors.Is(err, ErrPlanLocked), errors.Is(err, errChangeSettled):
			res.Skipped++
		case errors.Is(err, errPlanGone), errors.Is(err, ErrActivePriceInvariant):
			log.Errorf("[Reconciler] Price change %s failed: %v", pc.ID, err)
			metrics.ReconcilerRunsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			res.Failed++
		case err != nil:
			log.Warnf("[Reconciler] Price change %s still pending: %v", pc.ID, err)
			metrics.ReconcilerRunsTotal.WithLabelValues("retry").Inc()
			res.Retried++
		default:
			metrics.ReconcilerRunsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
			res.Completed++
		}
	}

	if len(changes) > 0 {
		log.Infof("[Reconciler] Sweep done: %d completed, %d retried, %d failed, %d skipped",
			res.Completed, res.Retried, res.Failed, res.Skipped)
	}
	return res, nil
}

func (r *Reconciler) resume(ctx context.Context, pc *models.PriceChange) error {
	unlock, err := r.locker.Lock(ctx, pc.ProductID, planLockTTL)
	if err != nil {
		return err
	}
	defer unlock()

	// a plan update may have settled the change before the lock was taken
	current, err := r.store.GetChange(ctx, pc.ID)
	if err != nil {
		return fmt.Errorf("reload price change %s: %w", pc.ID, err)
	}
	if !current.IsPending() {
		return errChangeSettled
	}
	*pc = *current

	product, err := r.store.GetProduct(ctx, pc.ProductID, false)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			pc.Status = models.PriceChangeStatusFailed
			pc.LastError = "plan no longer exists"
			if err := r.store.SaveChange(ctx, pc); err != nil {
				return err
			}
			return errPlanGone
		}
		return err
	}
	return r.applier.Run(ctx, product, pc)
}

// Start schedules Sweep with a cron spec such as "@every 5m".
func (r *Reconciler) Start(ctx context.Context, spec string) error {
	r.cron = cron.New(cron.WithLocation(time.UTC))
	_, err := r.cron.AddFunc(spec, func() {
		if _, err := r.Sweep(ctx); err != nil {
			log.Errorf("[Reconciler] Sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}
	r.cron.Start()
	log.Infof("[Reconciler] Scheduled price change sweep (%s)", spec)
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (r *Reconciler) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}
