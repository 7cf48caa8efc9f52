package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PhilDL/shuken/app/models"
)

// Intent is the outcome of classifying the edit of one billing interval.
type Intent string

const (
	PriceCreated       Intent = "PRICE_CREATED"
	NoPriceChange      Intent = "NO_PRICE_CHANGE"
	PriceDeactivated   Intent = "PRICE_DEACTIVATED"
	PriceAmountChanged Intent = "PRICE_AMOUNT_CHANGED"
)

// Intervals lists the billing intervals of a plan in reconciliation order.
var Intervals = []string{models.PriceIntervalMonth, models.PriceIntervalYear}

var (
	ErrPlanNotFound         = errors.New("plan not found")
	ErrPlanLocked           = errors.New("plan is being updated by another request")
	ErrStaleVersion         = errors.New("plan was changed since the form was loaded")
	ErrPlanInUse            = errors.New("plan still has subscriptions")
	ErrActivePriceInvariant = errors.New("more than one active price for plan interval")
)

// Change is what has to happen for one interval. Price is the stored price
// being deactivated or replaced; for an anomaly it is the inactive price the
// request tried to bring back.
type Change struct {
	Intent  Intent
	Price   *models.Price
	Anomaly bool
}

// IntervalError reports a failed reconciliation of one interval.
type IntervalError struct {
	Interval string
	Intent   Intent
	Err      error
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("%sly price (%s): %v", e.Interval, strings.ToLower(string(e.Intent)), e.Err)
}

func (e *IntervalError) Unwrap() error {
	return e.Err
}

// IntervalInput is the requested state of one interval, amounts in minor units.
type IntervalInput struct {
	Enabled  bool
	Amount   *int64
	Currency string
}

// Active reports whether the interval should end up with an active price.
func (in IntervalInput) Active() bool {
	return in.Enabled && in.Amount != nil && *in.Amount > 0
}

// PlanInput is a validated plan form.
type PlanInput struct {
	Name        string
	Description string
	Version     uint
	Monthly     IntervalInput
	Yearly      IntervalInput
}

// For returns the requested state of the given interval.
func (in PlanInput) For(interval string) IntervalInput {
	if interval == models.PriceIntervalYear {
		return in.Yearly
	}
	return in.Monthly
}

// Nickname is the display name of a plan price at the provider.
func Nickname(planName, interval string) string {
	return fmt.Sprintf("%s - %sly", planName, interval)
}
