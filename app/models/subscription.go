package models

import "time"

const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusUnpaid     = "unpaid"
	SubscriptionStatusPaused     = "paused"
)

// Subscription mirrors a Stripe subscription for a customer. The ID is the
// Stripe subscription id; a customer holds at most one.
type Subscription struct {
	ID                 string     `gorm:"primaryKey;size:191" json:"id"`
	CustomerID         string     `gorm:"size:36;not null;uniqueIndex" json:"customer_id"`
	ProductID          string     `gorm:"size:36;not null;index" json:"product_id"`
	PriceID            string     `gorm:"size:191;not null;index" json:"price_id"`
	Interval           string     `gorm:"column:billing_interval;size:10;not null" json:"interval"`
	Status             string     `gorm:"size:32;not null;index" json:"status"`
	CurrentPeriodStart *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `gorm:"not null" json:"cancel_at_period_end"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsEntitling reports whether the subscription grants access.
func (s *Subscription) IsEntitling() bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}
