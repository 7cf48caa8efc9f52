package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a member of the public site. Customers sign in with a one-time
// code sent by email and never have a password.
type Customer struct {
	ID               string        `gorm:"primaryKey;size:36" json:"id"`
	Email            string        `gorm:"size:200;not null;uniqueIndex" json:"email" validate:"required,email,max=200"`
	Name             string        `gorm:"size:150" json:"name" validate:"max=150"`
	Note             string        `gorm:"type:text" json:"note" validate:"max=2000"`
	StripeCustomerID *string       `gorm:"size:191;uniqueIndex" json:"stripe_customer_id,omitempty"`
	Subscription     *Subscription `gorm:"foreignKey:CustomerID" json:"subscription,omitempty"`
	LastLoginAt      *time.Time    `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt        time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Email = NormalizeEmail(c.Email)
	return nil
}

func (c *Customer) Validate() error {
	return validator.New().Struct(c)
}

// StripeID returns the linked Stripe customer id or "".
func (c *Customer) StripeID() string {
	if c.StripeCustomerID == nil {
		return ""
	}
	return *c.StripeCustomerID
}

// HasActiveSubscription reports whether the customer currently has access.
func (c *Customer) HasActiveSubscription() bool {
	return c.Subscription != nil && c.Subscription.IsEntitling()
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
