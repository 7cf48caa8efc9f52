package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a subscription plan. Its descriptor and prices are mirrored at
// the billing provider; StripeProductID links the two.
type Product struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Name            string    `gorm:"size:255;not null" json:"name" validate:"required,max=255"`
	Description     *string   `gorm:"type:text" json:"description,omitempty" validate:"omitempty,max=2000"`
	StripeProductID string    `gorm:"size:191;not null;uniqueIndex" json:"stripe_product_id" validate:"required"`
	Version         uint      `gorm:"not null;default:1" json:"version"`
	Prices          []Price   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"prices,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}

func (p *Product) Validate() error {
	return validator.New().Struct(p)
}

// DescriptionText returns the description or an empty string.
func (p *Product) DescriptionText() string {
	if p.Description == nil {
		return ""
	}
	return *p.Description
}

// ActivePrice returns the active price for the interval, if any.
func (p *Product) ActivePrice(interval string) *Price {
	for i := range p.Prices {
		if p.Prices[i].Interval == interval && p.Prices[i].Active {
			return &p.Prices[i]
		}
	}
	return nil
}
