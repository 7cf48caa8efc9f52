package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PriceChangeStatusPending    = "pending"
	PriceChangeStatusCompleted  = "completed"
	PriceChangeStatusFailed     = "failed"
	PriceChangeStatusSuperseded = "superseded" // replaced by a later plan update
)

// PriceChange is the intent log entry for one interval reconciliation. It is
// written before the first side effect and records every completed step, so
// an interrupted change can be resumed without repeating remote writes.
type PriceChange struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	ProductID         string     `gorm:"size:36;not null;index" json:"product_id"`
	Interval          string     `gorm:"column:billing_interval;size:10;not null" json:"interval"`
	Intent            string     `gorm:"size:40;not null" json:"intent"`
	OldPriceID        string     `gorm:"size:191" json:"old_price_id"`
	NewPriceID        string     `gorm:"size:191" json:"new_price_id"`
	Amount            int64      `json:"amount"`
	Currency          string     `gorm:"size:3" json:"currency"`
	Status            string     `gorm:"size:20;not null;index" json:"status"`
	RemoteDeactivated bool       `gorm:"not null" json:"remote_deactivated"`
	LocalDeactivated  bool       `gorm:"not null" json:"local_deactivated"`
	LocalCreated      bool       `gorm:"not null" json:"local_created"`
	Attempts          int        `gorm:"not null" json:"attempts"`
	LastError         string     `gorm:"type:text" json:"last_error"`
	CompletedAt       *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (pc *PriceChange) BeforeCreate(tx *gorm.DB) error {
	if pc.ID == "" {
		pc.ID = uuid.NewString()
	}
	if pc.Status == "" {
		pc.Status = PriceChangeStatusPending
	}
	return nil
}

func (pc *PriceChange) IsPending() bool {
	return pc.Status == PriceChangeStatusPending
}

// Diverged reports whether a completed step left the provider and the local
// catalog disagreeing about a price.
func (pc *PriceChange) Diverged() bool {
	return (pc.RemoteDeactivated && !pc.LocalDeactivated) ||
		(pc.NewPriceID != "" && !pc.LocalCreated)
}
