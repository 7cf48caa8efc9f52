package models

import "time"

const (
	PriceIntervalMonth = "month"
	PriceIntervalYear  = "year"
)

const (
	PriceTypeRecurring = "recurring"
	PriceTypeOneTime   = "one_time"
)

const (
	CurrencyEUR = "eur"
	CurrencyUSD = "usd"
)

// Price is an immutable amount/currency/interval under a Product. The ID is
// the billing provider's price id, there is no separate mapping table.
//
// At most one active price may exist per (product, interval). Storage does
// not enforce it; the pricing package does.
type Price struct {
	ID        string    `gorm:"primaryKey;size:191" json:"id"`
	ProductID string    `gorm:"size:36;not null;index:idx_prices_product_interval,priority:1" json:"product_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Currency  string    `gorm:"size:3;not null" json:"currency"`
	Interval  string    `gorm:"column:billing_interval;size:10;not null;index:idx_prices_product_interval,priority:2" json:"interval"`
	Active    bool      `gorm:"not null;index" json:"active"`
	Type      string    `gorm:"size:20;not null" json:"type"`
	Nickname  string    `gorm:"size:255" json:"nickname"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
