package apiv1

import "time"

// Pong is the answer of GET /ping.
type Pong struct {
	Ping string `json:"ping"`
}

// Price is an active price of a plan.
type Price struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Interval string `json:"interval"`
}

// Plan is a subscription plan as exposed to API clients.
type Plan struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Prices      []Price `json:"prices"`
}

// Subscription is the signed-in customer's subscription.
type Subscription struct {
	Status            string     `json:"status"`
	PriceID           string     `json:"price_id,omitempty"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	Entitled          bool       `json:"entitled"`
}

// Error is the body of every non-2xx JSON answer.
type Error struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
