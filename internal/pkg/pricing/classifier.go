package pricing

import "github.com/PhilDL/shuken/app/models"

// Classify decides what an edit of one interval requires, given the plan's
// stored prices. It has no side effects. A nil or non-positive newAmount
// never yields an active price.
func Classify(prices []models.Price, interval string, newActive bool, newAmount *int64) Change {
	var amount int64
	if newAmount != nil {
		amount = *newAmount
	}
	wantActive := newActive && amount > 0

	current := candidate(prices, interval)
	if current == nil {
		if wantActive {
			return Change{Intent: PriceCreated}
		}
		return Change{Intent: NoPriceChange}
	}

	if current.Active {
		switch {
		case !wantActive:
			return Change{Intent: PriceDeactivated, Price: current}
		case amount != current.Amount:
			return Change{Intent: PriceAmountChanged, Price: current}
		default:
			return Change{Intent: NoPriceChange}
		}
	}

	// stored prices are never reactivated, a new one is created instead
	if wantActive {
		return Change{Intent: PriceCreated, Price: current, Anomaly: true}
	}
	return Change{Intent: NoPriceChange}
}

// candidate returns a copy of the active price for the interval, falling
// back to any inactive one.
func candidate(prices []models.Price, interval string) *models.Price {
	var inactive *models.Price
	for i := range prices {
		if prices[i].Interval != interval {
			continue
		}
		if prices[i].Active {
			p := prices[i]
			return &p
		}
		if inactive == nil {
			p := prices[i]
			inactive = &p
		}
	}
	return inactive
}
