package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalidAmount     = errors.New("amount must be a decimal with at most two fraction digits")
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
)

// ParseAmount converts a major-unit decimal string ("12.50") into minor
// units (1250). This is the only place amounts are scaled.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || !digitsOnly(whole) {
		return 0, ErrInvalidAmount
	}
	if hasDot && (len(frac) == 0 || len(frac) > 2 || !digitsOnly(frac)) {
		return 0, ErrInvalidAmount
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > math.MaxInt64/100-1 {
		return 0, ErrInvalidAmount
	}
	var cents int64
	if frac != "" {
		cents, _ = strconv.ParseInt(frac, 10, 64)
		if len(frac) == 1 {
			cents *= 10
		}
	}

	amount := units*100 + cents
	if amount <= 0 {
		return 0, ErrAmountNotPositive
	}
	return amount, nil
}

// FormatAmount renders minor units as a major-unit decimal string.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
