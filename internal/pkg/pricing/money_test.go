package pricing

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		err  error
	}{
		{"12.50", 1250, nil},
		{"12.5", 1250, nil},
		{"9.99", 999, nil},
		{"19", 1900, nil},
		{" 0.01 ", 1, nil},
		{"0", 0, ErrAmountNotPositive},
		{"0.00", 0, ErrAmountNotPositive},
		{"", 0, ErrInvalidAmount},
		{"12.", 0, ErrInvalidAmount},
		{".50", 0, ErrInvalidAmount},
		{"12.505", 0, ErrInvalidAmount},
		{"-5", 0, ErrInvalidAmount},
		{"1e3", 0, ErrInvalidAmount},
		{"12,50", 0, ErrInvalidAmount},
		{"99999999999999999999", 0, ErrInvalidAmount},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Fatalf("ParseAmount(%q) error = %v, want %v", tt.in, err, tt.err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseAmount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := map[int64]string{
		1250: "12.50",
		999:  "9.99",
		1:    "0.01",
		0:    "0.00",
		-150: "-1.50",
	}
	for in, want := range tests {
		if got := FormatAmount(in); got != want {
			t.Fatalf("FormatAmount(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestAmountRoundTrip(t *testing.T) {
	minor, err := ParseAmount("12.50")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minor != 1250 {
		t.Fatalf("got %d minor units, want 1250", minor)
	}
	if got := FormatAmount(minor); got != "12.50" {
		t.Fatalf("redisplayed as %q, want 12.50", got)
	}
}
