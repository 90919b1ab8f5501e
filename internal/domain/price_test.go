package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewPriceScale(t *testing.T) {
	for _, places := range []int{0, 2, MaxPriceScale} {
		if _, err := NewPriceScale(places); err != nil {
			t.Errorf("NewPriceScale(%d) unexpected error: %v", places, err)
		}
	}
	for _, places := range []int{-1, MaxPriceScale + 1} {
		if _, err := NewPriceScale(places); err == nil {
			t.Errorf("NewPriceScale(%d) expected error", places)
		}
	}
}

func TestPriceScale_Parse(t *testing.T) {
	tests := []struct {
		name    string
		scale   PriceScale
		input   string
		want    int64
		wantErr bool
	}{
		{"whole", 2, "101", 10100, false},
		{"two places", 2, "1.02", 102, false},
		{"one place", 2, "1.5", 150, false},
		{"trailing zeros", 2, "1.000", 100, false},
		{"too precise", 2, "1.234", 0, true},
		{"scale zero", 0, "101", 101, false},
		{"scale zero fraction", 0, "101.5", 0, true},
		{"negative", 2, "-0.25", -25, false},
		{"garbage", 2, "abc", 0, true},
		{"empty", 2, "", 0, true},
		{"overflow", 2, "100000000000000000000", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.scale.Parse(tt.input)
			if tt.wantErr {
				var valErr *ValidationError
				if !errors.As(err, &valErr) {
					t.Errorf("Parse(%q) expected ValidationError, got %v", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestPriceScale_ToTicksFromFloat(t *testing.T) {
	// 1.10 is not exactly representable as a float64.
	got, err := PriceScale(2).ToTicks(decimal.NewFromFloat(1.10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 110 {
		t.Errorf("ToTicks(1.10) = %d, want 110", got)
	}
}

func TestPriceScale_Format(t *testing.T) {
	s := PriceScale(2)
	if got := s.Format(102); got != "1.02" {
		t.Errorf("Format(102) = %q, want %q", got, "1.02")
	}
	if got := s.Format(10100); got != "101.00" {
		t.Errorf("Format(10100) = %q, want %q", got, "101.00")
	}
	if got := s.Format(MarketAskLimit); got != "0.00" {
		t.Errorf("Format(MarketAskLimit) = %q, want %q", got, "0.00")
	}
	if got := s.Format(MarketBidLimit); got != "inf" {
		t.Errorf("Format(MarketBidLimit) = %q, want %q", got, "inf")
	}
}

func TestPriceScale_Decimal(t *testing.T) {
	d := PriceScale(2).Decimal(102)
	if !d.Equal(decimal.RequireFromString("1.02")) {
		t.Errorf("Decimal(102) = %s, want 1.02", d)
	}
}
