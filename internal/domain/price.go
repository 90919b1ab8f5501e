package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Synthetic limits carried by market orders. A market ask accepts any
// price and sorts last among asks; a market bid stands for +infinity and
// sorts last among bids.
const (
	MarketAskLimit int64 = 0
	MarketBidLimit int64 = math.MaxInt64
)

// MaxPriceScale is the largest number of decimal places a tick can carry.
const MaxPriceScale = 8

// PriceScale converts between decimal prices and integer ticks. A scale
// of 2 maps 1.02 to 102 ticks.
type PriceScale int32

// NewPriceScale validates the number of decimal places.
func NewPriceScale(places int) (PriceScale, error) {
	if places < 0 || places > MaxPriceScale {
		return 0, fmt.Errorf("price scale must be between 0 and %d, got %d", MaxPriceScale, places)
	}
	return PriceScale(places), nil
}

// ToTicks converts a decimal price to ticks. Prices with more decimal
// places than the scale, or beyond the int64 range, are rejected.
func (s PriceScale) ToTicks(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(int32(s))
	if !shifted.IsInteger() {
		return 0, &ValidationError{
			Message: fmt.Sprintf("price %s must have at most %d decimal places", d.String(), int(s)),
		}
	}
	if shifted.GreaterThanOrEqual(decimal.NewFromInt(MarketBidLimit)) ||
		shifted.LessThanOrEqual(decimal.NewFromInt(math.MinInt64)) {
		return 0, &ValidationError{Message: fmt.Sprintf("price %s is out of range", d.String())}
	}
	return shifted.IntPart(), nil
}

// Parse converts a decimal string such as "1.02" to ticks.
func (s PriceScale) Parse(str string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(str))
	if err != nil {
		return 0, &ValidationError{Message: fmt.Sprintf("price %q is not a valid decimal", str)}
	}
	return s.ToTicks(d)
}

// Decimal converts ticks back to a decimal price.
func (s PriceScale) Decimal(ticks int64) decimal.Decimal {
	return decimal.New(ticks, -int32(s))
}

// Amount converts a tick-denominated amount, such as a notional, to a
// decimal in price units.
func (s PriceScale) Amount(ticks decimal.Decimal) decimal.Decimal {
	return ticks.Shift(-int32(s))
}

// Format renders ticks as a fixed-point string. The market bid limit is
// rendered as "inf".
func (s PriceScale) Format(ticks int64) string {
	if ticks == MarketBidLimit {
		return "inf"
	}
	return s.Decimal(ticks).StringFixed(int32(s))
}
