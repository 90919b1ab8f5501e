package domain

import "github.com/shopspring/decimal"

// LongShort classifies a net position.
type LongShort string

const (
	Flat  LongShort = "flat"
	Long  LongShort = "long"
	Short LongShort = "short"
)

// Position tracks one counterparty's fills in a single instrument.
// Value is the signed cash flow in tick·quantity units: buys subtract
// price × quantity, sells add it.
type Position struct {
	CounterpartyID string
	Symbol         string
	Bought         int64
	Sold           int64
	Value          decimal.Decimal
	RealizedPnL    decimal.Decimal
}

// Net returns bought minus sold.
func (p *Position) Net() int64 {
	return p.Bought - p.Sold
}

// LongShort reports the direction of the net position.
func (p *Position) LongShort() LongShort {
	switch n := p.Net(); {
	case n > 0:
		return Long
	case n < 0:
		return Short
	}
	return Flat
}

// Apply folds a trade into the position if the counterparty took part in
// it. A self-trade counts on both sides. Realized PnL is captured each
// time the position returns to flat.
func (p *Position) Apply(t *Trade) {
	applied := false
	if t.BuyerID == p.CounterpartyID {
		p.Bought += t.Quantity
		p.Value = p.Value.Sub(t.Notional())
		applied = true
	}
	if t.SellerID == p.CounterpartyID {
		p.Sold += t.Quantity
		p.Value = p.Value.Add(t.Notional())
		applied = true
	}
	if applied && p.Net() == 0 {
		p.RealizedPnL = p.Value
	}
}

// UnrealizedPnL marks the open position at mark (ticks). A flat position
// has no unrealized PnL.
func (p *Position) UnrealizedPnL(mark int64) decimal.Decimal {
	if p.Net() == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(mark).Mul(decimal.NewFromInt(p.Net())).Add(p.Value)
}
