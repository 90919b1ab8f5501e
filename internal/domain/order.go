package domain

import (
	"fmt"
	"time"
)

// OrderKind distinguishes limit orders from market orders.
type OrderKind string

const (
	OrderKindLimit  OrderKind = "limit"
	OrderKindMarket OrderKind = "market"
)

// Order is a bid or ask intent, either resting on a book side or
// arriving at the engine. Limit is fixed at construction: the quoted
// price for limit orders, MarketAskLimit or MarketBidLimit for market
// orders. Quantity only ever decreases as fills occur.
type Order struct {
	ID             uint64
	CounterpartyID string
	Side           Side
	Kind           OrderKind
	Symbol         string
	Quantity       int64
	Limit          int64 // ticks
	Timestamp      time.Time
}

// IsMarket reports whether the order carries a synthetic limit.
func (o *Order) IsMarket() bool {
	return o.Kind == OrderKindMarket
}

// Matches reports whether o is price compatible with other, a resting
// order on the opposite side. Equal limits cross.
func (o *Order) Matches(other *Order) bool {
	if o.Side == SideBid {
		return o.Limit >= other.Limit
	}
	return o.Limit <= other.Limit
}

// Less defines price/time priority within one side: bids by limit
// descending, asks by limit ascending, then by ID ascending (earlier
// arrival first).
func (o *Order) Less(other *Order) bool {
	if o.Limit != other.Limit {
		if o.Side == SideBid {
			return o.Limit > other.Limit
		}
		return o.Limit < other.Limit
	}
	return o.ID < other.ID
}

// Equal compares orders by identity only.
func (o *Order) Equal(other *Order) bool {
	return o.ID == other.ID
}

func (o *Order) String() string {
	if o.IsMarket() {
		return fmt.Sprintf("%d/%s - %d", o.Quantity, o.CounterpartyID, o.ID)
	}
	return fmt.Sprintf("%d@%d/%s - %d", o.Quantity, o.Limit, o.CounterpartyID, o.ID)
}
