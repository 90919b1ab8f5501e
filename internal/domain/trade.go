package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is an execution between an incoming order and a resting order.
// It is never mutated after creation.
type Trade struct {
	TradeID         string
	Symbol          string
	Price           int64 // ticks
	Quantity        int64
	BuyerID         string
	SellerID        string
	BuyOrderID      uint64
	SellOrderID     uint64
	IncomingOrderID uint64
	RestingOrderID  uint64
	ExecutedAt      time.Time
}

// NewTrade derives the trade produced by matching incoming against
// resting. It does not touch either order's quantity; the caller
// decrements both by the returned Quantity.
//
// The execution price is the resting order's limit, except that a limit
// order never trades through its own limit. A resting market order has no
// real price, so a limit order trading against it executes at its own
// limit.
func NewTrade(incoming, resting *Order, executedAt time.Time) (*Trade, error) {
	qty := incoming.Quantity
	if resting.Quantity < qty {
		qty = resting.Quantity
	}

	var price int64
	switch incoming.Kind {
	case OrderKindMarket:
		price = resting.Limit
	case OrderKindLimit:
		price = resting.Limit
		if resting.IsMarket() || moreConservative(incoming, resting) {
			price = incoming.Limit
		}
	default:
		return nil, &UnsupportedOrderTypeError{Kind: incoming.Kind}
	}

	t := &Trade{
		TradeID:         uuid.New().String(),
		Symbol:          incoming.Symbol,
		Price:           price,
		Quantity:        qty,
		IncomingOrderID: incoming.ID,
		RestingOrderID:  resting.ID,
		ExecutedAt:      executedAt,
	}

	buy, sell := incoming, resting
	if incoming.Side == SideAsk {
		buy, sell = resting, incoming
	}
	t.BuyerID, t.BuyOrderID = buy.CounterpartyID, buy.ID
	t.SellerID, t.SellOrderID = sell.CounterpartyID, sell.ID

	return t, nil
}

// moreConservative reports whether the incoming limit is worse for the
// incoming party's counterparty than the resting limit: lower for a bid,
// higher for an ask.
func moreConservative(incoming, resting *Order) bool {
	if incoming.Side == SideBid {
		return incoming.Limit < resting.Limit
	}
	return incoming.Limit > resting.Limit
}

// Notional returns price × quantity in tick units. The product can exceed
// the int64 range, so it is computed as a decimal.
func (t *Trade) Notional() decimal.Decimal {
	return decimal.NewFromInt(t.Price).Mul(decimal.NewFromInt(t.Quantity))
}

func (t *Trade) String() string {
	return fmt.Sprintf("%d @ %d (%d/%d) %s/%s",
		t.Quantity, t.Price, t.IncomingOrderID, t.RestingOrderID, t.BuyerID, t.SellerID)
}
