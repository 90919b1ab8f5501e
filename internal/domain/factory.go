package domain

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Sequence hands out strictly increasing order IDs starting at 1.
// Safe for concurrent use.
type Sequence struct {
	last atomic.Uint64
}

// NewSequence creates a sequence whose first ID is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next ID.
func (s *Sequence) Next() uint64 {
	return s.last.Add(1)
}

// Last returns the most recently issued ID, or 0 if none was issued.
func (s *Sequence) Last() uint64 {
	return s.last.Load()
}

// OrderRequest carries the typed fields needed to construct an Order.
// Side is kept as a token so the factory can tell a missing side from an
// unknown one.
type OrderRequest struct {
	Kind           OrderKind
	Side           string
	Quantity       int64
	CounterpartyID string
	Symbol         string
	Price          *int64     // ticks, required for limit orders
	Timestamp      *time.Time // defaults to the factory clock
}

// OrderFactory validates requests and builds orders with IDs from its
// sequence.
type OrderFactory struct {
	seq *Sequence
	now func() time.Time
}

// NewOrderFactory creates a factory. A nil clock defaults to time.Now.
func NewOrderFactory(seq *Sequence, now func() time.Time) *OrderFactory {
	if now == nil {
		now = time.Now
	}
	return &OrderFactory{seq: seq, now: now}
}

// NewOrder validates req and returns a new order. IDs are only consumed
// by requests that pass validation.
func (f *OrderFactory) NewOrder(req OrderRequest) (*Order, error) {
	var limit int64
	switch req.Kind {
	case OrderKindLimit:
		if req.Price == nil {
			return nil, &ValidationError{Message: "price is required for limit orders"}
		}
		if *req.Price < 0 {
			return nil, &ValidationError{Message: "price must not be negative"}
		}
		limit = *req.Price
	case OrderKindMarket:
	default:
		return nil, &ValidationError{
			Message: fmt.Sprintf("Unknown order type: %s. Must be one of: limit, market", req.Kind),
		}
	}

	if strings.TrimSpace(req.CounterpartyID) == "" {
		return nil, &ValidationError{Message: "counterparty_id is required"}
	}

	side, err := ParseSide(req.Side)
	if err != nil {
		return nil, err
	}

	if req.Quantity < 0 {
		return nil, &ValidationError{Message: "quantity must not be negative"}
	}

	if req.Kind == OrderKindMarket {
		if side == SideBid {
			limit = MarketBidLimit
		} else {
			limit = MarketAskLimit
		}
	}

	ts := f.now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	return &Order{
		ID:             f.seq.Next(),
		CounterpartyID: req.CounterpartyID,
		Side:           side,
		Kind:           req.Kind,
		Symbol:         req.Symbol,
		Quantity:       req.Quantity,
		Limit:          limit,
		Timestamp:      ts,
	}, nil
}
