package engine

import (
	"fmt"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/google/btree"
)

// PriceLevel represents an aggregated price level on one book side.
type PriceLevel struct {
	Price         int64
	TotalQuantity int64
	OrderCount    int
}

// priorityLess orders a side by price/time priority so that Min()
// returns the best order and Max() the worst. Only Limit and ID take
// part, and neither changes while an order rests.
func priorityLess(a, b *domain.Order) bool {
	return a.Less(b)
}

// BookSide holds the resting orders of one side, kept in priority order
// in a B-tree with an ID index guarding against duplicates.
type BookSide struct {
	side  domain.Side
	tree  *btree.BTreeG[*domain.Order]
	index map[uint64]struct{}
}

// NewBookSide creates an empty side.
func NewBookSide(side domain.Side) *BookSide {
	const degree = 32
	return &BookSide{
		side:  side,
		tree:  btree.NewG[*domain.Order](degree, priorityLess),
		index: make(map[uint64]struct{}),
	}
}

// Side returns which side of the book this is.
func (b *BookSide) Side() domain.Side {
	return b.side
}

// Insert adds a resting order. Inserting an order of the wrong side, with
// no quantity, or whose ID is already present is a programming error and
// panics.
func (b *BookSide) Insert(o *domain.Order) {
	if o.Side != b.side {
		panic(fmt.Sprintf("engine: %s order %d inserted on %s side", o.Side, o.ID, b.side))
	}
	if o.Quantity <= 0 {
		panic(fmt.Sprintf("engine: order %d inserted with quantity %d", o.ID, o.Quantity))
	}
	if _, dup := b.index[o.ID]; dup {
		panic(fmt.Sprintf("engine: duplicate order id %d on %s side", o.ID, b.side))
	}
	b.tree.ReplaceOrInsert(o)
	b.index[o.ID] = struct{}{}
}

// PeekBest returns the highest-priority order without removing it.
func (b *BookSide) PeekBest() (*domain.Order, error) {
	o, ok := b.tree.Min()
	if !ok {
		return nil, domain.ErrEmptyBook
	}
	return o, nil
}

// PeekWorst returns the lowest-priority order without removing it.
func (b *BookSide) PeekWorst() (*domain.Order, error) {
	o, ok := b.tree.Max()
	if !ok {
		return nil, domain.ErrEmptyBook
	}
	return o, nil
}

// RemoveBest removes and returns the highest-priority order.
func (b *BookSide) RemoveBest() (*domain.Order, error) {
	o, ok := b.tree.DeleteMin()
	if !ok {
		return nil, domain.ErrEmptyBook
	}
	delete(b.index, o.ID)
	return o, nil
}

// PeekBestPriced returns the highest-priority order that is not a market
// order. Resting market orders sort ahead of every priced order, so they
// are walked past.
func (b *BookSide) PeekBestPriced() (*domain.Order, error) {
	var best *domain.Order
	b.tree.Ascend(func(o *domain.Order) bool {
		if o.IsMarket() {
			return true
		}
		best = o
		return false
	})
	if best == nil {
		return nil, domain.ErrEmptyBook
	}
	return best, nil
}

// Remove deletes o from the side and reports whether it was resting.
func (b *BookSide) Remove(o *domain.Order) bool {
	if _, ok := b.tree.Delete(o); !ok {
		return false
	}
	delete(b.index, o.ID)
	return true
}

// Contains reports whether an order with the given ID rests on this side.
func (b *BookSide) Contains(id uint64) bool {
	_, ok := b.index[id]
	return ok
}

// VolumeAt sums the quantity of every order resting at exactly price.
// Orders are visited in priority order, so the walk stops once it is past
// that price.
func (b *BookSide) VolumeAt(price int64) int64 {
	var volume int64
	b.tree.Ascend(func(o *domain.Order) bool {
		if o.Limit == price {
			volume += o.Quantity
			return true
		}
		if b.side == domain.SideBid {
			return o.Limit > price
		}
		return o.Limit < price
	})
	return volume
}

// Len returns the number of individual orders on this side.
func (b *BookSide) Len() int {
	return b.tree.Len()
}

// Walk iterates orders from best to worst. The callback returns true to
// continue, false to stop. Callers must not modify the orders.
func (b *BookSide) Walk(fn func(*domain.Order) bool) {
	b.tree.Ascend(fn)
}

// Orders returns value copies of the resting orders, best first.
func (b *BookSide) Orders() []domain.Order {
	orders := make([]domain.Order, 0, b.tree.Len())
	b.tree.Ascend(func(o *domain.Order) bool {
		orders = append(orders, *o)
		return true
	})
	return orders
}

// Levels aggregates orders into at most n price levels, best first.
func (b *BookSide) Levels(n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	b.tree.Ascend(func(o *domain.Order) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price == o.Limit {
			levels[len(levels)-1].TotalQuantity += o.Quantity
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         o.Limit,
			TotalQuantity: o.Quantity,
			OrderCount:    1,
		})
		return true
	})
	return levels
}
