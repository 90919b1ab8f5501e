package store

import (
	"sort"
	"sync"

	"github.com/efreitasn/matchbook/internal/domain"
)

// PositionStore is a thread-safe in-memory store of positions, keyed by
// counterparty_id.
type PositionStore struct {
	mu        sync.RWMutex
	symbol    string
	positions map[string]*domain.Position
}

// NewPositionStore creates an empty PositionStore for one instrument.
func NewPositionStore(symbol string) *PositionStore {
	return &PositionStore{
		symbol:    symbol,
		positions: make(map[string]*domain.Position),
	}
}

// Apply folds trades into the buyer's and seller's positions, creating
// positions on first use.
func (s *PositionStore) Apply(trades []*domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range trades {
		buyer := s.getOrCreate(t.BuyerID)
		buyer.Apply(t)
		if t.SellerID != t.BuyerID {
			s.getOrCreate(t.SellerID).Apply(t)
		}
	}
}

func (s *PositionStore) getOrCreate(id string) *domain.Position {
	p, ok := s.positions[id]
	if !ok {
		p = &domain.Position{CounterpartyID: id, Symbol: s.symbol}
		s.positions[id] = p
	}
	return p
}

// Get returns a copy of the counterparty's position. It returns
// domain.ErrPositionNotFound if the counterparty never traded.
func (s *PositionStore) Get(id string) (domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrPositionNotFound
	}
	return *p, nil
}

// All returns copies of every position ordered by counterparty_id.
func (s *PositionStore) All() []domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Position, 0, len(s.positions))
	for _, p := range s.positions {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CounterpartyID < result[j].CounterpartyID
	})
	return result
}

// Len returns the number of tracked counterparties.
func (s *PositionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.positions)
}
