package store

import (
	"sync"

	"github.com/efreitasn/matchbook/internal/domain"
)

// Tape is a thread-safe, append-only log of executed trades in
// execution order. It shrinks only through Reset or DropHead. Every Reset
// starts a new generation.
type Tape struct {
	mu     sync.RWMutex
	trades []*domain.Trade
	gen    uint64
}

// NewTape creates an empty Tape.
func NewTape() *Tape {
	return &Tape{
		trades: make([]*domain.Trade, 0),
	}
}

// Append adds a trade to the end of the tape.
func (s *Tape) Append(t *domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append(s.trades, t)
}

// All returns the trades in execution order. Returns an empty slice if
// the tape is empty.
func (s *Tape) All() []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to avoid callers mutating the internal slice.
	result := make([]*domain.Trade, len(s.trades))
	copy(result, s.trades)
	return result
}

// Head returns at most n trades from the start of the tape.
func (s *Tape) Head(n int) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.trades) {
		n = len(s.trades)
	}
	if n <= 0 {
		return []*domain.Trade{}
	}
	result := make([]*domain.Trade, n)
	copy(result, s.trades[:n])
	return result
}

// Len returns the number of trades on the tape.
func (s *Tape) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.trades)
}

// Reset clears the tape and returns how many trades were dropped.
func (s *Tape) Reset() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.trades)
	s.trades = make([]*domain.Trade, 0)
	s.gen++
	return n
}

// Snapshot returns a copy of the trades together with the current
// generation.
func (s *Tape) Snapshot() ([]*domain.Trade, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Trade, len(s.trades))
	copy(result, s.trades)
	return result, s.gen
}

// DropHead removes the first n trades if the tape is still in generation
// gen. A Reset since the snapshot already removed them, so nothing is
// dropped then. It returns how many trades were removed.
func (s *Tape) DropHead(n int, gen uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || n <= 0 {
		return 0
	}
	if n > len(s.trades) {
		n = len(s.trades)
	}
	rest := make([]*domain.Trade, len(s.trades)-n)
	copy(rest, s.trades[n:])
	s.trades = rest
	return n
}
