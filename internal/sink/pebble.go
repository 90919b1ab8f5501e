package sink

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/efreitasn/matchbook/internal/domain"
)

var keyPrefix = []byte("trade/")

// PebbleSink stores the tape in a Pebble database, one record per trade
// keyed by a big-endian sequence number. Sequence numbers continue across
// reopenings so appended dumps keep their order.
type PebbleSink struct {
	db    *pebble.DB
	scale domain.PriceScale

	mu   sync.Mutex
	next uint64
}

// OpenPebbleSink opens (or creates) the database in dir. opts may be nil;
// tests pass an in-memory vfs through it.
func OpenPebbleSink(dir string, opts *pebble.Options, scale domain.PriceScale) (*PebbleSink, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}

	s := &PebbleSink{db: db, scale: scale, next: 1}
	last, err := s.lastSeq()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.next = last + 1
	return s, nil
}

func (s *PebbleSink) lastSeq() (uint64, error) {
	iter, err := s.db.NewIter(prefixBounds())
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}

// WriteTrades commits the trades in one synced batch.
func (s *PebbleSink) WriteTrades(_ context.Context, trades []*domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	seq := s.next
	for _, t := range trades {
		value, err := json.Marshal(NewTradeRecord(t, s.scale))
		if err != nil {
			return fmt.Errorf("encode trade %s: %w", t.TradeID, err)
		}
		if err := b.Set(keyFor(seq), value, nil); err != nil {
			return fmt.Errorf("stage trade %s: %w", t.TradeID, err)
		}
		seq++
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit trades: %w", err)
	}
	s.next = seq
	return nil
}

// Scan calls fn for every stored record in sequence order.
func (s *PebbleSink) Scan(fn func(seq uint64, rec TradeRecord) error) error {
	iter, err := s.db.NewIter(prefixBounds())
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		var rec TradeRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return fmt.Errorf("decode record %d: %w", seq, err)
		}
		if err := fn(seq, rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Close closes the underlying database.
func (s *PebbleSink) Close() error {
	return s.db.Close()
}

func prefixBounds() *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: []byte("trade0"), // '0' follows '/'
	}
}

func keyFor(seq uint64) []byte {
	key := make([]byte, len(keyPrefix)+8)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[len(keyPrefix):], seq)
	return key
}

func parseKey(key []byte) (uint64, error) {
	if !bytes.HasPrefix(key, keyPrefix) || len(key) != len(keyPrefix)+8 {
		return 0, errors.New("invalid trade key")
	}
	return binary.BigEndian.Uint64(key[len(keyPrefix):]), nil
}
