package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/store"
)

// TapeSink receives an ordered dump of the trade tape.
type TapeSink interface {
	WriteTrades(ctx context.Context, trades []*domain.Trade) error
}

// Recorder observes engine activity. Implementations must be cheap: they
// are called with the engine lock held.
type Recorder interface {
	OrderAccepted(o *domain.Order)
	OrderRejected(err error)
	TradeExecuted(t *domain.Trade)
	BookDepth(bids, asks int)
}

type noopRecorder struct{}

func (noopRecorder) OrderAccepted(*domain.Order) {}
func (noopRecorder) OrderRejected(error)         {}
func (noopRecorder) TradeExecuted(*domain.Trade) {}
func (noopRecorder) BookDepth(int, int)          {}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Book state is logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder attaches a Recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.rec = r }
}

// WithClock overrides the clock used to stamp trades.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTape makes the engine append to an existing tape.
func WithTape(t *store.Tape) Option {
	return func(e *Engine) { e.tape = t }
}

// Engine matches orders for a single instrument under price/time
// priority. One mutex guards both book sides: a submit reads the opposite
// side and writes its own, so the sides are never locked independently.
// The tape carries its own lock.
type Engine struct {
	mu      sync.Mutex
	symbol  string
	factory *domain.OrderFactory
	bids    *BookSide
	asks    *BookSide
	tape    *store.Tape
	now     func() time.Time
	logger  *slog.Logger
	rec     Recorder
}

// NewEngine creates an engine with empty book sides and tape.
func NewEngine(symbol string, factory *domain.OrderFactory, opts ...Option) *Engine {
	e := &Engine{
		symbol:  symbol,
		factory: factory,
		bids:    NewBookSide(domain.SideBid),
		asks:    NewBookSide(domain.SideAsk),
		tape:    store.NewTape(),
		now:     time.Now,
		logger:  slog.Default(),
		rec:     noopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Symbol returns the instrument this engine serves.
func (e *Engine) Symbol() string {
	return e.symbol
}

// Submit builds an order from req and matches it against the opposite
// side. It returns the trades in fill order and, if quantity remains, a
// copy of the order as it now rests on its own side.
//
// Order construction errors are returned unchanged and leave the book
// untouched. A market order that exhausts the opposite side rests at its
// synthetic limit.
func (e *Engine) Submit(req domain.OrderRequest) ([]*domain.Trade, *domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.factory.NewOrder(req)
	if err != nil {
		e.rec.OrderRejected(err)
		return nil, nil, err
	}
	if order.Symbol == "" {
		order.Symbol = e.symbol
	}
	e.rec.OrderAccepted(order)

	debug := e.logger.Enabled(context.Background(), slog.LevelDebug)
	if debug {
		e.logger.Debug("before processing",
			slog.Uint64("order_id", order.ID),
			slog.String("order", order.String()),
			slog.String("bids", formatSide(e.bids)),
			slog.String("asks", formatSide(e.asks)),
		)
	}

	opposite := e.sideBook(order.Side.Opposite())
	executedAt := e.now()
	trades := make([]*domain.Trade, 0)

	for order.Quantity > 0 {
		resting, err := nextResting(opposite, order)
		if err != nil || !order.Matches(resting) {
			break
		}

		trade, err := domain.NewTrade(order, resting, executedAt)
		if err != nil {
			// The factory only produces limit and market orders.
			panic(err)
		}

		order.Quantity -= trade.Quantity
		resting.Quantity -= trade.Quantity

		e.tape.Append(trade)
		trades = append(trades, trade)
		e.rec.TradeExecuted(trade)

		if resting.Quantity == 0 {
			opposite.Remove(resting)
		}

		if debug {
			e.logger.Debug("matched",
				slog.String("trade", trade.String()),
				slog.Int64("remaining_quantity", order.Quantity),
			)
		}
	}

	var resting *domain.Order
	if order.Quantity > 0 {
		e.sideBook(order.Side).Insert(order)
		snapshot := *order
		resting = &snapshot
	}

	e.rec.BookDepth(e.bids.Len(), e.asks.Len())
	if debug {
		e.logger.Debug("after processing",
			slog.Uint64("order_id", order.ID),
			slog.Int("trades", len(trades)),
			slog.Bool("resting", resting != nil),
			slog.String("bids", formatSide(e.bids)),
			slog.String("asks", formatSide(e.asks)),
		)
	}

	return trades, resting, nil
}

// nextResting picks the order incoming trades against next. Two market
// orders have no price to trade at, so a market order skips resting market
// orders and takes the best priced one.
func nextResting(opposite *BookSide, incoming *domain.Order) (*domain.Order, error) {
	if incoming.IsMarket() {
		return opposite.PeekBestPriced()
	}
	return opposite.PeekBest()
}

func (e *Engine) sideBook(side domain.Side) *BookSide {
	if side == domain.SideBid {
		return e.bids
	}
	return e.asks
}

func (e *Engine) limitOf(b *BookSide, best bool) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var o *domain.Order
	var err error
	if best {
		o, err = b.PeekBest()
	} else {
		o, err = b.PeekWorst()
	}
	if err != nil {
		return 0, fmt.Errorf("%s side: %w", b.Side(), err)
	}
	return o.Limit, nil
}

// BestBid returns the limit of the highest-priority bid.
func (e *Engine) BestBid() (int64, error) { return e.limitOf(e.bids, true) }

// WorstBid returns the limit of the lowest-priority bid.
func (e *Engine) WorstBid() (int64, error) { return e.limitOf(e.bids, false) }

// BestAsk returns the limit of the highest-priority ask.
func (e *Engine) BestAsk() (int64, error) { return e.limitOf(e.asks, true) }

// WorstAsk returns the limit of the lowest-priority ask.
func (e *Engine) WorstAsk() (int64, error) { return e.limitOf(e.asks, false) }

// VolumeAt returns the resting quantity at exactly price on side. It
// fails with domain.ErrEmptyBook when that side has no orders.
func (e *Engine) VolumeAt(side domain.Side, price int64) (int64, error) {
	if side != domain.SideBid && side != domain.SideAsk {
		return 0, &domain.UnknownSideError{Side: string(side)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	b := e.sideBook(side)
	if b.Len() == 0 {
		return 0, fmt.Errorf("%s side: %w", side, domain.ErrEmptyBook)
	}
	return b.VolumeAt(price), nil
}

// BidCount returns the number of resting bids.
func (e *Engine) BidCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bids.Len()
}

// AskCount returns the number of resting asks.
func (e *Engine) AskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.asks.Len()
}

// Bids returns copies of the resting bids, best first.
func (e *Engine) Bids() []domain.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bids.Orders()
}

// Asks returns copies of the resting asks, best first.
func (e *Engine) Asks() []domain.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.asks.Orders()
}

// Depth returns up to n aggregated price levels per side.
func (e *Engine) Depth(n int) (bids, asks []PriceLevel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bids.Levels(n), e.asks.Levels(n)
}

// Tape returns the executed trades in order.
func (e *Engine) Tape() []*domain.Trade {
	return e.tape.All()
}

// ResetTape clears the tape and returns the number of trades dropped.
func (e *Engine) ResetTape() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tape.Reset()
}

// DumpTape writes the tape as it stands to sink. When wipe is set and the
// write succeeded, exactly the trades that were written are dropped: trades
// executed while the sink was busy stay on the tape. The engine lock is not
// held during the write.
func (e *Engine) DumpTape(ctx context.Context, sink TapeSink, wipe bool) (int, error) {
	trades, gen := e.tape.Snapshot()
	if err := sink.WriteTrades(ctx, trades); err != nil {
		return 0, fmt.Errorf("dump tape: %w", err)
	}
	if wipe {
		e.tape.DropHead(len(trades), gen)
	}
	return len(trades), nil
}

// String renders the book and the first ten trades on the tape.
func (e *Engine) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("***Bids***\n")
	writeSide(&sb, e.bids)
	sb.WriteString("\n***Asks***\n")
	writeSide(&sb, e.asks)
	sb.WriteString("\n***Trades***\n")
	for _, t := range e.tape.Head(10) {
		sb.WriteString(t.String())
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	return sb.String()
}

func writeSide(sb *strings.Builder, b *BookSide) {
	b.Walk(func(o *domain.Order) bool {
		sb.WriteString(o.String())
		sb.WriteByte('\n')
		return true
	})
}

func formatSide(b *BookSide) string {
	parts := make([]string, 0, b.Len())
	b.Walk(func(o *domain.Order) bool {
		parts = append(parts, o.String())
		return true
	})
	return "[" + strings.Join(parts, ", ") + "]"
}
