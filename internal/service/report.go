package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
)

// MaxBookDepth bounds the number of levels a book report may request.
const MaxBookDepth = 50

// PriceResponse reports the reference price of the instrument.
type PriceResponse struct {
	Symbol         string
	CurrentPrice   *decimal.Decimal // nil when no trades ever
	Window         string           // e.g. "5m", "all"
	TradesInWindow int
	LastTradeAt    *time.Time // nil when no trades ever
}

// BookPriceLevel represents an aggregated price level in the book report.
type BookPriceLevel struct {
	Price         string
	TotalQuantity int64
	OrderCount    int
}

// BookResponse is an aggregated view of the top of both book sides.
type BookResponse struct {
	Symbol     string
	Bids       []BookPriceLevel
	Asks       []BookPriceLevel
	Spread     *decimal.Decimal // nil if either side is empty or led by a market order
	SnapshotAt time.Time
}

// Quote is the best price and the quantity resting at it.
type Quote struct {
	Price    string
	Quantity int64
}

// TopOfBookResponse carries the best bid and ask, nil when a side is empty.
type TopOfBookResponse struct {
	Symbol string
	Bid    *Quote
	Ask    *Quote
}

// ReportService answers read-only questions about the book and the tape.
type ReportService struct {
	engine *engine.Engine
	scale  domain.PriceScale
	now    func() time.Time
}

// NewReportService creates a new ReportService. A nil clock defaults to
// time.Now.
func NewReportService(e *engine.Engine, scale domain.PriceScale, now func() time.Time) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{engine: e, scale: scale, now: now}
}

// GetPrice returns the volume-weighted average trade price over window.
// A zero window covers the whole tape. Falls back to the last trade's
// price if no trades exist in the window, and to a nil price if the tape
// is empty.
func (s *ReportService) GetPrice(window time.Duration) *PriceResponse {
	trades := s.engine.Tape()
	resp := &PriceResponse{
		Symbol: s.engine.Symbol(),
		Window: formatWindow(window),
	}
	if len(trades) == 0 {
		return resp
	}

	lastTrade := trades[len(trades)-1]
	resp.LastTradeAt = &lastTrade.ExecutedAt

	var windowStart time.Time
	if window > 0 {
		windowStart = s.now().Add(-window)
	}

	sumPriceQty := decimal.Zero
	var sumQty int64
	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		if window > 0 && t.ExecutedAt.Before(windowStart) {
			break
		}
		sumPriceQty = sumPriceQty.Add(decimal.NewFromInt(t.Price).Mul(decimal.NewFromInt(t.Quantity)))
		sumQty += t.Quantity
		resp.TradesInWindow++
	}

	var price decimal.Decimal
	if sumQty > 0 {
		// VWAP = sum(price * quantity) / sum(quantity), in ticks.
		vwapTicks := sumPriceQty.DivRound(decimal.NewFromInt(sumQty), 4)
		price = vwapTicks.Shift(-int32(s.scale))
	} else {
		price = s.scale.Decimal(lastTrade.Price)
	}
	resp.CurrentPrice = &price
	return resp
}

// LastPrice returns the price of the most recent trade.
func (s *ReportService) LastPrice() (int64, bool) {
	trades := s.engine.Tape()
	if len(trades) == 0 {
		return 0, false
	}
	return trades[len(trades)-1].Price, true
}

// GetBook returns the top depth price levels of each side.
func (s *ReportService) GetBook(depth int) (*BookResponse, error) {
	if depth < 1 || depth > MaxBookDepth {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("depth must be between 1 and %d", MaxBookDepth),
		}
	}

	topBids, topAsks := s.engine.Depth(depth)
	resp := &BookResponse{
		Symbol:     s.engine.Symbol(),
		Bids:       s.levels(topBids),
		Asks:       s.levels(topAsks),
		SnapshotAt: s.now(),
	}

	// Spread = best_ask - best_bid, only between real limits.
	if len(topBids) > 0 && len(topAsks) > 0 {
		bid, ask := topBids[0].Price, topAsks[0].Price
		if bid != domain.MarketBidLimit && ask != domain.MarketAskLimit {
			spread := s.scale.Decimal(ask - bid)
			resp.Spread = &spread
		}
	}

	return resp, nil
}

func (s *ReportService) levels(in []engine.PriceLevel) []BookPriceLevel {
	out := make([]BookPriceLevel, len(in))
	for i, pl := range in {
		out[i] = BookPriceLevel{
			Price:         s.scale.Format(pl.Price),
			TotalQuantity: pl.TotalQuantity,
			OrderCount:    pl.OrderCount,
		}
	}
	return out
}

// TopOfBook returns the best bid and ask with the volume resting at each.
// Both sides come from one snapshot.
func (s *ReportService) TopOfBook() *TopOfBookResponse {
	bids, asks := s.engine.Depth(1)
	return &TopOfBookResponse{
		Symbol: s.engine.Symbol(),
		Bid:    s.quote(bids),
		Ask:    s.quote(asks),
	}
}

func (s *ReportService) quote(levels []engine.PriceLevel) *Quote {
	if len(levels) == 0 {
		return nil
	}
	return &Quote{Price: s.scale.Format(levels[0].Price), Quantity: levels[0].TotalQuantity}
}

// formatWindow converts a window to a string like "5m" for reports.
func formatWindow(d time.Duration) string {
	if d <= 0 {
		return "all"
	}
	minutes := int(d.Minutes())
	if d == time.Duration(minutes)*time.Minute && minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return d.String()
}
