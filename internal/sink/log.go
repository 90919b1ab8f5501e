package sink

import (
	"context"
	"log/slog"

	"github.com/efreitasn/matchbook/internal/domain"
)

// LogSink emits one structured log record per trade.
type LogSink struct {
	logger *slog.Logger
	scale  domain.PriceScale
}

// NewLogSink creates a sink logging at info level. A nil logger defaults
// to slog.Default().
func NewLogSink(logger *slog.Logger, scale domain.PriceScale) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, scale: scale}
}

// WriteTrades logs one info record per trade.
func (s *LogSink) WriteTrades(ctx context.Context, trades []*domain.Trade) error {
	for _, t := range trades {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "trade",
			slog.String("trade_id", t.TradeID),
			slog.String("price", s.scale.Format(t.Price)),
			slog.Int64("quantity", t.Quantity),
			slog.String("buyer_id", t.BuyerID),
			slog.String("seller_id", t.SellerID),
		)
	}
	return nil
}
