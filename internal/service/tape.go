package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
)

// NamedSink pairs a tape sink with a name used in logs and errors.
type NamedSink struct {
	Name string
	Sink engine.TapeSink
}

// TapeService exports the trade tape to the configured sinks.
type TapeService struct {
	engine *engine.Engine
	sinks  []NamedSink
	wipe   bool
	logger *slog.Logger
}

// NewTapeService creates a new TapeService. When wipe is set the tape is
// cleared after every successful export.
func NewTapeService(e *engine.Engine, wipe bool, logger *slog.Logger, sinks ...NamedSink) *TapeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TapeService{engine: e, sinks: sinks, wipe: wipe, logger: logger}
}

// Export writes the tape to every sink in order, stopping at the first
// failure. The tape is only wiped when all sinks succeeded, and no trade
// can be added between the writes and the wipe.
func (s *TapeService) Export(ctx context.Context) (int, error) {
	if len(s.sinks) == 0 {
		return 0, nil
	}

	n, err := s.engine.DumpTape(ctx, fanout{sinks: s.sinks, logger: s.logger}, s.wipe)
	if err != nil {
		s.logger.Error("tape export failed", slog.String("error", err.Error()))
		return 0, err
	}
	s.logger.Info("tape exported", slog.Int("trades", n), slog.Bool("wiped", s.wipe))
	return n, nil
}

// Reset drops every trade on the tape.
func (s *TapeService) Reset() int {
	n := s.engine.ResetTape()
	s.logger.Info("tape reset", slog.Int("trades", n))
	return n
}

// fanout writes the same trades to several sinks.
type fanout struct {
	sinks  []NamedSink
	logger *slog.Logger
}

func (f fanout) WriteTrades(ctx context.Context, trades []*domain.Trade) error {
	for _, ns := range f.sinks {
		if err := ns.Sink.WriteTrades(ctx, trades); err != nil {
			return fmt.Errorf("%s sink: %w", ns.Name, err)
		}
		f.logger.Debug("sink written", slog.String("sink", ns.Name), slog.Int("trades", len(trades)))
	}
	return nil
}
