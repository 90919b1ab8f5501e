package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/efreitasn/matchbook/internal/config"
	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
	"github.com/efreitasn/matchbook/internal/metrics"
	"github.com/efreitasn/matchbook/internal/service"
	"github.com/efreitasn/matchbook/internal/sink"
	"github.com/efreitasn/matchbook/internal/store"
)

func main() {
	ordersPath := flag.String("orders", "-", "Order file to replay, - for stdin")
	format := flag.String("format", "csv", "Order file format: csv or jsonl")
	depth := flag.Int("depth", 10, "Price levels per side in the book report")
	flag.Parse()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level. Logs go to stderr so the
	// book report on stdout stays readable.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger, *ordersPath, *format, *depth, os.Stdout); err != nil {
		logger.Error("replay failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, ordersPath, formatName string, depth int, out io.Writer) error {
	format, err := service.ParseFormat(formatName)
	if err != nil {
		return err
	}
	scale, err := domain.NewPriceScale(cfg.PriceScale)
	if err != nil {
		return err
	}

	in := io.Reader(os.Stdin)
	if ordersPath != "-" {
		f, err := os.Open(ordersPath)
		if err != nil {
			return fmt.Errorf("open orders: %w", err)
		}
		defer f.Close()
		in = f
	}

	sinks, closeSinks, err := buildSinks(cfg, scale, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	// Engine and its single consumer.
	m := metrics.New(cfg.Symbol)
	factory := domain.NewOrderFactory(domain.NewSequence(), nil)
	eng := engine.NewEngine(cfg.Symbol, factory,
		engine.WithLogger(logger),
		engine.WithRecorder(m),
	)
	runner := engine.NewRunner(eng, cfg.QueueSize, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runCtx, cancelRunner := context.WithCancel(ctx)
	defer cancelRunner()
	runner.Start(runCtx)

	// Services.
	positions := store.NewPositionStore(cfg.Symbol)
	orderSvc := service.NewOrderService(runner, positions, scale,
		service.WithServiceLogger(logger),
		service.WithRejectionRecorder(m),
		service.WithPositionGauge(m),
	)
	reportSvc := service.NewReportService(eng, scale, nil)
	positionSvc := service.NewPositionService(positions, scale)
	tapeSvc := service.NewTapeService(eng, cfg.TapeWipe, logger, sinks...)

	// Replay. Rejected requests are logged and dropped.
	var submitted, rejected int
	err = service.Decode(format, in, func(rec service.Record) error {
		if rec.Err != nil {
			rejected++
			m.OrderRejected(rec.Err)
			logger.Warn("request dropped",
				slog.Int("line", rec.Line),
				slog.String("error", rec.Err.Error()),
			)
			return nil
		}
		if _, err := orderSvc.SubmitOrder(ctx, rec.Request); err != nil {
			if errors.Is(err, engine.ErrRunnerStopped) || ctx.Err() != nil {
				return err
			}
			rejected++
			return nil
		}
		submitted++
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	// Drain the runner before reading final state.
	cancelRunner()
	select {
	case <-runner.Done():
	case <-time.After(cfg.ShutdownTimeout):
		return errors.New("runner did not drain before the shutdown timeout")
	}

	logger.Info("replay finished",
		slog.Int("submitted", submitted),
		slog.Int("rejected", rejected),
		slog.Int("trades", len(eng.Tape())),
	)

	if err := printReport(out, eng, reportSvc, positionSvc, cfg.VWAPWindow, depth); err != nil {
		return err
	}

	if _, err := tapeSvc.Export(context.Background()); err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}

// buildSinks creates the configured tape sink. The returned func closes
// any sink that holds a connection or database.
func buildSinks(cfg *config.Config, scale domain.PriceScale, logger *slog.Logger) ([]service.NamedSink, func(), error) {
	noop := func() {}

	switch cfg.TapeSink {
	case config.SinkNone:
		return nil, noop, nil
	case config.SinkFile:
		mode, err := sink.ParseFileMode(cfg.TapeFileMode)
		if err != nil {
			return nil, noop, err
		}
		return []service.NamedSink{{Name: "file", Sink: sink.NewFileSink(cfg.TapeFile, mode, scale)}}, noop, nil
	case config.SinkLog:
		return []service.NamedSink{{Name: "log", Sink: sink.NewLogSink(logger, scale)}}, noop, nil
	case config.SinkKafka:
		k := sink.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, scale)
		return []service.NamedSink{{Name: "kafka", Sink: k}}, closer(logger, "kafka", k), nil
	case config.SinkPebble:
		p, err := sink.OpenPebbleSink(cfg.PebbleDir, nil, scale)
		if err != nil {
			return nil, noop, err
		}
		return []service.NamedSink{{Name: "pebble", Sink: p}}, closer(logger, "pebble", p), nil
	default:
		return nil, noop, fmt.Errorf("unknown tape sink %q", cfg.TapeSink)
	}
}

func closer(logger *slog.Logger, name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Error("failed to close sink", slog.String("sink", name), slog.String("error", err.Error()))
		}
	}
}

func printReport(
	out io.Writer,
	eng *engine.Engine,
	reports *service.ReportService,
	positions *service.PositionService,
	window time.Duration,
	depth int,
) error {
	if _, err := fmt.Fprint(out, eng.String()); err != nil {
		return err
	}

	book, err := reports.GetBook(depth)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "***Depth***")
	for _, l := range book.Bids {
		fmt.Fprintf(out, "bid %s x %d (%d)\n", l.Price, l.TotalQuantity, l.OrderCount)
	}
	for _, l := range book.Asks {
		fmt.Fprintf(out, "ask %s x %d (%d)\n", l.Price, l.TotalQuantity, l.OrderCount)
	}
	if book.Spread != nil {
		fmt.Fprintf(out, "spread %s\n", book.Spread)
	}

	price := reports.GetPrice(window)
	if price.CurrentPrice != nil {
		fmt.Fprintf(out, "vwap(%s) %s over %d trades\n", price.Window, price.CurrentPrice, price.TradesInWindow)
	}

	var mark *int64
	if last, ok := reports.LastPrice(); ok {
		mark = &last
	}
	fmt.Fprintln(out, "\n***Positions***")
	for _, p := range positions.List(mark) {
		line := fmt.Sprintf("%s %s net=%d value=%s realized=%s", p.CounterpartyID, p.LongShort, p.Net, p.Value, p.RealizedPnL)
		if p.UnrealizedPnL != nil {
			line += " unrealized=" + p.UnrealizedPnL.String()
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
