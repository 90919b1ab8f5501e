package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
	"github.com/efreitasn/matchbook/internal/store"
)

// SubmitOrderRequest is a raw order request as it arrives from a decoder.
// Price is a decimal string and is ignored for market orders.
type SubmitOrderRequest struct {
	Type           string
	Side           string
	Quantity       int64
	CounterpartyID string
	Symbol         string
	Price          *string
	Timestamp      *time.Time
}

// SubmitOrderResult is what a submit produced.
type SubmitOrderResult struct {
	Trades  []*domain.Trade
	Resting *domain.Order
}

// RejectionRecorder is notified of requests rejected before they reach
// the engine. engine.Recorder implementations satisfy it.
type RejectionRecorder interface {
	OrderRejected(err error)
}

// PositionGauge is told how many positions are tracked after each submit.
type PositionGauge interface {
	SetPositions(n int)
}

// OrderService turns raw requests into engine submits and feeds the
// resulting trades to the position store.
type OrderService struct {
	runner    *engine.Runner
	positions *store.PositionStore
	scale     domain.PriceScale
	logger    *slog.Logger
	rejects   RejectionRecorder
	gauge     PositionGauge
}

// OrderServiceOption configures an OrderService.
type OrderServiceOption func(*OrderService)

// WithServiceLogger sets the logger used for accepted and rejected orders.
func WithServiceLogger(l *slog.Logger) OrderServiceOption {
	return func(s *OrderService) { s.logger = l }
}

// WithRejectionRecorder records requests the service itself rejects.
func WithRejectionRecorder(r RejectionRecorder) OrderServiceOption {
	return func(s *OrderService) { s.rejects = r }
}

// WithPositionGauge reports the tracked position count.
func WithPositionGauge(g PositionGauge) OrderServiceOption {
	return func(s *OrderService) { s.gauge = g }
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(
	runner *engine.Runner,
	positions *store.PositionStore,
	scale domain.PriceScale,
	opts ...OrderServiceOption,
) *OrderService {
	s := &OrderService{
		runner:    runner,
		positions: positions,
		scale:     scale,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitOrder validates the raw fields, submits the order through the
// runner, and applies any trades to the position store. Rejections are
// logged at warn level and returned unchanged.
func (s *OrderService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResult, error) {
	orderReq, err := s.toOrderRequest(req)
	if err != nil {
		if s.rejects != nil {
			s.rejects.OrderRejected(err)
		}
		s.reject(ctx, req, err)
		return nil, err
	}

	res, err := s.runner.Submit(ctx, orderReq)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}
	if res.Err != nil {
		s.reject(ctx, req, res.Err)
		return nil, res.Err
	}

	if len(res.Trades) > 0 {
		s.positions.Apply(res.Trades)
		if s.gauge != nil {
			s.gauge.SetPositions(s.positions.Len())
		}
	}

	attrs := []slog.Attr{
		slog.String("type", strings.ToLower(req.Type)),
		slog.String("side", strings.ToLower(req.Side)),
		slog.Int64("quantity", req.Quantity),
		slog.String("counterparty_id", req.CounterpartyID),
		slog.Int("trades", len(res.Trades)),
	}
	if res.Resting != nil {
		attrs = append(attrs,
			slog.Uint64("resting_order_id", res.Resting.ID),
			slog.Int64("resting_quantity", res.Resting.Quantity),
		)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "order processed", attrs...)

	return &SubmitOrderResult{Trades: res.Trades, Resting: res.Resting}, nil
}

func (s *OrderService) toOrderRequest(req SubmitOrderRequest) (domain.OrderRequest, error) {
	symbol := strings.TrimSpace(req.Symbol)
	if served := s.runner.Engine().Symbol(); served != "" && symbol != "" && symbol != served {
		return domain.OrderRequest{}, fmt.Errorf("%w: engine serves %q, got %q", domain.ErrSymbolMismatch, served, symbol)
	}

	kind := domain.OrderKind(strings.ToLower(strings.TrimSpace(req.Type)))

	var price *int64
	if kind == domain.OrderKindLimit && req.Price != nil && strings.TrimSpace(*req.Price) != "" {
		ticks, err := s.scale.Parse(*req.Price)
		if err != nil {
			return domain.OrderRequest{}, err
		}
		price = &ticks
	}

	return domain.OrderRequest{
		Kind:           kind,
		Side:           req.Side,
		Quantity:       req.Quantity,
		CounterpartyID: strings.TrimSpace(req.CounterpartyID),
		Symbol:         symbol,
		Price:          price,
		Timestamp:      req.Timestamp,
	}, nil
}

func (s *OrderService) reject(ctx context.Context, req SubmitOrderRequest, err error) {
	s.logger.LogAttrs(ctx, slog.LevelWarn, "order rejected",
		slog.String("type", req.Type),
		slog.String("side", req.Side),
		slog.Int64("quantity", req.Quantity),
		slog.String("counterparty_id", req.CounterpartyID),
		slog.String("error", err.Error()),
	)
}
