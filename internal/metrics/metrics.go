// Package metrics records engine activity as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/efreitasn/matchbook/internal/domain"
)

const namespace = "matchbook"

// Metrics implements engine.Recorder on its own registry, so several
// engines in one process (or in tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	OrdersTotal     *prometheus.CounterVec
	RejectionsTotal *prometheus.CounterVec
	TradesTotal     prometheus.Counter
	TradedQuantity  prometheus.Counter
	RestingOrders   *prometheus.GaugeVec
	PositionsActive prometheus.Gauge
}

// New creates and registers the metric set. symbol is attached as a
// constant label.
func New(symbol string) *Metrics {
	labels := prometheus.Labels{"symbol": symbol}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "orders_total",
			Help:        "Orders accepted by the engine.",
			ConstLabels: labels,
		}, []string{"side", "kind"}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "order_rejections_total",
			Help:        "Order requests rejected before matching.",
			ConstLabels: labels,
		}, []string{"reason"}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "trades_total",
			Help:        "Trades executed.",
			ConstLabels: labels,
		}),
		TradedQuantity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "traded_quantity_total",
			Help:        "Units traded.",
			ConstLabels: labels,
		}),
		RestingOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "resting_orders",
			Help:        "Orders resting on the book.",
			ConstLabels: labels,
		}, []string{"side"}),
		PositionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "positions_active",
			Help:        "Counterparties with a tracked position.",
			ConstLabels: labels,
		}),
	}

	m.registry.MustRegister(
		m.OrdersTotal,
		m.RejectionsTotal,
		m.TradesTotal,
		m.TradedQuantity,
		m.RestingOrders,
		m.PositionsActive,
	)
	return m
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// OrderAccepted counts an order by side and kind.
func (m *Metrics) OrderAccepted(o *domain.Order) {
	m.OrdersTotal.WithLabelValues(string(o.Side), string(o.Kind)).Inc()
}

// OrderRejected counts a rejection by reason.
func (m *Metrics) OrderRejected(err error) {
	m.RejectionsTotal.WithLabelValues(RejectionReason(err)).Inc()
}

// TradeExecuted counts a trade and its quantity.
func (m *Metrics) TradeExecuted(t *domain.Trade) {
	m.TradesTotal.Inc()
	m.TradedQuantity.Add(float64(t.Quantity))
}

// BookDepth sets the resting order gauges.
func (m *Metrics) BookDepth(bids, asks int) {
	m.RestingOrders.WithLabelValues(string(domain.SideBid)).Set(float64(bids))
	m.RestingOrders.WithLabelValues(string(domain.SideAsk)).Set(float64(asks))
}

// SetPositions records the number of tracked counterparties.
func (m *Metrics) SetPositions(n int) {
	m.PositionsActive.Set(float64(n))
}

// WriteTextfile writes the current values in the text exposition format,
// for collection by the node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// RejectionReason maps a rejection error to a low-cardinality label.
func RejectionReason(err error) string {
	var (
		sideErr *domain.UnknownSideError
		valErr  *domain.ValidationError
	)
	switch {
	case errors.As(err, &sideErr):
		return "unknown_side"
	case errors.Is(err, domain.ErrSymbolMismatch):
		return "symbol_mismatch"
	case errors.As(err, &valErr):
		return "validation"
	default:
		return "other"
	}
}
