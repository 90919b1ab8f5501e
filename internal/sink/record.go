// Package sink holds the destinations a trade tape can be dumped to.
package sink

import (
	"time"

	"github.com/efreitasn/matchbook/internal/domain"
)

// TradeRecord is the serialized form of a trade used by the Kafka and
// Pebble sinks. Prices are rendered as decimal strings.
type TradeRecord struct {
	TradeID     string    `json:"trade_id"`
	Symbol      string    `json:"symbol,omitempty"`
	Price       string    `json:"price"`
	Quantity    int64     `json:"quantity"`
	BuyerID     string    `json:"buyer_id"`
	SellerID    string    `json:"seller_id"`
	BuyOrderID  uint64    `json:"buy_order_id"`
	SellOrderID uint64    `json:"sell_order_id"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// NewTradeRecord converts t using scale for the price.
func NewTradeRecord(t *domain.Trade, scale domain.PriceScale) TradeRecord {
	return TradeRecord{
		TradeID:     t.TradeID,
		Symbol:      t.Symbol,
		Price:       scale.Format(t.Price),
		Quantity:    t.Quantity,
		BuyerID:     t.BuyerID,
		SellerID:    t.SellerID,
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		ExecutedAt:  t.ExecutedAt,
	}
}
