package service

import (
	"github.com/shopspring/decimal"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/store"
)

// PositionView is a position with cash amounts rendered as decimals.
type PositionView struct {
	CounterpartyID string
	Symbol         string
	Bought         int64
	Sold           int64
	Net            int64
	LongShort      domain.LongShort
	Value          decimal.Decimal
	RealizedPnL    decimal.Decimal
	UnrealizedPnL  *decimal.Decimal // nil without a mark price
}

// PositionService reports per-counterparty positions.
type PositionService struct {
	store *store.PositionStore
	scale domain.PriceScale
}

// NewPositionService creates a new PositionService.
func NewPositionService(positions *store.PositionStore, scale domain.PriceScale) *PositionService {
	return &PositionService{store: positions, scale: scale}
}

// Get returns one counterparty's position, marked at mark when given.
func (s *PositionService) Get(counterpartyID string, mark *int64) (*PositionView, error) {
	p, err := s.store.Get(counterpartyID)
	if err != nil {
		return nil, err
	}
	v := s.view(p, mark)
	return &v, nil
}

// List returns every position ordered by counterparty, marked at mark
// when given.
func (s *PositionService) List(mark *int64) []PositionView {
	all := s.store.All()
	views := make([]PositionView, len(all))
	for i, p := range all {
		views[i] = s.view(p, mark)
	}
	return views
}

func (s *PositionService) view(p domain.Position, mark *int64) PositionView {
	v := PositionView{
		CounterpartyID: p.CounterpartyID,
		Symbol:         p.Symbol,
		Bought:         p.Bought,
		Sold:           p.Sold,
		Net:            p.Net(),
		LongShort:      p.LongShort(),
		Value:          s.scale.Amount(p.Value),
		RealizedPnL:    s.scale.Amount(p.RealizedPnL),
	}
	if mark != nil {
		u := s.scale.Amount(p.UnrealizedPnL(*mark))
		v.UnrealizedPnL = &u
	}
	return v
}
