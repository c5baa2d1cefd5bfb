package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderBook carries per-symbol trade statistics. LastPrice, High24h and
// Low24h stay null until the first trade; volume decay is handled outside
// the engine.
type OrderBook struct {
	Symbol    string
	LastPrice decimal.NullDecimal
	Volume24h decimal.Decimal
	High24h   decimal.NullDecimal
	Low24h    decimal.NullDecimal
	UpdatedAt time.Time
}

// UpdateOnTrade folds one executed trade into the statistics.
func (b *OrderBook) UpdateOnTrade(price, amount decimal.Decimal, at time.Time) {
	b.LastPrice = decimal.NewNullDecimal(price)
	b.Volume24h = b.Volume24h.Add(amount)
	if !b.High24h.Valid || price.GreaterThan(b.High24h.Decimal) {
		b.High24h = decimal.NewNullDecimal(price)
	}
	if !b.Low24h.Valid || price.LessThan(b.Low24h.Decimal) {
		b.Low24h = decimal.NewNullDecimal(price)
	}
	b.UpdatedAt = at
}

// BookEntry is one resting order's visible remainder.
type BookEntry struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// BookSnapshot is the served view of one symbol: statistics plus both sides
// of the resting book. Bids are price descending, asks price ascending,
// ties FIFO, mirroring match priority.
type BookSnapshot struct {
	Symbol    string
	LastPrice decimal.NullDecimal
	Volume24h decimal.Decimal
	High24h   decimal.NullDecimal
	Low24h    decimal.NullDecimal
	Bids      []BookEntry
	Asks      []BookEntry
	UpdatedAt time.Time
}

func (s *BookSnapshot) DeepCopy() *BookSnapshot {
	cp := *s
	cp.Bids = append([]BookEntry(nil), s.Bids...)
	cp.Asks = append([]BookEntry(nil), s.Asks...)
	return &cp
}
