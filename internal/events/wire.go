package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Poursadegh/blockChainFullStack/internal/domain"
)

// Event kinds on the wire.
const (
	KindTradeExecuted    = "trade_executed"
	KindOrderBookUpdated = "order_book_updated"
)

// Envelope is the serialized form shared by the websocket feed and the NATS
// publisher. Decimal fields marshal as strings, preserving full precision.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type TradeData struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	Amount      decimal.Decimal `json:"amount"`
	BuyerID     int64           `json:"buyer_id"`
	SellerID    int64           `json:"seller_id"`
	BuyOrderID  string          `json:"buy_order_id"`
	SellOrderID string          `json:"sell_order_id"`
	Timestamp   time.Time       `json:"timestamp"`
}

type BookLevel struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

type BookData struct {
	Symbol    string              `json:"symbol"`
	LastPrice decimal.NullDecimal `json:"last_price"`
	Volume24h decimal.Decimal     `json:"volume_24h"`
	High24h   decimal.NullDecimal `json:"high_24h"`
	Low24h    decimal.NullDecimal `json:"low_24h"`
	Bids      []BookLevel         `json:"bids"`
	Asks      []BookLevel         `json:"asks"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func NewTradeEnvelope(t *domain.Trade) Envelope {
	return Envelope{
		Type: KindTradeExecuted,
		Data: TradeData{
			ID:          t.ID,
			Symbol:      t.Symbol,
			Price:       t.Price,
			Amount:      t.Amount,
			BuyerID:     t.BuyerID,
			SellerID:    t.SellerID,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Timestamp:   t.CreatedAt,
		},
	}
}

func NewBookEnvelope(snap *domain.BookSnapshot) Envelope {
	data := BookData{
		Symbol:    snap.Symbol,
		LastPrice: snap.LastPrice,
		Volume24h: snap.Volume24h,
		High24h:   snap.High24h,
		Low24h:    snap.Low24h,
		Bids:      make([]BookLevel, 0, len(snap.Bids)),
		Asks:      make([]BookLevel, 0, len(snap.Asks)),
		UpdatedAt: snap.UpdatedAt,
	}
	for _, e := range snap.Bids {
		data.Bids = append(data.Bids, BookLevel{Price: e.Price, Amount: e.Amount})
	}
	for _, e := range snap.Asks {
		data.Asks = append(data.Asks, BookLevel{Price: e.Price, Amount: e.Amount})
	}
	return Envelope{Type: KindOrderBookUpdated, Data: data}
}
