package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlaceOrderRequest struct {
	Symbol string          `json:"symbol" binding:"required"`
	Side   string          `json:"side" binding:"required"`
	Price  decimal.Decimal `json:"price" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type PlaceOrderResponse struct {
	Order  Order   `json:"order"`
	Trades []Trade `json:"trades"`
}

type CancelOrderResponse struct {
	Status string `json:"status"`
}

type GetOrdersResponse struct {
	Orders []Order `json:"orders"`
}

type GetTradesResponse struct {
	Trades []Trade `json:"trades"`
}

type Order struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"`
	Price        decimal.Decimal `json:"price"`
	Amount       decimal.Decimal `json:"amount"`
	FilledAmount decimal.Decimal `json:"filled_amount"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Trade struct {
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

type OrderBookResponse struct {
	Symbol    string              `json:"symbol"`
	LastPrice decimal.NullDecimal `json:"last_price"`
	Volume24h decimal.Decimal     `json:"volume_24h"`
	High24h   decimal.NullDecimal `json:"high_24h"`
	Low24h    decimal.NullDecimal `json:"low_24h"`
	Bids      []BookLevel         `json:"bids"`
	Asks      []BookLevel         `json:"asks"`
	UpdatedAt time.Time           `json:"updated_at"`
}
