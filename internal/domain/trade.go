package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is immutable once created. Price is always the resting order's price.
type Trade struct {
	ID          string
	Symbol      string
	Price       decimal.Decimal
	Amount      decimal.Decimal
	BuyerID     int64
	SellerID    int64
	BuyOrderID  string
	SellOrderID string
	CreatedAt   time.Time
}
