package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string
type OrderStatus string

const (
	Buy  Side = "buy"
	Sell Side = "sell"

	Pending         OrderStatus = "pending"
	PartiallyFilled OrderStatus = "partially_filled"
	Filled          OrderStatus = "filled"
	Cancelled       OrderStatus = "cancelled"
)

func (s Side) Valid() bool { return s == Buy || s == Sell }

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Open reports whether an order in this status can still trade or be cancelled.
func (st OrderStatus) Open() bool {
	return st == Pending || st == PartiallyFilled
}

func (st OrderStatus) Terminal() bool {
	return st == Filled || st == Cancelled
}

func (st OrderStatus) Valid() bool {
	return st.Open() || st.Terminal()
}

type Order struct {
	ID           string
	UserID       int64
	Symbol       string
	Side         Side
	Price        decimal.Decimal
	Amount       decimal.Decimal
	FilledAmount decimal.Decimal
	Status       OrderStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (o *Order) Remaining() decimal.Decimal {
	return o.Amount.Sub(o.FilledAmount)
}

// Fill records an executed quantity and derives the status from the fill
// state. Never called on terminal orders.
func (o *Order) Fill(qty decimal.Decimal, at time.Time) {
	o.FilledAmount = o.FilledAmount.Add(qty)
	if o.FilledAmount.GreaterThanOrEqual(o.Amount) {
		o.Status = Filled
	} else if o.FilledAmount.IsPositive() {
		o.Status = PartiallyFilled
	}
	o.UpdatedAt = at
}

func (o *Order) Cancel(at time.Time) {
	o.Status = Cancelled
	o.UpdatedAt = at
}
