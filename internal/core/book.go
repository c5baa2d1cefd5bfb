package core

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Poursadegh/blockChainFullStack/internal/domain"
)

// book owns one symbol's resting orders and aggregate statistics. mu is the
// per-symbol mutation lock: placement and cancellation for the symbol
// serialize on it, and it is held across persistence calls so no partial
// match state is ever observable. Every resting order has an open status;
// filled and cancelled orders are removed immediately.
type book struct {
	mu     sync.Mutex
	symbol string
	bids   []*domain.Order
	asks   []*domain.Order
	stats  domain.OrderBook
}

func newBook(symbol string) *book {
	return &book{symbol: symbol, stats: domain.OrderBook{Symbol: symbol}}
}

// insert adds a resting order and restores price-time order for its side.
func (b *book) insert(o *domain.Order) {
	if o.Side == domain.Buy {
		b.bids = append(b.bids, o)
		sortBids(b.bids)
	} else {
		b.asks = append(b.asks, o)
		sortAsks(b.asks)
	}
}

func (b *book) remove(o *domain.Order) {
	if o.Side == domain.Buy {
		b.bids = removeOrder(b.bids, o.ID)
	} else {
		b.asks = removeOrder(b.asks, o.ID)
	}
}

// bestOpposite returns the highest-priority resting order an incoming order
// crosses, or nil. Both sides are kept sorted best-first, so only the head
// needs checking: asks at or under a buy's limit, bids at or over a sell's.
func (b *book) bestOpposite(side domain.Side, limit decimal.Decimal) *domain.Order {
	if side == domain.Buy {
		if len(b.asks) > 0 && b.asks[0].Price.LessThanOrEqual(limit) {
			return b.asks[0]
		}
		return nil
	}
	if len(b.bids) > 0 && b.bids[0].Price.GreaterThanOrEqual(limit) {
		return b.bids[0]
	}
	return nil
}

// snapshotLocked copies the stats and both sides into a served view.
// Callers hold b.mu.
func (b *book) snapshotLocked(at time.Time) *domain.BookSnapshot {
	snap := &domain.BookSnapshot{
		Symbol:    b.symbol,
		LastPrice: b.stats.LastPrice,
		Volume24h: b.stats.Volume24h,
		High24h:   b.stats.High24h,
		Low24h:    b.stats.Low24h,
		Bids:      make([]domain.BookEntry, 0, len(b.bids)),
		Asks:      make([]domain.BookEntry, 0, len(b.asks)),
		UpdatedAt: at,
	}
	for _, o := range b.bids {
		snap.Bids = append(snap.Bids, domain.BookEntry{Price: o.Price, Amount: o.Remaining()})
	}
	for _, o := range b.asks {
		snap.Asks = append(snap.Asks, domain.BookEntry{Price: o.Price, Amount: o.Remaining()})
	}
	return snap
}

// bids: price desc, FIFO on CreatedAt
func sortBids(orders []*domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].Price.Equal(orders[j].Price) {
			return orders[i].Price.GreaterThan(orders[j].Price)
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}

// asks: price asc, FIFO on CreatedAt
func sortAsks(orders []*domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].Price.Equal(orders[j].Price) {
			return orders[i].Price.LessThan(orders[j].Price)
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}

func removeOrder(orders []*domain.Order, orderID string) []*domain.Order {
	for i, o := range orders {
		if o.ID == orderID {
			return append(orders[:i], orders[i+1:]...)
		}
	}
	return orders
}
