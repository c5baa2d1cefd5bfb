package port

import (
	"context"
	"errors"

	"github.com/Poursadegh/blockChainFullStack/internal/domain"
)

// ErrNotFound is returned by single-row lookups when nothing matches.
var ErrNotFound = errors.New("not found")

// Store is the persistence collaborator. SaveMatch is the transactional
// unit: one fill's two orders, the trade and the book statistics commit
// together or not at all. No transaction ever spans more than one fill.
type Store interface {
	SaveOrder(ctx context.Context, o *domain.Order) error
	SaveMatch(ctx context.Context, taker, maker *domain.Order, t *domain.Trade, book *domain.OrderBook) error
	LoadOrder(ctx context.Context, orderID string) (*domain.Order, error)
	LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error)
	LoadOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error)
	LoadOrdersByUser(ctx context.Context, userID int64, status domain.OrderStatus) ([]*domain.Order, error)
	LoadTradesByUser(ctx context.Context, userID int64, symbol string) ([]*domain.Trade, error)
}
