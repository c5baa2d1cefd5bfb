package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Poursadegh/blockChainFullStack/internal/domain"
	"github.com/Poursadegh/blockChainFullStack/internal/port"
)

var _ port.Store = (*Store)(nil)

// Store is the in-memory port.Store for tests and storeless development
// runs. Rows are copied on the way in and out so callers' mutations never
// leak into "persisted" state.
type Store struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	trades []*domain.Trade
	books  map[string]*domain.OrderBook
}

func NewStore() *Store {
	return &Store{
		orders: make(map[string]*domain.Order),
		books:  make(map[string]*domain.OrderBook),
	}
}

func (s *Store) SaveOrder(ctx context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *Store) SaveMatch(ctx context.Context, taker, maker *domain.Order, t *domain.Trade, book *domain.OrderBook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc, mc := *taker, *maker
	trc, bc := *t, *book
	s.orders[taker.ID] = &tc
	s.orders[maker.ID] = &mc
	s.trades = append(s.trades, &trc)
	s.books[book.Symbol] = &bc
	return nil
}

func (s *Store) LoadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *Store) LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*domain.Order
	for _, o := range s.orders {
		if o.Symbol == symbol && o.Status.Open() {
			cp := *o
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *Store) LoadOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[symbol]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) LoadOrdersByUser(ctx context.Context, userID int64, status domain.OrderStatus) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*domain.Order
	for _, o := range s.orders {
		if o.UserID != userID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		cp := *o
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (s *Store) LoadTradesByUser(ctx context.Context, userID int64, symbol string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*domain.Trade
	for _, t := range s.trades {
		if t.BuyerID != userID && t.SellerID != userID {
			continue
		}
		if symbol != "" && t.Symbol != symbol {
			continue
		}
		cp := *t
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

var _ port.SnapshotCache = (*Cache)(nil)

// Cache is the in-memory port.SnapshotCache counterpart.
type Cache struct {
	mu    sync.Mutex
	store map[string]*domain.BookSnapshot
}

func NewCache() *Cache {
	return &Cache{store: make(map[string]*domain.BookSnapshot)}
}

func (c *Cache) SetBook(ctx context.Context, symbol string, snap *domain.BookSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[symbol] = snap.DeepCopy()
	return nil
}

func (c *Cache) GetBook(ctx context.Context, symbol string) (*domain.BookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.store[symbol]
	if !ok {
		return nil, nil
	}
	return snap.DeepCopy(), nil
}

func (c *Cache) Invalidate(ctx context.Context, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, symbol)
	return nil
}
