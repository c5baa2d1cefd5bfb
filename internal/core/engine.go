package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Poursadegh/blockChainFullStack/internal/domain"
	"github.com/Poursadegh/blockChainFullStack/internal/port"
)

// Engine implements business logic (matching, placement, cancel, book reads).
// It is the only component that mutates orders, trades and book statistics.
// Store, cache and sink are optional collaborators; a nil store runs the
// engine purely in memory.
type Engine struct {
	store port.Store
	cache port.SnapshotCache
	sink  port.EventSink

	symbols   []string
	symbolSet map[string]struct{}

	mu     sync.RWMutex
	books  map[string]*book
	orders map[string]*domain.Order
}

func NewEngine(store port.Store, cache port.SnapshotCache, sink port.EventSink, symbols []string) *Engine {
	// Duplicate symbols collapse so Restore fills each book exactly once.
	set := make(map[string]struct{}, len(symbols))
	uniq := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := set[s]; ok {
			continue
		}
		set[s] = struct{}{}
		uniq = append(uniq, s)
	}
	return &Engine{
		store:     store,
		cache:     cache,
		sink:      sink,
		symbols:   uniq,
		symbolSet: set,
		books:     make(map[string]*book),
		orders:    make(map[string]*domain.Order),
	}
}

func (e *Engine) Symbols() []string { return e.symbols }

// Restore loads open orders and persisted book statistics into memory.
// Used on startup before the engine accepts traffic.
func (e *Engine) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	for _, s := range e.symbols {
		orders, err := e.store.LoadOpenOrders(ctx, s)
		if err != nil {
			return fmt.Errorf("%w: load open orders for %s: %v", ErrPersistence, s, err)
		}
		stats, err := e.store.LoadOrderBook(ctx, s)
		if err != nil && !errors.Is(err, port.ErrNotFound) {
			return fmt.Errorf("%w: load order book for %s: %v", ErrPersistence, s, err)
		}
		b := e.getOrCreateBook(s)
		b.mu.Lock()
		for _, o := range orders {
			e.indexOrder(o)
			b.insert(o)
		}
		if stats != nil {
			b.stats = *stats
		}
		b.mu.Unlock()
	}
	return nil
}

// PlaceOrder admits a new order, matches it against the resting opposite
// side under the symbol lock and returns the trades produced. On a store
// failure mid-match the already-committed trades are returned together with
// the error; they are valid progress, not retried.
func (e *Engine) PlaceOrder(ctx context.Context, o *domain.Order) ([]*domain.Trade, error) {
	if err := e.validateOrder(o); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o.ID = uuid.New().String()
	o.FilledAmount = decimal.Zero
	o.Status = domain.Pending
	o.CreatedAt = now
	o.UpdatedAt = now

	b := e.getOrCreateBook(o.Symbol)
	b.mu.Lock()
	defer b.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveOrder(ctx, o); err != nil {
			return nil, fmt.Errorf("%w: save order: %v", ErrPersistence, err)
		}
	}
	e.indexOrder(o)

	trades, matchErr := e.match(ctx, b, o)

	if o.Remaining().IsPositive() {
		b.insert(o)
	}

	snap := b.snapshotLocked(time.Now().UTC())
	if e.cache != nil {
		_ = e.cache.SetBook(ctx, o.Symbol, snap)
	}
	if e.sink != nil {
		e.sink.PublishBook(snap)
	}
	return trades, matchErr
}

// match walks the opposite side best-first while the incoming order still
// crosses. Each fill commits as its own transaction; the in-memory mutation
// is reverted if its commit fails so memory never runs ahead of the store.
// Callers hold b.mu.
func (e *Engine) match(ctx context.Context, b *book, taker *domain.Order) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	for taker.Remaining().IsPositive() {
		maker := b.bestOpposite(taker.Side, taker.Price)
		if maker == nil {
			break
		}

		now := time.Now().UTC()
		qty := decimal.Min(taker.Remaining(), maker.Remaining())
		tr := &domain.Trade{
			ID:        uuid.New().String(),
			Symbol:    taker.Symbol,
			Price:     maker.Price,
			Amount:    qty,
			CreatedAt: now,
		}
		if taker.Side == domain.Buy {
			tr.BuyerID, tr.SellerID = taker.UserID, maker.UserID
			tr.BuyOrderID, tr.SellOrderID = taker.ID, maker.ID
		} else {
			tr.BuyerID, tr.SellerID = maker.UserID, taker.UserID
			tr.BuyOrderID, tr.SellOrderID = maker.ID, taker.ID
		}

		prevTaker, prevMaker, prevStats := *taker, *maker, b.stats
		taker.Fill(qty, now)
		maker.Fill(qty, now)
		b.stats.UpdateOnTrade(tr.Price, qty, now)

		if e.store != nil {
			if err := e.store.SaveMatch(ctx, taker, maker, tr, &b.stats); err != nil {
				*taker = prevTaker
				*maker = prevMaker
				b.stats = prevStats
				return trades, fmt.Errorf("%w: save match: %v", ErrPersistence, err)
			}
		}

		if maker.Status == domain.Filled {
			b.remove(maker)
		}
		trades = append(trades, tr)
		if e.sink != nil {
			e.sink.PublishTrade(tr)
		}
	}
	return trades, nil
}

// CancelOrder fails closed: an unknown id, a non-owner and a terminal order
// all return false so callers cannot distinguish existence from ownership.
func (e *Engine) CancelOrder(ctx context.Context, orderID string, userID int64) (bool, error) {
	o := e.lookupOrder(orderID)
	if o == nil {
		return e.cancelFromStore(ctx, orderID, userID)
	}

	b := e.getOrCreateBook(o.Symbol)
	b.mu.Lock()
	defer b.mu.Unlock()
	return e.cancelLocked(ctx, b, o, userID)
}

// cancelLocked checks ownership and status and performs the cancellation.
// Callers hold b.mu, so the checks and the state change are one atomic step
// with respect to matching and other cancels.
func (e *Engine) cancelLocked(ctx context.Context, b *book, o *domain.Order, userID int64) (bool, error) {
	if o.UserID != userID || o.Status.Terminal() {
		return false, nil
	}

	prev := *o
	o.Cancel(time.Now().UTC())
	if e.store != nil {
		if err := e.store.SaveOrder(ctx, o); err != nil {
			*o = prev
			return false, fmt.Errorf("%w: cancel order: %v", ErrPersistence, err)
		}
	}
	b.remove(o)

	snap := b.snapshotLocked(time.Now().UTC())
	if e.cache != nil {
		_ = e.cache.SetBook(ctx, o.Symbol, snap)
	}
	if e.sink != nil {
		e.sink.PublishBook(snap)
	}
	return true, nil
}

// cancelFromStore covers ids that are not resident in memory, e.g. orders
// placed before a restart that did not restore them. The first load runs
// outside the lock only to learn the symbol; ownership and status are
// checked again under it so concurrent cancels of the same order cannot all
// succeed. The resting sets are untouched, so no book event is emitted.
func (e *Engine) cancelFromStore(ctx context.Context, orderID string, userID int64) (bool, error) {
	if e.store == nil {
		return false, nil
	}
	o, err := e.store.LoadOrder(ctx, orderID)
	if errors.Is(err, port.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: load order: %v", ErrPersistence, err)
	}

	b := e.getOrCreateBook(o.Symbol)
	b.mu.Lock()
	defer b.mu.Unlock()

	// The order may have become resident meanwhile; the indexed copy is
	// then the authoritative one and rests in the book.
	if resident := e.lookupOrder(orderID); resident != nil {
		return e.cancelLocked(ctx, b, resident, userID)
	}

	o, err = e.store.LoadOrder(ctx, orderID)
	if errors.Is(err, port.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: load order: %v", ErrPersistence, err)
	}
	if o.UserID != userID || o.Status.Terminal() {
		return false, nil
	}

	o.Cancel(time.Now().UTC())
	if err := e.store.SaveOrder(ctx, o); err != nil {
		return false, fmt.Errorf("%w: cancel order: %v", ErrPersistence, err)
	}
	return true, nil
}

// OrderBook serves the snapshot read path: cache first, then a fresh copy
// under the book lock which repopulates the cache. Snapshots are eventually
// consistent; a racing match may stale them and that is accepted.
func (e *Engine) OrderBook(ctx context.Context, symbol string) (*domain.BookSnapshot, error) {
	if _, ok := e.symbolSet[symbol]; !ok {
		return nil, fmt.Errorf("%w: unknown symbol %q", ErrInvalidInput, symbol)
	}
	if e.cache != nil {
		if snap, err := e.cache.GetBook(ctx, symbol); err == nil && snap != nil {
			return snap, nil
		}
	}
	b := e.getOrCreateBook(symbol)
	b.mu.Lock()
	snap := b.snapshotLocked(time.Now().UTC())
	b.mu.Unlock()
	if e.cache != nil {
		_ = e.cache.SetBook(ctx, symbol, snap)
	}
	return snap, nil
}

// UserOrders returns a user's orders newest first, optionally filtered by
// status. History lives in the store; without one the result is empty.
func (e *Engine) UserOrders(ctx context.Context, userID int64, status domain.OrderStatus) ([]*domain.Order, error) {
	if e.store == nil {
		return nil, nil
	}
	orders, err := e.store.LoadOrdersByUser(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("%w: load orders: %v", ErrPersistence, err)
	}
	return orders, nil
}

// UserTrades returns trades the user took part in, newest first, optionally
// filtered by symbol.
func (e *Engine) UserTrades(ctx context.Context, userID int64, symbol string) ([]*domain.Trade, error) {
	if e.store == nil {
		return nil, nil
	}
	trades, err := e.store.LoadTradesByUser(ctx, userID, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: load trades: %v", ErrPersistence, err)
	}
	return trades, nil
}

func (e *Engine) validateOrder(o *domain.Order) error {
	if o == nil {
		return fmt.Errorf("%w: nil order", ErrInvalidInput)
	}
	if !o.Side.Valid() {
		return fmt.Errorf("%w: invalid side %q", ErrInvalidInput, o.Side)
	}
	if _, ok := e.symbolSet[o.Symbol]; !ok {
		return fmt.Errorf("%w: unknown symbol %q", ErrInvalidInput, o.Symbol)
	}
	if !o.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if !o.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	return nil
}

func (e *Engine) getOrCreateBook(symbol string) *book {
	e.mu.RLock()
	b, ok := e.books[symbol]
	e.mu.RUnlock()
	if ok {
		return b
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.books[symbol]; ok {
		return b
	}
	b = newBook(symbol)
	e.books[symbol] = b
	return b
}

func (e *Engine) indexOrder(o *domain.Order) {
	e.mu.Lock()
	e.orders[o.ID] = o
	e.mu.Unlock()
}

func (e *Engine) lookupOrder(orderID string) *domain.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orders[orderID]
}
