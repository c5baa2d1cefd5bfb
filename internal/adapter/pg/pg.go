package pg

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Poursadegh/blockChainFullStack/internal/domain"
	"github.com/Poursadegh/blockChainFullStack/internal/port"
)

//go:embed schema.sql
var schema string

var _ port.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects a pgx pool. Call Close when done.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema applies the embedded DDL. Idempotent; development and test
// bootstrap, not a migration tool.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("pg: init schema: %w", err)
	}
	return nil
}

const orderColumns = `id, user_id, symbol, side, price, amount, filled_amount, status, created_at, updated_at`

const upsertOrderSQL = `
INSERT INTO orders(id, user_id, symbol, side, price, amount, filled_amount, status, created_at, updated_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  filled_amount = EXCLUDED.filled_amount,
  status = EXCLUDED.status,
  updated_at = EXCLUDED.updated_at
`

const insertTradeSQL = `
INSERT INTO trades(id, symbol, price, amount, buyer_id, seller_id, buy_order_id, sell_order_id, created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO NOTHING
`

const upsertBookSQL = `
INSERT INTO order_books(symbol, last_price, volume_24h, high_24h, low_24h, updated_at)
VALUES($1,$2,$3,$4,$5,$6)
ON CONFLICT (symbol) DO UPDATE SET
  last_price = EXCLUDED.last_price,
  volume_24h = EXCLUDED.volume_24h,
  high_24h = EXCLUDED.high_24h,
  low_24h = EXCLUDED.low_24h,
  updated_at = EXCLUDED.updated_at
`

func (s *Store) SaveOrder(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return errors.New("pg: nil order")
	}
	if _, err := s.pool.Exec(ctx, upsertOrderSQL,
		o.ID, o.UserID, o.Symbol, string(o.Side),
		o.Price, o.Amount, o.FilledAmount, string(o.Status),
		o.CreatedAt, o.UpdatedAt,
	); err != nil {
		return fmt.Errorf("pg: save order %s: %w", o.ID, err)
	}
	return nil
}

// SaveMatch commits one fill atomically: both order states, the trade and
// the book statistics row.
func (s *Store) SaveMatch(ctx context.Context, taker, maker *domain.Order, t *domain.Trade, book *domain.OrderBook) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin match: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, o := range []*domain.Order{taker, maker} {
		if _, err := tx.Exec(ctx, upsertOrderSQL,
			o.ID, o.UserID, o.Symbol, string(o.Side),
			o.Price, o.Amount, o.FilledAmount, string(o.Status),
			o.CreatedAt, o.UpdatedAt,
		); err != nil {
			return fmt.Errorf("pg: save order %s: %w", o.ID, err)
		}
	}
	if _, err := tx.Exec(ctx, insertTradeSQL,
		t.ID, t.Symbol, t.Price, t.Amount,
		t.BuyerID, t.SellerID, t.BuyOrderID, t.SellOrderID, t.CreatedAt,
	); err != nil {
		return fmt.Errorf("pg: save trade %s: %w", t.ID, err)
	}
	if _, err := tx.Exec(ctx, upsertBookSQL,
		book.Symbol, book.LastPrice, book.Volume24h, book.High24h, book.Low24h, book.UpdatedAt,
	); err != nil {
		return fmt.Errorf("pg: save order book %s: %w", book.Symbol, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pg: commit match: %w", err)
	}
	return nil
}

func (s *Store) LoadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: load order %s: %w", orderID, err)
	}
	return o, nil
}

// LoadOpenOrders returns a symbol's open orders in FIFO order, the order
// they re-enter the resting sets on restore.
func (s *Store) LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE symbol = $1 AND status IN ('pending', 'partially_filled')
ORDER BY created_at ASC
`, symbol)
	if err != nil {
		return nil, fmt.Errorf("pg: load open orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (s *Store) LoadOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error) {
	var b domain.OrderBook
	err := s.pool.QueryRow(ctx, `
SELECT symbol, last_price, volume_24h, high_24h, low_24h, updated_at
FROM order_books
WHERE symbol = $1
`, symbol).Scan(&b.Symbol, &b.LastPrice, &b.Volume24h, &b.High24h, &b.Low24h, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: load order book %s: %w", symbol, err)
	}
	return &b, nil
}

func (s *Store) LoadOrdersByUser(ctx context.Context, userID int64, status domain.OrderStatus) ([]*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}
	if status != "" {
		q = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC`
		args = append(args, string(status))
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("pg: load user orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (s *Store) LoadTradesByUser(ctx context.Context, userID int64, symbol string) ([]*domain.Trade, error) {
	q := `
SELECT id, symbol, price, amount, buyer_id, seller_id, buy_order_id, sell_order_id, created_at
FROM trades
WHERE (buyer_id = $1 OR seller_id = $1)
`
	args := []any{userID}
	if symbol != "" {
		q += ` AND symbol = $2`
		args = append(args, symbol)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("pg: load user trades: %w", err)
	}
	defer rows.Close()

	var res []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Price, &t.Amount,
			&t.BuyerID, &t.SellerID, &t.BuyOrderID, &t.SellOrderID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("pg: scan trade: %w", err)
		}
		res = append(res, &t)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var side, status string
	if err := row.Scan(&o.ID, &o.UserID, &o.Symbol, &side,
		&o.Price, &o.Amount, &o.FilledAmount, &status,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Side = domain.Side(side)
	o.Status = domain.OrderStatus(status)
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]*domain.Order, error) {
	var res []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("pg: scan order: %w", err)
		}
		res = append(res, o)
	}
	return res, rows.Err()
}
