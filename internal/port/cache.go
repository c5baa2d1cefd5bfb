package port

import (
	"context"

	"github.com/Poursadegh/blockChainFullStack/internal/domain"
)

// SnapshotCache holds short-lived book snapshots for the read path.
// A miss is (nil, nil). Correctness never depends on cache contents.
type SnapshotCache interface {
	GetBook(ctx context.Context, symbol string) (*domain.BookSnapshot, error)
	SetBook(ctx context.Context, symbol string, snap *domain.BookSnapshot) error
	Invalidate(ctx context.Context, symbol string) error
}
