package cart

import (
	"context"
	"errors"

	"github.com/avstore/storefront/domain"
)

var (
	// ErrNotFound means no cart has been persisted yet.
	ErrNotFound = errors.New("no saved cart")

	// ErrStockLimit is reported when a quantity change was clamped to the
	// line's known stock ceiling. The clamped mutation still lands.
	ErrStockLimit = errors.New("quantity limited by available stock")
)

// Persistence is the durable storage port behind the cart store. The store
// writes the whole table on every mutation and removes the key entirely on
// Clear, so a half-written empty table can never mask a stale cart.
type Persistence interface {
	Load(ctx context.Context) ([]domain.CartLine, error)
	Save(ctx context.Context, lines []domain.CartLine) error
	Clear(ctx context.Context) error
}
