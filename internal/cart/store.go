package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/avstore/storefront/domain"
)

// Store is the single source of truth for the shopping cart: an in-memory
// table of lines keyed by product name, written back to its Persistence port
// synchronously on every mutation and restored on construction.
type Store struct {
	mu    sync.RWMutex
	lines []domain.CartLine
	port  Persistence
}

// NewStore restores a prior cart from the persistence port. A missing key
// yields an empty cart; a corrupt payload is discarded (and its key removed)
// rather than failing construction.
func NewStore(ctx context.Context, port Persistence) *Store {
	s := &Store{port: port}

	lines, err := port.Load(ctx)
	switch {
	case err == nil:
		s.lines = lines
	case errors.Is(err, ErrNotFound):
		// first visit, nothing saved yet
	default:
		log.Printf("discarding unreadable saved cart: %v", err)
		if clearErr := port.Clear(ctx); clearErr != nil {
			log.Printf("failed to remove unreadable saved cart: %v", clearErr)
		}
	}
	return s
}

// Add inserts a new line with quantity 1, or increments an existing line
// with the same name. The increment is clamped to the line's stock when
// stock is known; a clamped call reports ErrStockLimit.
func (s *Store) Add(ctx context.Context, product domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].Name != product.Name {
			continue
		}
		line := &s.lines[i]
		if line.Stock > 0 && line.Quantity >= line.Stock {
			return ErrStockLimit
		}
		line.Quantity++
		return s.persist(ctx)
	}

	product.Quantity = 1
	s.lines = append(s.lines, product)
	return s.persist(ctx)
}

// Remove deletes the line with the given name. Removing an absent name is a
// no-op, not an error.
func (s *Store) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].Name == name {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return s.persist(ctx)
		}
	}
	return nil
}

// UpdateQuantity applies a signed delta to a line's quantity, flooring at 1.
// Removal is expressed through Remove, never through a zero quantity. The
// result is clamped to the line's stock when stock is known.
func (s *Store) UpdateQuantity(ctx context.Context, name string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].Name != name {
			continue
		}
		line := &s.lines[i]

		quantity := line.Quantity + delta
		if quantity < 1 {
			quantity = 1
		}
		clamped := false
		if line.Stock > 0 && quantity > line.Stock {
			quantity = line.Stock
			clamped = true
		}
		line.Quantity = quantity

		if err := s.persist(ctx); err != nil {
			return err
		}
		if clamped {
			return ErrStockLimit
		}
		return nil
	}
	return nil
}

// Clear empties the table and removes the persisted key entirely, so a later
// load failure can never revive stale lines.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	if err := s.port.Clear(ctx); err != nil {
		return fmt.Errorf("clear saved cart: %w", err)
	}
	return nil
}

// Total is the sum of price*quantity over all lines.
func (s *Store) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, line := range s.lines {
		total += line.Subtotal()
	}
	return total
}

// ItemCount is the sum of quantities, for badge display.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

// Snapshot returns a value copy of the table for checkout. The orchestrator
// never mutates the cart through a snapshot; clearing happens as a discrete
// action after confirmed success.
func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.CartLine, len(s.lines))
	copy(items, s.lines)

	var total float64
	for _, line := range items {
		total += line.Subtotal()
	}
	return domain.CartSnapshot{
		Items:       items,
		TotalAmount: total,
		CapturedAt:  time.Now(),
	}
}

func (s *Store) persist(ctx context.Context) error {
	lines := make([]domain.CartLine, len(s.lines))
	copy(lines, s.lines)
	if err := s.port.Save(ctx, lines); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
