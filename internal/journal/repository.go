package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/avstore/storefront/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var ErrAttemptNotFound = errors.New("checkout attempt not found")

// Attempt is one durable record of a checkout submission: enough to
// correlate a gateway return with the order it belongs to and to offer a
// retry path after a failed payment.
type Attempt struct {
	ID             string
	OrderID        string
	Status         domain.CheckoutStatus
	Amount         float64
	PaymentMethod  domain.PaymentMethod
	TransactionRef string
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OutboxEvent is a completed-order event awaiting publication.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}
	return &Repository{db: db}, nil
}

// RunMigrations applies the embedded schema migrations, so the binary
// migrates regardless of its working directory.
func (r *Repository) RunMigrations() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not load embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(r.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) CreateAttempt(ctx context.Context, a *Attempt) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkout_attempts
			(id, order_id, status, amount, payment_method, transaction_ref, failure_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OrderID, string(a.Status), a.Amount, string(a.PaymentMethod),
		a.TransactionRef, a.FailureReason, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create checkout attempt: %w", err)
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.CheckoutStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE checkout_attempts SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update attempt status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

// CompleteByOrder marks every attempt for the order completed and queues a
// single order.completed outbox event, in one transaction. Safe when the
// return navigation lands on an instance that never saw the submission: the
// event is queued regardless of matching attempts.
func (r *Repository) CompleteByOrder(ctx context.Context, orderID string, payload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE checkout_attempts SET status = ?, updated_at = ? WHERE order_id = ?`,
		string(domain.CheckoutStatusCompleted), now, orderID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete attempts: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at)
		VALUES (?, 'order.completed', ?, ?)`,
		orderID, payload, now,
	)
	if err != nil {
		return fmt.Errorf("failed to queue outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (r *Repository) FailByOrder(ctx context.Context, orderID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE checkout_attempts SET status = ?, failure_reason = ?, updated_at = ?
		WHERE order_id = ? AND status != ?`,
		string(domain.CheckoutStatusFailed), reason, time.Now().UTC(),
		orderID, string(domain.CheckoutStatusCompleted),
	)
	if err != nil {
		return fmt.Errorf("failed to mark attempts failed: %w", err)
	}
	return nil
}

func (r *Repository) LatestByOrder(ctx context.Context, orderID string) (*Attempt, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, status, amount, payment_method, transaction_ref, failure_reason, created_at, updated_at
		FROM checkout_attempts WHERE order_id = ?
		ORDER BY created_at DESC LIMIT 1`, orderID)

	var a Attempt
	var status, method string
	err := row.Scan(&a.ID, &a.OrderID, &status, &a.Amount, &method,
		&a.TransactionRef, &a.FailureReason, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	a.Status = domain.CheckoutStatus(status)
	a.PaymentMethod = domain.PaymentMethod(method)
	return &a, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events WHERE processed_at IS NULL
		ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events SET processed_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}
