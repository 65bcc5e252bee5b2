package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstore/storefront/domain"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.RunMigrations())
	return repo
}

func newAttempt(orderID string) *Attempt {
	return &Attempt{
		ID:            uuid.NewString(),
		OrderID:       orderID,
		Status:        domain.CheckoutStatusOrderCreated,
		Amount:        64500,
		PaymentMethod: domain.PaymentMethodCard,
	}
}

func TestCreateAndLoadAttempt(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)

	a := newAttempt("O-1001")
	require.NoError(t, repo.CreateAttempt(ctx, a))

	got, err := repo.LatestByOrder(ctx, "O-1001")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, domain.CheckoutStatusOrderCreated, got.Status)
	assert.Equal(t, 64500.0, got.Amount)
	assert.Equal(t, domain.PaymentMethodCard, got.PaymentMethod)
}

func TestLatestByOrder_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.LatestByOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)

	a := newAttempt("O-1")
	require.NoError(t, repo.CreateAttempt(ctx, a))
	require.NoError(t, repo.UpdateStatus(ctx, a.ID, domain.CheckoutStatusPaymentPending))

	got, err := repo.LatestByOrder(ctx, "O-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusPaymentPending, got.Status)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "no-such-id", domain.CheckoutStatusFailed), ErrAttemptNotFound)
}

func TestCompleteByOrder_MarksAttemptAndQueuesEvent(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)

	a := newAttempt("O-2")
	require.NoError(t, repo.CreateAttempt(ctx, a))

	payload := []byte(`{"order_id":"O-2","total":64500}`)
	require.NoError(t, repo.CompleteByOrder(ctx, "O-2", payload))

	got, err := repo.LatestByOrder(ctx, "O-2")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusCompleted, got.Status)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "O-2", events[0].AggregateID)
	assert.Equal(t, "order.completed", events[0].EventType)
	assert.Equal(t, payload, events[0].Payload)
}

func TestCompleteByOrder_NoMatchingAttempt_StillQueuesEvent(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)

	require.NoError(t, repo.CompleteByOrder(ctx, "O-elsewhere", []byte(`{}`)))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestFailByOrder_SkipsCompletedAttempts(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)

	a := newAttempt("O-3")
	require.NoError(t, repo.CreateAttempt(ctx, a))
	require.NoError(t, repo.CompleteByOrder(ctx, "O-3", []byte(`{}`)))

	require.NoError(t, repo.FailByOrder(ctx, "O-3", "late decline"))

	got, err := repo.LatestByOrder(ctx, "O-3")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusCompleted, got.Status)
}

func TestMarkEventAsProcessed(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)

	require.NoError(t, repo.CompleteByOrder(ctx, "O-4", []byte(`{}`)))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
