package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avstore/storefront/domain"
	"github.com/avstore/storefront/internal/backend"
	"github.com/avstore/storefront/internal/journal"
)

// OrderFetcher looks an order up on the backend for the confirmation view.
type OrderFetcher interface {
	GetOrder(ctx context.Context, id string) (*domain.OrderRecord, error)
}

// AttemptReader reads the local checkout journal.
type AttemptReader interface {
	LatestByOrder(ctx context.Context, orderID string) (*journal.Attempt, error)
}

type OrdersHandler struct {
	fetcher  OrderFetcher
	attempts AttemptReader
	timeout  time.Duration
}

func NewOrdersHandler(fetcher OrderFetcher, attempts AttemptReader, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		fetcher:  fetcher,
		attempts: attempts,
		timeout:  timeout,
	}
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id is required")
		return
	}

	order, err := h.fetcher.GetOrder(ctx, orderID)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			respondError(w, http.StatusNotFound, "not_found", "order not found")
			return
		}
		respondError(w, http.StatusBadGateway, "upstream_error", "failed to fetch order")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

type AttemptResponseDTO struct {
	OrderID       string  `json:"orderId"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
	FailureReason string  `json:"failureReason,omitempty"`
}

// GetCheckoutAttempt answers the latest journaled checkout attempt for an
// order, letting the failure page explain what happened before the retry.
func (h *OrdersHandler) GetCheckoutAttempt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "id")
	attempt, err := h.attempts.LatestByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, journal.ErrAttemptNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no checkout attempt for order")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to read checkout journal")
		return
	}

	respondJSON(w, http.StatusOK, AttemptResponseDTO{
		OrderID:       attempt.OrderID,
		Status:        string(attempt.Status),
		Amount:        attempt.Amount,
		PaymentMethod: string(attempt.PaymentMethod),
		FailureReason: attempt.FailureReason,
	})
}
