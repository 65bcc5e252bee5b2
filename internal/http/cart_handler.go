package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avstore/storefront/domain"
	"github.com/avstore/storefront/internal/cart"
)

// CartStore is the slice of the cart store the HTTP layer drives.
type CartStore interface {
	Add(ctx context.Context, product domain.CartLine) error
	Remove(ctx context.Context, name string) error
	UpdateQuantity(ctx context.Context, name string, delta int) error
	Clear(ctx context.Context) error
	Snapshot() domain.CartSnapshot
	ItemCount() int
}

type CartHandler struct {
	store   CartStore
	timeout time.Duration
}

func NewCartHandler(store CartStore, timeout time.Duration) *CartHandler {
	return &CartHandler{
		store:   store,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	Item domain.CartLine `json:"item"`
}

type UpdateQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

type CartResponseDTO struct {
	Items     []domain.CartLine `json:"items"`
	Total     float64           `json:"total"`
	ItemCount int               `json:"itemCount"`
	Warning   string            `json:"warning,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Item.Name == "" {
		respondError(w, http.StatusBadRequest, "invalid_item", "item name is required")
		return
	}
	if req.Item.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_item", "item price must not be negative")
		return
	}

	if err := h.store.Add(ctx, req.Item); err != nil {
		handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.cartResponse())
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	name, err := itemName(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_item", "invalid item name")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Delta == 0 {
		respondError(w, http.StatusBadRequest, "invalid_delta", "delta must be non-zero")
		return
	}

	if err := h.store.UpdateQuantity(ctx, name, req.Delta); err != nil {
		// a stock-limit clamp still lands the clamped quantity, so the
		// client gets the cart as persisted plus a warning
		if errors.Is(err, cart.ErrStockLimit) {
			response := h.cartResponse()
			response.Warning = "requested quantity exceeds available stock; quantity was capped"
			respondJSON(w, http.StatusOK, response)
			return
		}
		handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	name, err := itemName(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_item", "invalid item name")
		return
	}

	if err := h.store.Remove(ctx, name); err != nil {
		handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.Clear(ctx); err != nil {
		handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) cartResponse() CartResponseDTO {
	snapshot := h.store.Snapshot()
	items := snapshot.Items
	if items == nil {
		items = []domain.CartLine{}
	}
	return CartResponseDTO{
		Items:     items,
		Total:     snapshot.TotalAmount,
		ItemCount: h.store.ItemCount(),
	}
}

// itemName decodes the {name} path segment; product names may contain
// spaces and slashes, so they arrive URL-escaped.
func itemName(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "name")
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", errors.New("empty item name")
	}
	return name, nil
}

func handleCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrStockLimit):
		respondError(w, http.StatusConflict, "stock_limit", "requested quantity exceeds available stock")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
