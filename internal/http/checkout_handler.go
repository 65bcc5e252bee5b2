package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avstore/storefront/domain"
	"github.com/avstore/storefront/internal/backend"
	"github.com/avstore/storefront/internal/checkout"
	"github.com/avstore/storefront/internal/gateway"
)

// Checkout is the orchestrator surface the HTTP layer drives.
type Checkout interface {
	Submit(ctx context.Context, form checkout.Form) (*checkout.Result, error)
	RetryPayment(ctx context.Context, orderID string) (*checkout.Result, error)
	HandleReturn(ctx context.Context, ret domain.GatewayReturn) checkout.Outcome
	Status() domain.CheckoutStatus
}

type CheckoutHandler struct {
	orchestrator Checkout
	timeout      time.Duration
}

func NewCheckoutHandler(orchestrator Checkout, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		orchestrator: orchestrator,
		timeout:      timeout,
	}
}

type CheckoutRequestDTO struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Country        string `json:"country"`
	Address        string `json:"address"`
	City           string `json:"city"`
	ZipCode        string `json:"zipCode"`
	DeliveryMethod string `json:"deliveryMethod"`
	PaymentMethod  string `json:"paymentMethod"`
}

func (dto CheckoutRequestDTO) form() checkout.Form {
	return checkout.Form{
		Customer: domain.Customer{
			FirstName: dto.FirstName,
			LastName:  dto.LastName,
			Email:     dto.Email,
			Phone:     dto.Phone,
			Country:   dto.Country,
			Address:   dto.Address,
			City:      dto.City,
			ZipCode:   dto.ZipCode,
		},
		DeliveryMethod: domain.DeliveryMethod(dto.DeliveryMethod),
		PaymentMethod:  domain.PaymentMethod(dto.PaymentMethod),
	}
}

type CheckoutResponseDTO struct {
	Order       *domain.OrderRecord `json:"order"`
	SessionID   string              `json:"sessionId,omitempty"`
	RedirectURL string              `json:"redirectUrl,omitempty"`
}

// Submit runs a checkout attempt. A card payment answers JSON carrying the
// hosted page redirect; a koko payment answers a self-submitting HTML form
// targeting the provider, so the browser can render it directly.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result, err := h.orchestrator.Submit(ctx, req.form())
	if err != nil {
		handleCheckoutError(w, err)
		return
	}

	h.respondResult(w, result)
}

// RetryPayment re-runs the payment step for an existing order.
func (h *CheckoutHandler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "id")
	result, err := h.orchestrator.RetryPayment(ctx, orderID)
	if err != nil {
		handleCheckoutError(w, err)
		return
	}

	h.respondResult(w, result)
}

func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": string(h.orchestrator.Status())})
}

// PaymentResponse receives the browser's return from the external payment
// gateway, reconciles it and forwards to the confirmation or failure page.
func (h *CheckoutHandler) PaymentResponse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	outcome := h.orchestrator.HandleReturn(ctx, domain.GatewayReturn{
		Status:         q.Get("status"),
		Message:        q.Get("message"),
		OrderID:        q.Get("order_id"),
		TransactionRef: q.Get("transaction_ref"),
	})
	log.Printf("payment return reconciled (request %s): success=%v order=%q",
		getRequestID(r.Context()), outcome.Success, outcome.OrderID)

	if outcome.Success {
		http.Redirect(w, r, "/payment/success?orderId="+url.QueryEscape(outcome.OrderID), http.StatusSeeOther)
		return
	}

	target := "/payment/failed?message=" + url.QueryEscape(outcome.Message)
	if outcome.OrderID != "" {
		target += "&orderId=" + url.QueryEscape(outcome.OrderID)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *CheckoutHandler) respondResult(w http.ResponseWriter, result *checkout.Result) {
	switch session := result.Session.(type) {
	case domain.HostedSession:
		respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
			Order:       result.Order,
			SessionID:   session.SessionID,
			RedirectURL: result.RedirectURL,
		})
	case domain.FormRedirect:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := gateway.WriteFormRedirect(w, session); err != nil {
			log.Printf("failed to write form redirect: %v", err)
		}
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "unknown payment session type")
	}
}

func handleCheckoutError(w http.ResponseWriter, err error) {
	var verr *checkout.ValidationError
	var apiErr *backend.APIError

	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, "invalid_form", "missing or invalid fields: "+strings.Join(verr.Fields, ", "))
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, checkout.ErrCheckoutInFlight):
		respondError(w, http.StatusConflict, "checkout_in_flight", "a checkout is already in progress")
	case errors.Is(err, gateway.ErrUnavailable):
		respondError(w, http.StatusBadGateway, "gateway_unavailable", "payment gateway is unavailable")
	case errors.As(err, &apiErr):
		respondError(w, upstreamStatus(apiErr.StatusCode), "upstream_error", apiErr.Message)
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// upstreamStatus maps a backend response code onto ours without leaking
// upstream auth semantics to the browser.
func upstreamStatus(code int) int {
	switch code {
	case http.StatusNotFound:
		return http.StatusNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return http.StatusBadGateway
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return code
	default:
		return http.StatusBadGateway
	}
}
