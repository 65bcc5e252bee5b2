// Package checkout turns a populated cart and a validated form into a
// confirmed order and a completed (or failed) payment. It owns the
// submission state machine and the gateway-return reconciliation; the cart,
// backend and hosted gateway are injected ports.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avstore/storefront/domain"
	"github.com/avstore/storefront/internal/backend"
	"github.com/avstore/storefront/internal/journal"
)

var (
	// ErrCheckoutInFlight rejects a second submission while one is still
	// being processed (the form-disabled invariant).
	ErrCheckoutInFlight = errors.New("a checkout is already in progress")

	ErrEmptyCart = errors.New("cart is empty")
)

// Backend is the slice of the REST client the orchestrator needs.
type Backend interface {
	CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderRecord, error)
	GetOrder(ctx context.Context, id string) (*domain.OrderRecord, error)
	CreatePaymentSession(ctx context.Context, amount float64, description string) (string, error)
	CreateKokoPayment(ctx context.Context, req backend.KokoPaymentRequest) (*domain.FormRedirect, error)
	GetPaymentStatus(ctx context.Context, transactionRef string) (*backend.PaymentStatus, error)
}

// Cart is the snapshot/clear slice of the cart store. The orchestrator
// reads snapshots and clears exactly once on confirmed success; it never
// mutates lines.
type Cart interface {
	Snapshot() domain.CartSnapshot
	Clear(ctx context.Context) error
}

// Journal records checkout attempts durably. All journal failures are
// logged and swallowed; the journal must never break a checkout.
type Journal interface {
	CreateAttempt(ctx context.Context, a *journal.Attempt) error
	UpdateStatus(ctx context.Context, id string, status domain.CheckoutStatus) error
	CompleteByOrder(ctx context.Context, orderID string, payload []byte) error
	FailByOrder(ctx context.Context, orderID, reason string) error
}

// Form is the customer/delivery/payment form as submitted.
type Form struct {
	Customer       domain.Customer
	DeliveryMethod domain.DeliveryMethod
	PaymentMethod  domain.PaymentMethod
}

// ValidationError lists the missing or malformed form fields. It is
// surfaced inline and caught before any network call.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid checkout form: " + strings.Join(e.Fields, ", ")
}

// Validate checks required fields. The address block is only required when
// the order is being delivered.
func (f Form) Validate() error {
	var missing []string

	if f.Customer.Email == "" || !strings.Contains(f.Customer.Email, "@") {
		missing = append(missing, "email")
	}
	if f.Customer.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if f.Customer.LastName == "" {
		missing = append(missing, "lastName")
	}
	if f.Customer.Phone == "" {
		missing = append(missing, "phone")
	}

	switch f.DeliveryMethod {
	case domain.DeliveryMethodPickup:
	case domain.DeliveryMethodDelivery:
		if f.Customer.Country == "" {
			missing = append(missing, "country")
		}
		if f.Customer.Address == "" {
			missing = append(missing, "address")
		}
		if f.Customer.City == "" {
			missing = append(missing, "city")
		}
		if f.Customer.ZipCode == "" {
			missing = append(missing, "zipCode")
		}
	default:
		missing = append(missing, "deliveryMethod")
	}

	switch f.PaymentMethod {
	case domain.PaymentMethodCard, domain.PaymentMethodKoko:
	default:
		missing = append(missing, "paymentMethod")
	}

	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Result is what a successful submission hands back to the UI layer:
// the created order and the payment handoff for the chosen method.
type Result struct {
	Order   *domain.OrderRecord
	Session domain.PaymentSession
	// RedirectURL is the hosted payment page for card sessions; empty for
	// form redirects, which carry their target in the session itself.
	RedirectURL string
}

// Outcome is the reconciled result of a gateway return.
type Outcome struct {
	Success bool
	OrderID string
	Message string
	// Order is the fetched record for the confirmation view; may be nil on
	// success when the lookup failed (the view degrades, the outcome stands).
	Order *domain.OrderRecord
}

func orderDescription(orderID string) string {
	return fmt.Sprintf("Order #%s", orderID)
}
