package checkout

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/avstore/storefront/domain"
	"github.com/avstore/storefront/internal/backend"
	"github.com/avstore/storefront/internal/gateway"
	"github.com/avstore/storefront/internal/journal"
)

// Orchestrator runs the checkout flow sequentially: validate, create the
// order, then branch into the card or alternate payment path. At most one
// submission is processed at a time; everything after PAYMENT_PENDING
// happens in HandleReturn when the browser comes back from the gateway.
type Orchestrator struct {
	backend  Backend
	cart     Cart
	hosted   gateway.HostedCheckout
	journal  Journal
	currency string

	mu       sync.Mutex
	inFlight bool
	status   domain.CheckoutStatus
}

func NewOrchestrator(b Backend, cart Cart, hosted gateway.HostedCheckout, jrnl Journal, currency string) *Orchestrator {
	return &Orchestrator{
		backend:  b,
		cart:     cart,
		hosted:   hosted,
		journal:  jrnl,
		currency: currency,
		status:   domain.CheckoutStatusIdle,
	}
}

// Status reports the state of the current attempt.
func (o *Orchestrator) Status() domain.CheckoutStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Submit runs one checkout attempt against the current cart snapshot.
// On any failure the cart and form are left intact and a later Submit
// issues a fresh, independent order request.
func (o *Orchestrator) Submit(ctx context.Context, form Form) (*Result, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	snapshot := o.cart.Snapshot()
	if len(snapshot.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()

	order, err := o.backend.CreateOrder(ctx, domain.OrderRequest{
		Customer:       form.Customer,
		Items:          snapshot.Items,
		Total:          snapshot.TotalAmount,
		DeliveryMethod: form.DeliveryMethod,
		PaymentMethod:  form.PaymentMethod,
	})
	if err != nil {
		o.fail("", err)
		return nil, fmt.Errorf("create order: %w", err)
	}
	o.setStatus(domain.CheckoutStatusOrderCreated)

	attemptID := uuid.NewString()
	o.recordAttempt(ctx, attemptID, order, form.PaymentMethod)

	result, err := o.initiatePayment(ctx, order, form.Customer, form.PaymentMethod)
	if err != nil {
		o.fail(order.ID, err)
		return nil, err
	}

	o.setStatus(domain.CheckoutStatusPaymentPending)
	o.journalStatus(ctx, attemptID, domain.CheckoutStatusPaymentPending)
	return result, nil
}

// RetryPayment re-enters the payment step for an order that already exists,
// so a failed gateway attempt never creates a duplicate order.
func (o *Orchestrator) RetryPayment(ctx context.Context, orderID string) (*Result, error) {
	if orderID == "" {
		return nil, fmt.Errorf("retry payment: missing order id")
	}

	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()

	order, err := o.backend.GetOrder(ctx, orderID)
	if err != nil {
		o.fail(orderID, err)
		return nil, fmt.Errorf("fetch order for retry: %w", err)
	}
	o.setStatus(domain.CheckoutStatusOrderCreated)

	attemptID := uuid.NewString()
	o.recordAttempt(ctx, attemptID, order, order.PaymentMethod)

	result, err := o.initiatePayment(ctx, order, order.Customer, order.PaymentMethod)
	if err != nil {
		o.fail(order.ID, err)
		return nil, err
	}

	o.setStatus(domain.CheckoutStatusPaymentPending)
	o.journalStatus(ctx, attemptID, domain.CheckoutStatusPaymentPending)
	return result, nil
}

func (o *Orchestrator) initiatePayment(ctx context.Context, order *domain.OrderRecord, customer domain.Customer, method domain.PaymentMethod) (*Result, error) {
	switch method {
	case domain.PaymentMethodCard:
		return o.initiateHostedSession(ctx, order)
	default:
		return o.initiateFormRedirect(ctx, order, customer)
	}
}

func (o *Orchestrator) initiateHostedSession(ctx context.Context, order *domain.OrderRecord) (*Result, error) {
	sessionID, err := o.backend.CreatePaymentSession(ctx, order.Total, orderDescription(order.ID))
	if err != nil {
		return nil, fmt.Errorf("create payment session: %w", err)
	}

	if o.hosted == nil {
		return nil, gateway.ErrUnavailable
	}
	if err := o.hosted.Configure(sessionID); err != nil {
		return nil, fmt.Errorf("configure hosted checkout: %w", err)
	}
	redirectURL, err := o.hosted.ShowPaymentPage()
	if err != nil {
		return nil, fmt.Errorf("show payment page: %w", err)
	}

	return &Result{
		Order:       order,
		Session:     domain.HostedSession{SessionID: sessionID},
		RedirectURL: redirectURL,
	}, nil
}

func (o *Orchestrator) initiateFormRedirect(ctx context.Context, order *domain.OrderRecord, customer domain.Customer) (*Result, error) {
	redirect, err := o.backend.CreateKokoPayment(ctx, backend.KokoPaymentRequest{
		OrderID:   order.ID,
		Amount:    order.Total,
		Currency:  o.currency,
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
		Email:     customer.Email,
		Mobile:    customer.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("create koko payment: %w", err)
	}

	return &Result{
		Order:   order,
		Session: *redirect,
	}, nil
}

// begin acquires the single-submission slot and moves to SUBMITTING.
func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.inFlight {
		return ErrCheckoutInFlight
	}
	if o.status.IsTerminal() || o.status == domain.CheckoutStatusPaymentPending {
		// a new attempt starts fresh; terminal states are per-attempt, and
		// PAYMENT_PENDING with no gateway return is an abandoned handoff
		// the customer walked away from
		o.status = domain.CheckoutStatusIdle
	}
	if !domain.CanTransitionTo(o.status, domain.CheckoutStatusSubmitting) {
		return fmt.Errorf("cannot submit from %s", o.status)
	}
	o.inFlight = true
	o.status = domain.CheckoutStatusSubmitting
	return nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.inFlight = false
	o.mu.Unlock()
}

func (o *Orchestrator) setStatus(next domain.CheckoutStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !domain.CanTransitionTo(o.status, next) {
		log.Printf("illegal checkout transition %s -> %s", o.status, next)
		return
	}
	o.status = next
}

func (o *Orchestrator) fail(orderID string, cause error) {
	o.setStatus(domain.CheckoutStatusFailed)
	log.Printf("checkout failed (order %q): %v", orderID, cause)
	if o.journal != nil && orderID != "" {
		ctx, cancel := journalContext()
		defer cancel()
		if err := o.journal.FailByOrder(ctx, orderID, cause.Error()); err != nil {
			log.Printf("journal fail error: %v", err)
		}
	}
}

func (o *Orchestrator) recordAttempt(ctx context.Context, attemptID string, order *domain.OrderRecord, method domain.PaymentMethod) {
	if o.journal == nil {
		return
	}
	err := o.journal.CreateAttempt(ctx, &journal.Attempt{
		ID:            attemptID,
		OrderID:       order.ID,
		Status:        domain.CheckoutStatusOrderCreated,
		Amount:        order.Total,
		PaymentMethod: method,
	})
	if err != nil {
		log.Printf("journal create attempt error: %v", err)
	}
}

func (o *Orchestrator) journalStatus(ctx context.Context, attemptID string, status domain.CheckoutStatus) {
	if o.journal == nil {
		return
	}
	if err := o.journal.UpdateStatus(ctx, attemptID, status); err != nil {
		log.Printf("journal update status error: %v", err)
	}
}
