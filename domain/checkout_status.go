package domain

type CheckoutStatus string

const (
	CheckoutStatusIdle           CheckoutStatus = "IDLE"
	CheckoutStatusSubmitting     CheckoutStatus = "SUBMITTING"
	CheckoutStatusOrderCreated   CheckoutStatus = "ORDER_CREATED"
	CheckoutStatusPaymentPending CheckoutStatus = "PAYMENT_PENDING"
	CheckoutStatusCompleted      CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed         CheckoutStatus = "FAILED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal step in
// the checkout lifecycle. FAILED is re-enterable from any non-completed
// state; a failed attempt is retried by a fresh submission, never resumed.
func CanTransitionTo(s, next CheckoutStatus) bool {
	if next == CheckoutStatusFailed {
		return s != CheckoutStatusCompleted
	}
	switch s {
	case CheckoutStatusIdle:
		return next == CheckoutStatusSubmitting
	case CheckoutStatusSubmitting:
		return next == CheckoutStatusOrderCreated
	case CheckoutStatusOrderCreated:
		return next == CheckoutStatusPaymentPending
	case CheckoutStatusPaymentPending:
		return next == CheckoutStatusCompleted
	case CheckoutStatusFailed:
		return next == CheckoutStatusSubmitting || next == CheckoutStatusPaymentPending
	default:
		return false
	}
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
