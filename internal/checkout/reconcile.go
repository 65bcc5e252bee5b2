package checkout

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/avstore/storefront/domain"
)

const (
	fallbackFailureMessage = "Payment failed"
	genericFailureMessage  = "Payment processing error"
)

// HandleReturn reconciles the browser's return from the external payment
// gateway into a terminal outcome. Query parameters are client-visible and
// spoofable, so the server-side transaction lookup dominates whenever a
// reference is present; the URL's own status is only a fallback when no
// reference exists or the lookup itself cannot be reached.
func (o *Orchestrator) HandleReturn(ctx context.Context, ret domain.GatewayReturn) Outcome {
	if ret.TransactionRef != "" {
		status, err := o.backend.GetPaymentStatus(ctx, ret.TransactionRef)
		switch {
		case err != nil:
			// the only trustworthy signal is unreachable; fall back to
			// the URL parameters, as the storefront always has
			log.Printf("payment status lookup failed for %s: %v", ret.TransactionRef, err)
		case status.Succeeded():
			orderID := status.OrderID
			if orderID == "" {
				orderID = ret.OrderID
			}
			return o.succeed(ctx, orderID)
		default:
			// backend answered and says the payment did not succeed; a
			// spoofed status=SUCCESS in the URL must not override it
			orderID := status.OrderID
			if orderID == "" {
				orderID = ret.OrderID
			}
			return o.failReturn(orderID, messageOr(ret.Message, fallbackFailureMessage))
		}
	}

	if ret.Status == "SUCCESS" && ret.OrderID != "" {
		return o.succeed(ctx, ret.OrderID)
	}
	if ret.OrderID != "" {
		return o.failReturn(ret.OrderID, messageOr(ret.Message, fallbackFailureMessage))
	}
	return o.failReturn("", messageOr(ret.Message, genericFailureMessage))
}

// succeed enters the terminal success state: fetch the order for display,
// clear the cart (exactly once, only here), journal the completion.
func (o *Orchestrator) succeed(ctx context.Context, orderID string) Outcome {
	o.forceStatus(domain.CheckoutStatusCompleted)

	var order *domain.OrderRecord
	fetched, err := o.backend.GetOrder(ctx, orderID)
	if err != nil {
		// the payment outcome stands; only the confirmation view degrades
		log.Printf("order lookup failed after successful payment %s: %v", orderID, err)
	} else {
		order = fetched
	}

	if err := o.cart.Clear(ctx); err != nil {
		log.Printf("failed to clear cart after successful payment: %v", err)
	}

	if o.journal != nil {
		payload := completionPayload(orderID, order)
		jctx, cancel := journalContext()
		defer cancel()
		if err := o.journal.CompleteByOrder(jctx, orderID, payload); err != nil {
			log.Printf("journal complete error: %v", err)
		}
	}

	return Outcome{Success: true, OrderID: orderID, Order: order}
}

func (o *Orchestrator) failReturn(orderID, message string) Outcome {
	o.forceStatus(domain.CheckoutStatusFailed)

	if o.journal != nil && orderID != "" {
		jctx, cancel := journalContext()
		defer cancel()
		if err := o.journal.FailByOrder(jctx, orderID, message); err != nil {
			log.Printf("journal fail error: %v", err)
		}
	}

	return Outcome{Success: false, OrderID: orderID, Message: message}
}

// forceStatus records a reconciliation outcome without a legality check:
// the gateway return may land on a fresh process whose local machine never
// saw the submission, and the reconciled outcome is authoritative.
func (o *Orchestrator) forceStatus(status domain.CheckoutStatus) {
	o.mu.Lock()
	o.status = status
	o.mu.Unlock()
}

func completionPayload(orderID string, order *domain.OrderRecord) []byte {
	event := map[string]any{
		"order_id":     orderID,
		"completed_at": time.Now().UTC(),
	}
	if order != nil {
		event["total"] = order.Total
		event["payment_method"] = order.PaymentMethod
		event["item_count"] = len(order.Items)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal completion payload: %v", err)
		return []byte(`{}`)
	}
	return payload
}

func messageOr(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

func journalContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Second)
}
