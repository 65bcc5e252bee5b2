package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstore/storefront/domain"
	"github.com/avstore/storefront/internal/backend"
)

func TestHandleReturnServerLookupDominates(t *testing.T) {
	b := &mockBackend{
		status: &backend.PaymentStatus{Status: "SUCCESS", OrderID: "O1"},
		order:  &domain.OrderRecord{ID: "O1", Total: 64500},
	}
	cart := cartWith(sampleLine())
	jrnl := newMockJournal()
	o := NewOrchestrator(b, cart, nil, jrnl, "LKR")

	// the URL contradicts the backend on every field; the lookup wins
	outcome := o.HandleReturn(context.Background(), domain.GatewayReturn{
		TransactionRef: "T1",
		Status:         "FAILED",
		OrderID:        "O9",
		Message:        "Declined",
	})

	assert.Equal(t, []string{"T1"}, b.statusCalls)
	assert.True(t, outcome.Success)
	assert.Equal(t, "O1", outcome.OrderID)
	require.NotNil(t, outcome.Order)
	assert.Equal(t, "O1", outcome.Order.ID)

	assert.Equal(t, 1, cart.clearCount)
	assert.Equal(t, []string{"O1"}, jrnl.completed)
	assert.Equal(t, domain.CheckoutStatusCompleted, o.Status())
}

func TestHandleReturnBackendFailureNotSpoofable(t *testing.T) {
	b := &mockBackend{status: &backend.PaymentStatus{Status: "FAILED", OrderID: "O4"}}
	cart := cartWith(sampleLine())
	jrnl := newMockJournal()
	o := NewOrchestrator(b, cart, nil, jrnl, "LKR")

	// status=SUCCESS in the URL cannot override the backend's verdict
	outcome := o.HandleReturn(context.Background(), domain.GatewayReturn{
		TransactionRef: "T4",
		Status:         "SUCCESS",
		OrderID:        "O4",
	})

	assert.False(t, outcome.Success)
	assert.Equal(t, "O4", outcome.OrderID)
	assert.Equal(t, "Payment failed", outcome.Message)
	assert.Zero(t, cart.clearCount)
	assert.Contains(t, jrnl.failed, "O4")
	assert.Equal(t, domain.CheckoutStatusFailed, o.Status())
}

func TestHandleReturnLookupErrorFallsBackToParams(t *testing.T) {
	b := &mockBackend{
		statusErr: errors.New("status endpoint down"),
		order:     &domain.OrderRecord{ID: "O2"},
	}
	cart := cartWith(sampleLine())
	o := NewOrchestrator(b, cart, nil, newMockJournal(), "LKR")

	outcome := o.HandleReturn(context.Background(), domain.GatewayReturn{
		TransactionRef: "T2",
		Status:         "SUCCESS",
		OrderID:        "O2",
	})

	assert.True(t, outcome.Success)
	assert.Equal(t, "O2", outcome.OrderID)
	assert.Equal(t, 1, cart.clearCount)
}

func TestHandleReturnSuccessByParams(t *testing.T) {
	b := &mockBackend{order: &domain.OrderRecord{ID: "O2", Total: 9800}}
	cart := cartWith(sampleLine())
	jrnl := newMockJournal()
	o := NewOrchestrator(b, cart, nil, jrnl, "LKR")

	outcome := o.HandleReturn(context.Background(), domain.GatewayReturn{
		Status:  "SUCCESS",
		OrderID: "O2",
	})

	assert.Empty(t, b.statusCalls)
	assert.True(t, outcome.Success)
	assert.Equal(t, "O2", outcome.OrderID)
	assert.Equal(t, 1, cart.clearCount)
	assert.Equal(t, []string{"O2"}, jrnl.completed)
}

func TestHandleReturnStatusIsCaseSensitive(t *testing.T) {
	b := &mockBackend{}
	cart := cartWith(sampleLine())
	o := NewOrchestrator(b, cart, nil, newMockJournal(), "LKR")

	outcome := o.HandleReturn(context.Background(), domain.GatewayReturn{
		Status:  "success",
		OrderID: "O5",
	})

	assert.False(t, outcome.Success)
	assert.Equal(t, "O5", outcome.OrderID)
	assert.Zero(t, cart.clearCount)
}

func TestHandleReturnOrderIDAloneIsFailure(t *testing.T) {
	b := &mockBackend{}
	jrnl := newMockJournal()
	o := NewOrchestrator(b, cartWith(sampleLine()), nil, jrnl, "LKR")

	outcome := o.HandleReturn(context.Background(), domain.GatewayReturn{OrderID: "O3"})

	assert.False(t, outcome.Success)
	assert.Equal(t, "O3", outcome.OrderID)
	assert.Equal(t, "Payment failed", outcome.Message)
	assert.Equal(t, "Payment failed", jrnl.failed["O3"])
	assert.Equal(t, domain.CheckoutStatusFailed, o.Status())
}

func TestHandleReturnGatewayMessageCarriesThrough(t *testing.T) {
	o := NewOrchestrator(&mockBackend{}, cartWith(), nil, newMockJournal(), "LKR")

	outcome := o.HandleReturn(context.Background(), domain.GatewayReturn{
		OrderID: "O6",
		Message: "Insufficient funds",
	})

	assert.False(t, outcome.Success)
	assert.Equal(t, "Insufficient funds", outcome.Message)
}

func TestHandleReturnEmptyIsGenericFailure(t *testing.T) {
	jrnl := newMockJournal()
	o := NewOrchestrator(&mockBackend{}, cartWith(), nil, jrnl, "LKR")

	outcome := o.HandleReturn(context.Background(), domain.GatewayReturn{})

	assert.False(t, outcome.Success)
	assert.Empty(t, outcome.OrderID)
	assert.Equal(t, "Payment processing error", outcome.Message)
	// nothing to journal without an order id
	assert.Empty(t, jrnl.failed)
}

func TestHandleReturnOrderLookupFailureDegradesView(t *testing.T) {
	b := &mockBackend{
		status:      &backend.PaymentStatus{Status: "SUCCESS", OrderID: "O7"},
		getOrderErr: errors.New("orders service unavailable"),
	}
	cart := cartWith(sampleLine())
	o := NewOrchestrator(b, cart, nil, newMockJournal(), "LKR")

	outcome := o.HandleReturn(context.Background(), domain.GatewayReturn{TransactionRef: "T7"})

	// the payment outcome stands even though the record could not be fetched
	assert.True(t, outcome.Success)
	assert.Equal(t, "O7", outcome.OrderID)
	assert.Nil(t, outcome.Order)
	assert.Equal(t, 1, cart.clearCount)
}

func TestHandleReturnBackendOrderIDFallsBackToParam(t *testing.T) {
	b := &mockBackend{status: &backend.PaymentStatus{Status: "SUCCESS"}}
	o := NewOrchestrator(b, cartWith(), nil, newMockJournal(), "LKR")

	outcome := o.HandleReturn(context.Background(), domain.GatewayReturn{
		TransactionRef: "T8",
		OrderID:        "O8",
	})

	assert.True(t, outcome.Success)
	assert.Equal(t, "O8", outcome.OrderID)
}
