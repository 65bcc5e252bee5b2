package checkout

import (
	"context"
	"sync"

	"github.com/avstore/storefront/domain"
	"github.com/avstore/storefront/internal/backend"
	"github.com/avstore/storefront/internal/journal"
)

type mockBackend struct {
	m sync.Mutex

	createOrderCalls []domain.OrderRequest
	createOrderErr   error
	createOrderGate  chan struct{}
	nextOrderID      string

	getOrderCalls []string
	getOrderErr   error
	order         *domain.OrderRecord

	sessionCalls []struct {
		Amount      float64
		Description string
	}
	sessionErr error
	sessionID  string

	kokoCalls []backend.KokoPaymentRequest
	kokoErr   error
	redirect  *domain.FormRedirect

	statusCalls []string
	statusErr   error
	status      *backend.PaymentStatus
}

func (b *mockBackend) CreateOrder(_ context.Context, req domain.OrderRequest) (*domain.OrderRecord, error) {
	b.m.Lock()
	b.createOrderCalls = append(b.createOrderCalls, req)
	gate := b.createOrderGate
	b.m.Unlock()
	if gate != nil {
		<-gate
	}
	b.m.Lock()
	defer b.m.Unlock()
	if b.createOrderErr != nil {
		return nil, b.createOrderErr
	}
	return &domain.OrderRecord{
		ID:             b.nextOrderID,
		Customer:       req.Customer,
		Items:          req.Items,
		Total:          req.Total,
		PaymentMethod:  req.PaymentMethod,
		DeliveryMethod: req.DeliveryMethod,
		Status:         "pending",
	}, nil
}

func (b *mockBackend) GetOrder(_ context.Context, id string) (*domain.OrderRecord, error) {
	b.m.Lock()
	defer b.m.Unlock()
	b.getOrderCalls = append(b.getOrderCalls, id)
	if b.getOrderErr != nil {
		return nil, b.getOrderErr
	}
	if b.order != nil {
		return b.order, nil
	}
	return &domain.OrderRecord{ID: id}, nil
}

func (b *mockBackend) CreatePaymentSession(_ context.Context, amount float64, description string) (string, error) {
	b.m.Lock()
	defer b.m.Unlock()
	b.sessionCalls = append(b.sessionCalls, struct {
		Amount      float64
		Description string
	}{amount, description})
	if b.sessionErr != nil {
		return "", b.sessionErr
	}
	return b.sessionID, nil
}

func (b *mockBackend) CreateKokoPayment(_ context.Context, req backend.KokoPaymentRequest) (*domain.FormRedirect, error) {
	b.m.Lock()
	defer b.m.Unlock()
	b.kokoCalls = append(b.kokoCalls, req)
	if b.kokoErr != nil {
		return nil, b.kokoErr
	}
	return b.redirect, nil
}

func (b *mockBackend) GetPaymentStatus(_ context.Context, ref string) (*backend.PaymentStatus, error) {
	b.m.Lock()
	defer b.m.Unlock()
	b.statusCalls = append(b.statusCalls, ref)
	if b.statusErr != nil {
		return nil, b.statusErr
	}
	return b.status, nil
}

type mockCart struct {
	m          sync.Mutex
	items      []domain.CartLine
	clearCount int
}

func (c *mockCart) Snapshot() domain.CartSnapshot {
	c.m.Lock()
	defer c.m.Unlock()
	items := make([]domain.CartLine, len(c.items))
	copy(items, c.items)
	var total float64
	for _, line := range items {
		total += line.Subtotal()
	}
	return domain.CartSnapshot{Items: items, TotalAmount: total}
}

func (c *mockCart) Clear(context.Context) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.clearCount++
	c.items = nil
	return nil
}

type mockHosted struct {
	configureCalls []string
	configureErr   error
	showCalls      int
	showErr        error
	redirectURL    string
}

func (h *mockHosted) Configure(sessionID string) error {
	h.configureCalls = append(h.configureCalls, sessionID)
	return h.configureErr
}

func (h *mockHosted) ShowPaymentPage() (string, error) {
	h.showCalls++
	if h.showErr != nil {
		return "", h.showErr
	}
	return h.redirectURL, nil
}

type mockJournal struct {
	m         sync.Mutex
	attempts  []*journal.Attempt
	statuses  map[string]domain.CheckoutStatus
	completed []string
	failed    map[string]string
}

func newMockJournal() *mockJournal {
	return &mockJournal{
		statuses: make(map[string]domain.CheckoutStatus),
		failed:   make(map[string]string),
	}
}

func (j *mockJournal) CreateAttempt(_ context.Context, a *journal.Attempt) error {
	j.m.Lock()
	defer j.m.Unlock()
	j.attempts = append(j.attempts, a)
	return nil
}

func (j *mockJournal) UpdateStatus(_ context.Context, id string, status domain.CheckoutStatus) error {
	j.m.Lock()
	defer j.m.Unlock()
	j.statuses[id] = status
	return nil
}

func (j *mockJournal) CompleteByOrder(_ context.Context, orderID string, _ []byte) error {
	j.m.Lock()
	defer j.m.Unlock()
	j.completed = append(j.completed, orderID)
	return nil
}

func (j *mockJournal) FailByOrder(_ context.Context, orderID, reason string) error {
	j.m.Lock()
	defer j.m.Unlock()
	j.failed[orderID] = reason
	return nil
}
