package gateway

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
)

// ErrUnavailable means the embedded hosted-checkout integration is not
// present or not configured. Checkout treats this as a payment-session
// failure, never as a crash.
var ErrUnavailable = errors.New("hosted checkout unavailable")

// HostedCheckout is the capability surface of the card gateway's embedded
// checkout client: configure it with a session, then hand control to its
// hosted payment page. Implementations must fail with ErrUnavailable rather
// than panic when the integration is missing.
type HostedCheckout interface {
	Configure(sessionID string) error
	ShowPaymentPage() (redirectURL string, err error)
}

// HostedPage implements HostedCheckout against the gateway's hosted payment
// page URL. Card data never touches this process; the customer is redirected
// to the bank-owned page keyed by the session id.
type HostedPage struct {
	mu        sync.Mutex
	pageURL   string
	sessionID string
}

func NewHostedPage(pageURL string) *HostedPage {
	return &HostedPage{pageURL: pageURL}
}

func (h *HostedPage) Configure(sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pageURL == "" {
		return ErrUnavailable
	}
	if sessionID == "" {
		return fmt.Errorf("configure: empty session id")
	}
	h.sessionID = sessionID
	return nil
}

func (h *HostedPage) ShowPaymentPage() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pageURL == "" {
		return "", ErrUnavailable
	}
	if h.sessionID == "" {
		return "", fmt.Errorf("show payment page: not configured")
	}

	u, err := url.Parse(h.pageURL)
	if err != nil {
		return "", fmt.Errorf("parse payment page url: %w", err)
	}
	q := u.Query()
	q.Set("session.id", h.sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
