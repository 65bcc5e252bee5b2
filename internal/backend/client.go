package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/avstore/storefront/domain"
)

// Client consumes the order/payment REST backend. Requests pass through a
// circuit breaker so a dead backend fails fast; nothing here retries, every
// retry in the checkout flow is a fresh user action.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	sfg     singleflight.Group // dedupes concurrent status lookups per ref
}

// APIError is a non-2xx backend response, carrying the error field from the
// JSON body when one was present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// PaymentStatus is the server-side truth about one gateway transaction.
type PaymentStatus struct {
	Status  string `json:"status"`
	OrderID string `json:"orderId"`
}

func (s PaymentStatus) Succeeded() bool {
	return s.Status == "SUCCESS"
}

type KokoPaymentRequest struct {
	OrderID   string  `json:"orderId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Mobile    string  `json:"mobile"`
}

type kokoPaymentResponse struct {
	Success    bool              `json:"success"`
	ActionURL  string            `json:"actionUrl"`
	FormFields map[string]string `json:"formFields"`
	Message    string            `json:"message"`
}

// NewClient builds a client for the given base URL. token may be empty for
// guest sessions; authenticated fetches then go out without a bearer header.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name: "storefront-backend",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    httpClient,
		breaker: breaker,
	}
}

// CreateOrder posts a fresh order. Each call is independent; a failed
// submission is never silently reused.
func (c *Client) CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderRecord, error) {
	var order domain.OrderRecord
	if err := c.doJSON(ctx, http.MethodPost, "/orders", req, false, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, fmt.Errorf("order created without an id")
	}
	return &order, nil
}

// GetOrder fetches an order for display. The first attempt carries the
// bearer token when one is configured; a 401 is retried once without
// authentication, since guest checkouts may hold no session token.
func (c *Client) GetOrder(ctx context.Context, id string) (*domain.OrderRecord, error) {
	var order domain.OrderRecord
	err := c.doJSON(ctx, http.MethodGet, "/orders/"+id, nil, true, &order)
	if err != nil {
		var apiErr *APIError
		if c.token != "" && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			if err2 := c.doJSON(ctx, http.MethodGet, "/orders/"+id, nil, false, &order); err2 != nil {
				return nil, err2
			}
			return &order, nil
		}
		return nil, err
	}
	return &order, nil
}

// CreatePaymentSession requests a hosted card-payment session. The amount is
// serialized as a two-decimal fixed string per the gateway contract.
func (c *Client) CreatePaymentSession(ctx context.Context, amount float64, description string) (string, error) {
	body := map[string]string{
		"amount":      fmt.Sprintf("%.2f", amount),
		"description": description,
	}
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/payment/create-session", body, false, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("invalid session response")
	}
	return resp.SessionID, nil
}

// CreateKokoPayment asks the backend to initiate an alternate-method payment
// and returns the form-post redirect to the provider's hosted page.
func (c *Client) CreateKokoPayment(ctx context.Context, req KokoPaymentRequest) (*domain.FormRedirect, error) {
	var resp kokoPaymentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/payment/create-koko-payment", req, false, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		if resp.Message == "" {
			resp.Message = "payment initiation rejected"
		}
		return nil, fmt.Errorf("koko payment: %s", resp.Message)
	}
	if resp.ActionURL == "" {
		return nil, fmt.Errorf("koko payment: missing action url")
	}
	return &domain.FormRedirect{ActionURL: resp.ActionURL, Fields: resp.FormFields}, nil
}

// GetPaymentStatus looks up the backend-confirmed outcome for a gateway
// transaction reference. Concurrent lookups for the same ref are collapsed
// into one request.
func (c *Client) GetPaymentStatus(ctx context.Context, transactionRef string) (*PaymentStatus, error) {
	v, err, _ := c.sfg.Do(transactionRef, func() (interface{}, error) {
		var status PaymentStatus
		if err := c.doJSON(ctx, http.MethodGet, "/payment/status/"+transactionRef, nil, false, &status); err != nil {
			return nil, err
		}
		return &status, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PaymentStatus), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.http.Do(req)
	})
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: "API request failed"}

	data, err := io.ReadAll(resp.Body)
	if err == nil && len(data) > 0 {
		var body struct {
			Error string `json:"error"`
		}
		if jsonErr := json.Unmarshal(data, &body); jsonErr == nil && body.Error != "" {
			apiErr.Message = body.Error
		}
	}
	return apiErr
}
