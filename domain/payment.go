package domain

// PaymentSession is the transient, gateway-specific handoff produced when a
// checkout branches into a payment path. It exists only for the duration of
// initiating a redirect and is never persisted.
//
// The two concrete variants form a tagged union on the payment method, so a
// switch over PaymentSession is exhaustiveness-checkable.
type PaymentSession interface {
	sessionVariant()
}

// HostedSession carries the gateway-issued token for a hosted card-entry
// page (card payments).
type HostedSession struct {
	SessionID string `json:"sessionId"`
}

// FormRedirect carries a server-constructed POST redirect to an alternate
// payment provider's hosted page.
type FormRedirect struct {
	ActionURL string            `json:"actionUrl"`
	Fields    map[string]string `json:"formFields"`
}

func (HostedSession) sessionVariant() {}
func (FormRedirect) sessionVariant()  {}

// GatewayReturn holds the query parameters the browser carries back from the
// external payment step. Every field is optional and attacker-visible; only
// TransactionRef can be cross-checked server-side.
type GatewayReturn struct {
	Status         string
	Message        string
	OrderID        string
	TransactionRef string
}
