package domain

import "time"

// CartLine is one distinct product entry in the cart. Lines are keyed by
// product name; two lines never share a name.
type CartLine struct {
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	Quantity      int      `json:"quantity"`
	Stock         int      `json:"stock"`
	Images        []string `json:"images,omitempty"`
	Category      string   `json:"category,omitempty"`
	AppliedPromo  string   `json:"appliedPromoCode,omitempty"`
	PromoDiscount float64  `json:"promoDiscount,omitempty"`
	OriginalPrice float64  `json:"originalPrice,omitempty"`
}

func (l CartLine) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

// CartSnapshot represents the full cart state at checkout time
type CartSnapshot struct {
	Items       []CartLine `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	CapturedAt  time.Time  `json:"captured_at"`
}
