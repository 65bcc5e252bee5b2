package domain

import "time"

type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "delivery"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

type PaymentMethod string

const (
	PaymentMethodKoko PaymentMethod = "koko"
	PaymentMethodCard PaymentMethod = "card"
)

// Customer holds the checkout form fields. The address block is only
// required for the delivery method.
type Customer struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
	Address   string `json:"address"`
	City      string `json:"city"`
	ZipCode   string `json:"zipCode"`
}

// OrderRequest is constructed fresh per checkout submission and immutable
// once sent.
type OrderRequest struct {
	Customer       Customer       `json:"customer"`
	Items          []CartLine     `json:"items"`
	Total          float64        `json:"total"`
	DeliveryMethod DeliveryMethod `json:"deliveryMethod"`
	PaymentMethod  PaymentMethod  `json:"paymentMethod"`
}

// OrderRecord is owned by the backend; this side only reads it.
type OrderRecord struct {
	ID             string         `json:"id"`
	Customer       Customer       `json:"customer"`
	Items          []CartLine     `json:"items"`
	Total          float64        `json:"total"`
	PaymentMethod  PaymentMethod  `json:"paymentMethod"`
	DeliveryMethod DeliveryMethod `json:"deliveryMethod"`
	Status         string         `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
}
