package models

import "time"

// Payment is one recorded gateway transaction.
type Payment struct {
	ID         int       `json:"id"`
	GatewayID  string    `json:"gateway_id"`
	UserID     int       `json:"user_id"`
	Amount     float64   `json:"amount"`
	Status     string    `json:"status"`
	Recurring  bool      `json:"recurring"`
	ReceivedAt time.Time `json:"received_at"`
}

// CheckoutRequest creates a gateway checkout for the current user.
type CheckoutRequest struct {
	Recurring bool `json:"recurring"`
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}
