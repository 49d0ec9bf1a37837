// Package gateway talks to the payment gateway and verifies its callbacks.
package gateway

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrOrderFailed      = errors.New("gateway_order_failed")
)

// Order is a gateway-side payment order awaiting checkout.
type Order struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Receipt   string    `json:"receipt"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateOrderRequest carries the resolved merchant credential alongside the
// charge so multi-tenant routing stays explicit at the call site.
type CreateOrderRequest struct {
	KeyID     string
	KeySecret string
	Amount    float64
	Currency  string
	Receipt   string
}

// Client creates orders on the payment gateway.
type Client interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error)
}
