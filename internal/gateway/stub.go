package gateway

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"

	"github.com/cardmint/cardmint/internal/clock"
	"github.com/oklog/ulid/v2"
)

// StubClient fabricates gateway orders locally. It stands in for the real
// gateway SDK in development and tests; the rest of the engine only sees
// the Client interface.
type StubClient struct {
	clock clock.Clock

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewStubClient(clk clock.Clock) *StubClient {
	return &StubClient{
		clock:   clk,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (c *StubClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error) {
	if req.KeyID == "" || req.KeySecret == "" {
		return Order{}, ErrOrderFailed
	}

	now := c.clock.Now()

	c.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(now), c.entropy)
	c.mu.Unlock()
	if err != nil {
		return Order{}, err
	}

	return Order{
		ID:        "order_" + strings.ToLower(id.String()),
		Amount:    req.Amount,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Status:    "created",
		CreatedAt: now,
	}, nil
}
