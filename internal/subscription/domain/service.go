package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cardmint/cardmint/internal/gateway"
	"gorm.io/gorm"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidSubscription  = errors.New("invalid_subscription")
	ErrInvalidTenant        = errors.New("invalid_tenant")
	ErrInvalidPlan          = errors.New("invalid_plan")
	ErrOrderMismatch        = errors.New("order_mismatch")
	ErrInvalidTransition    = errors.New("invalid_transition")
)

type CreateOrderRequest struct {
	TenantID string `json:"tenant_id"`
	PlanCode string `json:"plan_code"`
}

type CreateOrderResponse struct {
	Subscription Subscription  `json:"subscription"`
	Order        gateway.Order `json:"order"`
}

type VerifyPaymentRequest struct {
	SubscriptionID string `json:"subscription_id"`
	TenantID       string `json:"tenant_id"`
	OrderID        string `json:"order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
}

type Service interface {
	// CreateOrder resolves the tenant credential, creates a gateway order
	// for the plan's taxed total, and records a pending subscription.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResponse, error)
	// VerifyPayment checks the callback signature and activates the
	// subscription exactly once, superseding any previous subscription.
	VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (Subscription, error)
	Cancel(ctx context.Context, subscriptionID string) (Subscription, error)
	GetCurrent(ctx context.Context, tenantID string) (*Subscription, error)
	List(ctx context.Context, tenantID string) ([]Subscription, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByTenantAndOrder(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, gatewayOrderID string) (*Subscription, error)
	FindCurrent(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*Subscription, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Subscription, error)
	// Activate flips pending to active in one conditional update and
	// reports whether this call won the transition.
	Activate(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentID string, startAt, endAt, now time.Time) (bool, error)
	// Supersede expires every other open subscription of the tenant.
	Supersede(ctx context.Context, db *gorm.DB, tenantID, keepID snowflake.ID, now time.Time) (int64, error)
	// Cancel flips pending or active to cancelled and reports whether a
	// row changed.
	Cancel(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	InsertPayment(ctx context.Context, db *gorm.DB, payment *SubscriptionPayment) error
}
