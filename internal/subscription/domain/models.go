// Package domain contains persistence models for tenant subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SubscriptionStatus represents subscription lifecycle states.
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// Subscription is one purchase attempt of a plan by a tenant. It is born
// pending with a gateway order attached and becomes active only after the
// payment signature verifies.
type Subscription struct {
	ID               snowflake.ID       `gorm:"primaryKey" json:"id"`
	TenantID         snowflake.ID       `gorm:"not null;index;uniqueIndex:ux_subscriptions_tenant_order" json:"tenant_id"`
	PlanCode         string             `gorm:"type:text;not null" json:"plan_code"`
	BaseAmount       float64            `gorm:"type:numeric(12,2);not null" json:"base_amount"`
	TaxAmount        float64            `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	TotalAmount      float64            `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency         string             `gorm:"type:text;not null" json:"currency"`
	Status           SubscriptionStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	IsActive         bool               `gorm:"not null;default:false" json:"is_active"`
	StartAt          *time.Time         `gorm:"" json:"start_at"`
	EndAt            *time.Time         `gorm:"" json:"end_at"`
	GatewayOrderID   string             `gorm:"type:text;not null;uniqueIndex:ux_subscriptions_tenant_order" json:"gateway_order_id"`
	GatewayPaymentID string             `gorm:"type:text;not null;default:''" json:"gateway_payment_id"`
	CredentialSource string             `gorm:"type:text;not null" json:"-"`
	CreatedAt        time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// SubscriptionPayment is an append-only record of a verified payment.
type SubscriptionPayment struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID         snowflake.ID `gorm:"not null" json:"tenant_id"`
	SubscriptionID   snowflake.ID `gorm:"not null;index" json:"subscription_id"`
	GatewayOrderID   string       `gorm:"type:text;not null" json:"gateway_order_id"`
	GatewayPaymentID string       `gorm:"type:text;not null" json:"gateway_payment_id"`
	Amount           float64      `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status           string       `gorm:"type:text;not null" json:"status"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (SubscriptionPayment) TableName() string { return "subscription_payments" }
