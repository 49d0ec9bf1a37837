// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// DeliveryStatus tracks the asynchronous email delivery of an invoice.
type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// Invoice is issued exactly once per subscription activation. Tenant
// display fields are snapshotted so later tenant edits do not rewrite
// history; only the delivery result is attached afterwards.
type Invoice struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID   `gorm:"not null;index;uniqueIndex:ux_invoices_tenant_seq" json:"tenant_id"`
	SubscriptionID snowflake.ID   `gorm:"not null;uniqueIndex:ux_invoices_subscription" json:"subscription_id"`
	InvoiceSeq     int64          `gorm:"not null;uniqueIndex:ux_invoices_tenant_seq" json:"invoice_seq"`
	InvoiceNumber  string         `gorm:"type:text;not null" json:"invoice_number"`
	TenantName     string         `gorm:"type:text;not null" json:"tenant_name"`
	TenantEmail    string         `gorm:"type:text;not null" json:"tenant_email"`
	TenantAddress  string         `gorm:"type:text;not null;default:''" json:"tenant_address"`
	PlanCode       string         `gorm:"type:text;not null" json:"plan_code"`
	BaseAmount     float64        `gorm:"type:numeric(12,2);not null" json:"base_amount"`
	TaxAmount      float64        `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	TotalAmount    float64        `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency       string         `gorm:"type:text;not null" json:"currency"`
	Status         InvoiceStatus  `gorm:"type:text;not null;default:'paid'" json:"status"`
	IssuedAt       time.Time      `gorm:"not null" json:"issued_at"`
	DueAt          *time.Time     `gorm:"" json:"due_at"`
	DeliveryStatus DeliveryStatus `gorm:"type:text;not null;default:'pending'" json:"delivery_status"`
	DeliveredAt    *time.Time     `gorm:"" json:"delivered_at"`
	DeliveryError  string         `gorm:"type:text;not null;default:''" json:"-"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
