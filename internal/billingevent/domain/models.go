// Package domain contains the billing event outbox records.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const EventTypeSubscriptionActivated = "subscription.activated"

// BillingEvent is an outbox row written in the same transaction as the
// state change it describes. The worker drains unpublished rows.
type BillingEvent struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID      `gorm:"not null;uniqueIndex:ux_billing_events_tenant_dedupe" json:"tenant_id"`
	EventType   string            `gorm:"type:text;not null" json:"event_type"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"payload"`
	DedupeKey   string            `gorm:"type:text;not null;uniqueIndex:ux_billing_events_tenant_dedupe" json:"dedupe_key"`
	Published   bool              `gorm:"not null;default:false" json:"published"`
	PublishedAt *time.Time        `gorm:"" json:"published_at"`
	Attempts    int64             `gorm:"not null;default:0" json:"attempts"`
	LastError   string            `gorm:"type:text;not null;default:''" json:"last_error"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BillingEvent) TableName() string { return "billing_events" }

type Repository interface {
	// InsertDedup inserts the event unless one with the same tenant and
	// dedupe key already exists. Reports whether a row was written.
	InsertDedup(ctx context.Context, db *gorm.DB, event *BillingEvent) (bool, error)
	FindUnpublished(ctx context.Context, db *gorm.DB, limit int) ([]BillingEvent, error)
	MarkPublished(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	RecordFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, cause string) error
}
