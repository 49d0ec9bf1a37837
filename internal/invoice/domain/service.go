package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billingeventdomain "github.com/cardmint/cardmint/internal/billingevent/domain"
	"gorm.io/gorm"
)

var (
	ErrInvoiceNotFound = errors.New("invoice_not_found")
	ErrInvalidEvent    = errors.New("invalid_billing_event")
)

type Service interface {
	// IssueForActivation creates the invoice for an activation event, or
	// returns the already issued one. Never issues twice.
	IssueForActivation(ctx context.Context, event billingeventdomain.BillingEvent) (Invoice, error)
	// Deliver renders the PDF and emails it. Failures are recorded on
	// the invoice and returned for logging; they never block billing.
	Deliver(ctx context.Context, invoice Invoice) error
	ListByTenant(ctx context.Context, tenantID string) ([]Invoice, error)
}

type Repository interface {
	// Insert writes the invoice unless one exists for the subscription.
	// Reports whether a row was written.
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) (bool, error)
	FindBySubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) (*Invoice, error)
	ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]Invoice, error)
	UpdateDeliveryStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status DeliveryStatus, deliveredAt *time.Time, cause string) error
}
