package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/cardmint/cardmint/internal/invoice/domain"
	"gorm.io/gorm"
)

const invoiceColumns = `id, tenant_id, subscription_id, invoice_seq, invoice_number,
	 tenant_name, tenant_email, tenant_address, plan_code, base_amount, tax_amount,
	 total_amount, currency, status, issued_at, due_at, delivery_status, delivered_at,
	 delivery_error, created_at, updated_at`

type repo struct{}

func Provide() invoicedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, tenant_id, subscription_id, invoice_seq, invoice_number,
			tenant_name, tenant_email, tenant_address, plan_code,
			base_amount, tax_amount, total_amount, currency, status,
			issued_at, due_at, delivery_status, delivered_at, delivery_error,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subscription_id) DO NOTHING`,
		invoice.ID,
		invoice.TenantID,
		invoice.SubscriptionID,
		invoice.InvoiceSeq,
		invoice.InvoiceNumber,
		invoice.TenantName,
		invoice.TenantEmail,
		invoice.TenantAddress,
		invoice.PlanCode,
		invoice.BaseAmount,
		invoice.TaxAmount,
		invoice.TotalAmount,
		invoice.Currency,
		invoice.Status,
		invoice.IssuedAt,
		invoice.DueAt,
		invoice.DeliveryStatus,
		invoice.DeliveredAt,
		invoice.DeliveryError,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) FindBySubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+`
		 FROM invoices WHERE subscription_id = ?`,
		subscriptionID,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]invoicedomain.Invoice, error) {
	var invoices []invoicedomain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+`
		 FROM invoices WHERE tenant_id = ? ORDER BY invoice_seq DESC`,
		tenantID,
	).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) UpdateDeliveryStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status invoicedomain.DeliveryStatus, deliveredAt *time.Time, cause string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET delivery_status = ?, delivered_at = ?, delivery_error = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		status,
		deliveredAt,
		cause,
		id,
	).Error
}
