package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/cardmint/cardmint/internal/tenant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() tenantdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tenant *tenantdomain.Tenant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tenants (
			id, code, name, email, address, gateway_key_id, gateway_key_secret,
			invoice_seq, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tenant.ID,
		tenant.Code,
		tenant.Name,
		tenant.Email,
		tenant.Address,
		tenant.GatewayKeyID,
		tenant.GatewayKeySecret,
		tenant.InvoiceSeq,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*tenantdomain.Tenant, error) {
	var tenant tenantdomain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, email, address, gateway_key_id, gateway_key_secret,
		 invoice_seq, created_at, updated_at
		 FROM tenants WHERE id = ?`,
		id,
	).Scan(&tenant).Error
	if err != nil {
		return nil, err
	}
	if tenant.ID == 0 {
		return nil, nil
	}
	return &tenant, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*tenantdomain.Tenant, error) {
	var tenant tenantdomain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, email, address, gateway_key_id, gateway_key_secret,
		 invoice_seq, created_at, updated_at
		 FROM tenants WHERE code = ?`,
		code,
	).Scan(&tenant).Error
	if err != nil {
		return nil, err
	}
	if tenant.ID == 0 {
		return nil, nil
	}
	return &tenant, nil
}

func (r *repo) UpdateGatewayCredentials(ctx context.Context, db *gorm.DB, id snowflake.ID, keyID, keySecret string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tenants
		 SET gateway_key_id = ?, gateway_key_secret = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		keyID,
		keySecret,
		id,
	).Error
}

func (r *repo) NextInvoiceSeq(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var seq int64
	err := db.WithContext(ctx).Raw(
		`UPDATE tenants
		 SET invoice_seq = invoice_seq + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?
		 RETURNING invoice_seq`,
		id,
	).Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	if seq == 0 {
		return 0, tenantdomain.ErrTenantNotFound
	}
	return seq, nil
}
