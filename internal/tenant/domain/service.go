package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrTenantNotFound = errors.New("tenant_not_found")
	ErrInvalidTenant  = errors.New("invalid_tenant")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrCodeTaken      = errors.New("tenant_code_taken")
)

type CreateTenantRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Code    string `json:"code"`
}

type UpdateGatewayCredentialsRequest struct {
	TenantID  string `json:"-"`
	KeyID     string `json:"key_id"`
	KeySecret string `json:"key_secret"`
}

type Service interface {
	Create(ctx context.Context, req CreateTenantRequest) (Tenant, error)
	GetByID(ctx context.Context, id string) (Tenant, error)
	UpdateGatewayCredentials(ctx context.Context, req UpdateGatewayCredentialsRequest) (Tenant, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tenant, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Tenant, error)
	UpdateGatewayCredentials(ctx context.Context, db *gorm.DB, id snowflake.ID, keyID, keySecret string) error
	// NextInvoiceSeq atomically increments and returns the tenant's
	// invoice sequence counter.
	NextInvoiceSeq(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
}
