package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/cardmint/cardmint/internal/clock"
	"github.com/cardmint/cardmint/internal/secretbox"
	tenantdomain "github.com/cardmint/cardmint/internal/tenant/domain"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  tenantdomain.Repository
	codec *secretbox.Codec
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  tenantdomain.Repository
	Codec *secretbox.Codec
}

func NewService(p ServiceParam) tenantdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("tenant.service"),

		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		codec: p.Codec,
	}
}

// Create implements domain.Service.
func (s *Service) Create(ctx context.Context, req tenantdomain.CreateTenantRequest) (tenantdomain.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return tenantdomain.Tenant{}, tenantdomain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return tenantdomain.Tenant{}, tenantdomain.ErrInvalidEmail
	}

	id := s.genID.Generate()
	code := strings.TrimSpace(req.Code)
	explicit := code != ""
	if !explicit {
		code = slug.Make(name)
	}

	existing, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return tenantdomain.Tenant{}, err
	}
	if existing != nil {
		if explicit {
			return tenantdomain.Tenant{}, tenantdomain.ErrCodeTaken
		}
		// Derived codes get a short uniquifying suffix.
		code = fmt.Sprintf("%s-%s", code, shortSuffix(id))
	}

	now := s.clock.Now()
	tenant := tenantdomain.Tenant{
		ID:        id,
		Code:      code,
		Name:      name,
		Email:     email,
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &tenant); err != nil {
		return tenantdomain.Tenant{}, err
	}

	s.log.Info("tenant created",
		zap.String("tenant_id", id.String()),
		zap.String("code", code),
	)
	return tenant, nil
}

// GetByID implements domain.Service.
func (s *Service) GetByID(ctx context.Context, id string) (tenantdomain.Tenant, error) {
	tenantID, err := s.parseID(id)
	if err != nil {
		return tenantdomain.Tenant{}, err
	}

	tenant, err := s.repo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return tenantdomain.Tenant{}, err
	}
	if tenant == nil {
		return tenantdomain.Tenant{}, tenantdomain.ErrTenantNotFound
	}
	return *tenant, nil
}

// UpdateGatewayCredentials encrypts the secret before it touches the
// database. Clearing both fields reverts the tenant to platform credentials.
func (s *Service) UpdateGatewayCredentials(ctx context.Context, req tenantdomain.UpdateGatewayCredentialsRequest) (tenantdomain.Tenant, error) {
	tenantID, err := s.parseID(req.TenantID)
	if err != nil {
		return tenantdomain.Tenant{}, err
	}

	tenant, err := s.repo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return tenantdomain.Tenant{}, err
	}
	if tenant == nil {
		return tenantdomain.Tenant{}, tenantdomain.ErrTenantNotFound
	}

	keyID := strings.TrimSpace(req.KeyID)
	sealed, err := s.codec.Encrypt(strings.TrimSpace(req.KeySecret))
	if err != nil {
		return tenantdomain.Tenant{}, err
	}

	if err := s.repo.UpdateGatewayCredentials(ctx, s.db, tenantID, keyID, sealed); err != nil {
		return tenantdomain.Tenant{}, err
	}

	s.log.Info("tenant gateway credentials updated",
		zap.String("tenant_id", tenantID.String()),
		zap.Bool("has_own_account", keyID != "" && sealed != ""),
	)

	tenant.GatewayKeyID = keyID
	tenant.GatewayKeySecret = sealed
	tenant.UpdatedAt = s.clock.Now()
	return *tenant, nil
}

func (s *Service) parseID(raw string) (snowflake.ID, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || parsed == 0 {
		return 0, tenantdomain.ErrInvalidTenant
	}
	return snowflake.ParseInt64(parsed), nil
}

func shortSuffix(id snowflake.ID) string {
	s := id.String()
	if len(s) <= 6 {
		return s
	}
	return s[len(s)-6:]
}
