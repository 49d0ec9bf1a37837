// Package credential resolves which gateway merchant account a tenant
// charge runs under. Order creation and payment verification both resolve
// through here so they can never disagree on the signing secret.
package credential

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/cardmint/cardmint/internal/config"
	"github.com/cardmint/cardmint/internal/metrics"
	"github.com/cardmint/cardmint/internal/secretbox"
	tenantdomain "github.com/cardmint/cardmint/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrNoCredentials = errors.New("gateway_credentials_missing")

// Source records which merchant account a credential came from.
type Source string

const (
	SourceTenant   Source = "tenant"
	SourcePlatform Source = "platform"
)

type Credential struct {
	KeyID     string
	KeySecret string
	Source    Source
}

type Resolver struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     config.Config
	codec   *secretbox.Codec
	repo    tenantdomain.Repository
	metrics *metrics.Metrics
}

type ResolverParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Cfg     config.Config
	Codec   *secretbox.Codec
	Repo    tenantdomain.Repository
	Metrics *metrics.Metrics
}

func NewResolver(p ResolverParam) *Resolver {
	return &Resolver{
		db:      p.DB,
		log:     p.Log.Named("credential.resolver"),
		cfg:     p.Cfg,
		codec:   p.Codec,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// Resolve returns the tenant's own merchant credential when one is fully
// configured, otherwise the platform default. A stored secret that fails
// to decrypt is served as-is; the fallback is logged and counted, never
// silent and never fatal.
func (r *Resolver) Resolve(ctx context.Context, tenantID snowflake.ID) (Credential, error) {
	tenant, err := r.repo.FindByID(ctx, r.db, tenantID)
	if err != nil {
		return Credential{}, err
	}
	if tenant == nil {
		return Credential{}, tenantdomain.ErrTenantNotFound
	}

	if tenant.GatewayKeyID != "" && tenant.GatewayKeySecret != "" {
		secret, outcome := r.codec.Decrypt(tenant.GatewayKeySecret)
		if outcome != secretbox.OutcomeDecrypted {
			r.log.Warn("tenant gateway secret served without decryption",
				zap.String("tenant_id", tenantID.String()),
				zap.String("reason", string(outcome)),
			)
			r.metrics.SecretDecryptFallbacks.WithLabelValues(string(outcome)).Inc()
		}
		return Credential{
			KeyID:     tenant.GatewayKeyID,
			KeySecret: secret,
			Source:    SourceTenant,
		}, nil
	}

	if r.cfg.GatewayKeyID == "" || r.cfg.GatewayKeySecret == "" {
		return Credential{}, ErrNoCredentials
	}

	r.metrics.CredentialFallbacks.Inc()
	return Credential{
		KeyID:     r.cfg.GatewayKeyID,
		KeySecret: r.cfg.GatewayKeySecret,
		Source:    SourcePlatform,
	}, nil
}

var Module = fx.Module("credential",
	fx.Provide(NewResolver),
)
