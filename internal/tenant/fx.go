package tenant

import (
	"github.com/cardmint/cardmint/internal/tenant/repository"
	"github.com/cardmint/cardmint/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
