package subscription

import (
	"github.com/cardmint/cardmint/internal/subscription/repository"
	"github.com/cardmint/cardmint/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
