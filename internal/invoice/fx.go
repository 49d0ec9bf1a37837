package invoice

import (
	"github.com/cardmint/cardmint/internal/invoice/repository"
	"github.com/cardmint/cardmint/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
