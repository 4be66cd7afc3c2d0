package organization

import (
	"github.com/bell24h/bell24h/internal/organization/repository"
	"github.com/bell24h/bell24h/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
