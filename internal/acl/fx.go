package acl

import (
	"github.com/bell24h/bell24h/internal/acl/repository"
	"github.com/bell24h/bell24h/internal/acl/service"
	"go.uber.org/fx"
)

var Module = fx.Module("acl.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(service.NewResolver),
)
