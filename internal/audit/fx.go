package audit

import (
	"github.com/bell24h/bell24h/internal/audit/repository"
	"github.com/bell24h/bell24h/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
