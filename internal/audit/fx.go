package audit

import (
	"github.com/locafrota/fleetsla/internal/audit/domain"
	"github.com/locafrota/fleetsla/internal/audit/repository"
	"github.com/locafrota/fleetsla/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(svc domain.Service) domain.Recorder { return svc }),
)
