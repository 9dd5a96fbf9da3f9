package report

import (
	"github.com/locafrota/fleetsla/internal/report/repository"
	"github.com/locafrota/fleetsla/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
