package analysis

import (
	"github.com/locafrota/fleetsla/internal/analysis/repository"
	"github.com/locafrota/fleetsla/internal/analysis/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analysis.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
