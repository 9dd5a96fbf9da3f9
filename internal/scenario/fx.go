package scenario

import (
	"github.com/locafrota/fleetsla/internal/scenario/service"
	"github.com/locafrota/fleetsla/internal/scenario/store"
	"go.uber.org/fx"
)

var Module = fx.Module("scenario.service",
	fx.Provide(store.Provide),
	fx.Provide(service.New),
)
