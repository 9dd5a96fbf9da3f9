package clientbase

import (
	"github.com/locafrota/fleetsla/internal/clientbase/repository"
	"github.com/locafrota/fleetsla/internal/clientbase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("clientbase.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
