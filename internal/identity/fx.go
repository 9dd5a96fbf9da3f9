package identity

import (
	"github.com/locafrota/fleetsla/internal/identity/repository"
	"github.com/locafrota/fleetsla/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
