package deletereq

import (
	"github.com/locafrota/fleetsla/internal/deletereq/repository"
	"github.com/locafrota/fleetsla/internal/deletereq/service"
	"go.uber.org/fx"
)

var Module = fx.Module("deletereq.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
