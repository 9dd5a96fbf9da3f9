package ticket

import (
	"github.com/locafrota/fleetsla/internal/ticket/repository"
	"github.com/locafrota/fleetsla/internal/ticket/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ticket.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
