package auth

import (
	"github.com/locafrota/fleetsla/internal/auth/repository"
	"github.com/locafrota/fleetsla/internal/auth/service"
	"github.com/locafrota/fleetsla/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	session.Module,
)
