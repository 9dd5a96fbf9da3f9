package assistant

import (
	"github.com/locafrota/fleetsla/internal/assistant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("assistant.service",
	fx.Provide(service.New),
)
