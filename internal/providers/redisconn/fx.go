package redisconn

import "go.uber.org/fx"

var Module = fx.Module("providers.redis",
	fx.Provide(New),
)
