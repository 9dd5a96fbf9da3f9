package ratelimit

import (
	"github.com/locafrota/fleetsla/internal/clock"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Clock clock.Clock
	Redis *redis.Client `optional:"true"`
}

func Provide(p Params) Limiter {
	if p.Redis != nil {
		return newRedisLimiter(p.Redis)
	}
	return newMemoryLimiter(p.Clock)
}

func ProvideLocker(p Params) *Locker {
	return NewLocker(p.Redis)
}

var Module = fx.Module("rate.limit",
	fx.Provide(Provide),
	fx.Provide(ProvideLocker),
)
