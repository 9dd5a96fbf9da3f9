// Package store provides the scenario set backends: redis when a client is
// configured, process-local memory otherwise.
package store

import (
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/config"
	"github.com/locafrota/fleetsla/internal/scenario/domain"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Cfg   config.Config
	Clock clock.Clock
	Redis *redis.Client `optional:"true"`
}

func Provide(p Params) domain.Store {
	if p.Redis != nil {
		return newRedisStore(p.Redis, p.Cfg.ScenarioTTL)
	}
	return newMemoryStore(p.Cfg.ScenarioTTL, p.Clock)
}
