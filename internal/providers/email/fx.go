package email

import (
	"github.com/locafrota/fleetsla/internal/config"
	"github.com/locafrota/fleetsla/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger, obs *metrics.Metrics) Provider {
	if !cfg.SMTP.Enabled() {
		log.Info("smtp not configured, mail delivery disabled")
		return NewNoOp(log)
	}
	return NewSMTP(Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log, obs)
}
