package config

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/locafrota/fleetsla/internal/sla"
)

// SLAConfig is the reloadable slice of configuration: the per-service
// turnaround thresholds and the comparison gate.
type SLAConfig struct {
	Thresholds   map[string]int `mapstructure:"thresholds"`
	MinScenarios int            `mapstructure:"minScenarios"`
}

func DefaultSLAConfig() SLAConfig {
	defaults := sla.DefaultThresholds()
	thresholds := make(map[string]int, len(defaults))
	for svc, days := range defaults {
		thresholds[string(svc)] = days
	}
	return SLAConfig{
		Thresholds:   thresholds,
		MinScenarios: 2,
	}
}

// SLAConfigHolder keeps the current SLAConfig behind an atomic snapshot
// and hot-reloads it when the backing sla.yml changes. Readers always see
// a complete, validated config; a broken edit is logged and ignored.
type SLAConfigHolder struct {
	current atomic.Value // holds SLAConfig
}

func NewSLAConfigHolder() (*SLAConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("sla")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fleetsla/config")
	v.AddConfigPath("/etc/fleetsla")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FLEETSLA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg := DefaultSLAConfig()
	if fileFound {
		if err := v.UnmarshalKey("sla", &cfg); err != nil {
			return nil, err
		}
		applySLADefaults(&cfg)
		if err := validateSLAConfig(cfg); err != nil {
			return nil, err
		}
	}

	holder := &SLAConfigHolder{}
	holder.current.Store(cfg)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated := DefaultSLAConfig()
			if err := v.UnmarshalKey("sla", &updated); err != nil {
				log.Printf("[sla-config] reload failed: %v", err)
				return
			}
			applySLADefaults(&updated)
			if err := validateSLAConfig(updated); err != nil {
				log.Printf("[sla-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[sla-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *SLAConfigHolder) Get() SLAConfig {
	return h.current.Load().(SLAConfig)
}

// Thresholds returns the current mapping in the core's type.
func (h *SLAConfigHolder) Thresholds() sla.Thresholds {
	cfg := h.Get()
	out := make(sla.Thresholds, len(cfg.Thresholds))
	for svc, days := range cfg.Thresholds {
		out[sla.ServiceType(svc)] = days
	}
	return out
}

func (h *SLAConfigHolder) MinScenarios() int {
	return h.Get().MinScenarios
}

func applySLADefaults(cfg *SLAConfig) {
	if len(cfg.Thresholds) == 0 {
		cfg.Thresholds = DefaultSLAConfig().Thresholds
	}
	if cfg.MinScenarios == 0 {
		cfg.MinScenarios = 2
	}
}

func validateSLAConfig(cfg SLAConfig) error {
	for svc, days := range cfg.Thresholds {
		if days < 0 {
			return fmt.Errorf("sla.thresholds[%s] cannot be negative", svc)
		}
	}
	if cfg.MinScenarios < 2 {
		return fmt.Errorf("sla.minScenarios must be at least 2")
	}
	return nil
}
