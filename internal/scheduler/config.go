package scheduler

import (
	"time"

	appconfig "github.com/locafrota/fleetsla/internal/config"
)

const (
	JobPurgeSessions     = "purge_sessions"
	JobPurgeResetTokens  = "purge_reset_tokens"
	JobPurgeScenarioSets = "purge_scenario_sets"
)

// Config controls the run interval, per-job timeout and purge batch size.
// An empty EnabledJobs list enables every job.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	BatchSize   int
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 10 * time.Minute,
		JobTimeout:  30 * time.Second,
		BatchSize:   500,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	return c
}

func ProvideConfig(cfg appconfig.Config) Config {
	return Config{
		RunInterval: cfg.Scheduler.RunInterval,
		EnabledJobs: cfg.Scheduler.EnabledJobs,
	}.withDefaults()
}
