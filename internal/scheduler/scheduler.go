// Package scheduler runs the background purge jobs on a fixed interval:
// expired sessions, spent password reset tokens and stale scenario sets.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/locafrota/fleetsla/internal/auth/domain"
	"github.com/locafrota/fleetsla/internal/clock"
	obsmetrics "github.com/locafrota/fleetsla/internal/observability/metrics"
	"github.com/locafrota/fleetsla/internal/ratelimit"
	scenariodomain "github.com/locafrota/fleetsla/internal/scenario/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler is missing a dependency")

const lockKeyPrefix = "fleetsla:scheduler:"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Sessions  authdomain.SessionRepository
	Resets    authdomain.ResetRepository
	Scenarios scenariodomain.Store
	Locker    *ratelimit.Locker `optional:"true"`
	Config    Config            `optional:"true"`
}

type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	genID     *snowflake.Node
	clock     clock.Clock
	sessions  authdomain.SessionRepository
	resets    authdomain.ResetRepository
	scenarios scenariodomain.Store
	locker    *ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Sessions == nil || p.Resets == nil || p.Scenarios == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		genID:     p.GenID,
		clock:     p.Clock,
		sessions:  p.Sessions,
		resets:    p.Resets,
		scenarios: p.Scenarios,
		locker:    p.Locker,
	}, nil
}

// runJob wraps one job execution: per-job timeout, cross-instance lock
// when a locker is configured, metrics and soft-timeout handling.
func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	log := s.log.With(
		zap.String("job", name),
		zap.String("run_id", s.genID.Generate().String()),
	)

	if s.locker != nil {
		key := lockKeyPrefix + name
		token, ok, err := s.locker.TryLock(ctx, key, s.cfg.JobTimeout)
		switch {
		case err != nil:
			// A lock backend outage must not stop the purge work.
			log.Warn("job lock unavailable", zap.Error(err))
		case !ok:
			log.Debug("job held by another instance")
			return nil
		default:
			defer func() {
				if err := s.locker.Release(parent, key, token); err != nil {
					log.Warn("job lock release failed", zap.Error(err))
				}
			}()
		}
	}

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(name)
		schedMetrics.IncJobError(name, err)
		log.Warn("job timed out",
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}

	schedMetrics.IncJobError(name, err)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobPurgeSessions, s.PurgeSessionsJob},
		{JobPurgeResetTokens, s.PurgeResetTokensJob},
		{JobPurgeScenarioSets, s.PurgeScenarioSetsJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		if lag := time.Since(nextRun); lag > 0 {
			schedMetrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// An empty allow list enables every job.
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// PurgeSessionsJob deletes sessions past their expiry in bounded batches.
func (s *Scheduler) PurgeSessionsJob(ctx context.Context) error {
	now := s.clock.Now()
	var total int64

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		deleted, err := s.sessions.DeleteExpired(ctx, s.db, now, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		total += deleted
		if deleted < int64(s.cfg.BatchSize) {
			break
		}
	}

	if total > 0 {
		obsmetrics.Scheduler().AddBatchProcessed(JobPurgeSessions, "sessions", int(total))
		s.log.Info("expired sessions purged", zap.Int64("count", total))
	}
	return nil
}

// PurgeResetTokensJob deletes password reset tokens that expired or were
// already redeemed.
func (s *Scheduler) PurgeResetTokensJob(ctx context.Context) error {
	now := s.clock.Now()
	var total int64

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		deleted, err := s.resets.DeleteExpired(ctx, s.db, now, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		total += deleted
		if deleted < int64(s.cfg.BatchSize) {
			break
		}
	}

	if total > 0 {
		obsmetrics.Scheduler().AddBatchProcessed(JobPurgeResetTokens, "password_resets", int(total))
		s.log.Info("spent reset tokens purged", zap.Int64("count", total))
	}
	return nil
}

// PurgeScenarioSetsJob sweeps scenario sets past their lifetime. Backends
// that expire entries on their own report zero.
func (s *Scheduler) PurgeScenarioSetsJob(ctx context.Context) error {
	purged, err := s.scenarios.PurgeExpired(ctx)
	if err != nil {
		return err
	}

	if purged > 0 {
		obsmetrics.Scheduler().AddBatchProcessed(JobPurgeScenarioSets, "scenario_sets", purged)
		s.log.Info("stale scenario sets purged", zap.Int("count", purged))
	}
	return nil
}
