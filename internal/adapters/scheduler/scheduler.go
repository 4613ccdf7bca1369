// Package scheduler runs leaderboard resets on their cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const (
	defaultSyncInterval = time.Minute
	resetTimeout        = 30 * time.Second
	syncJobName         = "reset-sync"
)

// ErrStarted is returned by Start on a running scheduler.
var ErrStarted = errors.New("scheduler: already started")

// Resetter is the part of the engine the scheduler drives.
type Resetter interface {
	ScheduledLeaderboards(ctx context.Context) ([]*model.Leaderboard, error)
	ScheduledReset(ctx context.Context, id string) (int, error)
}

type job struct {
	id       uuid.UUID
	schedule string
}

// ResetScheduler keeps one cron job per scheduled leaderboard and
// reconciles the set with the registry periodically.
type ResetScheduler struct {
	resetter Resetter
	sched    gocron.Scheduler
	interval time.Duration
	location *time.Location
	logger   logger.Logger

	mu      sync.Mutex
	jobs    map[string]job
	started bool
}

// New builds a scheduler. It does nothing until Start.
func New(resetter Resetter, opts ...Option) (*ResetScheduler, error) {
	s := &ResetScheduler{
		resetter: resetter,
		interval: defaultSyncInterval,
		location: time.UTC,
		logger:   logger.Get().Named("scheduler"),
		jobs:     make(map[string]job),
	}
	for _, opt := range opts {
		opt(s)
	}

	sched, err := gocron.NewScheduler(gocron.WithLocation(s.location))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	s.sched = sched
	return s, nil
}

// Start syncs once, schedules the periodic sync and starts the scheduler.
func (s *ResetScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrStarted
	}
	s.started = true
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	if err := s.Sync(ctx); err != nil {
		s.logger.Warn(ctx, "initial schedule sync failed", logger.Error(err))
	}

	_, err := s.sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if err := s.Sync(ctx); err != nil {
				s.logger.Warn(ctx, "schedule sync failed", logger.Error(err))
			}
		}),
		gocron.WithName(syncJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule sync job: %w", err)
	}

	s.sched.Start()
	s.logger.Info(ctx, "reset scheduler started", logger.Duration("sync_interval", s.interval))
	return nil
}

// Sync adds, replaces and removes cron jobs so there is exactly one per
// active leaderboard with a reset schedule.
func (s *ResetScheduler) Sync(ctx context.Context) error {
	boards, err := s.resetter.ScheduledLeaderboards(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("scheduler", "list_failed")
		return fmt.Errorf("list scheduled leaderboards: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]string, len(boards))
	for _, lb := range boards {
		wanted[lb.ID] = lb.ResetSchedule
	}

	var errs []error
	for id, j := range s.jobs {
		if schedule, ok := wanted[id]; ok && schedule == j.schedule {
			continue
		}
		if err := s.sched.RemoveJob(j.id); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
			errs = append(errs, fmt.Errorf("remove job for %s: %w", id, err))
			continue
		}
		delete(s.jobs, id)
	}

	for id, schedule := range wanted {
		if _, ok := s.jobs[id]; ok {
			continue
		}
		created, err := s.sched.NewJob(
			gocron.CronJob(schedule, false),
			gocron.NewTask(s.resetTask(ctx, id)),
			gocron.WithName("reset-"+id),
			gocron.WithTags(id),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			metrics.RecordErrorByComponent("scheduler", "schedule_failed")
			errs = append(errs, fmt.Errorf("schedule reset for %s: %w", id, err))
			continue
		}
		s.jobs[id] = job{id: created.ID(), schedule: schedule}
		s.logger.Debug(ctx, "reset scheduled", logger.String("leaderboard_id", id), logger.String("schedule", schedule))
	}

	metrics.UpdateScheduledJobs(len(s.jobs))
	return errors.Join(errs...)
}

func (s *ResetScheduler) resetTask(ctx context.Context, id string) func() {
	return func() {
		rctx, cancel := context.WithTimeout(ctx, resetTimeout)
		defer cancel()

		n, err := s.resetter.ScheduledReset(rctx, id)
		if errors.Is(err, model.ErrNotFound) {
			// Deleted since the last sync; the next sync drops the job.
			return
		}
		if err != nil {
			metrics.RecordErrorByComponent("scheduler", "reset_failed")
			s.logger.Error(rctx, "scheduled reset failed", logger.String("leaderboard_id", id), logger.Error(err))
			return
		}
		s.logger.Info(rctx, "scheduled reset done", logger.String("leaderboard_id", id), logger.Int("deleted", n))
	}
}

// Schedules returns leaderboard id -> cron expression for every job held.
func (s *ResetScheduler) Schedules() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.jobs))
	for id, j := range s.jobs {
		out[id] = j.schedule
	}
	return out
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *ResetScheduler) Shutdown() error {
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}
