// Package scheduler runs the expiration check on a cron schedule inside the
// serve process.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const jobName = "expiration-check"

// RunFunc performs one scheduled run.
type RunFunc func(ctx context.Context) error

// Config holds the scheduler configuration.
type Config struct {
	// Schedule is a five-field cron expression such as "0 8 * * *".
	Schedule string
	// Location is the timezone the expression is evaluated in. Defaults to UTC.
	Location *time.Location
	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
	Run     RunFunc
	Logger  *slog.Logger
}

// Scheduler triggers Run on the configured schedule. Overlapping runs are
// skipped and rescheduled, never queued.
type Scheduler struct {
	cron   gocron.Scheduler
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	job     gocron.Job
	baseCtx context.Context
}

// New creates a new Scheduler. The job is registered by Start.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Schedule == "" {
		return nil, errors.New("schedule is required")
	}
	if cfg.Run == nil {
		return nil, errors.New("run function is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cron, err := gocron.NewScheduler(gocron.WithLocation(cfg.Location))
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}

	return &Scheduler{
		cron:    cron,
		cfg:     cfg,
		logger:  cfg.Logger,
		baseCtx: context.Background(),
	}, nil
}

// Start registers the cron job and starts the gocron scheduler. Runs derive
// their context from ctx, so canceling it aborts an in-flight run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.cron.NewJob(
		gocron.CronJob(s.cfg.Schedule, false),
		gocron.NewTask(s.runOnce),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduling %q: %w", s.cfg.Schedule, err)
	}
	s.job = job
	s.baseCtx = ctx

	s.cron.Start()

	attrs := []any{"schedule", s.cfg.Schedule, "location", s.cfg.Location.String()}
	if next, err := job.NextRun(); err == nil {
		attrs = append(attrs, "next_run", next)
	}
	s.logger.Info("expiration scheduler started", attrs...)
	return nil
}

// NextRun reports when the job fires next.
func (s *Scheduler) NextRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return time.Time{}, errors.New("scheduler not started")
	}
	return s.job.NextRun()
}

// Stop shuts down the gocron scheduler, waiting for a running job to return.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

func (s *Scheduler) runOnce() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	s.logger.Info("scheduled expiration check starting")
	if err := s.cfg.Run(ctx); err != nil {
		s.logger.Error("scheduled expiration check failed",
			"duration", time.Since(start), "error", err)
		return
	}
	s.logger.Info("scheduled expiration check finished", "duration", time.Since(start))
}
