// Package janitor periodically sweeps expired entries out of stores that do
// not expire them natively. Each target runs as its own gocron duration job in
// singleton mode, so a slow sweep is rescheduled rather than overlapped.
package janitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/goCred/store"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Target is a named store to sweep.
type Target struct {
	Name    string
	Sweeper store.Sweeper
}

// Config holds janitor settings.
type Config struct {
	Interval time.Duration
	Logger   zerolog.Logger
	// OnSweep is called after every successful sweep of a target.
	OnSweep func(target string, removed int)
}

// Janitor owns a gocron scheduler with one sweep job per target.
type Janitor struct {
	scheduler gocron.Scheduler
	targets   []Target
	config    Config

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	stopped bool
}

// New registers a sweep job per target. Jobs do not run until Start.
func New(cfg Config, targets ...Target) (*Janitor, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("janitor interval must be > 0")
	}
	zlog := cfg.Logger

	scheduler, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.BeforeJobRuns(func(jobID uuid.UUID, jobName string) {
					zlog.Debug().Str("job_name", jobName).Str("job_id", jobID.String()).Msg("job started")
				}),
				gocron.AfterJobRunsWithError(func(jobID uuid.UUID, jobName string, err error) {
					zlog.Err(err).Str("job_name", jobName).Str("job_id", jobID.String()).Msg("error while running the job")
				}),
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					zlog.Error().Str("job_name", jobName).Str("job_id", jobID.String()).Any("recover_data", recoverData).Msg("job panicked")
				}),
			),
		),
		gocron.WithLogger(logger{l: &zlog}),
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &Janitor{
		scheduler: scheduler,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
	}

	for _, t := range targets {
		if t.Sweeper == nil {
			continue
		}
		target := t
		_, err := scheduler.NewJob(
			gocron.DurationJob(cfg.Interval),
			gocron.NewTask(func() error {
				_, err := j.sweep(j.ctx, target)
				return err
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithName("sweep expired "+target.Name),
		)
		if err != nil {
			cancel()
			_ = scheduler.Shutdown()
			return nil, err
		}
		j.targets = append(j.targets, target)
	}

	return j, nil
}

// Targets returns the names of the registered targets.
func (j *Janitor) Targets() []string {
	names := make([]string, 0, len(j.targets))
	for _, t := range j.targets {
		names = append(names, t.Name)
	}
	return names
}

// Start begins the periodic schedule. Calling Start twice is a no-op.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started || j.stopped {
		return
	}
	j.started = true
	j.scheduler.Start()
}

// RunOnce sweeps every target immediately and returns the total removed.
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	total := 0
	var errs []error
	for _, t := range j.targets {
		n, err := j.sweep(ctx, t)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// Shutdown cancels in-flight sweeps and stops the scheduler. It is safe to
// call more than once.
func (j *Janitor) Shutdown() error {
	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return nil
	}
	j.stopped = true
	j.mu.Unlock()

	j.cancel()
	return j.scheduler.Shutdown()
}

func (j *Janitor) sweep(ctx context.Context, t Target) (int, error) {
	removed, err := t.Sweeper.Sweep(ctx)
	if err != nil {
		return removed, err
	}
	j.config.Logger.Debug().Str("target", t.Name).Int("removed", removed).Msg("sweep finished")
	if j.config.OnSweep != nil {
		j.config.OnSweep(t.Name, removed)
	}
	return removed, nil
}

type logger struct {
	l *zerolog.Logger
}

func (l logger) Debug(msg string, args ...any) {
	l.l.Debug().Fields(args).Msg(msg)
}
func (l logger) Error(msg string, args ...any) {
	l.l.Error().Fields(args).Msg(msg)
}
func (l logger) Info(msg string, args ...any) {
	l.l.Info().Fields(args).Msg(msg)
}
func (l logger) Warn(msg string, args ...any) {
	l.l.Warn().Fields(args).Msg(msg)
}
