package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotInitialized = errors.New("scheduler not initialized")
	ErrEmptyJobName   = errors.New("job name is required")
	ErrEmptyCronExpr  = errors.New("cron expression is required")
)

const defaultJobTimeout = 2 * time.Minute

// Task receives a context carrying the job logger; it is cancelled after the
// job timeout or when the scheduler stops.
type Task func(ctx context.Context)

// Service wraps a gocron scheduler for app-wide scheduling.
type Service struct {
	scheduler  gocron.Scheduler
	jobTimeout time.Duration
	baseCtx    context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
	stopErr    error
}

type Options struct {
	// Clock drives cron evaluation (nil uses real time)
	Clock      clockwork.Clock
	JobTimeout time.Duration
}

func New(opts Options) (*Service, error) {
	schedOpts := []gocron.SchedulerOption{
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error().
						Str("job_id", jobID.String()).
						Str("job_name", jobName).
						Interface("panic", recoverData).
						Msg("Scheduler job panicked")
				}),
			),
			// an audit still running when the next tick arrives is not doubled
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		),
	}
	if opts.Clock != nil {
		schedOpts = append(schedOpts, gocron.WithClock(opts.Clock))
	}

	sched, err := gocron.NewScheduler(schedOpts...)
	if err != nil {
		return nil, err
	}

	if opts.JobTimeout <= 0 {
		opts.JobTimeout = defaultJobTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	log.Info().Msg("Scheduler initialized")
	return &Service{
		scheduler:  sched,
		jobTimeout: opts.JobTimeout,
		baseCtx:    ctx,
		cancel:     cancel,
	}, nil
}

// Start begins running scheduled jobs.
func (s *Service) Start() {
	if s == nil {
		log.Error().Msg("Scheduler start requested before initialization")
		return
	}
	log.Info().Int("job_count", len(s.scheduler.Jobs())).Msg("Scheduler starting")
	s.scheduler.Start()
}

// Stop cancels running jobs and shuts down the scheduler.
func (s *Service) Stop() error {
	if s == nil {
		return ErrNotInitialized
	}
	s.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		s.cancel()
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

// AddJob registers a cron-based job with the scheduler.
func (s *Service) AddJob(name, cronExpr string, task Task) (gocron.Job, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}
	jobLogger := log.With().Str("job_name", name).Str("cron", cronExpr).Logger()
	jobLogger.Info().Msg("Registering scheduler job")

	wrappedTask := func() {
		ctx, cancel := context.WithTimeout(s.baseCtx, s.jobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		jobLogger.Debug().Msg("Scheduler job started")
		task(ctx)
		jobLogger.Debug().Msg("Scheduler job completed")
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrappedTask),
		gocron.WithName(name),
	)
	if err != nil {
		jobLogger.Error().Err(err).Msg("Failed to register scheduler job")
		return nil, err
	}
	jobLogger.Info().Msg("Scheduler job registered")
	return job, nil
}
