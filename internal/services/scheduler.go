package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/viddhana/pool-ledger/internal/observability/metrics"
	"github.com/viddhana/pool-ledger/internal/observability/tracing"
	"github.com/viddhana/pool-ledger/internal/utils/poller"
)

const (
	jobAutoSweep      = "auto_sweep"
	jobRetrySweep     = "retry_sweep"
	jobRewardSnapshot = "reward_snapshot"
	jobStuckCheck     = "stuck_payout_check"
	jobOutboxRelay    = "outbox_relay"
)

// Scheduler runs the periodic jobs of the core. A job whose previous run is
// still in progress skips its tick.
type Scheduler struct {
	svc   *Service
	cron  *cron.Cron
	relay *poller.Poller

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewScheduler(svc *Service) *Scheduler {
	logger := cronLogger{logger: log.Logger.With().Str("component", "scheduler").Logger()}
	return &Scheduler{
		svc: svc,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
}

// Start registers the jobs and starts running them. Jobs run with a context
// derived from ctx that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	cfg := s.svc.cfg.Poller
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{jobAutoSweep, cfg.SweepCron, s.svc.RunAutoSweep},
		{jobRetrySweep, cfg.RetrySweepCron, s.svc.RunRetrySweep},
		{jobRewardSnapshot, cfg.SnapshotCron, s.svc.TakeRewardSnapshots},
		{jobStuckCheck, cfg.StuckCheckCron, s.svc.RunStuckCheck},
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, s.wrap(ctx, job.name, job.run)); err != nil {
			cancel()
			return fmt.Errorf("failed to register %s job: %w", job.name, err)
		}
	}
	s.cron.Start()

	relay := metrics.TimeJob(jobOutboxRelay, func(ctx context.Context) error {
		return s.svc.RelayOutbox(tracing.InjectJob(ctx, jobOutboxRelay))
	})
	s.relay = poller.NewPoller(jobOutboxRelay, cfg.OutboxPollingInterval, relay)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.relay.Start(ctx)
	}()

	log.Info().Int("jobs", len(jobs)).Msg("scheduler started")
	return nil
}

func (s *Scheduler) wrap(ctx context.Context, name string, run func(ctx context.Context) error) func() {
	job := metrics.TimeJob(name, run)
	return func() {
		if ctx.Err() != nil {
			return
		}
		jobCtx := tracing.InjectJob(ctx, name)
		log.Ctx(jobCtx).Debug().Msg("job started")
		if err := job(jobCtx); err != nil {
			log.Ctx(jobCtx).Error().Err(err).Msg("job failed")
			return
		}
		log.Ctx(jobCtx).Debug().Msg("job finished")
	}
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	if s.relay != nil {
		s.relay.Stop()
	}
	s.wg.Wait()
	log.Info().Msg("scheduler stopped")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
