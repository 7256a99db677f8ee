package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/internal/config"
	"github.com/mamadbah2/herdwise/internal/service/farmsvc"
)

// Prober refreshes the connectivity state.
type Prober interface {
	Probe(ctx context.Context) bool
}

// Syncer exposes the queue depth and starts background sync passes.
type Syncer interface {
	SyncStatus(ctx context.Context) (farmsvc.SyncStatus, error)
	TriggerSync()
}

// Digester sends the weekly digest.
type Digester interface {
	SendWeeklyDigest(ctx context.Context) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	prober   Prober
	syncer   Syncer
	digester Digester
	cfg      config.Config
	logger   *zap.Logger
}

// NewScheduler creates a scheduler running in the configured timezone.
// digester may be nil when digests are disabled.
func NewScheduler(cfg config.Config, prober Prober, syncer Syncer, digester Digester, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Reporting.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		prober:   prober,
		syncer:   syncer,
		digester: digester,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	recheck := fmt.Sprintf("@every %s", s.cfg.Sync.PollInterval)
	if _, err := s.cron.AddFunc(recheck, s.recheckConnectivity); err != nil {
		return fmt.Errorf("schedule connectivity recheck: %w", err)
	}

	if s.digester != nil {
		if _, err := s.cron.AddFunc(s.cfg.Reporting.DigestSchedule, s.sendWeeklyDigest); err != nil {
			return fmt.Errorf("schedule weekly digest: %w", err)
		}
		s.logger.Info("weekly digest scheduled", zap.String("schedule", s.cfg.Reporting.DigestSchedule))
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// recheckConnectivity probes the remote and retries queued work. The
// monitor's online callback covers transitions; this covers actions that
// failed while the connection stayed up. Actions on excluded entities never
// replay, so they alone do not start a pass.
func (s *Scheduler) recheckConnectivity() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Sync.PollInterval)
	defer cancel()

	if !s.prober.Probe(ctx) {
		return
	}

	status, err := s.syncer.SyncStatus(ctx)
	if err != nil {
		s.logger.Error("failed to read queue depth", zap.Error(err))
		return
	}
	if status.Replayable > 0 && !status.Engine.Running {
		s.logger.Debug("retrying queued actions", zap.Int("replayable", status.Replayable), zap.Int("pending", status.Pending))
		s.syncer.TriggerSync()
	}
}

func (s *Scheduler) sendWeeklyDigest() {
	s.logger.Info("generating weekly digest")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.digester.SendWeeklyDigest(ctx); err != nil {
		s.logger.Error("failed to send weekly digest", zap.Error(err))
		return
	}
	s.logger.Info("weekly digest sent successfully")
}
