// Package scheduler runs periodic consolidation sweeps and synthesis
// passes on a cron cadence.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/layers"
)

const (
	// DefaultSweepEvery is the default consolidation cadence.
	DefaultSweepEvery = 5 * time.Minute

	// DefaultSynthesizeEvery is the default synthesis cadence. Synthesis
	// is heavier and its inputs move slowly, so it runs much less often.
	DefaultSynthesizeEvery = time.Hour

	// jobTimeout bounds a single scheduled pass.
	jobTimeout = 2 * time.Minute
)

// TenantLister names the tenants a pass should cover. The scheduler calls
// it fresh on every tick so new tenants are picked up automatically.
type TenantLister func(ctx context.Context) ([]string, error)

// Config tunes the cadences; zero values fall back to the defaults.
type Config struct {
	SweepEvery      time.Duration
	SynthesizeEvery time.Duration
}

// Scheduler drives the layer manager's periodic maintenance.
type Scheduler struct {
	manager *layers.Manager
	tenants TenantLister
	cron    *cron.Cron
	logger  *zap.Logger
	cfg     Config
}

// New builds a stopped scheduler; call Start to begin ticking.
func New(manager *layers.Manager, tenants TenantLister, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = DefaultSweepEvery
	}
	if cfg.SynthesizeEvery <= 0 {
		cfg.SynthesizeEvery = DefaultSynthesizeEvery
	}

	return &Scheduler{
		manager: manager,
		tenants: tenants,
		cron:    cron.New(),
		logger:  logger,
		cfg:     cfg,
	}
}

// Start registers the jobs and begins the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every "+s.cfg.SweepEvery.String(), s.sweepAll); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every "+s.cfg.SynthesizeEvery.String(), s.synthesizeAll); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.Duration("sweep_every", s.cfg.SweepEvery),
		zap.Duration("synthesize_every", s.cfg.SynthesizeEvery))
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweepAll() {
	s.forEachTenant("sweep", func(ctx context.Context, tenantID string) error {
		_, err := s.manager.Sweep(ctx, tenantID)
		return err
	})
}

func (s *Scheduler) synthesizeAll() {
	s.forEachTenant("synthesize", func(ctx context.Context, tenantID string) error {
		_, err := s.manager.Synthesize(ctx, tenantID)
		return err
	})
}

func (s *Scheduler) forEachTenant(job string, fn func(ctx context.Context, tenantID string) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	tenants, err := s.tenants(ctx)
	if err != nil {
		s.logger.Warn("failed to list tenants", zap.String("job", job), zap.Error(err))
		return
	}

	for _, tenantID := range tenants {
		if err := fn(ctx, tenantID); err != nil {
			s.logger.Warn("scheduled job failed",
				zap.String("job", job),
				zap.String("tenant", tenantID),
				zap.Error(err))
		}
	}
}
