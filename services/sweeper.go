package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/lborres/tipsapi/pkg/logging"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultCleanupSchedule = "@every 1h"

// cleaner is the slice of SessionManager the sweeper drives.
type cleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// Sweeper owns the periodic expired-session cleanup. Its lifetime is bound
// to Start and Stop.
type Sweeper struct {
	sessions cleaner
	schedule string
	logger   *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// NewSweeper validates schedule (standard cron or a descriptor such as
// "@every 1h") and returns a stopped sweeper.
func NewSweeper(sessions cleaner, schedule string, logger *zap.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}

	return &Sweeper{
		sessions: sessions,
		schedule: schedule,
		logger:   logging.OrNop(logger).Named("sweeper"),
	}, nil
}

// Start schedules the sweep. Calling Start on a running sweeper is a no-op.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = cron.New(
		cron.WithLogger(cronLogger{s.logger.Sugar()}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger.Sugar()})),
	)

	ctx := s.ctx
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		s.cancel()
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("session sweeper started", zap.String("schedule", s.schedule))
	return nil
}

// Stop unschedules the sweep and waits for an in-flight run to finish or
// for ctx to end, whichever comes first.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	stopped := s.cron.Stop()
	cancel := s.cancel
	s.mu.Unlock()

	select {
	case <-stopped.Done():
		cancel()
		s.logger.Info("session sweeper stopped")
		return nil
	case <-ctx.Done():
		// abort the in-flight sweep's datastore call
		cancel()
		return ctx.Err()
	}
}

// RunOnce performs a single sweep. Failures are logged, not returned, so a
// transient datastore outage does not stop later runs.
func (s *Sweeper) RunOnce(ctx context.Context) int64 {
	n, err := s.sessions.Cleanup(ctx)
	if err != nil {
		s.logger.Error("session cleanup failed", zap.Error(err))
		return 0
	}
	return n
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
