package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/logger"
	"github.com/MrSnakeDoc/marktrabit/internal/session"
	"github.com/MrSnakeDoc/marktrabit/internal/telemetry"
)

// DefaultSweepInterval applies when no interval is configured.
const DefaultSweepInterval = time.Minute

// Sweeper is the part of the session manager the sweeper drives.
type Sweeper interface {
	Sweep(ctx context.Context) (session.SweepResult, error)
}

// SessionSweeper periodically refreshes sessions about to expire and
// signs out those that can no longer be refreshed, so open dashboards
// hear about it without a user action.
type SessionSweeper struct {
	sessions Sweeper
	metrics  *telemetry.Metrics
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSessionSweeper creates a new sweeper. metrics may be nil.
func NewSessionSweeper(sessions Sweeper, metrics *telemetry.Metrics, log logger.Logger, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &SessionSweeper{
		sessions: sessions,
		metrics:  metrics,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start sweeps once, then every interval until Stop or ctx ends.
func (s *SessionSweeper) Start(ctx context.Context) error {
	if err := s.Sweep(ctx); err != nil {
		s.logger.Warn("initial session sweep failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Sweep(ctx); err != nil {
					s.logger.Error("session sweep failed",
						logger.Error(err))
				}
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper
func (s *SessionSweeper) Stop() {
	close(s.stopCh)
}

// Sweep runs one pass.
func (s *SessionSweeper) Sweep(ctx context.Context) error {
	start := time.Now()

	res, err := s.sessions.Sweep(ctx)
	s.metrics.Swept(res.Refreshed, res.Expired)
	if err != nil {
		return err
	}

	if res.Refreshed > 0 || res.Expired > 0 {
		s.logger.Info("session sweep completed",
			logger.Int("checked", res.Checked),
			logger.Int("refreshed", res.Refreshed),
			logger.Int("expired", res.Expired),
			logger.Duration("elapsed", time.Since(start)))
	} else {
		s.logger.Debug("session sweep found nothing to do",
			logger.Int("checked", res.Checked))
	}

	return nil
}
