package core

// scheduler.go runs background maintenance for the session registry.
//
// The sweeper removes sessions idle longer than the TTL so uploaded tables
// do not accumulate in memory. It is long-running and stops when its
// context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often idle sessions are checked.
const DefaultSweepInterval = 5 * time.Minute

// StartSessionSweeper expires idle sessions every interval until ctx is done.
func (s *Service) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session sweeper started", "interval", interval, "ttl", s.cfg.SessionTTL)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	start := time.Now()
	expired := s.ExpireIdle()
	if expired > 0 {
		slog.Info("expired idle sessions",
			"sessions_expired", expired,
			"sessions_active", s.SessionCount(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	slog.Debug("session sweep found nothing to expire", "sessions_active", s.SessionCount())
}
