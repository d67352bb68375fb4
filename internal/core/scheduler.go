package core

// scheduler.go provides background maintenance for the session store.
//
// The session reaper runs periodically and removes sessions that have sat
// idle for longer than the configured TTL, freeing their working tables.
// It is long-running and context-aware for graceful shutdown.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultReapInterval is used when StartSessionReaper is given no interval.
const DefaultReapInterval = 5 * time.Minute

// StartSessionReaper removes expired sessions every interval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartSessionReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReapInterval
	}

	slog.Info("session reaper started",
		"interval", interval.String(),
		"session_ttl", s.opts.SessionTTL.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session reaper stopped")
			return
		case <-ticker.C:
			s.runReapJob()
		}
	}
}

// runReapJob performs one reap cycle.
func (s *Service) runReapJob() {
	start := time.Now()
	removed := s.ReapSessions()
	if removed == 0 {
		slog.Debug("reap job completed", "sessions_removed", 0)
		return
	}
	slog.Info("reap job completed",
		"sessions_removed", removed,
		"sessions_active", s.sessions.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
