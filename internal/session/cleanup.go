package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Cleaner periodically removes expired sessions.
type Cleaner struct {
	manager  SessionManager
	interval time.Duration
	logger   zerolog.Logger
}

func NewCleaner(manager SessionManager, interval time.Duration, logger zerolog.Logger) *Cleaner {
	return &Cleaner{
		manager:  manager,
		interval: interval,
		logger:   logger.With().Str("component", "session_cleaner").Logger(),
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (c *Cleaner) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info().Dur("interval", c.interval).Msg("Starting session cleanup")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Session cleanup stopped")
			return nil
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			c.RunOnce(sweepCtx)
			cancel()
		}
	}
}

// RunOnce performs a single sweep and returns the number of removed sessions.
// Failures are logged.
func (c *Cleaner) RunOnce(ctx context.Context) int {
	start := time.Now()
	deleted, err := c.manager.CleanupExpiredSessions(ctx)
	if err != nil {
		c.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Session cleanup failed")
		return 0
	}
	c.logger.Debug().Int("deleted_count", deleted).Dur("duration", time.Since(start)).Msg("Session cleanup pass finished")
	return deleted
}
