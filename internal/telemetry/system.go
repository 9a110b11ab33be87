package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// SessionCounter reports how many unexpired sessions the store holds.
type SessionCounter interface {
	GetActiveSessionCount(ctx context.Context) (int, error)
}

// SystemMetricsCollector samples runtime gauges on an interval and, when
// given a SessionCounter, resyncs the active session gauge with the store.
// With a shared Redis store the gauge otherwise only reflects this replica.
type SystemMetricsCollector struct {
	metrics  *Metrics
	sessions SessionCounter
	logger   zerolog.Logger
	interval time.Duration
}

func NewSystemMetricsCollector(metrics *Metrics, sessions SessionCounter, logger zerolog.Logger, interval time.Duration) *SystemMetricsCollector {
	return &SystemMetricsCollector{
		metrics:  metrics,
		sessions: sessions,
		logger:   logger.With().Str("component", "system_metrics").Logger(),
		interval: interval,
	}
}

// Run collects once immediately, then once per interval until ctx is cancelled.
func (c *SystemMetricsCollector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

func (c *SystemMetricsCollector) Collect(ctx context.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	c.metrics.UpdateSystemMetrics(runtime.NumGoroutine(), mem.Alloc)

	if c.sessions == nil {
		return
	}
	active, err := c.sessions.GetActiveSessionCount(ctx)
	if err != nil {
		// Keep the last value; the store may be briefly unreachable.
		c.logger.Warn().Err(err).Msg("Failed to count sessions")
		return
	}
	c.metrics.SetActiveSessions(active)
}
