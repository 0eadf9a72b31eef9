// Package daemon runs syncs continuously at a fixed interval, for watch
// mode. The actual sync work is injected as a runner so the loop stays
// testable.
package daemon

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// SyncRunner executes one sync pass
type SyncRunner func(ctx context.Context) error

// Config holds daemon configuration
type Config struct {
	Interval    time.Duration
	MetricsPort int
	RunOnStart  bool
}

// Daemon manages continuous syncing
type Daemon struct {
	interval    time.Duration
	metricsPort int
	runOnStart  bool
	runner      SyncRunner
	metrics     *SyncMetrics
	logger      zerolog.Logger

	startTime    time.Time
	syncCount    atomic.Int64
	failureCount atomic.Int64
	lastSyncUnix atomic.Int64
}

// NewDaemon creates a new daemon instance
func NewDaemon(config Config, runner SyncRunner, logger zerolog.Logger) (*Daemon, error) {
	metrics, err := NewSyncMetrics()
	if err != nil {
		return nil, err
	}

	return &Daemon{
		interval:    config.Interval,
		metricsPort: config.MetricsPort,
		runOnStart:  config.RunOnStart,
		runner:      runner,
		metrics:     metrics,
		logger:      logger.With().Str("component", "daemon").Logger(),
		startTime:   time.Now(),
	}, nil
}

// Start begins the sync loop, returning when ctx is canceled
func (d *Daemon) Start(ctx context.Context) error {
	if d.runOnStart {
		d.runSync(ctx)
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Int64("syncs", d.syncCount.Load()).Msg("daemon stopping")
			return nil
		case <-ticker.C:
			d.runSync(ctx)
		}
	}
}

func (d *Daemon) runSync(ctx context.Context) {
	start := time.Now()
	d.syncCount.Add(1)

	err := d.runner(ctx)
	duration := time.Since(start)
	d.lastSyncUnix.Store(time.Now().Unix())

	status := "success"
	if err != nil {
		status = "failure"
		d.failureCount.Add(1)
		d.logger.Error().Err(err).Dur("duration", duration).Msg("sync run failed")
	} else {
		d.logger.Info().Dur("duration", duration).Msg("sync run complete")
	}
	d.metrics.RecordSync(ctx, status, duration)
}

// HealthStatus represents daemon health
type HealthStatus struct {
	Status    string `json:"status"`
	Uptime    int64  `json:"uptime_seconds"`
	SyncCount int64  `json:"sync_count"`
	Failures  int64  `json:"failures"`
	LastSync  int64  `json:"last_sync_unix,omitempty"`
}

// Health returns daemon health status. Degraded means the most recent runs
// have been failing without any success since start.
func (d *Daemon) Health() HealthStatus {
	status := "healthy"
	syncs, failures := d.syncCount.Load(), d.failureCount.Load()
	if syncs > 0 && failures == syncs {
		status = "degraded"
	}

	return HealthStatus{
		Status:    status,
		Uptime:    int64(time.Since(d.startTime).Seconds()),
		SyncCount: syncs,
		Failures:  failures,
		LastSync:  d.lastSyncUnix.Load(),
	}
}

// SyncCount returns total sync runs
func (d *Daemon) SyncCount() int64 {
	return d.syncCount.Load()
}
