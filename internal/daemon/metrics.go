package daemon

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetrics holds operational metrics using OTEL semantic conventions
type SyncMetrics struct {
	syncs        metric.Int64Counter
	syncDuration metric.Float64Histogram
	guestsSeen   metric.Int64Gauge
}

// NewSyncMetrics creates daemon metrics
func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter("proxsync.daemon")

	syncs, err := meter.Int64Counter(
		"proxsync.daemon.syncs",
		metric.WithDescription("Number of sync runs"),
		metric.WithUnit("{sync}"),
	)
	if err != nil {
		return nil, err
	}

	syncDuration, err := meter.Float64Histogram(
		"proxsync.daemon.sync.duration",
		metric.WithDescription("Duration of sync runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	guestsSeen, err := meter.Int64Gauge(
		"proxsync.guests.discovered",
		metric.WithDescription("Number of Proxmox guests discovered"),
		metric.WithUnit("{guest}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncs:        syncs,
		syncDuration: syncDuration,
		guestsSeen:   guestsSeen,
	}, nil
}

// RecordSync records one sync run with its outcome
func (m *SyncMetrics) RecordSync(ctx context.Context, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.syncs.Add(ctx, 1, attrs)
	m.syncDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGuests records the discovered guest count
func (m *SyncMetrics) RecordGuests(ctx context.Context, count int) {
	m.guestsSeen.Record(ctx, int64(count))
}
