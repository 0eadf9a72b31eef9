package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaemonRunsOnInterval(t *testing.T) {
	var runs atomic.Int64
	runner := func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}

	d, err := NewDaemon(Config{Interval: 20 * time.Millisecond}, runner, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()
	require.NoError(t, d.Start(ctx))

	assert.GreaterOrEqual(t, runs.Load(), int64(3))
	assert.Equal(t, runs.Load(), d.SyncCount())
}

func TestDaemonRunOnStart(t *testing.T) {
	var runs atomic.Int64
	runner := func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}

	d, err := NewDaemon(Config{Interval: time.Hour, RunOnStart: true}, runner, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.NoError(t, d.Start(ctx))

	assert.Equal(t, int64(1), runs.Load(), "one immediate run, none from the hourly ticker")
}

func TestDaemonHealth(t *testing.T) {
	failing := func(ctx context.Context) error { return errors.New("api down") }

	d, err := NewDaemon(Config{Interval: time.Hour}, failing, zerolog.Nop())
	require.NoError(t, err)

	health := d.Health()
	assert.Equal(t, "healthy", health.Status, "no runs yet is healthy")
	assert.Zero(t, health.SyncCount)

	d.runSync(context.Background())
	d.runSync(context.Background())

	health = d.Health()
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, int64(2), health.SyncCount)
	assert.Equal(t, int64(2), health.Failures)
	assert.NotZero(t, health.LastSync)
}

func TestDaemonRecoversHealth(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	runner := func(ctx context.Context) error {
		if fail.Load() {
			return errors.New("flaky")
		}
		return nil
	}

	d, err := NewDaemon(Config{Interval: time.Hour}, runner, zerolog.Nop())
	require.NoError(t, err)

	d.runSync(context.Background())
	assert.Equal(t, "degraded", d.Health().Status)

	fail.Store(false)
	d.runSync(context.Background())
	assert.Equal(t, "healthy", d.Health().Status)
}
