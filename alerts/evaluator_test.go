package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tylwright/craft-docs-proxmox/types"
)

func fixedNow() time.Time {
	return time.Unix(1_700_000_000, 0)
}

func newTestEvaluator(t Thresholds) *Evaluator {
	return NewEvaluatorAt(t, fixedNow)
}

func TestEvaluateCPU(t *testing.T) {
	tests := []struct {
		name         string
		usage        float64
		wantCount    int
		wantSeverity types.Severity
	}{
		{name: "idle", usage: 0.10, wantCount: 0},
		{name: "just below warning", usage: 0.799, wantCount: 0},
		{name: "warning at threshold", usage: 0.80, wantCount: 1, wantSeverity: types.SeverityWarning},
		{name: "critical wins over warning", usage: 0.96, wantCount: 1, wantSeverity: types.SeverityCritical},
		{name: "critical at threshold", usage: 0.95, wantCount: 1, wantSeverity: types.SeverityCritical},
	}

	evaluator := newTestEvaluator(DefaultThresholds())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &types.Resource{VMID: 100, Kind: types.KindVM, CPUUsage: tt.usage}
			alerts := evaluator.EvaluateResource(r)
			require.Len(t, alerts, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, types.AlertHighCPU, alerts[0].Type)
				assert.Equal(t, tt.wantSeverity, alerts[0].Severity)
			}
		})
	}
}

func TestEvaluateMemory(t *testing.T) {
	evaluator := newTestEvaluator(DefaultThresholds())

	r := &types.Resource{VMID: 100, Kind: types.KindVM, MemoryUsage: 0.85}
	alerts := evaluator.EvaluateResource(r)
	require.Len(t, alerts, 1)
	assert.Equal(t, types.AlertHighMemory, alerts[0].Type)
	assert.Equal(t, types.SeverityWarning, alerts[0].Severity)
	assert.InDelta(t, 85.0, alerts[0].Value, 0.01)
	assert.Equal(t, 80.0, alerts[0].Threshold)
}

func TestEvaluateMultipleMetricsIndependently(t *testing.T) {
	evaluator := newTestEvaluator(DefaultThresholds())

	r := &types.Resource{VMID: 100, Kind: types.KindVM, CPUUsage: 0.97, MemoryUsage: 0.85}
	alerts := evaluator.EvaluateResource(r)
	require.Len(t, alerts, 2)
	assert.Equal(t, types.AlertHighCPU, alerts[0].Type)
	assert.Equal(t, types.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, types.AlertHighMemory, alerts[1].Type)
	assert.Equal(t, types.SeverityWarning, alerts[1].Severity)
}

func TestEvaluateBackup(t *testing.T) {
	backupAt := func(daysAgo int) *types.BackupInfo {
		return &types.BackupInfo{
			VMID: 100,
			Backups: []types.Backup{
				{VMID: 100, Filename: "b.vma", BackupTime: fixedNow().Unix() - int64(daysAgo)*86400},
			},
		}
	}

	tests := []struct {
		name         string
		info         *types.BackupInfo
		wantType     types.AlertType
		wantSeverity types.Severity
		wantNone     bool
	}{
		{name: "no backup info means no alert", info: nil, wantNone: true},
		{
			name:     "no backups at all",
			info:     &types.BackupInfo{VMID: 100},
			wantType: types.AlertNoBackup, wantSeverity: types.SeverityCritical,
		},
		{name: "fresh backup", info: backupAt(3), wantNone: true},
		{
			name:     "warning age inclusive",
			info:     backupAt(7),
			wantType: types.AlertOldBackup, wantSeverity: types.SeverityWarning,
		},
		{
			name:     "critical at exactly 30 days",
			info:     backupAt(30),
			wantType: types.AlertOldBackup, wantSeverity: types.SeverityCritical,
		},
	}

	evaluator := newTestEvaluator(DefaultThresholds())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &types.Resource{VMID: 100, Kind: types.KindVM, BackupInfo: tt.info}
			alerts := evaluator.EvaluateResource(r)
			if tt.wantNone {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.wantType, alerts[0].Type)
			assert.Equal(t, tt.wantSeverity, alerts[0].Severity)
		})
	}
}

func TestEvaluateStopped(t *testing.T) {
	stopped := &types.Resource{VMID: 100, Kind: types.KindVM, Status: types.StatusStopped}

	// Disabled by default
	evaluator := newTestEvaluator(DefaultThresholds())
	assert.Empty(t, evaluator.EvaluateResource(stopped))

	thresholds := DefaultThresholds()
	thresholds.AlertOnStopped = true
	evaluator = newTestEvaluator(thresholds)

	alerts := evaluator.EvaluateResource(stopped)
	require.Len(t, alerts, 1)
	assert.Equal(t, types.AlertStopped, alerts[0].Type)
	assert.Equal(t, types.SeverityInfo, alerts[0].Severity)

	running := &types.Resource{VMID: 101, Kind: types.KindVM, Status: types.StatusRunning}
	assert.Empty(t, evaluator.EvaluateResource(running))
}

func TestEvaluateStorage(t *testing.T) {
	tests := []struct {
		name         string
		pool         types.StoragePool
		wantCount    int
		wantSeverity types.Severity
	}{
		{
			name:      "plenty of space",
			pool:      types.StoragePool{TotalBytes: 1000, UsedBytes: 500},
			wantCount: 0,
		},
		{
			name:         "warning at 20% free",
			pool:         types.StoragePool{TotalBytes: 1000, UsedBytes: 800},
			wantCount:    1,
			wantSeverity: types.SeverityWarning,
		},
		{
			name:         "critical at 10% free",
			pool:         types.StoragePool{TotalBytes: 1000, UsedBytes: 900},
			wantCount:    1,
			wantSeverity: types.SeverityCritical,
		},
		{
			name:      "unknown size",
			pool:      types.StoragePool{},
			wantCount: 0,
		},
	}

	evaluator := newTestEvaluator(DefaultThresholds())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := evaluator.EvaluateStorage(&tt.pool)
			require.Len(t, alerts, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, types.AlertLowStorage, alerts[0].Type)
				assert.Equal(t, tt.wantSeverity, alerts[0].Severity)
			}
		})
	}
}

func TestAnnotateCluster(t *testing.T) {
	evaluator := newTestEvaluator(DefaultThresholds())

	cluster := &types.Cluster{
		VMs: []types.Resource{
			{VMID: 100, Kind: types.KindVM, CPUUsage: 0.96},
			{VMID: 101, Kind: types.KindVM, CPUUsage: 0.10},
		},
		Containers: []types.Resource{
			{VMID: 200, Kind: types.KindContainer, MemoryUsage: 0.99},
		},
	}

	evaluator.AnnotateCluster(cluster)

	require.Len(t, cluster.VMs[0].Alerts, 1)
	assert.True(t, cluster.VMs[0].HasCritical())
	assert.Empty(t, cluster.VMs[1].Alerts)
	require.Len(t, cluster.Containers[0].Alerts, 1)
	assert.Equal(t, types.AlertHighMemory, cluster.Containers[0].Alerts[0].Type)
}

// 96% CPU with default thresholds is exactly one critical high_cpu
// alert, never warning plus critical.
func TestCriticalAndWarningMutuallyExclusive(t *testing.T) {
	evaluator := newTestEvaluator(DefaultThresholds())
	r := &types.Resource{VMID: 100, Kind: types.KindVM, CPUUsage: 0.96}

	alerts := evaluator.EvaluateResource(r)
	require.Len(t, alerts, 1)
	assert.Equal(t, types.AlertHighCPU, alerts[0].Type)
	assert.Equal(t, types.SeverityCritical, alerts[0].Severity)
}
