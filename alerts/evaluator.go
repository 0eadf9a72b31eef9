// Package alerts evaluates resources against configurable thresholds.
// Evaluation is pure: no side effects, no ordering dependency between
// resources, recomputed from current metrics on every run.
package alerts

import (
	"fmt"
	"time"

	"github.com/tylwright/craft-docs-proxmox/types"
)

// Thresholds configure when alerts fire
type Thresholds struct {
	CPUWarning         float64 `yaml:"cpu_warning"`          // percent
	CPUCritical        float64 `yaml:"cpu_critical"`         // percent
	MemoryWarning      float64 `yaml:"memory_warning"`       // percent
	MemoryCritical     float64 `yaml:"memory_critical"`      // percent
	StorageWarning     float64 `yaml:"storage_warning"`      // free percent at or below
	StorageCritical    float64 `yaml:"storage_critical"`     // free percent at or below
	BackupWarningDays  int     `yaml:"backup_warning_days"`  // age in whole days
	BackupCriticalDays int     `yaml:"backup_critical_days"` // age in whole days
	AlertOnStopped     bool    `yaml:"alert_on_stopped"`
}

// DefaultThresholds returns the stock threshold set
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUWarning:         80,
		CPUCritical:        95,
		MemoryWarning:      80,
		MemoryCritical:     95,
		StorageWarning:     20,
		StorageCritical:    10,
		BackupWarningDays:  7,
		BackupCriticalDays: 30,
	}
}

// Evaluator maps resource metrics to alerts
type Evaluator struct {
	thresholds Thresholds
	now        func() time.Time
}

// NewEvaluator creates an evaluator with the given thresholds
func NewEvaluator(thresholds Thresholds) *Evaluator {
	return &Evaluator{thresholds: thresholds, now: time.Now}
}

// NewEvaluatorAt pins the evaluator's clock, for deterministic backup ages
func NewEvaluatorAt(thresholds Thresholds, now func() time.Time) *Evaluator {
	return &Evaluator{thresholds: thresholds, now: now}
}

// EvaluateResource returns the ordered alert list for one resource.
// Critical is checked before warning for each metric, so a metric yields
// at most one alert.
func (e *Evaluator) EvaluateResource(r *types.Resource) []types.Alert {
	var out []types.Alert

	out = appendAlert(out, e.evaluateCPU(r))
	out = appendAlert(out, e.evaluateMemory(r))
	out = appendAlert(out, e.evaluateBackup(r))
	out = appendAlert(out, e.evaluateStopped(r))

	return out
}

func (e *Evaluator) evaluateCPU(r *types.Resource) *types.Alert {
	if r.CPUUsage <= 0 {
		return nil
	}
	pct := r.CPUUsage * 100
	switch {
	case pct >= e.thresholds.CPUCritical:
		return &types.Alert{
			Type:      types.AlertHighCPU,
			Severity:  types.SeverityCritical,
			Message:   fmt.Sprintf("CPU usage critical: %.1f%%", pct),
			Value:     pct,
			Threshold: e.thresholds.CPUCritical,
		}
	case pct >= e.thresholds.CPUWarning:
		return &types.Alert{
			Type:      types.AlertHighCPU,
			Severity:  types.SeverityWarning,
			Message:   fmt.Sprintf("CPU usage high: %.1f%%", pct),
			Value:     pct,
			Threshold: e.thresholds.CPUWarning,
		}
	}
	return nil
}

func (e *Evaluator) evaluateMemory(r *types.Resource) *types.Alert {
	if r.MemoryUsage <= 0 {
		return nil
	}
	pct := r.MemoryUsage * 100
	switch {
	case pct >= e.thresholds.MemoryCritical:
		return &types.Alert{
			Type:      types.AlertHighMemory,
			Severity:  types.SeverityCritical,
			Message:   fmt.Sprintf("Memory usage critical: %.1f%%", pct),
			Value:     pct,
			Threshold: e.thresholds.MemoryCritical,
		}
	case pct >= e.thresholds.MemoryWarning:
		return &types.Alert{
			Type:      types.AlertHighMemory,
			Severity:  types.SeverityWarning,
			Message:   fmt.Sprintf("Memory usage high: %.1f%%", pct),
			Value:     pct,
			Threshold: e.thresholds.MemoryWarning,
		}
	}
	return nil
}

func (e *Evaluator) evaluateBackup(r *types.Resource) *types.Alert {
	if r.BackupInfo == nil {
		return nil
	}
	age := r.BackupInfo.LastBackupAgeDays(e.now())
	switch {
	case age < 0:
		return &types.Alert{
			Type:     types.AlertNoBackup,
			Severity: types.SeverityCritical,
			Message:  "No backups found",
		}
	case age >= e.thresholds.BackupCriticalDays:
		return &types.Alert{
			Type:      types.AlertOldBackup,
			Severity:  types.SeverityCritical,
			Message:   fmt.Sprintf("Last backup %d days ago", age),
			Value:     float64(age),
			Threshold: float64(e.thresholds.BackupCriticalDays),
		}
	case age >= e.thresholds.BackupWarningDays:
		return &types.Alert{
			Type:      types.AlertOldBackup,
			Severity:  types.SeverityWarning,
			Message:   fmt.Sprintf("Last backup %d days ago", age),
			Value:     float64(age),
			Threshold: float64(e.thresholds.BackupWarningDays),
		}
	}
	return nil
}

func (e *Evaluator) evaluateStopped(r *types.Resource) *types.Alert {
	if !e.thresholds.AlertOnStopped || r.Status != types.StatusStopped {
		return nil
	}
	return &types.Alert{
		Type:     types.AlertStopped,
		Severity: types.SeverityInfo,
		Message:  "Resource is stopped",
	}
}

// EvaluateStorage checks a storage pool's free space
func (e *Evaluator) EvaluateStorage(pool *types.StoragePool) []types.Alert {
	free := pool.FreePercent()
	if free < 0 {
		return nil
	}
	switch {
	case free <= e.thresholds.StorageCritical:
		return []types.Alert{{
			Type:      types.AlertLowStorage,
			Severity:  types.SeverityCritical,
			Message:   fmt.Sprintf("Storage nearly full: %.1f%% free", free),
			Value:     free,
			Threshold: e.thresholds.StorageCritical,
		}}
	case free <= e.thresholds.StorageWarning:
		return []types.Alert{{
			Type:      types.AlertLowStorage,
			Severity:  types.SeverityWarning,
			Message:   fmt.Sprintf("Storage low: %.1f%% free", free),
			Value:     free,
			Threshold: e.thresholds.StorageWarning,
		}}
	}
	return nil
}

// AnnotateCluster attaches freshly evaluated alerts to every guest
func (e *Evaluator) AnnotateCluster(cluster *types.Cluster) {
	for i := range cluster.VMs {
		cluster.VMs[i].Alerts = e.EvaluateResource(&cluster.VMs[i])
	}
	for i := range cluster.Containers {
		cluster.Containers[i].Alerts = e.EvaluateResource(&cluster.Containers[i])
	}
}

func appendAlert(alerts []types.Alert, a *types.Alert) []types.Alert {
	if a == nil {
		return alerts
	}
	return append(alerts, *a)
}
