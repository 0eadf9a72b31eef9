package types

// Severity orders alert levels so aggregate predicates stay cheap.
// The zero value is info; comparisons use the numeric order.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// String returns the lowercase severity name
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "info"
	}
}

// AlertType categorizes alert conditions
type AlertType string

const (
	AlertHighCPU    AlertType = "high_cpu"
	AlertHighMemory AlertType = "high_memory"
	AlertLowStorage AlertType = "low_storage"
	AlertNoBackup   AlertType = "no_backup"
	AlertOldBackup  AlertType = "old_backup"
	AlertStopped    AlertType = "stopped"
)

// Alert is a derived condition computed from current metrics.
// Alerts carry no identity of their own; they are recomputed every run
// and owned by exactly one resource for the run's duration.
type Alert struct {
	Type      AlertType `json:"type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Value     float64   `json:"value,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
}
