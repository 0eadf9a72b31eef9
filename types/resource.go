package types

import "fmt"

// Kind identifies the flavor of a Proxmox guest
type Kind string

const (
	KindVM        Kind = "vm"
	KindContainer Kind = "ct"
)

// Status is the lifecycle state of a resource
type Status string

const (
	StatusRunning   Status = "running"
	StatusStopped   Status = "stopped"
	StatusPaused    Status = "paused"
	StatusSuspended Status = "suspended"
	StatusUnknown   Status = "unknown"
)

// ParseStatus maps a raw Proxmox status string to a Status
func ParseStatus(raw string) Status {
	switch raw {
	case "running":
		return StatusRunning
	case "stopped":
		return StatusStopped
	case "paused":
		return StatusPaused
	case "suspended":
		return StatusSuspended
	default:
		return StatusUnknown
	}
}

// ResourceKey uniquely identifies a resource across sync runs
type ResourceKey struct {
	Kind Kind `json:"kind"`
	VMID int  `json:"vmid"`
}

// String renders the key in the form used by document markers ("vm-100", "ct-200")
func (k ResourceKey) String() string {
	return fmt.Sprintf("%s-%d", k.Kind, k.VMID)
}

// Marker returns the literal ID marker rendered into document blocks
func (k ResourceKey) Marker() string {
	if k.Kind == KindContainer {
		return fmt.Sprintf("CTID: %d", k.VMID)
	}
	return fmt.Sprintf("VMID: %d", k.VMID)
}

// Resource represents a Proxmox guest (QEMU VM or LXC container)
type Resource struct {
	VMID        int                `json:"vmid"`
	Kind        Kind               `json:"kind"`
	Name        string             `json:"name"`
	Node        string             `json:"node"`
	Status      Status             `json:"status"`
	CPUCores    int                `json:"cpu_cores,omitempty"`
	MemoryMB    int64              `json:"memory_mb,omitempty"`
	DiskGB      float64            `json:"disk_gb,omitempty"`
	CPUUsage    float64            `json:"cpu_usage,omitempty"`    // fraction 0..1
	MemoryUsage float64            `json:"memory_usage,omitempty"` // fraction 0..1
	IPAddresses []string           `json:"ip_addresses,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	Description string             `json:"description,omitempty"`
	Template    bool               `json:"template,omitempty"`
	Uptime      int64              `json:"uptime,omitempty"`
	OSType      string             `json:"os_type,omitempty"`
	Hostname    string             `json:"hostname,omitempty"` // containers only
	DiskInfo    string             `json:"disk_info,omitempty"`
	Snapshots   []Snapshot         `json:"snapshots,omitempty"`
	Interfaces  []NetworkInterface `json:"network_interfaces,omitempty"`
	BackupInfo  *BackupInfo        `json:"backup_info,omitempty"`
	Alerts      []Alert            `json:"alerts,omitempty"`
}

// Key returns the reconciliation key for this resource
func (r *Resource) Key() ResourceKey {
	return ResourceKey{Kind: r.Kind, VMID: r.VMID}
}

// DisplayName falls back to a synthetic name when the guest is unnamed
func (r *Resource) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.Kind == KindContainer {
		if r.Hostname != "" {
			return r.Hostname
		}
		return fmt.Sprintf("CT-%d", r.VMID)
	}
	return fmt.Sprintf("VM-%d", r.VMID)
}

// SnapshotCount counts snapshots, excluding the implicit "current" marker
func (r *Resource) SnapshotCount() int {
	count := 0
	for _, s := range r.Snapshots {
		if s.Name != "current" {
			count++
		}
	}
	return count
}

// HasWarnings reports whether any alert is warning severity or above
func (r *Resource) HasWarnings() bool {
	for _, a := range r.Alerts {
		if a.Severity >= SeverityWarning {
			return true
		}
	}
	return false
}

// HasCritical reports whether any alert is critical
func (r *Resource) HasCritical() bool {
	for _, a := range r.Alerts {
		if a.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
