package types

import "time"

// Node represents a Proxmox cluster node
type Node struct {
	Name         string        `json:"name"`
	Status       string        `json:"status"`
	CPUUsage     float64       `json:"cpu_usage,omitempty"` // fraction 0..1
	MemoryUsed   int64         `json:"memory_used,omitempty"`
	MemoryTotal  int64         `json:"memory_total,omitempty"`
	Uptime       int64         `json:"uptime,omitempty"`
	StoragePools []StoragePool `json:"storage_pools,omitempty"`
}

// MemoryUsagePercent returns used memory as a percentage, or -1 when unknown
func (n *Node) MemoryUsagePercent() float64 {
	if n.MemoryUsed <= 0 || n.MemoryTotal <= 0 {
		return -1
	}
	return float64(n.MemoryUsed) / float64(n.MemoryTotal) * 100
}

// StoragePool represents a Proxmox storage pool on a node
type StoragePool struct {
	Name           string   `json:"name"`
	Node           string   `json:"node"`
	Type           string   `json:"type"`
	Content        []string `json:"content,omitempty"`
	TotalBytes     int64    `json:"total_bytes,omitempty"`
	UsedBytes      int64    `json:"used_bytes,omitempty"`
	AvailableBytes int64    `json:"available_bytes,omitempty"`
	Enabled        bool     `json:"enabled"`
	Shared         bool     `json:"shared"`
}

// UsagePercent returns used space as a percentage, or -1 when unknown
func (p *StoragePool) UsagePercent() float64 {
	if p.TotalBytes <= 0 || p.UsedBytes <= 0 {
		return -1
	}
	return float64(p.UsedBytes) / float64(p.TotalBytes) * 100
}

// FreePercent returns free space as a percentage, or -1 when unknown
func (p *StoragePool) FreePercent() float64 {
	usage := p.UsagePercent()
	if usage < 0 {
		return -1
	}
	return 100 - usage
}

// Backup is a single vzdump archive for a guest
type Backup struct {
	VMID       int    `json:"vmid"`
	Node       string `json:"node"`
	Storage    string `json:"storage"`
	Filename   string `json:"filename"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
	BackupTime int64  `json:"backup_time,omitempty"` // unix seconds, 0 when unknown
	Notes      string `json:"notes,omitempty"`
}

// BackupInfo aggregates backup state for a guest
type BackupInfo struct {
	VMID         int      `json:"vmid"`
	Backups      []Backup `json:"backups,omitempty"`
	ScheduledJob string   `json:"scheduled_job,omitempty"`
}

// LastBackup returns the most recent backup by timestamp.
// Backups without a timestamp sort as oldest.
func (b *BackupInfo) LastBackup() *Backup {
	if len(b.Backups) == 0 {
		return nil
	}
	latest := &b.Backups[0]
	for i := range b.Backups[1:] {
		if b.Backups[i+1].BackupTime > latest.BackupTime {
			latest = &b.Backups[i+1]
		}
	}
	return latest
}

// LastBackupAgeDays returns whole days since the newest backup relative to
// now, or -1 when no backup has a usable timestamp.
func (b *BackupInfo) LastBackupAgeDays(now time.Time) int {
	last := b.LastBackup()
	if last == nil || last.BackupTime == 0 {
		return -1
	}
	age := now.Unix() - last.BackupTime
	if age < 0 {
		return 0
	}
	return int(age / 86400)
}

// Snapshot is a point-in-time guest snapshot
type Snapshot struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SnapTime    int64  `json:"snaptime,omitempty"` // unix seconds
}

// NetworkInterface is a guest network device configuration
type NetworkInterface struct {
	Name       string `json:"name"` // net0, net1, ...
	Bridge     string `json:"bridge,omitempty"`
	MACAddress string `json:"mac_address,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	Gateway    string `json:"gateway,omitempty"`
	VLANTag    int    `json:"vlan_tag,omitempty"`
	Model      string `json:"model,omitempty"` // virtio, e1000, ...
}

// Cluster is the aggregate snapshot of one inventory fetch.
// It owns its child resources for the duration of a single run.
type Cluster struct {
	Name       string     `json:"name,omitempty"`
	Nodes      []Node     `json:"nodes"`
	VMs        []Resource `json:"vms"`
	Containers []Resource `json:"containers"`
	SyncedAt   time.Time  `json:"synced_at"`
}

// TotalVMs returns the VM count
func (c *Cluster) TotalVMs() int { return len(c.VMs) }

// TotalContainers returns the container count
func (c *Cluster) TotalContainers() int { return len(c.Containers) }

// RunningVMs counts VMs in running state
func (c *Cluster) RunningVMs() int {
	count := 0
	for i := range c.VMs {
		if c.VMs[i].Status == StatusRunning {
			count++
		}
	}
	return count
}

// RunningContainers counts containers in running state
func (c *Cluster) RunningContainers() int {
	count := 0
	for i := range c.Containers {
		if c.Containers[i].Status == StatusRunning {
			count++
		}
	}
	return count
}
