package render

import (
	"fmt"
	"strings"

	"github.com/tylwright/craft-docs-proxmox/grouping"
	"github.com/tylwright/craft-docs-proxmox/types"
)

// quickReferenceLimit caps the guest count for which the overview carries
// lookup tables. Beyond this the tables stop being quick.
const quickReferenceLimit = 30

// ClusterOverview renders the document header: sync timestamp, inventory
// counts, and a health summary when anything is alerting.
func (r *Renderer) ClusterOverview(cluster *types.Cluster) string {
	title := "Proxmox Cluster Overview"
	if cluster.Name != "" {
		title = cluster.Name + " Overview"
	}

	syncedAt := cluster.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = r.now()
	}

	lines := []string{
		Heading(title, 1),
		"",
		fmt.Sprintf("*Last synced: %s*", syncedAt.Format("2006-01-02 15:04:05")),
		"",
		Heading("Summary", 2),
		fmt.Sprintf("- **Nodes:** %d", len(cluster.Nodes)),
		fmt.Sprintf("- **Virtual Machines:** %d (%d running)", cluster.TotalVMs(), cluster.RunningVMs()),
		fmt.Sprintf("- **Containers:** %d (%d running)", cluster.TotalContainers(), cluster.RunningContainers()),
		"",
	}

	lines = appendSection(lines, r.healthSection(cluster))

	lines = append(lines,
		"Legend: 🟢 Running | 🔴 Stopped | 🟡 Paused | ⚪ Other | ⚠️ Warning | 🚨 Critical",
		"")
	return strings.Join(lines, "\n")
}

// healthSection summarizes alerting guests, omitted when everything is quiet
func (r *Renderer) healthSection(cluster *types.Cluster) []string {
	critical, warning := 0, 0
	count := func(resources []types.Resource) {
		for i := range resources {
			switch {
			case resources[i].HasCritical():
				critical++
			case resources[i].HasWarnings():
				warning++
			}
		}
	}
	count(cluster.VMs)
	count(cluster.Containers)

	if critical == 0 && warning == 0 {
		return nil
	}

	lines := []string{Heading("Health", 2)}
	if critical > 0 {
		lines = append(lines, fmt.Sprintf("- 🚨 **%d resource(s) with critical alerts**", critical))
	}
	if warning > 0 {
		lines = append(lines, fmt.Sprintf("- ⚠️ %d resource(s) with warnings", warning))
	}
	return lines
}

// NodeSection renders one cluster node with its storage pools
func (r *Renderer) NodeSection(node *types.Node) string {
	lines := []string{
		Heading("Node: "+node.Name, 2),
		fmt.Sprintf("- **Status:** %s", StatusBadge(node.Status)),
	}

	if node.CPUUsage > 0 {
		lines = append(lines, fmt.Sprintf("- **CPU:** %.1f%%", node.CPUUsage*100))
	}
	if pct := node.MemoryUsagePercent(); pct >= 0 {
		lines = append(lines, fmt.Sprintf("- **Memory:** %s / %s (%.1f%%)",
			FormatBytes(node.MemoryUsed), FormatBytes(node.MemoryTotal), pct))
	}
	if node.Uptime > 0 {
		lines = append(lines, "- **Uptime:** "+FormatUptime(node.Uptime))
	}

	if len(node.StoragePools) > 0 {
		lines = append(lines, "", Heading("Storage", 3))
		for i := range node.StoragePools {
			lines = append(lines, r.storagePoolLine(&node.StoragePools[i]))
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (r *Renderer) storagePoolLine(pool *types.StoragePool) string {
	usage := pool.UsagePercent()
	if usage < 0 {
		return fmt.Sprintf("- **%s** (%s)", pool.Name, pool.Type)
	}

	indicator := ""
	for _, a := range r.evaluator.EvaluateStorage(pool) {
		if a.Severity == types.SeverityCritical {
			indicator = " 🚨"
		} else if indicator == "" {
			indicator = " ⚠️"
		}
	}
	return fmt.Sprintf("- **%s** (%s): %s / %s used (%.1f%%)%s",
		pool.Name, pool.Type, FormatBytes(pool.UsedBytes), FormatBytes(pool.TotalBytes), usage, indicator)
}

// GroupSection renders one grouping bucket as a heading plus summary lines
func (r *Renderer) GroupSection(g *grouping.Group) string {
	var lines []string
	if g.Label != "" {
		lines = append(lines, Heading(g.Label, 2), "")
	}

	if len(g.VMs) > 0 {
		lines = append(lines, Heading("Virtual Machines", 3))
		for _, vm := range g.VMs {
			lines = append(lines, r.ResourceSummary(vm))
		}
		lines = append(lines, "")
	}
	if len(g.Containers) > 0 {
		lines = append(lines, Heading("Containers", 3))
		for _, ct := range g.Containers {
			lines = append(lines, r.ResourceSummary(ct))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// QuickReference renders lookup tables for small inventories. Returns ""
// when the guest count exceeds the limit.
func (r *Renderer) QuickReference(cluster *types.Cluster) string {
	total := cluster.TotalVMs() + cluster.TotalContainers()
	if total == 0 || total > quickReferenceLimit {
		return ""
	}

	lines := []string{Heading("Quick Reference", 2), ""}

	if len(cluster.VMs) > 0 {
		rows := make([][]string, 0, len(cluster.VMs))
		for i := range cluster.VMs {
			rows = append(rows, quickReferenceRow(&cluster.VMs[i]))
		}
		lines = append(lines,
			Heading("Virtual Machines", 3),
			Table([]string{"VMID", "Name", "Node", "Status", "IP"}, rows),
			"")
	}
	if len(cluster.Containers) > 0 {
		rows := make([][]string, 0, len(cluster.Containers))
		for i := range cluster.Containers {
			rows = append(rows, quickReferenceRow(&cluster.Containers[i]))
		}
		lines = append(lines,
			Heading("Containers", 3),
			Table([]string{"CTID", "Name", "Node", "Status", "IP"}, rows),
			"")
	}
	return strings.Join(lines, "\n")
}

func quickReferenceRow(res *types.Resource) []string {
	ip := "-"
	if len(res.IPAddresses) > 0 {
		ip = res.IPAddresses[0]
	}
	return []string{
		fmt.Sprintf("%d", res.VMID),
		AlertIndicator(res) + res.DisplayName(),
		res.Node,
		StatusBadge(string(res.Status)),
		ip,
	}
}
