package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/tylwright/craft-docs-proxmox/alerts"
	"github.com/tylwright/craft-docs-proxmox/types"
)

// NotesPlaceholder is the default content of a fresh Notes section.
// Annotation preservation substitutes user text for this exact string.
const NotesPlaceholder = "*Add your notes, runbooks, and documentation here...*"

// noNotesPreserved marks a flagged-deleted entry that had no annotation
const noNotesPreserved = "*No notes were saved for this resource.*"

// Renderer produces the markdown for resource pages and sections
type Renderer struct {
	host       string
	port       int
	thresholds alerts.Thresholds
	evaluator  *alerts.Evaluator
	now        func() time.Time
}

// NewRenderer creates a renderer. Host and port feed the "Open in Proxmox"
// links; thresholds drive the age and storage indicators.
func NewRenderer(host string, port int, thresholds alerts.Thresholds) *Renderer {
	return &Renderer{
		host:       host,
		port:       port,
		thresholds: thresholds,
		evaluator:  alerts.NewEvaluator(thresholds),
		now:        time.Now,
	}
}

// WithClock pins the renderer's clock, for deterministic output in tests
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	r.now = now
	r.evaluator = alerts.NewEvaluatorAt(r.thresholds, now)
	return r
}

// AlertIndicator returns the prefix marking a resource's worst alert level
func AlertIndicator(res *types.Resource) string {
	if res.HasCritical() {
		return "🚨 "
	}
	if res.HasWarnings() {
		return "⚠️ "
	}
	return ""
}

// ResourceSummary renders the one-line entry used in section lists
func (r *Renderer) ResourceSummary(res *types.Resource) string {
	ipInfo := ""
	if len(res.IPAddresses) > 0 {
		ipInfo = " | " + res.IPAddresses[0]
	}
	label := "VMID"
	if res.Kind == types.KindContainer {
		label = "CTID"
	}
	return fmt.Sprintf("- %s %s (%s: %d)%s",
		StatusBadge(string(res.Status)), Bold(res.DisplayName()), label, res.VMID, ipInfo)
}

// ResourceDetail renders the full subpage for a guest. The second line
// carries the literal "VMID: n" / "CTID: n" marker the next sync scans for.
func (r *Renderer) ResourceDetail(res *types.Resource) string {
	lines := []string{
		Heading(AlertIndicator(res)+res.DisplayName(), 1),
		"",
		fmt.Sprintf("%s | %s | Node: %s", StatusBadge(string(res.Status)), res.Key().Marker(), res.Node),
		"",
		fmt.Sprintf("[Open in Proxmox](%s)", r.resourceURL(res)),
		"",
	}

	lines = appendSection(lines, r.alertsSection(res.Alerts))
	lines = appendSection(lines, r.specsSection(res))
	lines = appendSection(lines, r.networkSection(res))
	lines = appendSection(lines, r.backupSection(res.BackupInfo))
	lines = appendSection(lines, r.snapshotsSection(res))
	lines = appendSection(lines, r.tagsSection(res.Tags))
	lines = appendSection(lines, r.descriptionSection(res.Description))

	lines = append(lines, Heading("Notes", 2), NotesPlaceholder, "")
	return strings.Join(lines, "\n")
}

// DeletedResourcePage renders the page replacing a guest that vanished
// from the inventory. It states what disappeared, when the run noticed,
// and that any prior annotation survives below the flag.
func (r *Renderer) DeletedResourcePage(key types.ResourceKey, displayName, notes string) string {
	kindLabel, typeLabel, idLabel := "VM", "Virtual Machine", "VMID"
	if key.Kind == types.KindContainer {
		kindLabel, typeLabel, idLabel = "Container", "LXC Container", "CTID"
	}
	detectedAt := r.now().Format("2006-01-02 15:04:05")

	banner := fmt.Sprintf(`> **⚠️ RESOURCE NO LONGER EXISTS**
>
> This %s (ID: %d) was not found in Proxmox during the last sync on %s.
>
> It may have been deleted, migrated to another cluster, or the sync filters may have changed.
>
> **Your notes below have been preserved.** Review and archive this page when ready.`,
		kindLabel, key.VMID, detectedAt)

	lines := []string{
		Heading(fmt.Sprintf("⚠️ %s (Deleted)", displayName), 1),
		"",
		banner,
		"",
		HorizontalRule(),
		"",
		Heading("Original Resource Info", 2),
		fmt.Sprintf("- **Type:** %s", typeLabel),
		fmt.Sprintf("- **%s:** %d", idLabel, key.VMID),
		"- **Status:** Not found in Proxmox",
		"",
		Heading("Notes", 2),
	}
	if notes != "" {
		lines = append(lines, notes)
	} else {
		lines = append(lines, noNotesPreserved)
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// PreserveNotes substitutes a preserved annotation for the placeholder,
// verbatim and unmodified
func PreserveNotes(page, notes string) string {
	if notes == "" {
		return page
	}
	return strings.Replace(page, NotesPlaceholder, notes, 1)
}

func (r *Renderer) resourceURL(res *types.Resource) string {
	apiKind := "qemu"
	if res.Kind == types.KindContainer {
		apiKind = "lxc"
	}
	return fmt.Sprintf("https://%s:%d/#v1:0:=%s/%d:4", r.host, r.port, apiKind, res.VMID)
}

func (r *Renderer) alertsSection(resourceAlerts []types.Alert) []string {
	var items []string
	for _, a := range resourceAlerts {
		if a.Severity < types.SeverityWarning {
			continue
		}
		icon := "⚠️"
		if a.Severity == types.SeverityCritical {
			icon = "🚨"
		}
		items = append(items, fmt.Sprintf("- %s %s", icon, a.Message))
	}
	if len(items) == 0 {
		return nil
	}
	return append([]string{Bold("Alerts:")}, items...)
}

func (r *Renderer) specsSection(res *types.Resource) []string {
	var specs []string
	if res.CPUCores > 0 {
		specs = append(specs, fmt.Sprintf("**CPU:** %d cores", res.CPUCores))
	}
	if res.MemoryMB > 0 {
		specs = append(specs, "**Memory:** "+FormatMemory(res.MemoryMB))
	}
	if res.DiskGB > 0 {
		specs = append(specs, "**Disk:** "+FormatDisk(res.DiskGB))
	}
	if res.DiskInfo != "" {
		specs = append(specs, "**Storage:** "+res.DiskInfo)
	}
	if res.Hostname != "" {
		specs = append(specs, "**Hostname:** "+res.Hostname)
	}
	if res.OSType != "" {
		specs = append(specs, "**OS Type:** "+res.OSType)
	}
	if res.Uptime > 0 {
		specs = append(specs, "**Uptime:** "+FormatUptime(res.Uptime))
	}
	if len(specs) == 0 {
		return nil
	}
	return []string{Heading("Specifications", 2), BulletList(specs)}
}

func (r *Renderer) networkSection(res *types.Resource) []string {
	if len(res.IPAddresses) == 0 && len(res.Interfaces) == 0 {
		return nil
	}
	lines := []string{Heading("Network", 2)}
	if len(res.IPAddresses) > 0 {
		lines = append(lines, "**IP Addresses:** "+strings.Join(res.IPAddresses, ", "))
	}
	if len(res.Interfaces) > 0 {
		lines = append(lines, Bold("Network Interfaces:"))
		for _, iface := range res.Interfaces {
			lines = append(lines, "- "+formatInterface(iface))
		}
	}
	return lines
}

func formatInterface(iface types.NetworkInterface) string {
	parts := []string{Bold(iface.Name)}
	if iface.Bridge != "" {
		parts = append(parts, "Bridge: "+iface.Bridge)
	}
	if iface.IPAddress != "" {
		parts = append(parts, "IP: "+iface.IPAddress)
	}
	if iface.Gateway != "" {
		parts = append(parts, "GW: "+iface.Gateway)
	}
	if iface.VLANTag > 0 {
		parts = append(parts, fmt.Sprintf("VLAN: %d", iface.VLANTag))
	}
	if iface.MACAddress != "" {
		parts = append(parts, "MAC: "+iface.MACAddress)
	}
	if iface.Model != "" {
		parts = append(parts, "Model: "+iface.Model)
	}
	return strings.Join(parts, " | ")
}

func (r *Renderer) backupSection(info *types.BackupInfo) []string {
	if info == nil {
		return nil
	}
	lines := []string{Heading("Backups", 2)}

	last := info.LastBackup()
	if last == nil {
		lines = append(lines, "- 🚨 **No backups found**")
	} else {
		age := info.LastBackupAgeDays(r.now())
		ageStr, indicator := "", ""
		if age >= 0 {
			ageStr = fmt.Sprintf(" (%d days ago)", age)
			if age >= r.thresholds.BackupCriticalDays {
				indicator = " 🚨"
			} else if age >= r.thresholds.BackupWarningDays {
				indicator = " ⚠️"
			}
		}
		lines = append(lines, fmt.Sprintf("- **Last backup:** %s%s%s", FormatUnixTime(last.BackupTime), ageStr, indicator))
		if last.SizeBytes > 0 {
			lines = append(lines, "- **Size:** "+FormatBytes(last.SizeBytes))
		}
		if last.Storage != "" {
			lines = append(lines, "- **Storage:** "+last.Storage)
		}
	}

	if info.ScheduledJob != "" {
		lines = append(lines, fmt.Sprintf("- **Scheduled:** Yes (Job: %s)", info.ScheduledJob))
	} else {
		lines = append(lines, "- **Scheduled:** No")
	}
	lines = append(lines, fmt.Sprintf("- **Total backups:** %d", len(info.Backups)))
	return lines
}

func (r *Renderer) snapshotsSection(res *types.Resource) []string {
	if len(res.Snapshots) == 0 {
		return nil
	}
	lines := []string{
		Heading("Snapshots", 2),
		fmt.Sprintf("Total: %d", res.SnapshotCount()),
	}
	for _, snap := range res.Snapshots {
		if snap.Name == "current" {
			continue
		}
		desc := ""
		if snap.Description != "" {
			desc = " - " + snap.Description
		}
		lines = append(lines, fmt.Sprintf("- **%s** (%s)%s", snap.Name, FormatUnixTime(snap.SnapTime), desc))
	}
	return lines
}

func (r *Renderer) tagsSection(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	return []string{Heading("Tags", 2), strings.Join(tags, ", ")}
}

func (r *Renderer) descriptionSection(description string) []string {
	clean := StripHTML(description)
	if clean == "" {
		return nil
	}
	return []string{Heading("Description", 2), clean}
}

// appendSection appends a section plus a trailing blank line, skipping nils
func appendSection(lines, section []string) []string {
	if len(section) == 0 {
		return lines
	}
	lines = append(lines, section...)
	return append(lines, "")
}
