package render

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tylwright/craft-docs-proxmox/alerts"
	"github.com/tylwright/craft-docs-proxmox/grouping"
	"github.com/tylwright/craft-docs-proxmox/types"
)

func fixedNow() time.Time {
	return time.Unix(1_700_000_000, 0)
}

func testRenderer() *Renderer {
	return NewRenderer("pve.example.com", 8006, alerts.DefaultThresholds()).WithClock(fixedNow)
}

func TestResourceDetailCarriesMarker(t *testing.T) {
	r := testRenderer()
	vm := &types.Resource{VMID: 100, Kind: types.KindVM, Name: "web-01", Node: "pve1", Status: types.StatusRunning}

	page := r.ResourceDetail(vm)

	assert.Contains(t, page, "# web-01")
	assert.Contains(t, page, "VMID: 100")
	assert.Contains(t, page, "Node: pve1")
	assert.Contains(t, page, "🟢 Running")
	assert.Contains(t, page, NotesPlaceholder)
	assert.Contains(t, page, "https://pve.example.com:8006/#v1:0:=qemu/100:4")
}

func TestResourceDetailContainerMarker(t *testing.T) {
	r := testRenderer()
	ct := &types.Resource{VMID: 200, Kind: types.KindContainer, Hostname: "cache", Node: "pve2", Status: types.StatusStopped}

	page := r.ResourceDetail(ct)

	assert.Contains(t, page, "CTID: 200")
	assert.NotContains(t, page, "VMID:")
	assert.Contains(t, page, "# cache")
	assert.Contains(t, page, "=lxc/200:4")
}

func TestResourceDetailAlertSections(t *testing.T) {
	r := testRenderer()
	vm := &types.Resource{
		VMID: 100, Kind: types.KindVM, Name: "hot", Node: "pve1", Status: types.StatusRunning,
		Alerts: []types.Alert{
			{Type: types.AlertHighCPU, Severity: types.SeverityCritical, Message: "CPU usage critical: 97.0%"},
			{Type: types.AlertOldBackup, Severity: types.SeverityWarning, Message: "Last backup 9 days ago"},
			{Type: types.AlertStopped, Severity: types.SeverityInfo, Message: "Resource is stopped"},
		},
	}

	page := r.ResourceDetail(vm)

	assert.Contains(t, page, "# 🚨 hot")
	assert.Contains(t, page, "- 🚨 CPU usage critical: 97.0%")
	assert.Contains(t, page, "- ⚠️ Last backup 9 days ago")
	assert.NotContains(t, page, "Resource is stopped", "info alerts stay off the page")
}

func TestResourceDetailBackupSection(t *testing.T) {
	r := testRenderer()
	backupTime := fixedNow().Add(-10 * 24 * time.Hour).Unix()
	vm := &types.Resource{
		VMID: 100, Kind: types.KindVM, Name: "db", Node: "pve1", Status: types.StatusRunning,
		BackupInfo: &types.BackupInfo{
			VMID:         100,
			Backups:      []types.Backup{{VMID: 100, Storage: "local", SizeBytes: 2 << 30, BackupTime: backupTime}},
			ScheduledJob: "backup-daily",
		},
	}

	page := r.ResourceDetail(vm)

	assert.Contains(t, page, "(10 days ago) ⚠️")
	assert.Contains(t, page, "**Scheduled:** Yes (Job: backup-daily)")
	assert.Contains(t, page, "**Total backups:** 1")
}

func TestResourceDetailNoBackups(t *testing.T) {
	r := testRenderer()
	vm := &types.Resource{
		VMID: 100, Kind: types.KindVM, Name: "db", Node: "pve1", Status: types.StatusRunning,
		BackupInfo: &types.BackupInfo{VMID: 100},
	}

	page := r.ResourceDetail(vm)
	assert.Contains(t, page, "🚨 **No backups found**")
	assert.Contains(t, page, "**Scheduled:** No")
}

func TestPreserveNotes(t *testing.T) {
	r := testRenderer()
	vm := &types.Resource{VMID: 100, Kind: types.KindVM, Name: "web", Node: "pve1", Status: types.StatusRunning}
	page := r.ResourceDetail(vm)

	notes := "Backups run nightly.\nDo **not** resize the disk."
	got := PreserveNotes(page, notes)

	assert.NotContains(t, got, NotesPlaceholder)
	assert.Contains(t, got, notes, "annotation carried verbatim")

	assert.Equal(t, page, PreserveNotes(page, ""), "empty annotation keeps the placeholder")
}

func TestDeletedResourcePage(t *testing.T) {
	r := testRenderer()
	key := types.ResourceKey{Kind: types.KindVM, VMID: 999}

	page := r.DeletedResourcePage(key, "legacy-app", "decommissioned Q3, keep for audit")

	assert.Contains(t, page, "# ⚠️ legacy-app (Deleted)")
	assert.Contains(t, page, "RESOURCE NO LONGER EXISTS")
	assert.Contains(t, page, "This VM (ID: 999) was not found in Proxmox")
	assert.Contains(t, page, fixedNow().Format("2006-01-02 15:04:05"))
	assert.Contains(t, page, "**VMID:** 999")
	assert.Contains(t, page, "decommissioned Q3, keep for audit")
}

func TestDeletedResourcePageContainerWithoutNotes(t *testing.T) {
	r := testRenderer()
	key := types.ResourceKey{Kind: types.KindContainer, VMID: 201}

	page := r.DeletedResourcePage(key, "CT-201", "")

	assert.Contains(t, page, "This Container (ID: 201)")
	assert.Contains(t, page, "**Type:** LXC Container")
	assert.Contains(t, page, "**CTID:** 201")
	assert.Contains(t, page, noNotesPreserved)
}

func TestResourceSummary(t *testing.T) {
	r := testRenderer()
	vm := &types.Resource{VMID: 100, Kind: types.KindVM, Name: "web", Status: types.StatusRunning, IPAddresses: []string{"10.0.0.5"}}
	ct := &types.Resource{VMID: 200, Kind: types.KindContainer, Name: "cache", Status: types.StatusStopped}

	assert.Equal(t, "- 🟢 Running **web** (VMID: 100) | 10.0.0.5", r.ResourceSummary(vm))
	assert.Equal(t, "- 🔴 Stopped **cache** (CTID: 200)", r.ResourceSummary(ct))
}

func TestClusterOverview(t *testing.T) {
	r := testRenderer()
	cluster := &types.Cluster{
		Nodes: []types.Node{{Name: "pve1"}, {Name: "pve2"}},
		VMs: []types.Resource{
			{VMID: 100, Kind: types.KindVM, Status: types.StatusRunning,
				Alerts: []types.Alert{{Severity: types.SeverityCritical}}},
			{VMID: 101, Kind: types.KindVM, Status: types.StatusStopped},
		},
		Containers: []types.Resource{
			{VMID: 200, Kind: types.KindContainer, Status: types.StatusRunning,
				Alerts: []types.Alert{{Severity: types.SeverityWarning}}},
		},
		SyncedAt: fixedNow(),
	}

	page := r.ClusterOverview(cluster)

	assert.Contains(t, page, "# Proxmox Cluster Overview")
	assert.Contains(t, page, "*Last synced: "+fixedNow().Format("2006-01-02 15:04:05")+"*")
	assert.Contains(t, page, "**Nodes:** 2")
	assert.Contains(t, page, "**Virtual Machines:** 2 (1 running)")
	assert.Contains(t, page, "**Containers:** 1 (1 running)")
	assert.Contains(t, page, "🚨 **1 resource(s) with critical alerts**")
	assert.Contains(t, page, "⚠️ 1 resource(s) with warnings")
}

func TestClusterOverviewQuietHealth(t *testing.T) {
	r := testRenderer()
	cluster := &types.Cluster{SyncedAt: fixedNow()}

	page := r.ClusterOverview(cluster)
	assert.NotContains(t, page, "## Health")
}

func TestNodeSection(t *testing.T) {
	r := testRenderer()
	node := &types.Node{
		Name:        "pve1",
		Status:      "running",
		CPUUsage:    0.42,
		MemoryUsed:  48 << 30,
		MemoryTotal: 64 << 30,
		Uptime:      90061,
		StoragePools: []types.StoragePool{
			{Name: "local-zfs", Type: "zfspool", TotalBytes: 1000, UsedBytes: 950},
			{Name: "nfs-backup", Type: "nfs", TotalBytes: 1000, UsedBytes: 100},
		},
	}

	section := r.NodeSection(node)

	assert.Contains(t, section, "## Node: pve1")
	assert.Contains(t, section, "**CPU:** 42.0%")
	assert.Contains(t, section, "(75.0%)")
	assert.Contains(t, section, "**Uptime:** 1d 1h 1m")
	assert.Contains(t, section, "**local-zfs** (zfspool)")
	assert.Contains(t, section, "(95.0%) 🚨", "5% free is critical")
	assert.True(t, strings.Contains(section, "(10.0%)") && !strings.Contains(section, "(10.0%) ⚠️"),
		"90% free pool carries no indicator")
}

func TestGroupSection(t *testing.T) {
	r := testRenderer()
	vm := types.Resource{VMID: 100, Kind: types.KindVM, Name: "web", Status: types.StatusRunning}
	ct := types.Resource{VMID: 200, Kind: types.KindContainer, Name: "cache", Status: types.StatusRunning}
	g := &grouping.Group{Label: "pve1", VMs: []*types.Resource{&vm}, Containers: []*types.Resource{&ct}}

	section := r.GroupSection(g)

	assert.Contains(t, section, "## pve1")
	assert.Contains(t, section, "### Virtual Machines")
	assert.Contains(t, section, "**web** (VMID: 100)")
	assert.Contains(t, section, "### Containers")
	assert.Contains(t, section, "**cache** (CTID: 200)")
}

func TestQuickReferenceLimit(t *testing.T) {
	r := testRenderer()

	small := &types.Cluster{VMs: []types.Resource{{VMID: 100, Kind: types.KindVM, Name: "web", Node: "pve1", Status: types.StatusRunning}}}
	got := r.QuickReference(small)
	require.Contains(t, got, "## Quick Reference")
	assert.Contains(t, got, "| VMID | Name | Node | Status | IP |")
	assert.Contains(t, got, "| 100 | web | pve1 | 🟢 Running | - |")

	big := &types.Cluster{}
	for i := 0; i < quickReferenceLimit+1; i++ {
		big.VMs = append(big.VMs, types.Resource{VMID: 100 + i, Kind: types.KindVM, Name: fmt.Sprintf("vm-%d", i)})
	}
	assert.Empty(t, r.QuickReference(big))
	assert.Empty(t, r.QuickReference(&types.Cluster{}))
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "hello world", StripHTML("<p>hello <b>world</b></p>"))
	assert.Equal(t, "plain", StripHTML("plain"))
	assert.Equal(t, "", StripHTML(""))
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "Unknown", FormatUptime(0))
	assert.Equal(t, "5m", FormatUptime(300))
	assert.Equal(t, "2h 5m", FormatUptime(7500))
	assert.Equal(t, "3d 4h 12m", FormatUptime(3*86400+4*3600+12*60))
}

func TestFormatSizes(t *testing.T) {
	assert.Equal(t, "512 MB", FormatMemory(512))
	assert.Equal(t, "8.0 GB", FormatMemory(8192))
	assert.Equal(t, "100 GB", FormatDisk(100))
	assert.Equal(t, "2.0 TB", FormatDisk(2048))
	assert.Equal(t, "1.5 GB", FormatBytes(3<<29))
	assert.Equal(t, "Unknown", FormatBytes(0))
}

func TestStatusBadge(t *testing.T) {
	assert.Equal(t, "🟢 Running", StatusBadge("running"))
	assert.Equal(t, "🔴 Stopped", StatusBadge("stopped"))
	assert.Equal(t, "⚪ Weird", StatusBadge("weird"))
	assert.Equal(t, "⚪ Unknown", StatusBadge(""))
}
