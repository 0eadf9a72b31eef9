// Package proxmox fetches cluster inventory over the Proxmox VE HTTP API.
//
// One FetchCluster call materializes the complete snapshot: nodes, guests,
// and optional storage and backup enrichment. Listing failures abort the
// fetch; per-guest enrichment failures are logged and skipped so one dead
// guest agent cannot sink a whole run.
package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tylwright/craft-docs-proxmox/types"
)

// Config holds connection settings and enrichment switches
type Config struct {
	Host        string
	Port        int
	TokenID     string // user@realm!tokenname
	TokenSecret string
	VerifyTLS   bool
	Timeout     time.Duration

	IncludeStorage   bool
	IncludeBackups   bool
	IncludeSnapshots bool
}

// Client talks to one Proxmox cluster
type Client struct {
	cfg    Config
	http   *http.Client
	base   string
	logger zerolog.Logger
}

// NewClient creates a Proxmox API client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Port == 0 {
		cfg.Port = 8006
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := http.DefaultTransport
	if !cfg.VerifyTLS {
		// Homelab clusters run self-signed certs almost universally
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout, Transport: transport},
		base:   fmt.Sprintf("https://%s:%d/api2/json", cfg.Host, cfg.Port),
		logger: logger.With().Str("component", "proxmox").Logger(),
	}
}

// BaseURL returns the API root, mostly useful in tests
func (c *Client) BaseURL() string { return c.base }

// apiResponse is the envelope every Proxmox endpoint wraps its payload in
type apiResponse struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("PVEAPIToken=%s=%s", c.cfg.TokenID, c.cfg.TokenSecret))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decoding %s envelope: %w", path, err)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decoding %s data: %w", path, err)
		}
	}
	return nil
}

// FetchCluster materializes the full inventory snapshot. Node and guest
// listings are mandatory; everything else degrades gracefully.
func (c *Client) FetchCluster(ctx context.Context, filter types.InventoryFilter) (*types.Cluster, error) {
	cluster := &types.Cluster{SyncedAt: time.Now()}
	cluster.Name = c.fetchClusterName(ctx)

	nodes, err := c.fetchNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}

	var jobs map[int]string
	if c.cfg.IncludeBackups {
		jobs = c.fetchBackupJobs(ctx)
	}

	for i := range nodes {
		node := &nodes[i]
		if filter.Node != "" && node.Name != filter.Node {
			continue
		}

		if c.cfg.IncludeStorage {
			node.StoragePools = c.fetchStoragePools(ctx, node.Name)
		}

		vms, err := c.fetchGuests(ctx, node.Name, types.KindVM, filter)
		if err != nil {
			return nil, fmt.Errorf("listing VMs on %s: %w", node.Name, err)
		}
		cts, err := c.fetchGuests(ctx, node.Name, types.KindContainer, filter)
		if err != nil {
			return nil, fmt.Errorf("listing containers on %s: %w", node.Name, err)
		}

		var backups map[int][]types.Backup
		if c.cfg.IncludeBackups {
			backups = c.fetchBackups(ctx, node.Name, node.StoragePools)
		}

		for j := range vms {
			c.enrichGuest(ctx, &vms[j])
			attachBackupInfo(&vms[j], backups, jobs)
		}
		for j := range cts {
			c.enrichGuest(ctx, &cts[j])
			attachBackupInfo(&cts[j], backups, jobs)
		}

		cluster.Nodes = append(cluster.Nodes, *node)
		cluster.VMs = append(cluster.VMs, vms...)
		cluster.Containers = append(cluster.Containers, cts...)
	}

	c.logger.Info().
		Int("nodes", len(cluster.Nodes)).
		Int("vms", len(cluster.VMs)).
		Int("containers", len(cluster.Containers)).
		Msg("fetched cluster inventory")
	return cluster, nil
}

type rawClusterStatus struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func (c *Client) fetchClusterName(ctx context.Context) string {
	var entries []rawClusterStatus
	if err := c.get(ctx, "/cluster/status", &entries); err != nil {
		c.logger.Debug().Err(err).Msg("cluster status unavailable, standalone node assumed")
		return ""
	}
	for _, e := range entries {
		if e.Type == "cluster" {
			return e.Name
		}
	}
	return ""
}

type rawNode struct {
	Node   string  `json:"node"`
	Status string  `json:"status"`
	CPU    float64 `json:"cpu"`
	Mem    int64   `json:"mem"`
	MaxMem int64   `json:"maxmem"`
	Uptime int64   `json:"uptime"`
}

func (c *Client) fetchNodes(ctx context.Context) ([]types.Node, error) {
	var raw []rawNode
	if err := c.get(ctx, "/nodes", &raw); err != nil {
		return nil, err
	}

	nodes := make([]types.Node, 0, len(raw))
	for _, n := range raw {
		nodes = append(nodes, types.Node{
			Name:        n.Node,
			Status:      n.Status,
			CPUUsage:    n.CPU,
			MemoryUsed:  n.Mem,
			MemoryTotal: n.MaxMem,
			Uptime:      n.Uptime,
		})
	}
	return nodes, nil
}

type rawGuest struct {
	VMID     int     `json:"vmid"`
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	CPUs     float64 `json:"cpus"`
	MaxMem   int64   `json:"maxmem"`
	MaxDisk  int64   `json:"maxdisk"`
	CPU      float64 `json:"cpu"`
	Mem      int64   `json:"mem"`
	Uptime   int64   `json:"uptime"`
	Tags     string  `json:"tags"`
	Template int     `json:"template"`
}

func (c *Client) fetchGuests(ctx context.Context, node string, kind types.Kind, filter types.InventoryFilter) ([]types.Resource, error) {
	endpoint := "qemu"
	if kind == types.KindContainer {
		endpoint = "lxc"
	}

	var raw []rawGuest
	if err := c.get(ctx, fmt.Sprintf("/nodes/%s/%s", node, endpoint), &raw); err != nil {
		return nil, err
	}

	var guests []types.Resource
	for _, g := range raw {
		res := types.Resource{
			VMID:     g.VMID,
			Kind:     kind,
			Name:     g.Name,
			Node:     node,
			Status:   types.ParseStatus(g.Status),
			CPUCores: int(g.CPUs),
			MemoryMB: g.MaxMem / (1 << 20),
			DiskGB:   float64(g.MaxDisk) / (1 << 30),
			CPUUsage: g.CPU,
			Uptime:   g.Uptime,
			Tags:     ParseTags(g.Tags),
			Template: g.Template == 1,
		}
		if g.MaxMem > 0 {
			res.MemoryUsage = float64(g.Mem) / float64(g.MaxMem)
		}
		if filter.Matches(&res) {
			guests = append(guests, res)
		}
	}
	return guests, nil
}

// enrichGuest layers config, snapshot, and network detail onto a listed
// guest. Every step is best-effort.
func (c *Client) enrichGuest(ctx context.Context, res *types.Resource) {
	c.enrichConfig(ctx, res)
	if c.cfg.IncludeSnapshots {
		c.enrichSnapshots(ctx, res)
	}
	if res.Status == types.StatusRunning {
		c.enrichAddresses(ctx, res)
	}
}

func (c *Client) enrichConfig(ctx context.Context, res *types.Resource) {
	var cfg map[string]any
	if err := c.get(ctx, c.guestPath(res)+"/config", &cfg); err != nil {
		c.logger.Warn().Err(err).Str("resource", res.Key().String()).Msg("config fetch failed")
		return
	}

	res.Description, _ = cfg["description"].(string)
	res.OSType, _ = cfg["ostype"].(string)
	if res.Kind == types.KindContainer {
		res.Hostname, _ = cfg["hostname"].(string)
	}
	res.Interfaces = parseInterfaces(cfg)
	if info := parseDiskInfo(cfg, res.Kind); info != "" {
		res.DiskInfo = info
	}
}

type rawSnapshot struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SnapTime    int64  `json:"snaptime"`
}

func (c *Client) enrichSnapshots(ctx context.Context, res *types.Resource) {
	var raw []rawSnapshot
	if err := c.get(ctx, c.guestPath(res)+"/snapshot", &raw); err != nil {
		c.logger.Warn().Err(err).Str("resource", res.Key().String()).Msg("snapshot fetch failed")
		return
	}
	for _, s := range raw {
		res.Snapshots = append(res.Snapshots, types.Snapshot{
			Name:        s.Name,
			Description: s.Description,
			SnapTime:    s.SnapTime,
		})
	}
}

// agent network-get-interfaces payload for QEMU guests
type rawAgentInterfaces struct {
	Result []struct {
		Name        string `json:"name"`
		IPAddresses []struct {
			Address string `json:"ip-address"`
			Type    string `json:"ip-address-type"`
		} `json:"ip-addresses"`
	} `json:"result"`
}

// lxc interface listing, available on PVE 7.4+
type rawLXCInterface struct {
	Name string `json:"name"`
	Inet string `json:"inet"` // CIDR notation
}

func (c *Client) enrichAddresses(ctx context.Context, res *types.Resource) {
	if res.Kind == types.KindVM {
		var agent rawAgentInterfaces
		if err := c.get(ctx, c.guestPath(res)+"/agent/network-get-interfaces", &agent); err != nil {
			c.logger.Debug().Err(err).Str("resource", res.Key().String()).Msg("guest agent unavailable")
			return
		}
		for _, iface := range agent.Result {
			for _, addr := range iface.IPAddresses {
				if addr.Type == "ipv4" && UsableIP(addr.Address) {
					res.IPAddresses = append(res.IPAddresses, addr.Address)
				}
			}
		}
		return
	}

	var ifaces []rawLXCInterface
	if err := c.get(ctx, c.guestPath(res)+"/interfaces", &ifaces); err != nil {
		c.logger.Debug().Err(err).Str("resource", res.Key().String()).Msg("container interfaces unavailable")
		return
	}
	for _, iface := range ifaces {
		ip := strings.SplitN(iface.Inet, "/", 2)[0]
		if UsableIP(ip) {
			res.IPAddresses = append(res.IPAddresses, ip)
		}
	}
}

func (c *Client) guestPath(res *types.Resource) string {
	endpoint := "qemu"
	if res.Kind == types.KindContainer {
		endpoint = "lxc"
	}
	return fmt.Sprintf("/nodes/%s/%s/%d", res.Node, endpoint, res.VMID)
}

type rawStorage struct {
	Storage string `json:"storage"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Total   int64  `json:"total"`
	Used    int64  `json:"used"`
	Avail   int64  `json:"avail"`
	Enabled int    `json:"enabled"`
	Shared  int    `json:"shared"`
	Active  int    `json:"active"`
}

func (c *Client) fetchStoragePools(ctx context.Context, node string) []types.StoragePool {
	var raw []rawStorage
	if err := c.get(ctx, fmt.Sprintf("/nodes/%s/storage", node), &raw); err != nil {
		c.logger.Warn().Err(err).Str("node", node).Msg("storage listing failed")
		return nil
	}

	pools := make([]types.StoragePool, 0, len(raw))
	for _, s := range raw {
		pools = append(pools, types.StoragePool{
			Name:           s.Storage,
			Node:           node,
			Type:           s.Type,
			Content:        splitList(s.Content, ","),
			TotalBytes:     s.Total,
			UsedBytes:      s.Used,
			AvailableBytes: s.Avail,
			Enabled:        s.Enabled == 1,
			Shared:         s.Shared == 1,
		})
	}
	return pools
}

type rawBackupVolume struct {
	VolID string `json:"volid"`
	Size  int64  `json:"size"`
	CTime int64  `json:"ctime"`
	VMID  int    `json:"vmid"`
	Notes string `json:"notes"`
}

// fetchBackups lists vzdump archives on every backup-capable pool of a node
func (c *Client) fetchBackups(ctx context.Context, node string, pools []types.StoragePool) map[int][]types.Backup {
	out := make(map[int][]types.Backup)
	for i := range pools {
		pool := &pools[i]
		if !poolHoldsBackups(pool) {
			continue
		}

		var raw []rawBackupVolume
		path := fmt.Sprintf("/nodes/%s/storage/%s/content?content=backup", node, url.PathEscape(pool.Name))
		if err := c.get(ctx, path, &raw); err != nil {
			c.logger.Warn().Err(err).Str("storage", pool.Name).Msg("backup listing failed")
			continue
		}

		for _, v := range raw {
			out[v.VMID] = append(out[v.VMID], types.Backup{
				VMID:       v.VMID,
				Node:       node,
				Storage:    pool.Name,
				Filename:   v.VolID,
				SizeBytes:  v.Size,
				BackupTime: v.CTime,
				Notes:      v.Notes,
			})
		}
	}
	return out
}

func poolHoldsBackups(pool *types.StoragePool) bool {
	for _, content := range pool.Content {
		if content == "backup" {
			return true
		}
	}
	return false
}

type rawBackupJob struct {
	ID      string `json:"id"`
	Enabled int    `json:"enabled"`
	All     int    `json:"all"`
	VMIDs   string `json:"vmid"` // comma separated
}

// fetchBackupJobs maps guest ids to the scheduled vzdump job covering them
func (c *Client) fetchBackupJobs(ctx context.Context) map[int]string {
	var raw []rawBackupJob
	if err := c.get(ctx, "/cluster/backup", &raw); err != nil {
		c.logger.Warn().Err(err).Msg("backup job listing failed")
		return nil
	}

	jobs := make(map[int]string)
	for _, job := range raw {
		if job.Enabled != 1 {
			continue
		}
		if job.All == 1 {
			jobs[allGuestsJobKey] = job.ID
			continue
		}
		for _, field := range strings.Split(job.VMIDs, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				continue
			}
			jobs[id] = job.ID
		}
	}
	return jobs
}

// allGuestsJobKey marks a vzdump job with the all flag set. Guest ids are
// always positive, so the sentinel cannot collide.
const allGuestsJobKey = -1

func attachBackupInfo(res *types.Resource, backups map[int][]types.Backup, jobs map[int]string) {
	if backups == nil && jobs == nil {
		return
	}
	info := &types.BackupInfo{VMID: res.VMID, Backups: backups[res.VMID]}
	if job, ok := jobs[res.VMID]; ok {
		info.ScheduledJob = job
	} else if job, ok := jobs[allGuestsJobKey]; ok {
		info.ScheduledJob = job
	}
	res.BackupInfo = info
}
