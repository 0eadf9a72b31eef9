// Package grouping partitions the current inventory into named buckets for
// structured presentation. Pure functions, deterministic ordering.
package grouping

import (
	"sort"
	"strings"

	"github.com/tylwright/craft-docs-proxmox/types"
)

// Mode selects the grouping strategy
type Mode string

const (
	ModeNode   Mode = "node"
	ModeTag    Mode = "tag"
	ModeStatus Mode = "status"
	ModeNone   Mode = "none"
)

// UntaggedLabel is the reserved bucket for resources without tags
const UntaggedLabel = "Untagged"

// statusOrder fixes bucket iteration for status grouping; statuses not
// listed sort after all listed ones.
var statusOrder = []string{"Running", "Stopped", "Paused", "Suspended", "Unknown"}

// ParseMode maps a config string to a Mode, defaulting to node grouping
func ParseMode(raw string) Mode {
	switch Mode(raw) {
	case ModeTag, ModeStatus, ModeNone:
		return Mode(raw)
	default:
		return ModeNode
	}
}

// Group is one presentation bucket. Resources are shared references into
// the cluster snapshot, not copies: tag grouping is a fan-out, so the same
// resource may appear in several groups.
type Group struct {
	Label      string
	VMs        []*types.Resource
	Containers []*types.Resource
}

// Empty reports whether the group holds no resources
func (g *Group) Empty() bool {
	return len(g.VMs) == 0 && len(g.Containers) == 0
}

// GroupCluster buckets the cluster's guests according to mode.
// Within every bucket, VMs and containers are independently sorted
// ascending by numeric id.
func GroupCluster(cluster *types.Cluster, mode Mode) []Group {
	var groups []Group
	switch mode {
	case ModeTag:
		groups = groupByTag(cluster)
	case ModeStatus:
		groups = groupByStatus(cluster)
	case ModeNone:
		groups = groupAll(cluster)
	default:
		groups = groupByNode(cluster)
	}

	for i := range groups {
		sortByVMID(groups[i].VMs)
		sortByVMID(groups[i].Containers)
	}
	return groups
}

// groupByNode buckets by hosting node in discovery order. Guests on nodes
// absent from the node list (a partially failed fetch) get trailing
// buckets in first-seen order rather than being dropped.
func groupByNode(cluster *types.Cluster) []Group {
	index := make(map[string]int)
	var groups []Group

	for i := range cluster.Nodes {
		name := cluster.Nodes[i].Name
		if _, ok := index[name]; ok {
			continue
		}
		index[name] = len(groups)
		groups = append(groups, Group{Label: name})
	}

	bucket := func(node string) int {
		if i, ok := index[node]; ok {
			return i
		}
		index[node] = len(groups)
		groups = append(groups, Group{Label: node})
		return index[node]
	}

	for i := range cluster.VMs {
		vm := &cluster.VMs[i]
		j := bucket(vm.Node)
		groups[j].VMs = append(groups[j].VMs, vm)
	}
	for i := range cluster.Containers {
		ct := &cluster.Containers[i]
		j := bucket(ct.Node)
		groups[j].Containers = append(groups[j].Containers, ct)
	}

	return groups
}

// groupByTag fans resources out into one bucket per tag; untagged guests
// land in the reserved Untagged bucket. Buckets iterate alphabetically
// (case-insensitive) with Untagged always last.
func groupByTag(cluster *types.Cluster) []Group {
	buckets := make(map[string]*Group)

	add := func(r *types.Resource, isVM bool) {
		tags := r.Tags
		if len(tags) == 0 {
			tags = []string{UntaggedLabel}
		}
		for _, tag := range tags {
			g, ok := buckets[tag]
			if !ok {
				g = &Group{Label: tag}
				buckets[tag] = g
			}
			if isVM {
				g.VMs = append(g.VMs, r)
			} else {
				g.Containers = append(g.Containers, r)
			}
		}
	}

	for i := range cluster.VMs {
		add(&cluster.VMs[i], true)
	}
	for i := range cluster.Containers {
		add(&cluster.Containers[i], false)
	}

	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		iUntagged, jUntagged := labels[i] == UntaggedLabel, labels[j] == UntaggedLabel
		if iUntagged != jUntagged {
			return jUntagged
		}
		return strings.ToLower(labels[i]) < strings.ToLower(labels[j])
	})

	groups := make([]Group, 0, len(labels))
	for _, label := range labels {
		groups = append(groups, *buckets[label])
	}
	return groups
}

// groupByStatus buckets by capitalized lifecycle status in fixed priority
// order; unlisted statuses sort after listed ones, alphabetically.
func groupByStatus(cluster *types.Cluster) []Group {
	buckets := make(map[string]*Group)

	add := func(r *types.Resource, isVM bool) {
		label := capitalize(string(r.Status))
		g, ok := buckets[label]
		if !ok {
			g = &Group{Label: label}
			buckets[label] = g
		}
		if isVM {
			g.VMs = append(g.VMs, r)
		} else {
			g.Containers = append(g.Containers, r)
		}
	}

	for i := range cluster.VMs {
		add(&cluster.VMs[i], true)
	}
	for i := range cluster.Containers {
		add(&cluster.Containers[i], false)
	}

	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		pi, pj := statusPriority(labels[i]), statusPriority(labels[j])
		if pi != pj {
			return pi < pj
		}
		return labels[i] < labels[j]
	})

	groups := make([]Group, 0, len(labels))
	for _, label := range labels {
		groups = append(groups, *buckets[label])
	}
	return groups
}

// groupAll puts everything in a single implicit bucket
func groupAll(cluster *types.Cluster) []Group {
	g := Group{}
	for i := range cluster.VMs {
		g.VMs = append(g.VMs, &cluster.VMs[i])
	}
	for i := range cluster.Containers {
		g.Containers = append(g.Containers, &cluster.Containers[i])
	}
	return []Group{g}
}

func statusPriority(label string) int {
	for i, s := range statusOrder {
		if s == label {
			return i
		}
	}
	return len(statusOrder)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sortByVMID(resources []*types.Resource) {
	sort.Slice(resources, func(i, j int) bool { return resources[i].VMID < resources[j].VMID })
}
