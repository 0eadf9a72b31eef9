package reconciler

import (
	"sort"

	"github.com/tylwright/craft-docs-proxmox/types"
)

// SetComparator computes per-key membership between the current inventory
// and the prior document state. Each run is a fresh full diff; nothing is
// maintained between runs.
type SetComparator struct{}

// NewSetComparator creates a comparator
func NewSetComparator() *SetComparator {
	return &SetComparator{}
}

// Compare emits one diff per distinct resource key in deterministic order:
// current VMs ascending by id, then current containers ascending by id,
// then orphaned prior entries (VMs before containers, ascending by id).
func (c *SetComparator) Compare(current *types.Cluster, prior map[types.ResourceKey]types.PriorEntry) []Diff {
	diffs := make([]Diff, 0, len(current.VMs)+len(current.Containers)+len(prior))
	seen := make(map[types.ResourceKey]bool)

	diffs = appendCurrentDiffs(diffs, seen, current.VMs, prior)
	diffs = appendCurrentDiffs(diffs, seen, current.Containers, prior)
	diffs = appendOrphanDiffs(diffs, seen, prior)

	return diffs
}

func appendCurrentDiffs(diffs []Diff, seen map[types.ResourceKey]bool, resources []types.Resource, prior map[types.ResourceKey]types.PriorEntry) []Diff {
	ordered := make([]*types.Resource, 0, len(resources))
	for i := range resources {
		ordered = append(ordered, &resources[i])
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].VMID < ordered[j].VMID })

	for _, r := range ordered {
		key := r.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		if entry, ok := prior[key]; ok {
			entryCopy := entry
			diffs = append(diffs, Diff{Type: DiffMatched, Key: key, Current: r, Prior: &entryCopy})
		} else {
			diffs = append(diffs, Diff{Type: DiffNew, Key: key, Current: r})
		}
	}
	return diffs
}

func appendOrphanDiffs(diffs []Diff, seen map[types.ResourceKey]bool, prior map[types.ResourceKey]types.PriorEntry) []Diff {
	orphans := make([]types.ResourceKey, 0, len(prior))
	for key := range prior {
		if !seen[key] {
			orphans = append(orphans, key)
		}
	}
	// Orphans keep the VMs-then-containers grouping used everywhere else,
	// not a plain id sort across both kinds. Ordering only needs to be
	// deterministic; nothing downstream depends on which kind goes first.
	sort.Slice(orphans, func(i, j int) bool {
		if orphans[i].Kind != orphans[j].Kind {
			return orphans[i].Kind == types.KindVM
		}
		return orphans[i].VMID < orphans[j].VMID
	})

	for _, key := range orphans {
		entry := prior[key]
		diffs = append(diffs, Diff{Type: DiffOrphaned, Key: key, Prior: &entry})
	}
	return diffs
}
