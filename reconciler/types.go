package reconciler

import (
	"context"
	"time"

	"github.com/tylwright/craft-docs-proxmox/types"
)

// InventorySource fetches a fully materialized cluster snapshot.
// Reconciliation never starts against a partial or lazy inventory.
type InventorySource interface {
	FetchCluster(ctx context.Context, filter types.InventoryFilter) (*types.Cluster, error)
}

// PriorSource yields the prior-entry map to diff against
type PriorSource interface {
	Scan(ctx context.Context, documentID string) map[types.ResourceKey]types.PriorEntry
}

// NotesLoader reads the preserved annotation for one document entry.
// Loaded lazily, only for entries that survive into Update or FlagDeleted.
type NotesLoader interface {
	Notes(ctx context.Context, blockID string) string
}

// Comparator classifies resource keys by set membership between the
// current inventory and the prior document state
type Comparator interface {
	Compare(current *types.Cluster, prior map[types.ResourceKey]types.PriorEntry) []Diff
}

// DecisionMaker turns classified diffs into document decisions
type DecisionMaker interface {
	Decide(diffs []Diff) []types.Decision
}

// DiffType is the per-key state computed fresh each run
type DiffType string

const (
	DiffNew      DiffType = "new"      // current only
	DiffMatched  DiffType = "matched"  // in both
	DiffOrphaned DiffType = "orphaned" // prior only
)

// Diff pairs a resource key with whatever exists on each side
type Diff struct {
	Type    DiffType          `json:"type"`
	Key     types.ResourceKey `json:"key"`
	Current *types.Resource   `json:"current,omitempty"`
	Prior   *types.PriorEntry `json:"prior,omitempty"`
}

// Mode selects how the plan is applied to the document
type Mode string

const (
	// ModeIncremental applies per-resource decisions in place
	ModeIncremental Mode = "incremental"
	// ModeFullReplace clears the document and republishes everything.
	// Taken when no usable prior state exists; it also removes stale
	// content the incremental path cannot see.
	ModeFullReplace Mode = "full_replace"
)

// Plan is the outcome of one reconciliation pass
type Plan struct {
	Mode      Mode             `json:"mode"`
	Decisions []types.Decision `json:"decisions,omitempty"` // empty in full-replace mode
	Warnings  []string         `json:"warnings,omitempty"`
	PlannedAt time.Time        `json:"planned_at"`
}

// Counts tallies the plan's decisions by action
func (p *Plan) Counts() (creates, updates, flagged int) {
	for _, d := range p.Decisions {
		switch d.Action {
		case types.ActionCreate:
			creates++
		case types.ActionUpdate:
			updates++
		case types.ActionFlagDeleted:
			flagged++
		}
	}
	return creates, updates, flagged
}
