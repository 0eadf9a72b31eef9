// Package reconciler diffs the live inventory against the previously
// published document state and decides, per resource, whether to create,
// update in place, or flag as deleted.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tylwright/craft-docs-proxmox/types"
	"github.com/tylwright/craft-docs-proxmox/wal"
)

// observation is the WAL record for one inventory fetch
type observation struct {
	Nodes      int `json:"nodes"`
	VMs        int `json:"vms"`
	Containers int `json:"containers"`
	PriorKeys  int `json:"prior_keys"`
}

// Engine runs one reconciliation pass. It is single-threaded: rendering and
// deletion detection need the complete inventory and the complete prior map
// up front, so there is no streaming mode.
type Engine struct {
	comparator    Comparator
	decisionMaker DecisionMaker
	notes         NotesLoader
	wal           *wal.WAL
	logger        zerolog.Logger
}

// NewEngine wires the reconciliation pipeline
func NewEngine(comparator Comparator, decisionMaker DecisionMaker, notes NotesLoader, walInstance *wal.WAL, logger zerolog.Logger) *Engine {
	return &Engine{
		comparator:    comparator,
		decisionMaker: decisionMaker,
		notes:         notes,
		wal:           walInstance,
		logger:        logger,
	}
}

// Plan computes the decision set for one run. When the prior map is empty
// the plan switches to full-replace mode and carries no per-resource
// decisions: the caller clears the document and republishes everything,
// which also removes stale content the incremental path cannot see.
func (e *Engine) Plan(ctx context.Context, cluster *types.Cluster, prior map[types.ResourceKey]types.PriorEntry) (*Plan, error) {
	startedAt := time.Now()

	if err := e.logObservation(cluster, prior); err != nil {
		return nil, err
	}

	if len(prior) == 0 {
		e.logger.Info().Msg("no usable prior state, switching to full replace")
		return &Plan{Mode: ModeFullReplace, PlannedAt: startedAt}, nil
	}

	diffs := e.comparator.Compare(cluster, prior)
	e.loadNotes(ctx, diffs)

	plan := &Plan{Mode: ModeIncremental, PlannedAt: startedAt}
	for _, decision := range e.decisionMaker.Decide(diffs) {
		if err := decision.Validate(); err != nil {
			// Degrade: an unprocessable resource is dropped from the
			// plan with a warning, never a failed run.
			warning := fmt.Sprintf("skipping %s: %v", decision.Key, err)
			plan.Warnings = append(plan.Warnings, warning)
			e.logger.Warn().Str("key", decision.Key.String()).Err(err).
				Msg("dropping unprocessable decision")
			continue
		}
		plan.Decisions = append(plan.Decisions, decision)
	}

	if err := e.logDecisions(plan.Decisions); err != nil {
		return nil, err
	}

	creates, updates, flagged := plan.Counts()
	e.logger.Info().
		Int("creates", creates).
		Int("updates", updates).
		Int("flagged_deleted", flagged).
		Dur("duration", time.Since(startedAt)).
		Msg("reconciliation planned")

	return plan, nil
}

// loadNotes fills annotations for entries that survive into Update or
// FlagDeleted. Create diffs have no prior entry, so nothing is read.
func (e *Engine) loadNotes(ctx context.Context, diffs []Diff) {
	if e.notes == nil {
		return
	}
	for i := range diffs {
		prior := diffs[i].Prior
		if prior == nil || prior.BlockID == "" || prior.Notes != "" {
			continue
		}
		prior.Notes = e.notes.Notes(ctx, prior.BlockID)
	}
}

func (e *Engine) logObservation(cluster *types.Cluster, prior map[types.ResourceKey]types.PriorEntry) error {
	if e.wal == nil {
		return nil
	}
	data := observation{
		Nodes:      len(cluster.Nodes),
		VMs:        len(cluster.VMs),
		Containers: len(cluster.Containers),
		PriorKeys:  len(prior),
	}
	if err := e.wal.Append(wal.EntryObserved, "", data); err != nil {
		return fmt.Errorf("failed to log observation: %w", err)
	}
	return nil
}

func (e *Engine) logDecisions(decisions []types.Decision) error {
	if e.wal == nil {
		return nil
	}
	for _, decision := range decisions {
		if err := e.wal.Append(wal.EntryPlanned, decision.Key.String(), decision); err != nil {
			return fmt.Errorf("failed to log decision: %w", err)
		}
	}
	return nil
}
