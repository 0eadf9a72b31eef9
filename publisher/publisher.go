// Package publisher applies a reconciliation plan to the document store.
//
// Incremental plans touch only the blocks their decisions name. Full
// replace clears the document and republishes the whole inventory. Either
// way, one stubborn block never aborts the pass: operations fail
// individually and the pass only counts as failed when nothing landed.
package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tylwright/craft-docs-proxmox/grouping"
	"github.com/tylwright/craft-docs-proxmox/providers/craft"
	"github.com/tylwright/craft-docs-proxmox/reconciler"
	"github.com/tylwright/craft-docs-proxmox/render"
	"github.com/tylwright/craft-docs-proxmox/types"
	"github.com/tylwright/craft-docs-proxmox/wal"
)

// Publisher writes rendered markdown into the target document
type Publisher struct {
	store    DocumentStore
	renderer *render.Renderer
	wal      *wal.WAL
	opts     Options
	logger   zerolog.Logger
}

// NewPublisher creates a publisher
func NewPublisher(store DocumentStore, renderer *render.Renderer, w *wal.WAL, opts Options, logger zerolog.Logger) *Publisher {
	return &Publisher{
		store:    store,
		renderer: renderer,
		wal:      w,
		opts:     opts,
		logger:   logger.With().Str("component", "publisher").Logger(),
	}
}

// Apply executes a plan against the document. The returned error is non-nil
// only for total failure; partial failures are reported in the result.
func (p *Publisher) Apply(ctx context.Context, plan *reconciler.Plan, cluster *types.Cluster, documentID string, groupMode grouping.Mode) (*Result, error) {
	result := &Result{Mode: plan.Mode, StartTime: time.Now()}

	if plan.Mode == reconciler.ModeFullReplace {
		p.applyFullReplace(ctx, result, cluster, documentID, groupMode)
	} else {
		p.applyIncremental(ctx, result, plan.Decisions, documentID)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	p.logger.Info().
		Str("mode", string(result.Mode)).
		Int("total", result.TotalOperations).
		Int("succeeded", result.SuccessfulCount).
		Int("failed", result.FailedCount).
		Int("skipped", result.SkippedCount).
		Msg("publish pass complete")

	if result.Failed() {
		return result, fmt.Errorf("publishing failed: all %d operations errored", result.FailedCount)
	}
	return result, nil
}

func (p *Publisher) applyIncremental(ctx context.Context, result *Result, decisions []types.Decision, documentID string) {
	for i := range decisions {
		decision := &decisions[i]
		op := p.applyDecision(ctx, decision, documentID)
		result.record(op)

		if op.Status == StatusSuccess && decision.Action != types.ActionFlagDeleted {
			result.Published = append(result.Published, types.PriorEntry{
				Key:         decision.Key,
				BlockID:     op.BlockID,
				DisplayName: decision.Resource.DisplayName(),
				Notes:       decision.Notes(),
			})
		}
	}
}

func (p *Publisher) applyDecision(ctx context.Context, decision *types.Decision, documentID string) OperationResult {
	start := time.Now()
	op := OperationResult{
		Label:    string(decision.Action),
		Decision: decision,
	}
	key := decision.Key.String()

	if p.opts.DryRun {
		op.Status = StatusSkipped
		op.Duration = time.Since(start)
		p.logWAL(wal.EntrySkipped, key, decision, nil)
		return op
	}

	var blockID string
	var err error
	switch decision.Action {
	case types.ActionCreate:
		blockID, err = p.publishCreate(ctx, decision, documentID)
	case types.ActionUpdate:
		blockID, err = p.publishUpdate(ctx, decision, documentID)
	case types.ActionFlagDeleted:
		err = p.publishFlagDeleted(ctx, decision, documentID)
	default:
		err = fmt.Errorf("unknown action %q", decision.Action)
	}

	op.Duration = time.Since(start)
	if err != nil {
		op.Status = StatusFailed
		op.Error = err.Error()
		p.logWAL(wal.EntryFailed, key, decision, err)
		p.logger.Error().Err(err).Str("resource", key).Str("action", string(decision.Action)).Msg("document operation failed")
		return op
	}

	op.Status = StatusSuccess
	op.BlockID = blockID
	p.logWAL(wal.EntryApplied, key, decision, nil)
	return op
}

func (p *Publisher) publishCreate(ctx context.Context, decision *types.Decision, documentID string) (string, error) {
	page := p.renderer.ResourceDetail(decision.Resource)
	created, err := p.store.InsertMarkdown(ctx, page, documentID, craft.PositionEnd)
	if err != nil {
		return "", err
	}
	return firstBlockID(created), nil
}

// publishUpdate swaps the stale entry for a fresh render, carrying the
// preserved annotation into the new Notes section. The insert lands before
// the stale block is removed: a failure mid-operation can leave a duplicate
// entry, never drop the annotation from the document.
func (p *Publisher) publishUpdate(ctx context.Context, decision *types.Decision, documentID string) (string, error) {
	page := render.PreserveNotes(p.renderer.ResourceDetail(decision.Resource), decision.Notes())

	created, err := p.store.InsertMarkdown(ctx, page, documentID, craft.PositionEnd)
	if err != nil {
		return "", err
	}
	if err := p.deletePrior(ctx, decision); err != nil {
		return "", fmt.Errorf("removing stale entry: %w", err)
	}
	return firstBlockID(created), nil
}

func (p *Publisher) publishFlagDeleted(ctx context.Context, decision *types.Decision, documentID string) error {
	page := p.renderer.DeletedResourcePage(decision.Key, decision.DisplayName(), decision.Notes())

	if _, err := p.store.InsertMarkdown(ctx, page, documentID, craft.PositionEnd); err != nil {
		return err
	}
	if err := p.deletePrior(ctx, decision); err != nil {
		return fmt.Errorf("removing vanished entry: %w", err)
	}
	return nil
}

func (p *Publisher) deletePrior(ctx context.Context, decision *types.Decision) error {
	if decision.Prior == nil || decision.Prior.BlockID == "" {
		return nil
	}
	return p.store.DeleteBlocks(ctx, []string{decision.Prior.BlockID})
}

func firstBlockID(blocks []craft.Block) string {
	if len(blocks) == 0 {
		return ""
	}
	return blocks[0].ID
}

// applyFullReplace clears the document and republishes everything from the
// current snapshot: overview, node sections, grouped summaries, quick
// reference, then one detail page per guest so the markers are back in
// place for the next incremental run.
func (p *Publisher) applyFullReplace(ctx context.Context, result *Result, cluster *types.Cluster, documentID string, groupMode grouping.Mode) {
	result.record(p.runOperation(ctx, "clear", func(ctx context.Context) error {
		return p.store.ClearDocument(ctx, documentID)
	}))

	result.record(p.insertOperation(ctx, "overview", documentID, p.renderer.ClusterOverview(cluster)))

	for i := range cluster.Nodes {
		node := &cluster.Nodes[i]
		result.record(p.insertOperation(ctx, "node:"+node.Name, documentID, p.renderer.NodeSection(node)))
	}

	for _, group := range grouping.GroupCluster(cluster, groupMode) {
		if group.Empty() {
			continue
		}
		label := group.Label
		if label == "" {
			label = "all"
		}
		g := group
		result.record(p.insertOperation(ctx, "group:"+label, documentID, p.renderer.GroupSection(&g)))
	}

	if quickRef := p.renderer.QuickReference(cluster); quickRef != "" {
		result.record(p.insertOperation(ctx, "quick-reference", documentID, quickRef))
	}

	for i := range cluster.VMs {
		p.publishDetail(ctx, result, &cluster.VMs[i], documentID)
	}
	for i := range cluster.Containers {
		p.publishDetail(ctx, result, &cluster.Containers[i], documentID)
	}
}

func (p *Publisher) publishDetail(ctx context.Context, result *Result, res *types.Resource, documentID string) {
	var blockID string
	op := p.runOperation(ctx, res.Key().String(), func(ctx context.Context) error {
		created, err := p.store.InsertMarkdown(ctx, p.renderer.ResourceDetail(res), documentID, craft.PositionEnd)
		if err != nil {
			return err
		}
		blockID = firstBlockID(created)
		return nil
	})
	op.BlockID = blockID
	result.record(op)

	if op.Status == StatusSuccess {
		result.Published = append(result.Published, types.PriorEntry{
			Key:         res.Key(),
			BlockID:     blockID,
			DisplayName: res.DisplayName(),
		})
	}
}

func (p *Publisher) insertOperation(ctx context.Context, label, documentID, markdown string) OperationResult {
	return p.runOperation(ctx, label, func(ctx context.Context) error {
		_, err := p.store.InsertMarkdown(ctx, markdown, documentID, craft.PositionEnd)
		return err
	})
}

func (p *Publisher) runOperation(ctx context.Context, label string, fn func(context.Context) error) OperationResult {
	start := time.Now()
	op := OperationResult{Label: label}

	if p.opts.DryRun {
		op.Status = StatusSkipped
		op.Duration = time.Since(start)
		p.logWAL(wal.EntrySkipped, label, nil, nil)
		return op
	}

	err := fn(ctx)
	op.Duration = time.Since(start)
	if err != nil {
		op.Status = StatusFailed
		op.Error = err.Error()
		p.logWAL(wal.EntryFailed, label, nil, err)
		p.logger.Error().Err(err).Str("operation", label).Msg("document operation failed")
		return op
	}

	op.Status = StatusSuccess
	p.logWAL(wal.EntryApplied, label, nil, nil)
	return op
}

func (p *Publisher) logWAL(entryType wal.EntryType, key string, data any, opErr error) {
	if p.wal == nil {
		return
	}
	var err error
	if opErr != nil {
		err = p.wal.AppendError(entryType, key, data, opErr)
	} else {
		err = p.wal.Append(entryType, key, data)
	}
	if err != nil {
		p.logger.Warn().Err(err).Msg("WAL append failed")
	}
}
