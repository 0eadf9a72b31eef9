package publisher

import (
	"context"
	"time"

	"github.com/tylwright/craft-docs-proxmox/providers/craft"
	"github.com/tylwright/craft-docs-proxmox/reconciler"
	"github.com/tylwright/craft-docs-proxmox/types"
)

// DocumentStore is the slice of the Craft API the publisher drives
type DocumentStore interface {
	InsertMarkdown(ctx context.Context, markdown, pageID, position string) ([]craft.Block, error)
	DeleteBlocks(ctx context.Context, blockIDs []string) error
	ClearDocument(ctx context.Context, pageID string) error
}

// Options configure publishing behavior
type Options struct {
	// DryRun records every operation as skipped without touching the store
	DryRun bool `json:"dry_run"`
}

// Status tracks one operation's outcome
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// OperationResult is the outcome of one document operation
type OperationResult struct {
	Label    string          `json:"label"`
	Decision *types.Decision `json:"decision,omitempty"`
	Status   Status          `json:"status"`
	BlockID  string          `json:"block_id,omitempty"` // first block Craft created
	Error    string          `json:"error,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// Result aggregates one publish pass. A pass with any successful operation
// counts as a success overall; per-operation failures ride along in Results.
type Result struct {
	Mode            reconciler.Mode   `json:"mode"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	Duration        time.Duration     `json:"duration"`
	TotalOperations int               `json:"total_operations"`
	SuccessfulCount int               `json:"successful_count"`
	FailedCount     int               `json:"failed_count"`
	SkippedCount    int               `json:"skipped_count"`
	PartialFailure  bool              `json:"partial_failure"`
	Results         []OperationResult `json:"results"`

	// Published lists the live resource entries this pass left in the
	// document, with the block ids Craft assigned. Feed to the snapshot
	// store. Flagged-deleted pages are not live entries.
	Published []types.PriorEntry `json:"published,omitempty"`
}

// Failed reports total failure: operations were attempted and none landed
func (r *Result) Failed() bool {
	return r.FailedCount > 0 && r.SuccessfulCount == 0
}

func (r *Result) record(op OperationResult) {
	r.Results = append(r.Results, op)
	r.TotalOperations++
	switch op.Status {
	case StatusSuccess:
		r.SuccessfulCount++
	case StatusFailed:
		r.FailedCount++
		r.PartialFailure = true
	case StatusSkipped:
		r.SkippedCount++
	}
}
