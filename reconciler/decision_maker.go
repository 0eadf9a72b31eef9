package reconciler

import (
	"fmt"

	"github.com/tylwright/craft-docs-proxmox/types"
)

// SimpleDecisionMaker maps diffs to decisions one-to-one
type SimpleDecisionMaker struct{}

// NewSimpleDecisionMaker creates a decision maker
func NewSimpleDecisionMaker() *SimpleDecisionMaker {
	return &SimpleDecisionMaker{}
}

// Decide produces exactly one decision per diff, preserving diff order
func (dm *SimpleDecisionMaker) Decide(diffs []Diff) []types.Decision {
	decisions := make([]types.Decision, 0, len(diffs))
	for _, diff := range diffs {
		decisions = append(decisions, dm.decideSingle(diff))
	}
	return decisions
}

func (dm *SimpleDecisionMaker) decideSingle(diff Diff) types.Decision {
	switch diff.Type {
	case DiffNew:
		return types.Decision{
			Action:   types.ActionCreate,
			Key:      diff.Key,
			Resource: diff.Current,
			Reason:   "resource present in inventory but not in document",
		}
	case DiffMatched:
		return types.Decision{
			Action:   types.ActionUpdate,
			Key:      diff.Key,
			Resource: diff.Current,
			Prior:    diff.Prior,
			Reason:   "resource present on both sides, refreshing facts",
		}
	case DiffOrphaned:
		return types.Decision{
			Action: types.ActionFlagDeleted,
			Key:    diff.Key,
			Prior:  diff.Prior,
			Reason: "document entry has no matching inventory resource",
		}
	default:
		// Unreachable with the SetComparator; surfaced for new diff types.
		return types.Decision{
			Key:    diff.Key,
			Reason: fmt.Sprintf("unhandled diff type %q", diff.Type),
		}
	}
}
