package types

import "fmt"

// Actions a reconciliation run can take on a document entry
const (
	ActionCreate      = "create"       // resource exists only in the inventory
	ActionUpdate      = "update"       // resource exists on both sides
	ActionFlagDeleted = "flag_deleted" // document entry with no live resource
)

// PriorEntry is what the published document (or the snapshot store)
// currently records about one resource identity. It is read once per run
// and discarded when the run completes.
type PriorEntry struct {
	Key         ResourceKey `json:"key"`
	BlockID     string      `json:"block_id"`
	DisplayName string      `json:"display_name"`
	Notes       string      `json:"notes,omitempty"` // human-authored, preserved verbatim
}

// Decision is the reconciler's verdict for one resource key.
// Exactly one decision exists per key present in either the current
// inventory or the prior document.
type Decision struct {
	Action   string      `json:"action"`
	Key      ResourceKey `json:"key"`
	Resource *Resource   `json:"resource,omitempty"` // nil for flag_deleted
	Prior    *PriorEntry `json:"prior,omitempty"`    // nil for create
	Reason   string      `json:"reason"`
}

// Validate ensures the decision carries the state its action requires
func (d *Decision) Validate() error {
	switch d.Action {
	case ActionCreate:
		if d.Resource == nil {
			return fmt.Errorf("create decision for %s without resource", d.Key)
		}
	case ActionUpdate:
		if d.Resource == nil || d.Prior == nil {
			return fmt.Errorf("update decision for %s needs both resource and prior entry", d.Key)
		}
	case ActionFlagDeleted:
		if d.Prior == nil {
			return fmt.Errorf("flag_deleted decision for %s without prior entry", d.Key)
		}
	case "":
		return fmt.Errorf("decision action cannot be empty")
	default:
		return fmt.Errorf("unknown decision action %q", d.Action)
	}
	return nil
}

// Notes returns the preserved prior annotation, if any
func (d *Decision) Notes() string {
	if d.Prior == nil {
		return ""
	}
	return d.Prior.Notes
}

// DisplayName resolves the name shown for this decision. Updates and
// creates use the current inventory name; a deleted resource has no
// current name, so the prior snapshot name is used instead.
func (d *Decision) DisplayName() string {
	if d.Resource != nil {
		return d.Resource.DisplayName()
	}
	if d.Prior != nil && d.Prior.DisplayName != "" {
		return d.Prior.DisplayName
	}
	return fmt.Sprintf("Resource %d", d.Key.VMID)
}
