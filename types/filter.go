package types

// InventoryFilter narrows which guests an inventory fetch returns
type InventoryFilter struct {
	Node             string `json:"node,omitempty"` // exact node name
	Tag              string `json:"tag,omitempty"`  // label membership
	IncludeTemplates bool   `json:"include_templates"`
	IncludeStopped   bool   `json:"include_stopped"`
}

// Matches checks whether a resource passes the filter
func (f InventoryFilter) Matches(r *Resource) bool {
	return f.matchesNode(r) && f.matchesTag(r) && f.matchesFlags(r)
}

func (f InventoryFilter) matchesNode(r *Resource) bool {
	return f.Node == "" || r.Node == f.Node
}

func (f InventoryFilter) matchesTag(r *Resource) bool {
	if f.Tag == "" {
		return true
	}
	for _, tag := range r.Tags {
		if tag == f.Tag {
			return true
		}
	}
	return false
}

func (f InventoryFilter) matchesFlags(r *Resource) bool {
	if r.Template && !f.IncludeTemplates {
		return false
	}
	if r.Status == StatusStopped && !f.IncludeStopped {
		return false
	}
	return true
}
