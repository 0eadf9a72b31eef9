package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/tylwright/craft-docs-proxmox/types"
)

// ChangeType classifies what happened to an entry between two runs
type ChangeType string

const (
	ChangeAppeared ChangeType = "appeared"
	ChangeModified ChangeType = "modified"
	ChangeVanished ChangeType = "vanished"
)

// ChangeEvent records one entry's transition between two revisions
type ChangeEvent struct {
	Type     ChangeType        `json:"type"`
	Key      types.ResourceKey `json:"key"`
	Revision int64             `json:"revision"`
	Previous *types.PriorEntry `json:"previous,omitempty"`
	Current  *types.PriorEntry `json:"current,omitempty"`
}

// EntriesAt returns the entry set stored under one revision
func (s *SnapshotStore) EntriesAt(rev int64) (map[types.ResourceKey]types.PriorEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := int64ToBytes(rev)
	entries := make(map[types.ResourceKey]types.PriorEntry)

	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(bucketEntries).Cursor()
		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			var entry types.PriorEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decoding entry %q: %w", k, err)
			}
			entries[entry.Key] = entry
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ChangesBetween diffs the entry sets of two revisions. A from of 0 means
// everything in to is new.
func (s *SnapshotStore) ChangesBetween(from, to int64) ([]ChangeEvent, error) {
	previous := map[types.ResourceKey]types.PriorEntry{}
	if from > 0 {
		loaded, err := s.EntriesAt(from)
		if err != nil {
			return nil, err
		}
		previous = loaded
	}
	current, err := s.EntriesAt(to)
	if err != nil {
		return nil, err
	}

	var events []ChangeEvent
	for key, entry := range current {
		cur := entry
		prev, existed := previous[key]
		if !existed {
			events = append(events, ChangeEvent{Type: ChangeAppeared, Key: key, Revision: to, Current: &cur})
			continue
		}
		if entryChanged(prev, cur) {
			p := prev
			events = append(events, ChangeEvent{Type: ChangeModified, Key: key, Revision: to, Previous: &p, Current: &cur})
		}
	}
	for key, entry := range previous {
		if _, exists := current[key]; !exists {
			prev := entry
			events = append(events, ChangeEvent{Type: ChangeVanished, Key: key, Revision: to, Previous: &prev})
		}
	}

	sortEvents(events)
	return events, nil
}

// LatestChanges diffs the two most recent runs
func (s *SnapshotStore) LatestChanges() ([]ChangeEvent, error) {
	rev := s.CurrentRevision()
	if rev == 0 {
		return nil, nil
	}
	return s.ChangesBetween(rev-1, rev)
}

func entryChanged(previous, current types.PriorEntry) bool {
	return previous.DisplayName != current.DisplayName ||
		previous.Notes != current.Notes ||
		previous.BlockID != current.BlockID
}

// sortEvents orders events in document order, VMs then containers by ID,
// so diffs are stable
func sortEvents(events []ChangeEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Key.Kind != events[j].Key.Kind {
			return events[i].Key.Kind == types.KindVM
		}
		return events[i].Key.VMID < events[j].Key.VMID
	})
}
