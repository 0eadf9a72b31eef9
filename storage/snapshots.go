// Package storage persists what each sync run published, so the next run
// can diff against local state even when the document is unreachable or a
// scan comes back empty. Runs are revisioned: every save keeps the full
// entry set under a new revision, older revisions stay queryable.
package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/btree"
	"go.etcd.io/bbolt"

	"github.com/tylwright/craft-docs-proxmox/types"
)

var (
	bucketEntries = []byte("entries")
	bucketMeta    = []byte("meta")
)

var keyCurrentRevision = []byte("current_revision")

// EntryState is the in-memory index record for one document entry
type EntryState struct {
	Key          types.ResourceKey `json:"key"`
	DisplayName  string            `json:"display_name"`
	BlockID      string            `json:"block_id"`
	Notes        string            `json:"notes,omitempty"`
	FirstSeenRev int64             `json:"first_seen_rev"`
	LastSeenRev  int64             `json:"last_seen_rev"`
}

// SnapshotStore is a revisioned record of published document entries
type SnapshotStore struct {
	mu         sync.RWMutex
	index      *btree.BTreeG[*EntryState]
	db         *bbolt.DB
	currentRev int64
	dir        string
}

// NewSnapshotStore opens or creates the store in dir
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	dbPath := filepath.Join(dir, "proxsync.db")

	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketEntries, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	store := &SnapshotStore{
		index: btree.NewG[*EntryState](32, func(a, b *EntryState) bool {
			return a.Key.String() < b.Key.String()
		}),
		db:  db,
		dir: dir,
	}

	store.loadRevision()
	if err := store.rebuildIndex(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the store
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// CurrentRevision returns the latest saved run's revision
func (s *SnapshotStore) CurrentRevision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRev
}

// SaveRun persists the entry set a sync run just published, atomically,
// under a fresh revision
func (s *SnapshotStore) SaveRun(entries []types.PriorEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rev := s.currentRev + 1

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		for _, entry := range entries {
			value, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("encoding entry %s: %w", entry.Key, err)
			}
			if err := bucket.Put(makeEntryKey(rev, entry.Key), value); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketMeta).Put(keyCurrentRevision, int64ToBytes(rev))
	})
	if err != nil {
		return 0, err
	}

	s.currentRev = rev
	for _, entry := range entries {
		s.updateIndex(entry, rev)
	}
	return rev, nil
}

// LoadPrior returns the entry map of the most recent run, keyed for
// reconciliation. Empty when nothing has been saved yet.
func (s *SnapshotStore) LoadPrior() map[types.ResourceKey]types.PriorEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prior := make(map[types.ResourceKey]types.PriorEntry)
	s.index.Ascend(func(state *EntryState) bool {
		if state.LastSeenRev == s.currentRev {
			prior[state.Key] = types.PriorEntry{
				Key:         state.Key,
				BlockID:     state.BlockID,
				DisplayName: state.DisplayName,
				Notes:       state.Notes,
			}
		}
		return true
	})
	return prior
}

// EntryHistory returns every saved version of one entry, oldest first
func (s *SnapshotStore) EntryHistory(key types.ResourceKey) ([]types.PriorEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suffix := []byte("/" + key.String())
	var history []types.PriorEntry

	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(bucketEntries).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			if !bytes.HasSuffix(k, suffix) {
				continue
			}
			var entry types.PriorEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decoding entry history: %w", err)
			}
			history = append(history, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

// LastSeen reports the newest revision that included the key, 0 when never
func (s *SnapshotStore) LastSeen(key types.ResourceKey) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if state, ok := s.index.Get(&EntryState{Key: key}); ok {
		return state.LastSeenRev
	}
	return 0
}

func (s *SnapshotStore) updateIndex(entry types.PriorEntry, rev int64) {
	state, ok := s.index.Get(&EntryState{Key: entry.Key})
	if !ok {
		state = &EntryState{Key: entry.Key, FirstSeenRev: rev}
	}
	state.DisplayName = entry.DisplayName
	state.BlockID = entry.BlockID
	state.Notes = entry.Notes
	state.LastSeenRev = rev
	s.index.ReplaceOrInsert(state)
}

func (s *SnapshotStore) loadRevision() {
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if value := tx.Bucket(bucketMeta).Get(keyCurrentRevision); value != nil {
			s.currentRev = bytesToInt64(value)
		}
		return nil
	})
}

// rebuildIndex replays every stored entry in revision order, so the index
// ends up reflecting each key's newest version
func (s *SnapshotStore) rebuildIndex() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(k, v []byte) error {
			var entry types.PriorEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decoding entry %q: %w", k, err)
			}
			s.updateIndex(entry, revisionOf(k))
			return nil
		})
	})
}

// makeEntryKey builds "rev/key" with a big-endian revision so bbolt's
// lexical ordering matches revision ordering
func makeEntryKey(rev int64, key types.ResourceKey) []byte {
	buf := make([]byte, 8, 8+1+len(key.String()))
	binary.BigEndian.PutUint64(buf, uint64(rev))
	buf = append(buf, '/')
	return append(buf, key.String()...)
}

func revisionOf(entryKey []byte) int64 {
	if len(entryKey) < 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(entryKey[:8]))
}

func int64ToBytes(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func bytesToInt64(buf []byte) int64 {
	if len(buf) < 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(buf))
}
