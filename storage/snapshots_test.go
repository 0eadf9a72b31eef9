package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tylwright/craft-docs-proxmox/types"
)

func vmKey(id int) types.ResourceKey {
	return types.ResourceKey{Kind: types.KindVM, VMID: id}
}

func ctKey(id int) types.ResourceKey {
	return types.ResourceKey{Kind: types.KindContainer, VMID: id}
}

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	store, err := NewSnapshotStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveRunAndLoadPrior(t *testing.T) {
	store := newTestStore(t)

	rev, err := store.SaveRun([]types.PriorEntry{
		{Key: vmKey(100), BlockID: "blk-100", DisplayName: "web", Notes: "keep"},
		{Key: ctKey(200), BlockID: "blk-200", DisplayName: "cache"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	prior := store.LoadPrior()
	require.Len(t, prior, 2)
	assert.Equal(t, "blk-100", prior[vmKey(100)].BlockID)
	assert.Equal(t, "keep", prior[vmKey(100)].Notes)
	assert.Equal(t, "cache", prior[ctKey(200)].DisplayName)
}

func TestLoadPriorReflectsLatestRunOnly(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SaveRun([]types.PriorEntry{
		{Key: vmKey(100), BlockID: "blk-100", DisplayName: "web"},
		{Key: vmKey(999), BlockID: "blk-999", DisplayName: "legacy"},
	})
	require.NoError(t, err)

	// second run no longer includes vm-999
	rev, err := store.SaveRun([]types.PriorEntry{
		{Key: vmKey(100), BlockID: "blk-100-v2", DisplayName: "web-renamed"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	prior := store.LoadPrior()
	require.Len(t, prior, 1)
	assert.Equal(t, "blk-100-v2", prior[vmKey(100)].BlockID)
	assert.Equal(t, "web-renamed", prior[vmKey(100)].DisplayName)

	assert.Equal(t, int64(1), store.LastSeen(vmKey(999)), "dropped entry keeps its last revision")
	assert.Equal(t, int64(2), store.LastSeen(vmKey(100)))
	assert.Zero(t, store.LastSeen(vmKey(555)))
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewSnapshotStore(dir)
	require.NoError(t, err)
	_, err = store.SaveRun([]types.PriorEntry{{Key: vmKey(100), BlockID: "blk-100", DisplayName: "web"}})
	require.NoError(t, err)
	_, err = store.SaveRun([]types.PriorEntry{{Key: vmKey(100), BlockID: "blk-100", DisplayName: "web"}, {Key: ctKey(200), BlockID: "blk-200", DisplayName: "cache"}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSnapshotStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, int64(2), reopened.CurrentRevision())
	prior := reopened.LoadPrior()
	require.Len(t, prior, 2)
	assert.Equal(t, "blk-200", prior[ctKey(200)].BlockID)
}

func TestEntryHistory(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SaveRun([]types.PriorEntry{{Key: vmKey(100), BlockID: "blk-a", DisplayName: "web"}})
	require.NoError(t, err)
	_, err = store.SaveRun([]types.PriorEntry{{Key: vmKey(100), BlockID: "blk-b", DisplayName: "web-renamed"}})
	require.NoError(t, err)

	history, err := store.EntryHistory(vmKey(100))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "blk-a", history[0].BlockID, "oldest first")
	assert.Equal(t, "web-renamed", history[1].DisplayName)

	empty, err := store.EntryHistory(vmKey(404))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEmptyStoreLoadPrior(t *testing.T) {
	store := newTestStore(t)
	assert.Empty(t, store.LoadPrior())
	assert.Zero(t, store.CurrentRevision())
}
