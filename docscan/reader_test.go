package docscan

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tylwright/craft-docs-proxmox/types"
)

// fakeSource serves canned block trees keyed by parent ID
type fakeSource struct {
	children map[string][]Block
	errs     map[string]error
}

func (f *fakeSource) ChildBlocks(_ context.Context, blockID string) ([]Block, error) {
	if err, ok := f.errs[blockID]; ok {
		return nil, err
	}
	return f.children[blockID], nil
}

func newReader(source BlockSource) *Reader {
	return NewReader(source, zerolog.Nop())
}

func TestScanRecognizesMarkers(t *testing.T) {
	source := &fakeSource{children: map[string][]Block{
		"doc": {
			{ID: "blk-overview", Markdown: "# Proxmox Infrastructure Dashboard"},
			{ID: "blk-vm", Markdown: "# web-server\n\n🟢 Running | VMID: 100 | Node: pve1"},
			{ID: "blk-ct", Markdown: "# db01\n\n🔴 Stopped | CTID: 200 | Node: pve2"},
			{ID: "blk-rule", Markdown: "---"},
		},
	}}

	entries := newReader(source).Scan(context.Background(), "doc")
	require.Len(t, entries, 2)

	vm, ok := entries[types.ResourceKey{Kind: types.KindVM, VMID: 100}]
	require.True(t, ok)
	assert.Equal(t, "blk-vm", vm.BlockID)
	assert.Equal(t, "web-server", vm.DisplayName)

	ct, ok := entries[types.ResourceKey{Kind: types.KindContainer, VMID: 200}]
	require.True(t, ok)
	assert.Equal(t, "blk-ct", ct.BlockID)
	assert.Equal(t, "db01", ct.DisplayName)
}

func TestScanIgnoresStructuralBlocks(t *testing.T) {
	source := &fakeSource{children: map[string][]Block{
		"doc": {
			{ID: "b1", Markdown: "## Overview"},
			{ID: "b2", Markdown: "**Nodes:** 3"},
			{ID: "b3", Markdown: "Some prose mentioning virtual machines"},
		},
	}}

	entries := newReader(source).Scan(context.Background(), "doc")
	assert.Empty(t, entries)
}

func TestScanDegradesToEmptyOnError(t *testing.T) {
	source := &fakeSource{errs: map[string]error{"doc": fmt.Errorf("api unreachable")}}

	entries := newReader(source).Scan(context.Background(), "doc")
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestScanLastMarkerWins(t *testing.T) {
	source := &fakeSource{children: map[string][]Block{
		"doc": {
			{ID: "blk-stale", Markdown: "# web-copy\n\nVMID: 100"},
			{ID: "blk-last", Markdown: "# web\n\nVMID: 100"},
		},
	}}

	entries := newReader(source).Scan(context.Background(), "doc")
	require.Len(t, entries, 1)
	assert.Equal(t, "blk-last", entries[types.ResourceKey{Kind: types.KindVM, VMID: 100}].BlockID)
}

func TestScanBindsDetailPageNotSummaryLine(t *testing.T) {
	// A full replace writes group sections with per-guest summary lines
	// before the detail pages; both carry the marker, the detail block is
	// the one whose children hold the notes.
	source := &fakeSource{children: map[string][]Block{
		"doc": {
			{ID: "section-1", Markdown: "## pve1\n\n### Virtual Machines\n\n- 🟢 Running **web** (VMID: 100)"},
			{ID: "detail-1", Markdown: "# web\n\n🟢 Running | VMID: 100 | Node: pve1"},
		},
	}}

	entries := newReader(source).Scan(context.Background(), "doc")
	require.Len(t, entries, 1)
	assert.Equal(t, "detail-1", entries[types.ResourceKey{Kind: types.KindVM, VMID: 100}].BlockID)
}

func TestScanDeletedEntryHeading(t *testing.T) {
	source := &fakeSource{children: map[string][]Block{
		"doc": {
			{ID: "blk", Markdown: "# ⚠️ legacy-app (Deleted)\n\nVMID: 999"},
		},
	}}

	entries := newReader(source).Scan(context.Background(), "doc")
	entry := entries[types.ResourceKey{Kind: types.KindVM, VMID: 999}]
	assert.Equal(t, "legacy-app", entry.DisplayName)
}

func TestNotesExtraction(t *testing.T) {
	tests := []struct {
		name     string
		children []Block
		want     string
	}{
		{
			name: "notes after heading",
			children: []Block{
				{Markdown: "## Specifications"},
				{Markdown: "- **CPU:** 4 cores"},
				{Markdown: "## Notes"},
				{Markdown: "keep backups weekly"},
				{Markdown: "check disk quota monthly"},
			},
			want: "keep backups weekly\ncheck disk quota monthly",
		},
		{
			name: "placeholder is no annotation",
			children: []Block{
				{Markdown: "## Notes"},
				{Markdown: "*Add your notes, runbooks, and documentation here...*"},
			},
			want: "",
		},
		{
			name: "collection stops at next heading",
			children: []Block{
				{Markdown: "## Notes"},
				{Markdown: "migration planned for Q4"},
				{Markdown: "## Tags"},
				{Markdown: "prod, web"},
			},
			want: "migration planned for Q4",
		},
		{
			name: "no notes heading",
			children: []Block{
				{Markdown: "## Specifications"},
				{Markdown: "- **CPU:** 2 cores"},
			},
			want: "",
		},
		{
			name: "blank lines skipped",
			children: []Block{
				{Markdown: "## Notes"},
				{Markdown: "   "},
				{Markdown: "single line"},
			},
			want: "single line",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSource{children: map[string][]Block{"blk": tt.children}}
			got := newReader(source).Notes(context.Background(), "blk")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotesErrorDegradesToEmpty(t *testing.T) {
	source := &fakeSource{errs: map[string]error{"blk": fmt.Errorf("gone")}}
	assert.Empty(t, newReader(source).Notes(context.Background(), "blk"))
}
