// Package docscan reconstructs prior sync state from a published document.
//
// The document is a semi-structured text convention, not a contract: blocks
// carrying a "VMID: <n>" or "CTID: <n>" marker are resource entries, and
// human notes live under a "Notes" heading inside each entry's children.
// Anything unparseable is skipped; total failure degrades to an empty map.
package docscan

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tylwright/craft-docs-proxmox/types"
)

var (
	vmMarkerRe = regexp.MustCompile(`VMID:\s*(\d+)`)
	ctMarkerRe = regexp.MustCompile(`CTID:\s*(\d+)`)
	headingRe  = regexp.MustCompile(`#+\s*(?:⚠️\s*|🚨\s*)?([^\n(]+)`)
)

// Placeholder fragment rendered into fresh Notes sections. Lines containing
// it are treated as "no annotation" when scanning.
const notesPlaceholderFragment = "*Add your notes"

// Block is one content block as returned by the document store
type Block struct {
	ID       string
	Markdown string
}

// BlockSource reads the child blocks of a document or block.
// Block identifiers are opaque strings owned by the store.
type BlockSource interface {
	ChildBlocks(ctx context.Context, blockID string) ([]Block, error)
}

// Reader scans a published document for prior resource entries
type Reader struct {
	source BlockSource
	logger zerolog.Logger
}

// NewReader creates a document scanner
func NewReader(source BlockSource, logger zerolog.Logger) *Reader {
	return &Reader{source: source, logger: logger}
}

// Scan walks the document's top-level blocks and returns one PriorEntry per
// recognized resource marker. Notes are NOT loaded here; call Notes for
// entries that need preservation.
func (r *Reader) Scan(ctx context.Context, documentID string) map[types.ResourceKey]types.PriorEntry {
	entries := make(map[types.ResourceKey]types.PriorEntry)

	blocks, err := r.source.ChildBlocks(ctx, documentID)
	if err != nil {
		r.logger.Warn().Err(err).Str("document_id", documentID).
			Msg("document scan failed, treating as no prior state")
		return entries
	}

	for _, block := range blocks {
		key, ok := parseMarker(block.Markdown)
		if !ok {
			continue // structural or overview content
		}
		// Last marker wins. Summary lines in group sections also carry the
		// marker but precede the detail pages, so overwriting binds each key
		// to its detail block, the one whose children hold the notes.
		entries[key] = types.PriorEntry{
			Key:         key,
			BlockID:     block.ID,
			DisplayName: parseDisplayName(block.Markdown),
		}
	}

	return entries
}

// Notes extracts the human-authored annotation from a resource entry's
// children: every text line after the Notes heading up to the next heading,
// skipping the placeholder. Returns "" when no annotation exists.
func (r *Reader) Notes(ctx context.Context, blockID string) string {
	blocks, err := r.source.ChildBlocks(ctx, blockID)
	if err != nil {
		r.logger.Warn().Err(err).Str("block_id", blockID).Msg("notes scan failed")
		return ""
	}
	return collectNotes(blocks)
}

// parseMarker recognizes a resource entry by its literal ID marker.
// The first captured digit run is the numeric id.
func parseMarker(markdown string) (types.ResourceKey, bool) {
	if m := vmMarkerRe.FindStringSubmatch(markdown); m != nil {
		if vmid, err := strconv.Atoi(m[1]); err == nil {
			return types.ResourceKey{Kind: types.KindVM, VMID: vmid}, true
		}
	}
	if m := ctMarkerRe.FindStringSubmatch(markdown); m != nil {
		if vmid, err := strconv.Atoi(m[1]); err == nil {
			return types.ResourceKey{Kind: types.KindContainer, VMID: vmid}, true
		}
	}
	return types.ResourceKey{}, false
}

// parseDisplayName pulls the heading text out of an entry block, dropping
// alert indicator prefixes and trailing parentheticals like "(Deleted)".
func parseDisplayName(markdown string) string {
	m := headingRe.FindStringSubmatch(markdown)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func collectNotes(blocks []Block) string {
	inNotes := false
	var lines []string

	for _, block := range blocks {
		text := block.Markdown

		if isNotesHeading(text) {
			inNotes = true
			continue
		}
		if inNotes && strings.HasPrefix(text, "#") {
			break // next heading ends the notes section
		}
		if !inNotes {
			continue
		}
		if strings.Contains(text, notesPlaceholderFragment) || strings.TrimSpace(text) == "" {
			continue
		}
		lines = append(lines, text)
	}

	return strings.Join(lines, "\n")
}

func isNotesHeading(text string) bool {
	return strings.Contains(text, "## Notes") || strings.Contains(text, "# Notes")
}
