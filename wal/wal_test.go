package wal

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppendAndReplay(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := w.Append(EntryObserved, "", map[string]int{"vms": 2}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := w.Append(EntryPlanned, "vm-100", map[string]string{"action": "update"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := w.AppendError(EntryFailed, "ct-200", nil, os.ErrDeadlineExceeded); err != nil {
		t.Fatalf("AppendError() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var entries []*Entry
	err = Replay(dir, time.Time{}, func(e *Entry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("replayed %d entries, want 3", len(entries))
	}
	if entries[0].Type != EntryObserved || entries[0].Sequence != 1 {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Key != "vm-100" {
		t.Errorf("second entry key = %q", entries[1].Key)
	}
	if entries[2].Error == "" {
		t.Error("failed entry should carry the error string")
	}
}

func TestSequenceSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := w.Append(EntryObserved, "", nil); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	_ = w.Close()

	// Reopen after a second so the filename rotates
	time.Sleep(1100 * time.Millisecond)
	w2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = w2.Close() }()

	if err := w2.Append(EntryObserved, "", nil); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	var maxSeq int64
	_ = Replay(dir, time.Time{}, func(e *Entry) error {
		if e.Sequence > maxSeq {
			maxSeq = e.Sequence
		}
		return nil
	})
	if maxSeq != 4 {
		t.Errorf("max sequence after reopen = %d, want 4", maxSeq)
	}
}

func TestReaderEOF(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := w.Append(EntryApplied, "vm-100", nil); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	_ = w.Close()

	files, _ := filepath.Glob(filepath.Join(dir, "proxsync-*.wal"))
	if len(files) != 1 {
		t.Fatalf("found %d WAL files, want 1", len(files))
	}

	r, err := NewReader(files[0])
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer func() { _ = r.Close() }()

	if _, err := r.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next() at end = %v, want io.EOF", err)
	}
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "proxsync-20200101-000000.wal")
	if err := os.WriteFile(old, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	fresh := filepath.Join(dir, "proxsync-20990101-000000.wal")
	if err := os.WriteFile(fresh, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := Cleanup(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Cleanup() removed = %d, want 1", removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh WAL file should survive cleanup")
	}
}
