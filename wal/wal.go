// Package wal records every sync run as an append-only JSONL audit trail:
// what was observed, what was planned, and how each document operation went.
package wal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EntryType defines the type of WAL entry
type EntryType string

const (
	EntryObserved EntryType = "observed" // inventory and prior state counts
	EntryPlanned  EntryType = "planned"  // one per reconciliation decision
	EntryApplied  EntryType = "applied"  // document operation succeeded
	EntryFailed   EntryType = "failed"   // document operation failed
	EntrySkipped  EntryType = "skipped"  // dry run or filtered out
)

// Entry is a single WAL record
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Sequence  int64           `json:"sequence"`
	Type      EntryType       `json:"type"`
	Key       string          `json:"key,omitempty"` // resource key, e.g. "vm-100"
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error,omitempty"`
}

// WAL provides write-ahead logging for audit and post-mortem replay
type WAL struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	sequence int64
	dir      string
}

// Open creates or opens a WAL in the specified directory.
// Each process gets its own timestamped file so rotation is free.
func Open(dir string) (*WAL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	filename := fmt.Sprintf("proxsync-%s.wal", time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) // #nosec G304 -- path built from operator-chosen dir
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	w := &WAL{
		file:   file,
		writer: bufio.NewWriter(file),
		dir:    dir,
	}
	w.sequence = loadLastSequence(dir)

	return w, nil
}

// Close flushes and closes the WAL
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// Append adds an entry to the WAL
func (w *WAL) Append(entryType EntryType, key string, data interface{}) error {
	return w.append(entryType, key, data, nil)
}

// AppendError adds an entry recording a failed operation
func (w *WAL) AppendError(entryType EntryType, key string, data interface{}, opErr error) error {
	return w.append(entryType, key, data, opErr)
}

func (w *WAL) append(entryType EntryType, key string, data interface{}, opErr error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.sequence++

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	entry := Entry{
		Timestamp: time.Now(),
		Sequence:  w.sequence,
		Type:      entryType,
		Key:       key,
		Data:      jsonData,
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}

	return w.writeEntry(entry)
}

// writeEntry writes and syncs a single entry
func (w *WAL) writeEntry(entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	if _, err := w.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return w.file.Sync()
}

// loadLastSequence recovers the highest sequence number across all WAL
// files in dir, so sequences stay monotonic across restarts.
func loadLastSequence(dir string) int64 {
	files, err := filepath.Glob(filepath.Join(dir, "proxsync-*.wal"))
	if err != nil {
		return 0
	}

	var last int64
	for _, file := range files {
		reader, err := NewReader(file)
		if err != nil {
			continue
		}
		for {
			entry, err := reader.Next()
			if err != nil {
				break
			}
			if entry.Sequence > last {
				last = entry.Sequence
			}
		}
		_ = reader.Close()
	}
	return last
}

// Reader replays WAL entries from a single file
type Reader struct {
	scanner *bufio.Scanner
	file    *os.File
}

// NewReader opens a WAL file for replay
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path) // #nosec G304 -- replay of our own WAL files
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	return &Reader{
		scanner: bufio.NewScanner(file),
		file:    file,
	}, nil
}

// Next reads the next entry, returning io.EOF at end of file
func (r *Reader) Next() (*Entry, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	var entry Entry
	if err := json.Unmarshal(r.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}

// Close closes the reader
func (r *Reader) Close() error {
	return r.file.Close()
}

// Replay invokes handler for every entry newer than since, across all WAL
// files in dir
func Replay(dir string, since time.Time, handler func(*Entry) error) error {
	files, err := filepath.Glob(filepath.Join(dir, "proxsync-*.wal"))
	if err != nil {
		return fmt.Errorf("failed to list WAL files: %w", err)
	}

	for _, file := range files {
		if err := replayFile(file, since, handler); err != nil {
			return err
		}
	}
	return nil
}

func replayFile(path string, since time.Time, handler func(*Entry) error) error {
	reader, err := NewReader(path)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	for {
		entry, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if entry.Timestamp.After(since) {
			if err := handler(entry); err != nil {
				return err
			}
		}
	}
}
