package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tallyvote/go-tallyeval/internal/domain"
	"github.com/tallyvote/go-tallyeval/pkg/events"
)

// FileSink writes each batch result as one indented JSON document.
type FileSink struct {
	path string
}

// NewFileSink creates a sink writing to the given path, creating parent
// directories on first write. An existing file is overwritten: the batch
// result is the authoritative final artifact of a run.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("file sink requires a path")
	}
	return &FileSink{path: path}, nil
}

// WriteBatch persists the batch result.
func (s *FileSink) WriteBatch(ctx context.Context, batch *domain.ExperimentBatchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating result directory: %w", err)
	}

	raw, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding batch result: %w", err)
	}
	if err := os.WriteFile(s.path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

// FileEventSink appends progress events to a JSONL log, one envelope per
// line. Safe for concurrent use.
type FileEventSink struct {
	mu sync.Mutex
	f  *os.File
}

// NewFileEventSink opens (or creates) the event log for appending.
func NewFileEventSink(path string) (*FileEventSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log %s: %w", path, err)
	}
	return &FileEventSink{f: f}, nil
}

// Append writes one envelope as a JSON line.
func (s *FileEventSink) Append(ctx context.Context, envelope events.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

// Close flushes and closes the event log.
func (s *FileEventSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
