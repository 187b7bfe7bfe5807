// Package dataset provides the versioned, read-only record collections that
// experiments run over. A dataset is a snapshot: once loaded, records are
// never mutated, and workers only ever read them.
//
// Two concrete stores are provided, local JSONL files and S3 objects, both
// yielding the same in-memory Dataset.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tallyvote/go-tallyeval/internal/domain"
)

// Dataset is the read-only collection contract the orchestrator consumes.
type Dataset interface {
	// Len returns the number of records in the snapshot.
	Len() int

	// Record returns the record at index i, 0 <= i < Len().
	Record(i int) (domain.DatasetRecord, error)
}

// Memory is an in-memory dataset snapshot.
type Memory []domain.DatasetRecord

func (m Memory) Len() int { return len(m) }

func (m Memory) Record(i int) (domain.DatasetRecord, error) {
	if i < 0 || i >= len(m) {
		return domain.DatasetRecord{}, fmt.Errorf("record index %d out of range [0,%d)", i, len(m))
	}
	return m[i], nil
}

// Records materializes up to sampleSize records from a dataset, in index
// order. sampleSize <= 0 means all records. The deterministic prefix sample
// keeps run-to-run comparisons meaningful.
func Records(ds Dataset, sampleSize int) ([]domain.DatasetRecord, error) {
	n := ds.Len()
	if n == 0 {
		return nil, domain.ErrEmptyDataset
	}
	if sampleSize > 0 && sampleSize < n {
		n = sampleSize
	}

	records := make([]domain.DatasetRecord, 0, n)
	for i := 0; i < n; i++ {
		rec, err := ds.Record(i)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// decodeJSONL parses one record per line, skipping blank lines, validating
// each record and rejecting duplicate IDs.
func decodeJSONL(r io.Reader) (Memory, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 16<<20) // tally records with 100 entries run long

	var records Memory
	seen := make(map[string]struct{})
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec domain.DatasetRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, fmt.Errorf("line %d: %w: duplicate id %q", line, domain.ErrInvalidRecord, rec.ID)
		}
		seen[rec.ID] = struct{}{}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrEmptyDataset
	}
	return records, nil
}

// snapshotKey is the canonical layout of versioned snapshots in a store:
// <name>/v<version>.jsonl.
func snapshotKey(name string, version int) string {
	return fmt.Sprintf("%s/v%d.jsonl", name, version)
}
