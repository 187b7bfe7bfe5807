package dataset

import (
	"fmt"
	"os"
	"path/filepath"
)

// Open loads a dataset snapshot from a JSONL file.
func Open(path string) (Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	defer f.Close()

	records, err := decodeJSONL(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return records, nil
}

// OpenVersion loads the named versioned snapshot from a dataset root
// directory laid out as <root>/<name>/v<version>.jsonl.
func OpenVersion(root, name string, version int) (Memory, error) {
	return Open(filepath.Join(root, snapshotKey(name, version)))
}
