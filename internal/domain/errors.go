package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidExtraction indicates that an extraction result is structurally invalid.
var ErrInvalidExtraction = errors.New("invalid extraction result")

// ErrInvalidRecord indicates that a dataset record is malformed.
var ErrInvalidRecord = errors.New("invalid dataset record")

// ErrInvalidModelConfig indicates that a model configuration is invalid.
var ErrInvalidModelConfig = errors.New("invalid model configuration")

// ErrInvalidWeights indicates that summary metric weights do not form a valid
// convex combination.
var ErrInvalidWeights = errors.New("invalid metric weights")

// ErrEmptyDataset indicates that a run was requested over a dataset with no records.
var ErrEmptyDataset = errors.New("dataset has no records")

// MissingResourceError is returned when none of a record's page images could
// be resolved to an existing file. It carries the full original path list for
// diagnostics. A partially resolvable form set is not an error; only the
// zero-pages case is fatal.
type MissingResourceError struct {
	FormSetName string
	Paths       []string
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("form set %q: none of %d page paths resolved: [%s]",
		e.FormSetName, len(e.Paths), strings.Join(e.Paths, ", "))
}

// SchemaViolationError is returned when an LLM response cannot be parsed into
// the extraction schema. The raw response is retained so failures can be
// diagnosed; it is never silently coerced into a partial result.
type SchemaViolationError struct {
	Reason string
	Raw    string
	Cause  error
}

func (e *SchemaViolationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("schema violation: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("schema violation: %s", e.Reason)
}

func (e *SchemaViolationError) Unwrap() error { return e.Cause }
