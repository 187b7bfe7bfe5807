package extraction

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/tallyvote/go-tallyeval/internal/domain"
	"github.com/tallyvote/go-tallyeval/internal/llm/transport"
)

var (
	schemaOnce     sync.Once
	schemaValue    *jsonschema.Schema
	schemaResolved *jsonschema.Resolved
	schemaErr      error
)

// ResultSchema returns the fixed JSON schema constraining extraction
// responses, derived from the domain structs so the schema and the Go types
// can never drift apart. The schema is built once and reused.
func ResultSchema() (*jsonschema.Schema, error) {
	buildSchema()
	return schemaValue, schemaErr
}

func buildSchema() {
	schemaOnce.Do(func() {
		schemaValue, schemaErr = jsonschema.For[domain.ExtractionResult](nil)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to derive extraction schema: %w", schemaErr)
			return
		}
		schemaResolved, schemaErr = schemaValue.Resolve(nil)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to resolve extraction schema: %w", schemaErr)
		}
	})
}

// ParseResult validates a raw model response against the extraction schema
// and unmarshals it. Transport-level cleanup (code fences, trailing commas)
// is applied first; anything still invalid is a *domain.SchemaViolationError
// carrying the raw response. Partial or defaulted output is never returned.
func ParseResult(raw string) (*domain.ExtractionResult, error) {
	buildSchema()
	if schemaErr != nil {
		return nil, schemaErr
	}

	cleaned := transport.CleanJSONResponse(raw)

	var value any
	if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
		return nil, &domain.SchemaViolationError{
			Reason: "response is not valid JSON",
			Raw:    raw,
			Cause:  err,
		}
	}
	if err := schemaResolved.Validate(value); err != nil {
		return nil, &domain.SchemaViolationError{
			Reason: "response does not match extraction schema",
			Raw:    raw,
			Cause:  err,
		}
	}

	var result domain.ExtractionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, &domain.SchemaViolationError{
			Reason: "response failed to unmarshal",
			Raw:    raw,
			Cause:  err,
		}
	}
	if err := result.Validate(); err != nil {
		return nil, &domain.SchemaViolationError{
			Reason: "response violates structural invariants",
			Raw:    raw,
			Cause:  err,
		}
	}
	return &result, nil
}
