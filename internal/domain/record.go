package domain

import "fmt"

// FormInput describes the input side of one dataset record: the logical
// multi-page form set the task function must extract from.
//
// PagePaths are recorded by the annotation process on whatever machine
// produced the dataset and may not be valid where the experiment runs; the
// path resolver translates them at load time.
type FormInput struct {
	FormSetName string   `json:"form_set_name" validate:"required"`
	PagePaths   []string `json:"page_paths"    validate:"required,min=1"`
	PageCount   int      `json:"page_count"    validate:"min=0"`

	// Context is optional free-text context handed to the model alongside
	// the page images (e.g. the province the form set belongs to).
	Context string `json:"context,omitempty"`
}

// Validate checks that the input references at least one page.
func (in *FormInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}

// DatasetRecord is one immutable row of a versioned dataset: an input form
// set plus its ground-truth extraction. Records are created by an external
// annotation process and are read-only from this core's perspective.
type DatasetRecord struct {
	ID       string           `json:"id" validate:"required"`
	Input    FormInput        `json:"input_data"`
	Expected ExtractionResult `json:"expected_output"`
}

// Validate checks the record's shape. The expected output is validated with
// the same structural rules as fresh extraction output.
func (r *DatasetRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: empty record id", ErrInvalidRecord)
	}
	if err := r.Input.Validate(); err != nil {
		return fmt.Errorf("record %s: %w", r.ID, err)
	}
	if err := r.Expected.Validate(); err != nil {
		return fmt.Errorf("record %s: expected output: %w", r.ID, err)
	}
	return nil
}
