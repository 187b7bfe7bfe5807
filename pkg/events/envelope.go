// Package events provides the progress event infrastructure for experiment
// runs: an envelope wrapping event payloads with consistent metadata, and
// the EventSink interface sinks implement. Emission is strictly best-effort;
// a failing sink never fails a run.
package events

import (
	"context"
	"time"
)

// Event types emitted by the experiment orchestrator.
const (
	TypeRunStarted      = "experiment.run_started"
	TypeRecordCompleted = "experiment.record_completed"
	TypeRecordFailed    = "experiment.record_failed"
	TypeRunFinished     = "experiment.run_finished"
)

// Envelope wraps one progress event with routing metadata.
type Envelope struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type identifies the event for routing, one of the Type constants.
	Type string `json:"type"`

	// RunID is the experiment run this event belongs to.
	RunID string `json:"run_id"`

	// ConfigName names the model configuration of the run.
	ConfigName string `json:"config_name"`

	// RecordID is set on per-record events, empty on run-level events.
	RecordID string `json:"record_id,omitempty"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// Fields carries event-specific data (scores, error summaries).
	Fields map[string]any `json:"fields,omitempty"`
}

// EventSink receives progress events. Implementations must be safe for
// concurrent use: workers of one run emit from multiple goroutines.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards all events.
type NoOpEventSink struct{}

// NewNoOpEventSink creates a sink that discards all events.
func NewNoOpEventSink() *NoOpEventSink { return &NoOpEventSink{} }

func (*NoOpEventSink) Append(context.Context, Envelope) error { return nil }
