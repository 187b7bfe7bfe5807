// Package activity provides shared infrastructure for Temporal activity
// implementations: context-safe logging, heartbeats, and best-effort event
// emission that work both inside real activity contexts and in plain test
// contexts.
package activity

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/tallyvote/go-tallyeval/pkg/events"
)

// Base carries the cross-cutting dependencies every activity type embeds.
type Base struct {
	sink events.EventSink
}

// NewBase creates activity infrastructure around an event sink. A nil sink
// disables emission, which is the usual test setup.
func NewBase(sink events.EventSink) Base {
	return Base{sink: sink}
}

// EmitEventSafe emits a progress event with a short retry. Event emission is
// observability plumbing and must never fail the activity, so errors are
// logged and swallowed.
func (b Base) EmitEventSafe(ctx context.Context, envelope events.Envelope, description string) {
	if b.sink == nil {
		return
	}

	const maxAttempts = 2
	const retryDelay = 200 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				SafeLogError(ctx, fmt.Sprintf("event emission cancelled: %s", description),
					"event_type", envelope.Type)
				return
			}
		}

		if err := b.sink.Append(ctx, envelope); err != nil {
			lastErr = err
			continue
		}
		return
	}

	SafeLogError(ctx, fmt.Sprintf("failed to emit %s after %d attempts", description, maxAttempts),
		"event_type", envelope.Type,
		"error", lastErr)
}

// RecordHeartbeat records progress on long-running activities. Safe to call
// outside an activity context.
func (b Base) RecordHeartbeat(ctx context.Context, details ...any) {
	RecordHeartbeat(ctx, details...)
}

// SafeLog logs through the activity logger when one is available and is a
// no-op in plain test contexts, where activity.GetLogger would panic.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	defer func() {
		_ = recover()
	}()
	activity.GetLogger(ctx).Info(msg, keyvals...)
}

// SafeLogError is SafeLog at ERROR level.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	defer func() {
		_ = recover()
	}()
	activity.GetLogger(ctx).Error(msg, keyvals...)
}

// RecordHeartbeat records an activity heartbeat, ignoring non-activity
// contexts.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() {
		_ = recover()
	}()
	activity.RecordHeartbeat(ctx, details...)
}
