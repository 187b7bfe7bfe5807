package activity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tallyvote/go-tallyeval/pkg/events"
)

// flakySink fails the first n Append calls, then succeeds.
type flakySink struct {
	mu        sync.Mutex
	failures  int
	envelopes []events.Envelope
}

func (s *flakySink) Append(_ context.Context, e events.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.envelopes = append(s.envelopes, e)
	return nil
}

func (s *flakySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.envelopes)
}

func TestEmitEventSafe(t *testing.T) {
	envelope := events.Envelope{ID: "e1", Type: events.TypeRunStarted, RunID: "run-1"}

	t.Run("delivers on the first attempt", func(t *testing.T) {
		sink := &flakySink{}
		NewBase(sink).EmitEventSafe(context.Background(), envelope, "run started")
		assert.Equal(t, 1, sink.count())
	})

	t.Run("retries once after a transient sink failure", func(t *testing.T) {
		sink := &flakySink{failures: 1}
		NewBase(sink).EmitEventSafe(context.Background(), envelope, "run started")
		assert.Equal(t, 1, sink.count())
	})

	t.Run("gives up without erroring when the sink stays down", func(t *testing.T) {
		sink := &flakySink{failures: 10}
		NewBase(sink).EmitEventSafe(context.Background(), envelope, "run started")
		assert.Equal(t, 0, sink.count())
	})

	t.Run("nil sink is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() {
			NewBase(nil).EmitEventSafe(context.Background(), envelope, "run started")
		})
	})

	t.Run("cancelled context stops the retry wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sink := &flakySink{failures: 1}
		NewBase(sink).EmitEventSafe(ctx, envelope, "run started")
		assert.Equal(t, 0, sink.count())
	})
}

func TestSafeHelpersOutsideActivityContext(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() { SafeLog(ctx, "msg", "k", "v") })
	assert.NotPanics(t, func() { SafeLogError(ctx, "msg", "k", "v") })
	assert.NotPanics(t, func() { RecordHeartbeat(ctx, "detail") })
	assert.NotPanics(t, func() { NewBase(nil).RecordHeartbeat(ctx) })
}
