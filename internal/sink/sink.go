// Package sink persists finished experiment output: batch results to files
// or Postgres, and progress events to append-only JSONL logs.
package sink

import (
	"context"

	"github.com/tallyvote/go-tallyeval/internal/domain"
)

// Sink stores one finished batch result. Implementations are write-only;
// analysis happens downstream.
type Sink interface {
	WriteBatch(ctx context.Context, batch *domain.ExperimentBatchResult) error
}
