package sink

import (
	"context"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/jmoiron/sqlx"

	"github.com/tallyvote/go-tallyeval/internal/domain"
)

const runsSchema = `
CREATE TABLE IF NOT EXISTS experiment_runs (
	run_id             TEXT PRIMARY KEY,
	config_name        TEXT NOT NULL,
	model              TEXT NOT NULL,
	provider           TEXT NOT NULL DEFAULT '',
	temperature        DOUBLE PRECISION NOT NULL,
	state              TEXT NOT NULL,
	total_records      INTEGER NOT NULL,
	successful_records INTEGER NOT NULL,
	failed_records     INTEGER NOT NULL,
	summary_metrics    JSONB NOT NULL,
	per_record_results JSONB NOT NULL,
	started_at         TIMESTAMPTZ NOT NULL,
	completed_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS experiment_failures (
	run_id        TEXT NOT NULL REFERENCES experiment_runs (run_id) ON DELETE CASCADE,
	record_id     TEXT NOT NULL,
	error_type    TEXT NOT NULL,
	error_message TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS experiment_failures_run_idx ON experiment_failures (run_id);
`

const insertRun = `
INSERT INTO experiment_runs (
	run_id, config_name, model, provider, temperature, state,
	total_records, successful_records, failed_records,
	summary_metrics, per_record_results, started_at, completed_at
) VALUES (
	:run_id, :config_name, :model, :provider, :temperature, :state,
	:total_records, :successful_records, :failed_records,
	:summary_metrics, :per_record_results, :started_at, :completed_at
)`

const insertFailure = `
INSERT INTO experiment_failures (run_id, record_id, error_type, error_message)
VALUES (:run_id, :record_id, :error_type, :error_message)`

// PostgresSink stores batch results in Postgres. Summary metrics and
// per-record results land in JSONB columns; failures get their own rows so
// they stay queryable without unpacking JSON.
type PostgresSink struct {
	db *sqlx.DB
}

// NewPostgresSink connects via the pgx stdlib driver and verifies the
// connection.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

// NewPostgresSinkFromDB wraps an existing connection, used by tests.
func NewPostgresSinkFromDB(db *sqlx.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// EnsureSchema creates the result tables when they do not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, runsSchema); err != nil {
		return fmt.Errorf("creating result tables: %w", err)
	}
	return nil
}

// WriteBatch inserts every run of the batch in one transaction.
func (s *PostgresSink) WriteBatch(ctx context.Context, batch *domain.ExperimentBatchResult) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for i := range batch.Runs {
		if err := insertRunTx(ctx, tx, &batch.Runs[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

func insertRunTx(ctx context.Context, tx *sqlx.Tx, run *domain.ExperimentRunResult) error {
	metrics, err := json.Marshal(run.SummaryMetrics)
	if err != nil {
		return fmt.Errorf("encoding summary metrics: %w", err)
	}
	records, err := json.Marshal(run.Records)
	if err != nil {
		return fmt.Errorf("encoding record results: %w", err)
	}

	if _, err := tx.NamedExecContext(ctx, insertRun, map[string]any{
		"run_id":             run.RunID,
		"config_name":        run.Config.Name(),
		"model":              run.Config.Model,
		"provider":           run.Config.Provider,
		"temperature":        run.Config.Temperature,
		"state":              string(run.State),
		"total_records":      run.TotalRecords,
		"successful_records": run.Successful,
		"failed_records":     run.Failed,
		"summary_metrics":    metrics,
		"per_record_results": records,
		"started_at":         run.StartedAt,
		"completed_at":       run.CompletedAt,
	}); err != nil {
		return fmt.Errorf("inserting run %s: %w", run.RunID, err)
	}

	for _, f := range run.Failures {
		if _, err := tx.NamedExecContext(ctx, insertFailure, map[string]any{
			"run_id":        run.RunID,
			"record_id":     f.RecordID,
			"error_type":    f.ErrorType,
			"error_message": f.ErrorMessage,
		}); err != nil {
			return fmt.Errorf("inserting failure %s/%s: %w", run.RunID, f.RecordID, err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}
