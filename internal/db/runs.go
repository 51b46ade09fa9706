package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run lifecycle states. A run moves pending -> processing -> completed
// or failed; there are no other transitions.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("analysis run not found")

// timeLayout is fixed-width RFC3339 so stored timestamps sort
// lexically in created_at ORDER BY clauses.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// AnalysisRun is a persisted request to run one operation over one
// raster source, with its lifecycle state and result document.
type AnalysisRun struct {
	RunID        string          `json:"run_id"`
	Operation    string          `json:"operation"`
	SourcePath   string          `json:"source_path"`
	SourceFormat string          `json:"source_format"`
	Rows         int             `json:"rows"`
	Cols         int             `json:"cols"`
	Bands        int             `json:"bands"`
	Options      json.RawMessage `json:"options,omitempty"`
	Status       string          `json:"status"`
	Error        string          `json:"error,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// RunStore manages persistence for analysis runs.
type RunStore struct {
	db *DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// InsertRun persists a new pending run. A missing RunID is generated;
// empty options become the empty JSON object.
func (s *RunStore) InsertRun(ctx context.Context, run *AnalysisRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = StatusPending
	}
	if len(run.Options) == 0 {
		run.Options = json.RawMessage("{}")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	if run.SourceFormat == "" {
		run.SourceFormat = "csv"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (run_id, operation, source_path, source_format, rows, cols, bands, options_json, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Operation, run.SourcePath, run.SourceFormat,
		run.Rows, run.Cols, run.Bands, string(run.Options),
		run.Status, run.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun fetches a run by ID.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*AnalysisRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, operation, source_path, source_format, rows, cols, bands,
		       options_json, status, error_message, result_json,
		       created_at, started_at, completed_at
		FROM analysis_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first. A non-empty
// status filters the list.
func (s *RunStore) ListRuns(ctx context.Context, status string, limit int) ([]*AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
		SELECT run_id, operation, source_path, source_format, rows, cols, bands,
		       options_json, status, error_message, result_json,
		       created_at, started_at, completed_at
		FROM analysis_runs`
	args := []interface{}{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ClaimPending atomically moves up to limit pending runs to processing
// and returns them, oldest first. Concurrent claimers never receive the
// same run.
func (s *RunStore) ClaimPending(ctx context.Context, limit int) ([]*AnalysisRun, error) {
	if limit <= 0 {
		limit = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT run_id, operation, source_path, source_format, rows, cols, bands,
		       options_json, status, error_message, result_json,
		       created_at, started_at, completed_at
		FROM analysis_runs WHERE status = ?
		ORDER BY created_at ASC LIMIT ?`, StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending runs: %w", err)
	}

	var runs []*AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	now := time.Now().UTC()
	for _, run := range runs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE analysis_runs SET status = ?, started_at = ? WHERE run_id = ?`,
			StatusProcessing, now.Format(timeLayout), run.RunID); err != nil {
			return nil, fmt.Errorf("claim run %s: %w", run.RunID, err)
		}
		run.Status = StatusProcessing
		started := now
		run.StartedAt = &started
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return runs, nil
}

// CompleteRun records a successful result document and finishes the run.
func (s *RunStore) CompleteRun(ctx context.Context, runID string, result json.RawMessage) error {
	return s.finishRun(ctx, runID, StatusCompleted, "", result)
}

// FailRun records the failure message and finishes the run.
func (s *RunStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	return s.finishRun(ctx, runID, StatusFailed, errMsg, nil)
}

func (s *RunStore) finishRun(ctx context.Context, runID, status, errMsg string, result json.RawMessage) error {
	var resultVal interface{}
	if result != nil {
		resultVal = string(result)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE analysis_runs SET status = ?, error_message = ?, result_json = ?, completed_at = ?
		WHERE run_id = ? AND status = ?`,
		status, errMsg, resultVal, time.Now().UTC().Format(timeLayout),
		runID, StatusProcessing)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: not in %s state", runID, StatusProcessing)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*AnalysisRun, error) {
	var (
		run         AnalysisRun
		options     string
		result      sql.NullString
		createdAt   string
		startedAt   sql.NullString
		completedAt sql.NullString
	)
	err := row.Scan(&run.RunID, &run.Operation, &run.SourcePath, &run.SourceFormat,
		&run.Rows, &run.Cols, &run.Bands, &options,
		&run.Status, &run.Error, &result, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	run.Options = json.RawMessage(options)
	if result.Valid {
		run.Result = json.RawMessage(result.String)
	}

	run.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for run %s: %w", run.RunID, err)
	}
	if startedAt.Valid {
		t, err := time.Parse(timeLayout, startedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse started_at for run %s: %w", run.RunID, err)
		}
		run.StartedAt = &t
	}
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at for run %s: %w", run.RunID, err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}
