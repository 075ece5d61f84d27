package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run represents a collection run
type Run struct {
	RunID           int64
	RunUUID         string
	TraineeID       string
	WaitSeconds     int
	RetryOnError    bool
	PageCount       int
	StartedAt       time.Time
	FinishedAt      *time.Time
	VectorizedCount int
	WarningCount    int
	FailedCount     int
	OutputPath      string
	ErrorMessage    string
}

// PageResult is the final status recorded for one page of a run
type PageResult struct {
	RunID      int64
	Position   int
	URL        string
	Filename   string
	Outcome    string
	Message    string
	IsError    bool
	RecordedAt time.Time
}

// RunCounts are the per-outcome totals written when a run finishes
type RunCounts struct {
	Vectorized int
	Warnings   int
	Failed     int
}

// StartRun inserts a run and returns its ID.
func (db *DB) StartRun(runUUID, traineeID string, waitSeconds int, retryOnError bool, pageCount int) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (run_uuid, trainee_id, wait_seconds, retry_on_error, page_count)
		VALUES (?, ?, ?, ?, ?)
	`, runUUID, traineeID, waitSeconds, retryOnError, pageCount)
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}
	return result.LastInsertId()
}

// RecordPageResult stores a page's final status. Recording the same position
// twice keeps the latest status.
func (db *DB) RecordPageResult(r PageResult) error {
	_, err := db.Exec(`
		INSERT INTO page_results (run_id, position, url, filename, outcome, message, is_error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, position) DO UPDATE SET
			outcome = excluded.outcome,
			message = excluded.message,
			is_error = excluded.is_error,
			recorded_at = CURRENT_TIMESTAMP
	`, r.RunID, r.Position, r.URL, NewNullString(r.Filename), r.Outcome, r.Message, r.IsError)
	if err != nil {
		return fmt.Errorf("failed to record page result: %w", err)
	}
	return nil
}

// FinishRun stores the run's totals, where its output went and its error, if any.
func (db *DB) FinishRun(runID int64, counts RunCounts, outputPath, errorMessage string) error {
	result, err := db.Exec(`
		UPDATE runs
		SET finished_at = CURRENT_TIMESTAMP,
		    vectorized_count = ?,
		    warning_count = ?,
		    failed_count = ?,
		    output_path = ?,
		    error_message = ?
		WHERE run_id = ?
	`, counts.Vectorized, counts.Warnings, counts.Failed, NewNullString(outputPath), NewNullString(errorMessage), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `run_id, run_uuid, trainee_id, wait_seconds, retry_on_error, page_count,
	started_at, finished_at, vectorized_count, warning_count, failed_count, output_path, error_message`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var finishedAt sql.NullTime
	var outputPath, errorMessage sql.NullString
	err := row.Scan(&r.RunID, &r.RunUUID, &r.TraineeID, &r.WaitSeconds, &r.RetryOnError, &r.PageCount,
		&r.StartedAt, &finishedAt, &r.VectorizedCount, &r.WarningCount, &r.FailedCount, &outputPath, &errorMessage)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		r.FinishedAt = &t
	}
	r.OutputPath = outputPath.String
	r.ErrorMessage = errorMessage.String
	return &r, nil
}

// GetRun returns a run by ID
func (db *DB) GetRun(runID int64) (*Run, error) {
	row := db.QueryRow("SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query("SELECT "+runColumns+" FROM runs ORDER BY run_id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetPageResults returns a run's page results in visit order
func (db *DB) GetPageResults(runID int64) ([]PageResult, error) {
	rows, err := db.Query(`
		SELECT run_id, position, url, filename, outcome, message, is_error, recorded_at
		FROM page_results
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get page results: %w", err)
	}
	defer rows.Close()

	var results []PageResult
	for rows.Next() {
		var r PageResult
		var filename sql.NullString
		if err := rows.Scan(&r.RunID, &r.Position, &r.URL, &filename, &r.Outcome, &r.Message, &r.IsError, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page result: %w", err)
		}
		r.Filename = filename.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// NewNullString returns a NULL for empty strings
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
