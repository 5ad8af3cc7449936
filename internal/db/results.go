package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TaskResult is a stored task result.
type TaskResult struct {
	ID         int64
	RunID      string
	Task       string
	Label      string
	Annotate   bool
	Status     string
	Payload    any
	StartedAt  time.Time
	Duration   time.Duration
	RecordedAt time.Time
}

// ResultFilter narrows ListResults.
type ResultFilter struct {
	Task  string
	Limit int
}

// InsertResult stores a task result.
func (d *DB) InsertResult(ctx context.Context, r *TaskResult) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO task_results (run_id, task, label, annotate, status, payload, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Task, r.Label, r.Annotate, r.Status, JSONValue{V: r.Payload},
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// ListResults returns stored results, newest first.
func (d *DB) ListResults(ctx context.Context, f ResultFilter) ([]*TaskResult, error) {
	var (
		where []string
		args  []any
	)
	if f.Task != "" {
		where = append(where, "task = ?")
		args = append(args, f.Task)
	}

	query := `SELECT id, run_id, task, label, annotate, status, payload, started_at, duration_ms, recorded_at FROM task_results`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []*TaskResult
	for rows.Next() {
		var (
			r          TaskResult
			payload    JSONValue
			startedAt  NullTime
			recordedAt NullTime
			durationMs int64
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Task, &r.Label, &r.Annotate, &r.Status,
			&payload, &startedAt, &durationMs, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Payload = payload.V
		r.StartedAt = startedAt.Time
		r.RecordedAt = recordedAt.Time
		r.Duration = time.Duration(durationMs) * time.Millisecond
		results = append(results, &r)
	}
	return results, rows.Err()
}
