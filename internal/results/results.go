// Package results implements the sinks task results are written to.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jandubois/netrics/internal/db"
	"github.com/jandubois/netrics/internal/task"
)

// Shape returns the document a record is published as. A non-empty label
// nests the payload under that key; annotate adds a "Meta" object.
func Shape(rec *task.Record) any {
	if rec.Label == "" && !rec.Annotate {
		return rec.Payload
	}

	doc := make(map[string]any)
	if rec.Label != "" {
		doc[rec.Label] = rec.Payload
	} else {
		doc["Measurements"] = rec.Payload
	}
	for k, v := range rec.Extend {
		doc[k] = v
	}
	if rec.Annotate {
		doc["Meta"] = map[string]any{
			"Time":     rec.StartedAt.UTC().Format(time.RFC3339),
			"Task":     rec.Task,
			"Run":      rec.RunID,
			"Duration": rec.Duration.Seconds(),
		}
	}
	return doc
}

// JSONSink writes one JSON document per result to a writer.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONSink creates a sink writing to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

// Write implements task.Sink.
func (s *JSONSink) Write(ctx context.Context, rec *task.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(Shape(rec)); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// DBSink stores results in SQLite.
type DBSink struct {
	db *db.DB
}

// NewDBSink creates a sink backed by database.
func NewDBSink(database *db.DB) *DBSink {
	return &DBSink{db: database}
}

// Write implements task.Sink.
func (s *DBSink) Write(ctx context.Context, rec *task.Record) error {
	return s.db.InsertResult(ctx, &db.TaskResult{
		RunID:     rec.RunID,
		Task:      rec.Task,
		Label:     rec.Label,
		Annotate:  rec.Annotate,
		Status:    string(rec.Status),
		Payload:   rec.Payload,
		StartedAt: rec.StartedAt,
		Duration:  rec.Duration,
	})
}

// Multi writes every result to all sinks and joins their errors.
type Multi []task.Sink

// Write implements task.Sink.
func (m Multi) Write(ctx context.Context, rec *task.Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
