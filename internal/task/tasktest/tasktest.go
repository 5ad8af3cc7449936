// Package tasktest provides fakes and helpers for testing tasks.
package tasktest

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jandubois/netrics/internal/task"
)

// Sink records every result written to it.
type Sink struct {
	mu      sync.Mutex
	Records []*task.Record
	Err     error
}

func (s *Sink) Write(ctx context.Context, rec *task.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Records = append(s.Records, rec)
	return nil
}

// Last returns the most recent record, or nil.
func (s *Sink) Last() *task.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Records) == 0 {
		return nil
	}
	return s.Records[len(s.Records)-1]
}

// Network is a NetworkChecker returning Err.
type Network struct {
	Err   error
	Calls int
}

func (n *Network) Require(ctx context.Context) error {
	n.Calls++
	return n.Err
}

// Logger returns a debug-level text logger and the buffer it writes to.
func Logger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, &buf
}

// WriteScript writes an executable shell script into a temporary directory
// and returns its absolute path.
func WriteScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-tool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}
