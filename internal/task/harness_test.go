package task

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type stubProcess struct {
	out *Outcome
	err error
	inv *Invocation
}

func (p *stubProcess) Run(ctx context.Context, inv *Invocation) (*Outcome, error) {
	p.inv = inv
	return p.out, p.err
}

type stubNetwork struct{ err error }

func (n stubNetwork) Require(ctx context.Context) error { return n.err }

type stubSink struct {
	recs []*Record
	err  error
}

func (s *stubSink) Write(ctx context.Context, rec *Record) error {
	if s.err != nil {
		return s.err
	}
	s.recs = append(s.recs, rec)
	return nil
}

func newTestHarness(deps Deps) (*Harness, *bytes.Buffer) {
	var buf bytes.Buffer
	deps.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewHarness("example", deps), &buf
}

func TestHarnessPrepareInvalidParams(t *testing.T) {
	h, logs := newTestHarness(Deps{})
	var p testParams
	status, err := h.Prepare(context.Background(), map[string]any{"maxTTL": "0"}, &p)
	if status != StatusInvalidParams {
		t.Errorf("expected status %q, got %q", StatusInvalidParams, status)
	}
	if err == nil {
		t.Error("expected error")
	}
	if !strings.Contains(logs.String(), "parameter validation failed") {
		t.Errorf("expected validation log entry, got: %s", logs.String())
	}
}

func TestHarnessPrepareNoNetwork(t *testing.T) {
	netErr := errors.New("unreachable")
	h, _ := newTestHarness(Deps{Network: stubNetwork{err: netErr}})
	var p testParams
	status, err := h.Prepare(context.Background(), nil, &p)
	if status != StatusNoNetwork {
		t.Errorf("expected status %q, got %q", StatusNoNetwork, status)
	}
	if !errors.Is(err, netErr) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestHarnessInvokeTimeoutLogsCritical(t *testing.T) {
	proc := &stubProcess{out: &Outcome{Stdout: "partial", Stderr: "warn", TimedOut: true}}
	h, logs := newTestHarness(Deps{Process: proc})

	_, status, err := h.Invoke(context.Background(), &Invocation{Path: "tool", Args: []string{"-x"}, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusTimeout {
		t.Errorf("expected status %q, got %q", StatusTimeout, status)
	}
	out := logs.String()
	for _, want := range []string{"level=ERROR+4", "process timed out", `cmd="tool -x"`, "stdout=partial", "stderr=warn", "status=timeout", "elapsed=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in logs, got: %s", want, out)
		}
	}
}

func TestHarnessInvokeProcessError(t *testing.T) {
	proc := &stubProcess{out: &Outcome{}, err: errors.New("exec: not found")}
	h, _ := newTestHarness(Deps{Process: proc})

	_, status, err := h.Invoke(context.Background(), &Invocation{Path: "tool"})
	if status != StatusError {
		t.Errorf("expected status %q, got %q", StatusError, status)
	}
	if err == nil {
		t.Error("expected error")
	}
}

func TestHarnessReportWritesNilPayload(t *testing.T) {
	sink := &stubSink{}
	h, _ := newTestHarness(Deps{Sink: sink})

	status, err := h.Report(context.Background(), nil, ResultOptions{Label: "bf", Annotate: true})
	if err != nil || status != StatusSuccess {
		t.Fatalf("unexpected result: %q, %v", status, err)
	}
	if len(sink.recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.recs))
	}
	rec := sink.recs[0]
	if rec.Payload != nil {
		t.Errorf("expected nil payload, got %v", rec.Payload)
	}
	if rec.Label != "bf" || !rec.Annotate || rec.Extend != nil {
		t.Errorf("unexpected record options: %+v", rec)
	}
	if rec.Task != "example" || rec.RunID != h.RunID() {
		t.Errorf("unexpected record identity: %+v", rec)
	}
}

func TestHarnessReportSinkFailure(t *testing.T) {
	h, _ := newTestHarness(Deps{Sink: &stubSink{err: errors.New("disk full")}})
	status, err := h.Report(context.Background(), map[string]any{}, ResultOptions{})
	if status != StatusError || err == nil {
		t.Errorf("expected error status, got %q, %v", status, err)
	}
}
