package netcheck

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func noLocalCheck() error { return nil }

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestRequireTCPTarget(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	c := New([]string{closedAddr(t), ln.Addr().String()}, time.Second)
	c.Local = noLocalCheck
	if err := c.Require(context.Background()); err != nil {
		t.Errorf("expected reachable network, got %v", err)
	}
}

func TestRequireHTTPTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New([]string{srv.URL}, time.Second)
	c.Local = noLocalCheck
	if err := c.Require(context.Background()); err != nil {
		t.Errorf("an HTTP error status still proves reachability, got %v", err)
	}
}

func TestRequireAllTargetsDown(t *testing.T) {
	c := New([]string{closedAddr(t), closedAddr(t)}, time.Second)
	c.Local = noLocalCheck

	err := c.Require(context.Background())
	if !errors.Is(err, ErrNoNetwork) {
		t.Errorf("expected ErrNoNetwork, got %v", err)
	}
}

func TestRequireLocalNetworkDown(t *testing.T) {
	c := New([]string{"127.0.0.1:1"}, time.Second)
	c.Local = func() error { return errors.New("no interfaces") }

	err := c.Require(context.Background())
	if !errors.Is(err, ErrNoNetwork) {
		t.Errorf("expected ErrNoNetwork, got %v", err)
	}
}

func TestRequireLogsToInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	target := closedAddr(t)

	c := New([]string{target}, time.Second)
	c.Local = noLocalCheck
	c.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := c.Require(context.Background()); err == nil {
		t.Fatal("expected an error for an unreachable target")
	}
	out := buf.String()
	if !strings.Contains(out, "network target unreachable") || !strings.Contains(out, target) {
		t.Errorf("expected target failure in injected log, got %q", out)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(nil, 0)
	if len(c.Targets) != len(DefaultTargets) {
		t.Errorf("expected default targets, got %v", c.Targets)
	}
	if c.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %s", c.Timeout)
	}
}

func TestSkip(t *testing.T) {
	if err := (Skip{}).Require(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
