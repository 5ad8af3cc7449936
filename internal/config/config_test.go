package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadRunFile(t *testing.T) {
	t.Setenv("BF_EXEC", "/opt/netrics/bin/netrics-bottleneck-finder")

	path := writeFile(t, "tasks.yaml", `
database: /var/lib/netrics/results.db
log_level: debug
network:
  targets: ["1.1.1.1:53", "https://example.net"]
  timeout: 2s
tasks:
  - task: bottleneck-finder
    params:
      exec: ${BF_EXEC}
      maxTTL: "8"
      timeout: false
      result:
        label: bf
  - task: tslp-bottleneck-finder
`)

	rf, err := LoadRunFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rf.Database != "/var/lib/netrics/results.db" || rf.LogLevel != "debug" {
		t.Errorf("unexpected settings: %+v", rf)
	}
	if len(rf.Network.Targets) != 2 || rf.Network.Timeout != 2*time.Second {
		t.Errorf("unexpected network config: %+v", rf.Network)
	}
	if len(rf.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(rf.Tasks))
	}

	params := rf.Tasks[0].Params
	if params["exec"] != "/opt/netrics/bin/netrics-bottleneck-finder" {
		t.Errorf("expected env expansion, got %v", params["exec"])
	}
	if params["timeout"] != false {
		t.Errorf("expected timeout false, got %#v", params["timeout"])
	}
	result, ok := params["result"].(map[string]any)
	if !ok || result["label"] != "bf" {
		t.Errorf("unexpected nested params: %#v", params["result"])
	}
	if rf.Tasks[1].Params != nil {
		t.Errorf("expected no params for second task, got %v", rf.Tasks[1].Params)
	}
}

func TestLoadRunFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{"no tasks", "database: x.db\n", "no tasks configured"},
		{"missing name", "tasks:\n  - params: {}\n", "missing task name"},
		{"bad yaml", "tasks: [\n", "parse run file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRunFile(writeFile(t, "tasks.yaml", tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.message) {
				t.Errorf("expected error containing %q, got %v", tt.message, err)
			}
		})
	}
}

func TestLoadEnv(t *testing.T) {
	path := writeFile(t, "netrics.env", "NETRICS_TEST_TOKEN=from-file\nDATABASE_PATH=/tmp/from-file.db\n")
	t.Setenv("DATABASE_PATH", "/tmp/from-env.db")
	t.Setenv("NETRICS_TEST_TOKEN", "")
	os.Unsetenv("NETRICS_TEST_TOKEN")

	if err := LoadEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("NETRICS_TEST_TOKEN"); got != "from-file" {
		t.Errorf("expected value from env file, got %q", got)
	}
	if got := os.Getenv("DATABASE_PATH"); got != "/tmp/from-env.db" {
		t.Errorf("existing environment should win, got %q", got)
	}
}

func TestLoadEnvMissingExplicitFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected error for missing env file")
	}
}
