package cmd

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"github.com/jandubois/netrics/internal/db"
	"github.com/jandubois/netrics/internal/task"
	"github.com/jandubois/netrics/internal/task/tasktest"
	"github.com/jandubois/netrics/internal/tasks/tslp"
)

func TestTaskCommandTimeoutExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping on Windows")
	}

	script := tasktest.WriteScript(t, "exec sleep 10")
	rootCmd.SetArgs([]string{"bottleneck-finder", "--exec", script, "--timeout", "0.3", "--skip-net-check", "-q"})

	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		t.Fatal("expected an error for a timed-out task")
	}
	if code := ExitCode(err); code != task.StatusTimeout.ExitCode() {
		t.Errorf("expected exit code %d, got %d (%v)", task.StatusTimeout.ExitCode(), code, err)
	}
}

func TestRunFileStoresResults(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping on Windows")
	}

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "results.db")
	bf := tasktest.WriteScript(t, `echo '{"download": 50.5, "upload": 9.1}'`)
	ts := tasktest.WriteScript(t, "echo ignored")

	runFile := filepath.Join(dir, "netrics.yaml")
	content := "database: " + dbPath + `
network:
  skip: true
tasks:
  - task: bottleneck-finder
    params:
      exec: ` + bf + `
      timeout: 0
  - task: tslp-bottleneck-finder
    params:
      exec: ` + ts + `
      result:
        annotate: false
`
	if err := os.WriteFile(runFile, []byte(content), 0644); err != nil {
		t.Fatalf("write run file: %v", err)
	}

	rootCmd.SetArgs([]string{"run", "--config", runFile, "-q"})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, dbPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer database.Close()

	stored, err := database.ListResults(ctx, db.ResultFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored results, got %d", len(stored))
	}

	byTask := make(map[string]*db.TaskResult)
	for _, r := range stored {
		byTask[r.Task] = r
	}
	if !reflect.DeepEqual(byTask["bottleneck-finder"].Payload, map[string]any{"download": 50.5, "upload": 9.1}) {
		t.Errorf("unexpected bottleneck payload: %#v", byTask["bottleneck-finder"].Payload)
	}
	if !reflect.DeepEqual(byTask[tslp.Name].Payload, map[string]any{"Status": "Success"}) {
		t.Errorf("unexpected tslp payload: %#v", byTask[tslp.Name].Payload)
	}
	if byTask[tslp.Name].Annotate {
		t.Error("expected annotate=false to be stored for the tslp result")
	}
}

func TestParamNames(t *testing.T) {
	names := paramNames(tslp.GetDescription())
	want := []string{"count", "dataDir", "exec", "maxTTL", "pingType", "timeout", "toolType"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("expected %v, got %v", want, names)
	}
}
