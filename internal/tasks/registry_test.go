package tasks

import (
	"testing"

	"github.com/jandubois/netrics/internal/task"
)

func TestNew(t *testing.T) {
	for _, name := range Names() {
		tk, err := New(name, task.Deps{})
		if err != nil {
			t.Fatalf("New(%q): unexpected error: %v", name, err)
		}
		if got := tk.Describe().Name; got != name {
			t.Errorf("expected description name %q, got %q", name, got)
		}
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("speedtest", task.Deps{}); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestGetAllDescriptions(t *testing.T) {
	descs := GetAllDescriptions()
	if len(descs) != len(Names()) {
		t.Fatalf("expected %d descriptions, got %d", len(Names()), len(descs))
	}
	for i, name := range Names() {
		if descs[i].Name != name {
			t.Errorf("description %d: expected %q, got %q", i, name, descs[i].Name)
		}
	}
}
