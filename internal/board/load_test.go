package board

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_YAMLAssignsMissingIDs(t *testing.T) {
	doc := `
name: Launch
columns:
  - name: Todo
    tasks:
      - name: Write docs
      - id: fixed
        name: Ship it
  - name: Done
    tasks: []
`
	b, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Name != "Launch" || len(b.Columns) != 2 {
		t.Fatalf("unexpected board: %#v", b)
	}
	if id := b.Columns[0].Tasks[0].ID; strings.TrimSpace(id) == "" {
		t.Fatalf("expected generated task id")
	}
	if id := b.Columns[0].Tasks[1].ID; id != "fixed" {
		t.Fatalf("expected explicit id to be kept, got %q", id)
	}
}

func TestParse_JSON(t *testing.T) {
	b, err := Parse([]byte(`{"name":"J","columns":[{"name":"c","tasks":[{"id":"1","name":"one"}]}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if task, ok := b.Task(0, 0); !ok || task.Name != "one" {
		t.Fatalf("unexpected task: %#v ok=%v", task, ok)
	}
}

func TestParse_DuplicateIDs(t *testing.T) {
	_, err := Parse([]byte(`{"columns":[{"name":"c","tasks":[{"id":"1","name":"a"},{"id":"1","name":"b"}]}]}`))
	if err == nil || !strings.Contains(err.Error(), "duplicate task id") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestLoad_RoundTripsThroughEncode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	raw, err := Encode(Default())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Name != "Tasks Board" {
		t.Fatalf("unexpected name %q", b.Name)
	}
	if got, want := b.TaskCount(), Default().TaskCount(); got != want {
		t.Fatalf("expected %d tasks, got %d", want, got)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	if _, err := Load("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
