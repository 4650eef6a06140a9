package board

import (
	"errors"
	"testing"

	"deckhand/internal/model"

	"github.com/google/go-cmp/cmp"
)

func twoColumnBoard() *model.Board {
	return &model.Board{
		Name: "b",
		Columns: []*model.Column{
			{Name: "todo", Tasks: []*model.Task{{ID: "t1", Name: "a"}}},
			{Name: "done", Tasks: []*model.Task{{ID: "t2", Name: "b"}}},
		},
	}
}

func TestWithTaskName_PathCopy(t *testing.T) {
	before := twoColumnBoard()

	after, err := WithTaskName(before, 1, 0, "c")
	if err != nil {
		t.Fatalf("WithTaskName: %v", err)
	}

	want := &model.Board{
		Name: "b",
		Columns: []*model.Column{
			{Name: "todo", Tasks: []*model.Task{{ID: "t1", Name: "a"}}},
			{Name: "done", Tasks: []*model.Task{{ID: "t2", Name: "c"}}},
		},
	}
	if diff := cmp.Diff(want, after); diff != "" {
		t.Fatalf("board mismatch (-want +got):\n%s", diff)
	}

	if after == before {
		t.Fatalf("expected a new board value")
	}
	if after.Columns[0] != before.Columns[0] {
		t.Fatalf("expected untouched column to be shared by pointer")
	}
	if after.Columns[1] == before.Columns[1] {
		t.Fatalf("expected edited column to be copied")
	}
	if got := before.Columns[1].Tasks[0].Name; got != "b" {
		t.Fatalf("expected original board to be unchanged, got task name %q", got)
	}
}

func TestWithTaskName_SharesSiblingTasks(t *testing.T) {
	before := &model.Board{
		Columns: []*model.Column{
			{Name: "c0", Tasks: []*model.Task{{ID: "x", Name: "x"}, {ID: "y", Name: "y"}, {ID: "z", Name: "z"}}},
		},
	}
	after, err := WithTaskName(before, 0, 1, "Y")
	if err != nil {
		t.Fatalf("WithTaskName: %v", err)
	}
	if after.Columns[0].Tasks[0] != before.Columns[0].Tasks[0] || after.Columns[0].Tasks[2] != before.Columns[0].Tasks[2] {
		t.Fatalf("expected sibling tasks to be shared by pointer")
	}
	if after.Columns[0].Tasks[1] == before.Columns[0].Tasks[1] {
		t.Fatalf("expected renamed task to be a new value")
	}
	if after.Columns[0].Tasks[1].ID != "y" {
		t.Fatalf("expected task id to be kept, got %q", after.Columns[0].Tasks[1].ID)
	}
}

func TestWithTaskName_SameNameReturnsSameBoard(t *testing.T) {
	before := twoColumnBoard()
	after, err := WithTaskName(before, 0, 0, "a")
	if err != nil {
		t.Fatalf("WithTaskName: %v", err)
	}
	if after != before {
		t.Fatalf("expected unchanged name to return the same board")
	}
}

func TestWithTaskName_OutOfRange(t *testing.T) {
	tests := []struct {
		name      string
		col, task int
	}{
		{name: "negative column", col: -1, task: 0},
		{name: "column past end", col: 2, task: 0},
		{name: "negative task", col: 0, task: -1},
		{name: "task past end", col: 1, task: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			before := twoColumnBoard()
			after, err := WithTaskName(before, tt.col, tt.task, "nope")
			if !errors.Is(err, ErrStaleSelection) {
				t.Fatalf("expected ErrStaleSelection, got %v", err)
			}
			if after != before {
				t.Fatalf("expected board to be returned unchanged")
			}
		})
	}
}

func TestWithTaskName_NilBoard(t *testing.T) {
	if _, err := WithTaskName(nil, 0, 0, "x"); !errors.Is(err, ErrStaleSelection) {
		t.Fatalf("expected ErrStaleSelection for nil board, got %v", err)
	}
}
