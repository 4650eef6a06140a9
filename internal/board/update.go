package board

import (
	"errors"
	"fmt"

	"deckhand/internal/model"
)

// ErrStaleSelection is returned when a (column, task) position no longer
// addresses a task on the board.
var ErrStaleSelection = errors.New("stale selection")

// WithTaskName returns a copy of b where the task at (col, task) is renamed.
//
// Only the path from the board to the task is copied: the board, its column
// slice, the addressed column, its task slice and the task itself. Every other
// column and task in the result is pointer-identical to the one in b.
// b is never modified.
func WithTaskName(b *model.Board, col, task int, name string) (*model.Board, error) {
	t, ok := b.Task(col, task)
	if !ok {
		return b, fmt.Errorf("%w: column %d, task %d", ErrStaleSelection, col, task)
	}
	if t.Name == name {
		return b, nil
	}

	nt := *t
	nt.Name = name

	c := b.Columns[col]
	tasks := make([]*model.Task, len(c.Tasks))
	copy(tasks, c.Tasks)
	tasks[task] = &nt

	nc := *c
	nc.Tasks = tasks

	cols := make([]*model.Column, len(b.Columns))
	copy(cols, b.Columns)
	cols[col] = &nc

	nb := *b
	nb.Columns = cols
	return &nb, nil
}
