package board

import (
	"errors"
	"io"

	"deckhand/internal/model"

	"github.com/sirupsen/logrus"
)

// Selection addresses a task by position.
type Selection struct {
	Column int `json:"columnIndex"`
	Task   int `json:"taskIndex"`
}

// Editor owns a board for the duration of a session and is the only way the
// board changes. It is not safe for concurrent use.
type Editor struct {
	board *model.Board
	// sel is the raw cursor as last set by Select/Move. It may point past the
	// end of the board; reads go through Selection which validates it.
	sel *Selection
	log logrus.FieldLogger
}

func NewEditor(b *model.Board, log logrus.FieldLogger) *Editor {
	if b == nil {
		b = &model.Board{}
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Editor{board: b, log: log}
}

// Board returns the current board. It shares columns and tasks with every
// earlier version of the board, so writing through it changes those too.
// Callers must treat it as read-only and rename through the editor.
func (e *Editor) Board() *model.Board { return e.board }

// Select sets the current selection. Out-of-range positions are accepted and
// read back as "no selection".
func (e *Editor) Select(col, task int) {
	e.sel = &Selection{Column: col, Task: task}
}

func (e *Editor) ClearSelection() { e.sel = nil }

// Selection returns the current selection if it addresses a task on the board.
func (e *Editor) Selection() (Selection, bool) {
	if e.sel == nil {
		return Selection{}, false
	}
	if _, ok := e.board.Task(e.sel.Column, e.sel.Task); !ok {
		return Selection{}, false
	}
	return *e.sel, true
}

// Cursor returns the raw cursor, valid or not. Renderers use it to highlight
// the focused column even when that column is empty.
func (e *Editor) Cursor() (Selection, bool) {
	if e.sel == nil {
		return Selection{}, false
	}
	return *e.sel, true
}

// SelectedTask returns a copy of the selected task.
func (e *Editor) SelectedTask() (model.Task, bool) {
	sel, ok := e.Selection()
	if !ok {
		return model.Task{}, false
	}
	t, ok := e.board.Task(sel.Column, sel.Task)
	if !ok {
		return model.Task{}, false
	}
	return *t, true
}

// UpdateSelectedTaskName renames the selected task. It reports whether the
// board changed; with no valid selection it is a no-op.
func (e *Editor) UpdateSelectedTaskName(name string) bool {
	sel, ok := e.Selection()
	if !ok {
		return false
	}
	next, err := WithTaskName(e.board, sel.Column, sel.Task, name)
	if err != nil {
		if errors.Is(err, ErrStaleSelection) {
			return false
		}
		e.log.WithError(err).Warn("rename task")
		return false
	}
	if next == e.board {
		return false
	}
	e.board = next
	e.log.WithFields(logrus.Fields{
		"column": sel.Column,
		"task":   sel.Task,
	}).Debug("task renamed")
	return true
}

// Replace swaps in a new board. A selection that no longer addresses a task
// is cleared.
func (e *Editor) Replace(b *model.Board) {
	if b == nil {
		b = &model.Board{}
	}
	e.board = b
	if e.sel == nil {
		return
	}
	if _, ok := e.board.Task(e.sel.Column, e.sel.Task); !ok {
		e.log.WithFields(logrus.Fields{
			"column": e.sel.Column,
			"task":   e.sel.Task,
		}).Debug("clearing stale selection")
		e.sel = nil
	}
}

// Move shifts the cursor by (dCol, dTask), clamping to the board. Moving
// across columns keeps the task row where possible. With no cursor, Move
// starts at the first task of the first column.
func (e *Editor) Move(dCol, dTask int) {
	n := len(e.board.Columns)
	if n == 0 {
		e.sel = nil
		return
	}
	cur := Selection{}
	if e.sel != nil {
		cur = *e.sel
		cur.Column += dCol
		cur.Task += dTask
	}

	if cur.Column < 0 {
		cur.Column = 0
	}
	if cur.Column >= n {
		cur.Column = n - 1
	}

	nTasks := 0
	if c := e.board.Columns[cur.Column]; c != nil {
		nTasks = len(c.Tasks)
	}
	if cur.Task >= nTasks {
		cur.Task = nTasks - 1
	}
	if cur.Task < 0 {
		cur.Task = 0
	}
	e.sel = &cur
}
