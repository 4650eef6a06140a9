package model

// Task is a single card on a board.
type Task struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type Column struct {
	Name  string  `json:"name" yaml:"name"`
	Tasks []*Task `json:"tasks" yaml:"tasks"`
}

// Board is an ordered two-level collection: columns containing tasks.
//
// Boards are treated as immutable values once handed out. Edits produce a new
// Board that shares every untouched column and task by pointer.
type Board struct {
	Name    string    `json:"name" yaml:"name"`
	Columns []*Column `json:"columns" yaml:"columns"`
}

// Task returns the task at (col, task), or false if either index is out of range.
func (b *Board) Task(col, task int) (*Task, bool) {
	if b == nil || col < 0 || col >= len(b.Columns) {
		return nil, false
	}
	c := b.Columns[col]
	if c == nil || task < 0 || task >= len(c.Tasks) {
		return nil, false
	}
	t := c.Tasks[task]
	if t == nil {
		return nil, false
	}
	return t, true
}

// TaskCount returns the total number of tasks across all columns.
func (b *Board) TaskCount() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, c := range b.Columns {
		if c != nil {
			n += len(c.Tasks)
		}
	}
	return n
}

type Quote struct {
	ID     int    `json:"id"`
	Quote  string `json:"quote"`
	Author string `json:"author"`
}
