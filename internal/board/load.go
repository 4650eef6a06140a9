package board

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"deckhand/internal/model"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Load reads a board from a YAML or JSON file. Tasks without an id are given
// a random one.
func Load(path string) (*model.Board, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("board path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes a board document. JSON is accepted since it is valid YAML.
func Parse(b []byte) (*model.Board, error) {
	var out model.Board
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse board: %w", err)
	}
	if err := normalize(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Encode renders a board as YAML.
func Encode(b *model.Board) ([]byte, error) {
	return yaml.Marshal(b)
}

func normalize(b *model.Board) error {
	b.Name = strings.TrimSpace(b.Name)
	seen := map[string]bool{}
	for ci, c := range b.Columns {
		if c == nil {
			return fmt.Errorf("column %d is empty", ci)
		}
		for ti, t := range c.Tasks {
			if t == nil {
				return fmt.Errorf("column %q: task %d is empty", c.Name, ti)
			}
			t.ID = strings.TrimSpace(t.ID)
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			if seen[t.ID] {
				return fmt.Errorf("duplicate task id: %s", t.ID)
			}
			seen[t.ID] = true
		}
	}
	return nil
}

// Default returns the sample board shown when no board file is configured.
func Default() *model.Board {
	col := func(name string, tasks ...string) *model.Column {
		c := &model.Column{Name: name, Tasks: make([]*model.Task, 0, len(tasks))}
		for _, t := range tasks {
			c.Tasks = append(c.Tasks, &model.Task{ID: uuid.NewString(), Name: t})
		}
		return c
	}
	return &model.Board{
		Name: "Tasks Board",
		Columns: []*model.Column{
			col("Backlog", "Set up the repository", "Write the onboarding guide", "Plan the release"),
			col("In Progress", "Build the quotes widget", "Review pull requests"),
			col("Done", "Create the project board"),
		},
	}
}
