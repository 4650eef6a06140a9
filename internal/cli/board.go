package cli

import (
	"fmt"
	"strings"

	"deckhand/internal/board"
	"deckhand/internal/format"
	"deckhand/internal/model"

	"github.com/spf13/cobra"
)

type renameResult struct {
	Board     *model.Board    `json:"board"`
	Selection board.Selection `json:"selection"`
	Changed   bool            `json:"changed"`
}

func newBoardCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Inspect and edit a task board",
	}
	cmd.AddCommand(newBoardShowCmd(app))
	cmd.AddCommand(newBoardRenameCmd(app))
	return cmd
}

func loadBoard(app *App) (*model.Board, error) {
	cfg, err := app.loadedConfig()
	if err != nil {
		return nil, err
	}
	path := strings.TrimSpace(cfg.Board.Path)
	if path == "" {
		return board.Default(), nil
	}
	return board.Load(path)
}

func newBoardShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBoard(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{
				Data: b,
				Meta: &format.Meta{Source: boardSource(app)},
			})
		},
	}
	return cmd
}

func newBoardRenameCmd(app *App) *cobra.Command {
	var (
		col  int
		task int
		name string
	)
	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename the task at (column, task) and print the resulting board",
		Long: strings.TrimSpace(`
Rename the task at (column, task) and print the resulting board.

The board file is not modified.
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("name") {
				return writeErr(cmd, fmt.Errorf("missing --name"))
			}
			b, err := loadBoard(app)
			if err != nil {
				return writeErr(cmd, err)
			}

			ed := board.NewEditor(b, app.logger())
			ed.Select(col, task)
			sel, ok := ed.Selection()
			if !ok {
				return writeErr(cmd, fmt.Errorf("%w: no task at column %d, task %d", board.ErrStaleSelection, col, task))
			}
			changed := ed.UpdateSelectedTaskName(name)
			return writeOut(cmd, app, format.Envelope{
				Data: renameResult{Board: ed.Board(), Selection: sel, Changed: changed},
				Meta: &format.Meta{Source: boardSource(app)},
			})
		},
	}
	cmd.Flags().IntVar(&col, "column", 0, "Column index (0-based)")
	cmd.Flags().IntVar(&task, "task", 0, "Task index within the column (0-based)")
	cmd.Flags().StringVar(&name, "name", "", "New task name")
	return cmd
}

func boardSource(app *App) string {
	if cfg, err := app.loadedConfig(); err == nil {
		if p := strings.TrimSpace(cfg.Board.Path); p != "" {
			return p
		}
	}
	return "default"
}
