package tui

import (
	"fmt"
	"strings"

	"deckhand/internal/board"
	"deckhand/internal/model"

	"github.com/charmbracelet/lipgloss"
)

const (
	promptSelectTask = "Select a task to update"
	promptUpdateTask = "Update task"
)

// renderBoardColumns lays the board out as side-by-side columns. cursor marks
// the focused column; a task is highlighted only when cursor addresses it.
func renderBoardColumns(b *model.Board, cursor board.Selection, hasCursor bool, width, height int) string {
	if width < 0 {
		width = 0
	}
	if b == nil || len(b.Columns) == 0 {
		return fitBlock(styleMuted().Render("(empty board)"), width, height)
	}

	n := len(b.Columns)
	gap := 2
	colW := (width - gap*(n-1)) / n
	if colW < 12 {
		colW = 12
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg).Background(colorControlBg).Padding(0, 1)
	headerFocused := header.Foreground(colorSelectedFg).Background(colorSelectedBg)
	card := lipgloss.NewStyle().Padding(0, 1)
	cardSelected := card.Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)
	innerW := colW - 2

	cols := make([]string, 0, n)
	for ci, col := range b.Columns {
		name := "(column)"
		var tasks []*model.Task
		if col != nil {
			if s := strings.TrimSpace(col.Name); s != "" {
				name = s
			}
			tasks = col.Tasks
		}
		focused := hasCursor && cursor.Column == ci

		hs := header
		if focused {
			hs = headerFocused
		}
		lines := []string{
			hs.Render(fitLine(fmt.Sprintf("%s (%d)", name, len(tasks)), innerW)),
			"",
		}
		if len(tasks) == 0 {
			lines = append(lines, card.Render(fitLine(styleMuted().Render("no tasks"), innerW)))
		}
		for ti, t := range tasks {
			title := "(untitled)"
			if t != nil && strings.TrimSpace(t.Name) != "" {
				title = strings.TrimSpace(t.Name)
			}
			st := card
			if focused && cursor.Task == ti {
				st = cardSelected
			}
			for _, ln := range wrapWords(title, innerW) {
				lines = append(lines, st.Render(fitLine(ln, innerW)))
			}
			lines = append(lines, "")
		}
		cols = append(cols, fitBlock(strings.Join(lines, "\n"), colW, height))
		if ci < n-1 {
			cols = append(cols, strings.Repeat(" ", gap))
		}
	}
	return fitBlock(lipgloss.JoinHorizontal(lipgloss.Top, cols...), width, height)
}

// renderBoardPane renders the board title, its columns and the rename panel.
func (m appModel) renderBoardPane(width, height int) string {
	b := m.editor.Board()
	title := styleTitle().Render(strings.TrimSpace(b.Name))
	if strings.TrimSpace(b.Name) == "" {
		title = styleTitle().Render("Board")
	}

	var panel []string
	if _, ok := m.editor.SelectedTask(); ok {
		panel = append(panel, styleTitle().Render(promptUpdateTask))
		in := m.input
		if !m.editing {
			in.Blur()
		}
		panel = append(panel, in.View())
	} else {
		panel = append(panel, styleMuted().Render(promptSelectTask))
	}

	colsH := height - 2 - len(panel) - 1
	if colsH < 3 {
		colsH = 3
	}
	cursor, hasCursor := m.editor.Cursor()
	parts := []string{
		title,
		"",
		renderBoardColumns(b, cursor, hasCursor, width, colsH),
		"",
	}
	parts = append(parts, panel...)
	return fitBlock(strings.Join(parts, "\n"), width, height)
}
