// Package tui is the interactive terminal front end: a quote fetcher with a
// deferred abort and an editable task board.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func Run(opts Options) error {
	applyColorProfilePreference()
	applyThemePreference(opts.Theme)

	m := newAppModel(opts)
	defer m.quotes.OnChange(nil)

	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
