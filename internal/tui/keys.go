package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Quit      key.Binding
	SwitchTab key.Binding
	Help      key.Binding

	Fetch       key.Binding
	Refetch     key.Binding
	Cancel      key.Binding
	ToggleAbort key.Binding

	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Edit   key.Binding
	Done   key.Binding
	Escape key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		SwitchTab: key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch view")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),

		Fetch:       key.NewBinding(key.WithKeys("f", "enter"), key.WithHelp("f", "fetch quotes")),
		Refetch:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refetch")),
		Cancel:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel")),
		ToggleAbort: key.NewBinding(key.WithKeys("a", " "), key.WithHelp("a", "toggle abort")),

		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev column")),
		Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next column")),
		Edit:   key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "rename task")),
		Done:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "done")),
		Escape: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "deselect")),
	}
}

// helpKeys picks the bindings that apply to the current view.
type helpKeys struct {
	k       keyMap
	view    view
	editing bool
}

func (h helpKeys) ShortHelp() []key.Binding {
	switch {
	case h.editing:
		return []key.Binding{h.k.Done, withHelp(h.k.Escape, "esc", "stop editing")}
	case h.view == viewBoard:
		return []key.Binding{h.k.Left, h.k.Down, h.k.Edit, h.k.SwitchTab, h.k.Quit}
	default:
		return []key.Binding{h.k.Fetch, h.k.ToggleAbort, h.k.SwitchTab, h.k.Quit}
	}
}

func (h helpKeys) FullHelp() [][]key.Binding {
	switch {
	case h.editing:
		return [][]key.Binding{h.ShortHelp()}
	case h.view == viewBoard:
		return [][]key.Binding{
			{h.k.Up, h.k.Down, h.k.Left, h.k.Right},
			{h.k.Edit, h.k.Escape},
			{h.k.SwitchTab, h.k.Help, h.k.Quit},
		}
	default:
		return [][]key.Binding{
			{h.k.Fetch, h.k.Refetch, h.k.Cancel},
			{h.k.ToggleAbort},
			{h.k.SwitchTab, h.k.Help, h.k.Quit},
		}
	}
}

func withHelp(b key.Binding, k, desc string) key.Binding {
	b.SetHelp(k, desc)
	return b
}
