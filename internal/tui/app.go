package tui

import (
	"io"
	"strings"
	"time"

	"deckhand/internal/board"
	"deckhand/internal/model"
	"deckhand/internal/notify"
	"deckhand/internal/query"
	"deckhand/internal/quotes"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

type view int

const (
	viewQuotes view = iota
	viewBoard
)

const (
	quotesTitle       = "Query Cancellation With Abort Controller"
	quotesErrorText   = "There was a problem with fetching quotes"
	quotesLoadingText = "Fetching quotes"

	toastTTL  = 3 * time.Second
	maxToasts = 3
)

type Options struct {
	Quotes *query.Cache[[]model.Quote]
	Editor *board.Editor
	// Toasts receives the cache's notifications.
	Toasts *notify.Queue

	Abort      bool
	AbortAfter time.Duration
	Theme      string
	Logger     logrus.FieldLogger
}

// quotesChangedMsg signals that the quotes record may have changed; the model
// re-reads the cache rather than trusting a copy carried in the message.
type quotesChangedMsg struct{}

type abortTickMsg struct{ gen uint64 }

type toastMsg struct{ msg notify.Message }

type toastExpiredMsg struct{ seq int }

type toast struct {
	seq int
	msg notify.Message
}

type appModel struct {
	quotes  *query.Cache[[]model.Quote]
	changed chan struct{}
	toastsC <-chan notify.Message
	rec     query.Record[[]model.Quote]

	abort      bool
	abortAfter time.Duration

	editor  *board.Editor
	editing bool
	input   textinput.Model

	view     view
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	toasts   []toast
	toastSeq int

	width  int
	height int
	log    logrus.FieldLogger
}

func newAppModel(opts Options) appModel {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	c := opts.Quotes
	if c == nil {
		c = query.New[[]model.Quote](query.Opts{Logger: log})
		c.Define(quotes.QueryKey, quotes.Fetch(quotes.Static(quotes.Defaults())))
	}
	ed := opts.Editor
	if ed == nil {
		ed = board.NewEditor(board.Default(), log)
	}
	abortAfter := opts.AbortAfter
	if abortAfter <= 0 {
		abortAfter = 200 * time.Millisecond
	}

	in := textinput.New()
	in.Prompt = "> "
	in.CharLimit = 200
	in.Placeholder = "task name"

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	m := appModel{
		quotes:     c,
		changed:    make(chan struct{}, 1),
		abort:      opts.Abort,
		abortAfter: abortAfter,
		editor:     ed,
		input:      in,
		keys:       defaultKeyMap(),
		help:       help.New(),
		spinner:    sp,
		log:        log,
	}
	if opts.Toasts != nil {
		m.toastsC = opts.Toasts.C()
	}
	changed := m.changed
	c.OnChange(func(key string, _ query.Record[[]model.Quote]) {
		if key != quotes.QueryKey {
			return
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	m.rec = c.Status(quotes.QueryKey)
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.changed), waitForToast(m.toastsC))
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return quotesChangedMsg{}
	}
}

func waitForToast(ch <-chan notify.Message) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return toastMsg{msg: msg}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(10, msg.Width-4)
		return m, nil

	case quotesChangedMsg:
		m.rec = m.quotes.Status(quotes.QueryKey)
		return m, waitForChange(m.changed)

	case abortTickMsg:
		if m.quotes.CancelGeneration(quotes.QueryKey, msg.gen) {
			m.log.WithFields(logrus.Fields{"key": quotes.QueryKey, "generation": msg.gen}).Debug("abort timer fired")
		}
		m.rec = m.quotes.Status(quotes.QueryKey)
		return m, nil

	case toastMsg:
		m.toastSeq++
		m.toasts = append(m.toasts, toast{seq: m.toastSeq, msg: msg.msg})
		if len(m.toasts) > maxToasts {
			m.toasts = m.toasts[len(m.toasts)-maxToasts:]
		}
		seq := m.toastSeq
		return m, tea.Batch(
			waitForToast(m.toastsC),
			tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} }),
		)

	case toastExpiredMsg:
		kept := m.toasts[:0]
		for _, t := range m.toasts {
			if t.seq != msg.seq {
				kept = append(kept, t)
			}
		}
		m.toasts = kept
		return m, nil

	case spinner.TickMsg:
		if !m.rec.IsLoading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.updateEditing(msg)
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.SwitchTab):
		if m.view == viewQuotes {
			m.view = viewBoard
		} else {
			m.view = viewQuotes
		}
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if m.view == viewBoard {
		return m.updateBoardKey(msg)
	}
	return m.updateQuotesKey(msg)
}

func (m appModel) updateQuotesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Fetch):
		return m, m.fetchQuotes(false)
	case key.Matches(msg, m.keys.Refetch):
		return m, m.fetchQuotes(true)
	case key.Matches(msg, m.keys.Cancel):
		m.quotes.Cancel(quotes.QueryKey)
		m.rec = m.quotes.Status(quotes.QueryKey)
	case key.Matches(msg, m.keys.ToggleAbort):
		m.abort = !m.abort
	}
	return m, nil
}

// fetchQuotes starts (or supersedes) an attempt and, when abort is on, arms
// a cancel bound to that attempt's generation.
func (m *appModel) fetchQuotes(supersede bool) tea.Cmd {
	var (
		gen uint64
		err error
	)
	if supersede {
		gen, err = m.quotes.Refetch(quotes.QueryKey)
	} else {
		gen, err = m.quotes.Trigger(quotes.QueryKey)
	}
	if err != nil {
		m.log.WithError(err).Warn("fetch quotes")
		return func() tea.Msg {
			return toastMsg{msg: notify.Message{Level: notify.LevelError, Text: err.Error(), At: time.Now()}}
		}
	}
	m.rec = m.quotes.Status(quotes.QueryKey)

	cmds := []tea.Cmd{m.spinner.Tick}
	if m.abort {
		d := m.abortAfter
		cmds = append(cmds, tea.Tick(d, func(time.Time) tea.Msg { return abortTickMsg{gen: gen} }))
	}
	return tea.Batch(cmds...)
}

func (m appModel) updateBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.editor.Move(0, -1)
	case key.Matches(msg, m.keys.Down):
		m.editor.Move(0, 1)
	case key.Matches(msg, m.keys.Left):
		m.editor.Move(-1, 0)
	case key.Matches(msg, m.keys.Right):
		m.editor.Move(1, 0)
	case key.Matches(msg, m.keys.Edit):
		t, ok := m.editor.SelectedTask()
		if !ok {
			return m, nil
		}
		m.editing = true
		m.input.SetValue(t.Name)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Escape):
		m.editor.ClearSelection()
	}
	return m, nil
}

// updateEditing applies every keystroke to the selected task, so the board
// always shows what is in the input.
func (m appModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Done), key.Matches(msg, m.keys.Escape):
		m.editing = false
		m.input.Blur()
		return m, nil
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.editor.UpdateSelectedTaskName(m.input.Value())
	return m, cmd
}

func (m appModel) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	height := m.height
	if height <= 0 {
		height = 24
	}

	tabs := m.renderTabs()
	toasts := m.renderToasts(width)
	helpView := m.help.View(helpKeys{k: m.keys, view: m.view, editing: m.editing})

	bodyH := height - 2 - lipgloss.Height(helpView)
	if toasts != "" {
		bodyH -= lipgloss.Height(toasts)
	}
	if bodyH < 1 {
		bodyH = 1
	}

	var body string
	if m.view == viewBoard {
		body = m.renderBoardPane(width, bodyH)
	} else {
		body = m.renderQuotesPane(width, bodyH)
	}

	parts := []string{tabs, "", body}
	if toasts != "" {
		parts = append(parts, toasts)
	}
	parts = append(parts, helpView)
	return strings.Join(parts, "\n")
}

func (m appModel) renderTabs() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(colorAccentFg).Background(colorAccent).Padding(0, 1)
	inactive := lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
	names := []string{"Quotes", "Board"}
	out := make([]string, len(names))
	for i, n := range names {
		if view(i) == m.view {
			out[i] = active.Render(n)
		} else {
			out[i] = inactive.Render(n)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

func (m appModel) renderToasts(width int) string {
	if len(m.toasts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		st := lipgloss.NewStyle().Bold(true)
		switch t.msg.Level {
		case notify.LevelError:
			st = st.Foreground(colorError)
		case notify.LevelWarn:
			st = st.Foreground(colorWarn)
		default:
			st = st.Foreground(colorAccent)
		}
		lines = append(lines, fitLine(st.Render("● "+t.msg.Text), width))
	}
	return strings.Join(lines, "\n")
}
