package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"deckhand/internal/board"
	"deckhand/internal/model"
	"deckhand/internal/notify"
	"deckhand/internal/query"
	"deckhand/internal/quotes"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, fetch query.FetchFunc[[]model.Quote], abort bool) (appModel, *notify.Queue) {
	t.Helper()
	q := notify.NewQueue(8)
	c := query.New[[]model.Quote](query.Opts{Notifier: q, Logger: quietLogger()})
	t.Cleanup(c.Close)
	c.Define(quotes.QueryKey, fetch)
	m := newAppModel(Options{
		Quotes:     c,
		Editor:     board.NewEditor(board.Default(), quietLogger()),
		Toasts:     q,
		Abort:      abort,
		AbortAfter: 200 * time.Millisecond,
		Logger:     quietLogger(),
	})
	return m, q
}

func update(t *testing.T, m appModel, msg tea.Msg) appModel {
	t.Helper()
	mm, _ := m.Update(msg)
	return mm.(appModel)
}

func waitSettled(t *testing.T, m appModel) appModel {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.quotes.Wait(ctx, quotes.QueryKey); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return update(t, m, quotesChangedMsg{})
}

func TestQuotes_AbortTickCancelsInFlightFetch(t *testing.T) {
	slow := quotes.Slow{Source: quotes.Static(quotes.Defaults()), Delay: 5 * time.Second}
	m, q := newTestModel(t, quotes.Fetch(slow), true)

	m = update(t, m, runeKey("f"))
	if !m.rec.IsLoading() {
		t.Fatalf("expected loading after fetch, got %s", m.rec.Status)
	}
	if !strings.Contains(m.View(), quotesLoadingText) {
		t.Fatalf("expected loading text in view")
	}

	m = update(t, m, abortTickMsg{gen: m.rec.Generation})
	m = waitSettled(t, m)
	if m.rec.Status != query.StatusError || !m.rec.Cancelled {
		t.Fatalf("expected cancelled error record, got %#v", m.rec)
	}

	select {
	case msg := <-q.C():
		if msg.Text != "Request aborted" || msg.Level != notify.LevelWarn {
			t.Fatalf("unexpected notification: %#v", msg)
		}
		m = update(t, m, toastMsg{msg: msg})
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an abort notification")
	}
	if len(m.toasts) != 1 {
		t.Fatalf("expected one toast, got %d", len(m.toasts))
	}

	m = update(t, m, toastExpiredMsg{seq: m.toasts[0].seq})
	if len(m.toasts) != 0 {
		t.Fatalf("expected toast to expire")
	}
}

func TestQuotes_StaleAbortTickIsIgnored(t *testing.T) {
	m, _ := newTestModel(t, quotes.Fetch(quotes.Static(quotes.Defaults())), true)

	m = update(t, m, runeKey("f"))
	gen := m.rec.Generation
	m = waitSettled(t, m)
	if m.rec.Status != query.StatusSuccess {
		t.Fatalf("expected success, got %s", m.rec.Status)
	}

	m = update(t, m, abortTickMsg{gen: gen})
	if m.rec.Status != query.StatusSuccess || len(m.rec.Data) != len(quotes.Defaults()) {
		t.Fatalf("late abort changed a settled record: %#v", m.rec)
	}
}

func TestQuotes_ErrorShowsProblemText(t *testing.T) {
	failing := func(ctx context.Context) ([]model.Quote, error) {
		return nil, errors.New("connection refused")
	}
	m, q := newTestModel(t, failing, false)

	m = update(t, m, runeKey("f"))
	m = waitSettled(t, m)
	if m.rec.Status != query.StatusError || m.rec.Cancelled {
		t.Fatalf("expected non-cancelled error, got %#v", m.rec)
	}
	if !strings.Contains(m.View(), quotesErrorText) {
		t.Fatalf("expected %q in view", quotesErrorText)
	}
	select {
	case msg := <-q.C():
		if msg.Level != notify.LevelError || !strings.Contains(msg.Text, "connection refused") {
			t.Fatalf("unexpected notification: %#v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an error notification")
	}
}

func TestQuotes_ToggleAbort(t *testing.T) {
	m, _ := newTestModel(t, quotes.Fetch(quotes.Static(nil)), true)
	m = update(t, m, runeKey("a"))
	if m.abort {
		t.Fatalf("expected abort to toggle off")
	}
	if !strings.Contains(m.View(), "[ ] Abort") {
		t.Fatalf("expected unchecked abort box in view")
	}
	m = update(t, m, runeKey("a"))
	if !m.abort {
		t.Fatalf("expected abort to toggle back on")
	}
}

func TestBoard_SelectAndRenameLive(t *testing.T) {
	m, _ := newTestModel(t, quotes.Fetch(quotes.Static(nil)), true)
	before := m.editor.Board()

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.view != viewBoard {
		t.Fatalf("expected board view")
	}
	if !strings.Contains(m.View(), promptSelectTask) {
		t.Fatalf("expected %q before selecting", promptSelectTask)
	}

	m = update(t, m, runeKey("j")) // first move lands on (0,0)
	m = update(t, m, runeKey("j"))
	sel, ok := m.editor.Selection()
	if !ok || sel != (board.Selection{Column: 0, Task: 1}) {
		t.Fatalf("unexpected selection %+v ok=%v", sel, ok)
	}
	if !strings.Contains(m.View(), promptUpdateTask) {
		t.Fatalf("expected %q with a selection", promptUpdateTask)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.editing {
		t.Fatalf("expected editing after enter")
	}
	m = update(t, m, runeKey("!"))

	want := before.Columns[0].Tasks[1].Name + "!"
	if got := m.editor.Board().Columns[0].Tasks[1].Name; got != want {
		t.Fatalf("expected live rename to %q, got %q", want, got)
	}
	if before.Columns[0].Tasks[1].Name == want {
		t.Fatalf("previous board value was mutated")
	}
	if m.editor.Board().Columns[1] != before.Columns[1] {
		t.Fatalf("expected untouched column to be shared")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.editing {
		t.Fatalf("expected enter to finish editing")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := m.editor.Selection(); ok {
		t.Fatalf("expected esc to clear the selection")
	}
}

func TestBoard_QuitKeyIsTextWhileEditing(t *testing.T) {
	m, _ := newTestModel(t, quotes.Fetch(quotes.Static(nil)), true)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(t, m, runeKey("l"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	m = update(t, m, runeKey("q"))
	if !m.editing {
		t.Fatalf("q must not leave editing")
	}
	if got, _ := m.editor.SelectedTask(); !strings.HasSuffix(got.Name, "q") {
		t.Fatalf("expected q to be typed into the task name, got %q", got.Name)
	}
}

func TestQuitKey(t *testing.T) {
	m, _ := newTestModel(t, quotes.Fetch(quotes.Static(nil)), true)
	_, cmd := m.Update(runeKey("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
