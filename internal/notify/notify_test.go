package notify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestQueue_DropsWhenFull(t *testing.T) {
	q := NewQueue(1)
	q.Notify(LevelWarn, "first")
	q.Notify(LevelWarn, "second")

	if got := q.Dropped(); got != 1 {
		t.Fatalf("expected 1 dropped message, got %d", got)
	}
	msg := <-q.C()
	if msg.Text != "first" || msg.Level != LevelWarn {
		t.Fatalf("unexpected message: %#v", msg)
	}
}

func TestMulti_FansOutAndSkipsNil(t *testing.T) {
	var a, b Recorder
	n := Multi(&a, nil, &b)
	n.Notify(LevelInfo, "hello")

	if len(a.Messages()) != 1 || len(b.Messages()) != 1 {
		t.Fatalf("expected both recorders to receive the message, got %d and %d", len(a.Messages()), len(b.Messages()))
	}
}

func TestLog_WritesLevel(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	Log{Logger: l}.Notify(LevelError, "boom")
	out := buf.String()
	if !strings.Contains(out, "level=error") || !strings.Contains(out, "boom") {
		t.Fatalf("unexpected log output: %q", out)
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic.
	Discard.Notify(LevelInfo, "ignored")
}
