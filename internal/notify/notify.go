// Package notify carries short-lived user-facing messages ("toasts") from
// background work to whatever is rendering them.
//
// Notifiers must never block the caller.
package notify

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Message struct {
	Level Level     `json:"level"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

type Notifier interface {
	Notify(level Level, text string)
}

// Func adapts a plain function. The function itself must not block.
type Func func(level Level, text string)

func (f Func) Notify(level Level, text string) {
	if f != nil {
		f(level, text)
	}
}

// Discard drops every message.
var Discard Notifier = Func(nil)

// Log writes messages to a logger.
type Log struct {
	Logger logrus.FieldLogger
}

func (l Log) Notify(level Level, text string) {
	if l.Logger == nil {
		return
	}
	entry := l.Logger.WithField("notification", true)
	switch level {
	case LevelError:
		entry.Error(text)
	case LevelWarn:
		entry.Warn(text)
	default:
		entry.Info(text)
	}
}

// Multi fans a message out to several notifiers in order.
func Multi(ns ...Notifier) Notifier {
	out := make([]Notifier, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return Func(func(level Level, text string) {
		for _, n := range out {
			n.Notify(level, text)
		}
	})
}

// Queue buffers messages on a channel. When the buffer is full new messages
// are dropped and counted.
type Queue struct {
	ch      chan Message
	dropped atomic.Int64
	now     func() time.Time
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 16
	}
	return &Queue{ch: make(chan Message, size), now: time.Now}
}

func (q *Queue) Notify(level Level, text string) {
	select {
	case q.ch <- Message{Level: level, Text: text, At: q.now()}:
	default:
		q.dropped.Add(1)
	}
}

// C returns the receive side of the queue.
func (q *Queue) C() <-chan Message { return q.ch }

func (q *Queue) Dropped() int64 { return q.dropped.Load() }

// Recorder keeps every message in memory. Handy for headless commands that
// report notifications after the fact.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Notify(level Level, text string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, Message{Level: level, Text: text, At: time.Now()})
	r.mu.Unlock()
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}
