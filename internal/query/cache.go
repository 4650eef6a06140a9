// Package query runs named asynchronous fetches and tracks their status.
//
// Each key has at most one attempt in flight. Every attempt is stamped with a
// per-key generation; settlements and deferred cancels that carry an older
// generation are discarded, so a slow or superseded attempt can never
// overwrite the state of a newer one.
package query

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"deckhand/internal/notify"

	"github.com/sirupsen/logrus"
)

// FetchFunc is the fetch collaborator. ctx is cancelled when the attempt is
// aborted; the function should return promptly with an error for which
// IsAborted reports true.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Observer is called after every record change, outside the cache lock.
type Observer[T any] func(key string, rec Record[T])

type Opts struct {
	Notifier notify.Notifier
	Logger   logrus.FieldLogger

	// AbortMessage is sent to the notifier when an attempt is aborted.
	// Defaults to "Request aborted".
	AbortMessage string
	// ErrorMessage formats the notification for a failed attempt.
	ErrorMessage func(key string, err error) string

	// Now is used for record timestamps (tests).
	Now func() time.Time
}

type Cache[T any] struct {
	mu       sync.Mutex
	fetchers map[string]FetchFunc[T]
	entries  map[string]*entry[T]
	timers   map[*time.Timer]struct{}
	observer Observer[T]
	closed   bool

	notifier     notify.Notifier
	log          logrus.FieldLogger
	abortMessage string
	errorMessage func(key string, err error) string
	now          func() time.Time
}

type entry[T any] struct {
	rec    Record[T]
	gen    uint64
	cancel context.CancelFunc
	// done is closed when the current attempt settles or is superseded.
	done chan struct{}
}

func New[T any](opts Opts) *Cache[T] {
	c := &Cache[T]{
		fetchers:     map[string]FetchFunc[T]{},
		entries:      map[string]*entry[T]{},
		timers:       map[*time.Timer]struct{}{},
		notifier:     opts.Notifier,
		log:          opts.Logger,
		abortMessage: strings.TrimSpace(opts.AbortMessage),
		errorMessage: opts.ErrorMessage,
		now:          opts.Now,
	}
	if c.notifier == nil {
		c.notifier = notify.Discard
	}
	if c.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.log = l
	}
	if c.abortMessage == "" {
		c.abortMessage = "Request aborted"
	}
	if c.errorMessage == nil {
		c.errorMessage = func(key string, err error) string {
			return fmt.Sprintf("Request failed: %v", err)
		}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Define registers the fetcher for key. Redefining a key affects the next
// attempt only.
func (c *Cache[T]) Define(key string, fn FetchFunc[T]) {
	c.mu.Lock()
	c.fetchers[key] = fn
	c.mu.Unlock()
}

// OnChange installs the observer. Pass nil to remove it.
func (c *Cache[T]) OnChange(fn Observer[T]) {
	c.mu.Lock()
	c.observer = fn
	c.mu.Unlock()
}

// Status returns a snapshot of the record for key. Unknown keys are idle.
func (c *Cache[T]) Status(key string) Record[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Record[T]{Status: StatusIdle}
	}
	return e.rec
}

// Trigger starts an attempt for key and returns its generation. If an attempt
// is already loading, Trigger does nothing and returns that attempt's
// generation.
func (c *Cache[T]) Trigger(key string) (uint64, error) {
	return c.start(key, false)
}

// Refetch is Trigger, except that an attempt already in flight is cancelled
// and superseded by a new generation. The old attempt's result is discarded.
func (c *Cache[T]) Refetch(key string) (uint64, error) {
	return c.start(key, true)
}

func (c *Cache[T]) start(key string, supersede bool) (uint64, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	fn, ok := c.fetchers[key]
	if !ok || fn == nil {
		c.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrUnknownQuery, key)
	}
	e := c.entryLocked(key)
	if e.rec.Status == StatusLoading {
		if !supersede {
			gen := e.gen
			c.mu.Unlock()
			c.log.WithFields(logrus.Fields{"key": key, "generation": gen}).Debug("query already loading")
			return gen, nil
		}
		c.log.WithFields(logrus.Fields{"key": key, "generation": e.gen}).Debug("superseding in-flight query")
		c.releaseLocked(e)
	}

	e.gen++
	gen := e.gen
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.rec.Status = StatusLoading
	e.rec.Err = nil
	e.rec.Cancelled = false
	e.rec.Generation = gen
	e.rec.UpdatedAt = c.now()
	rec := e.rec
	obs := c.observer
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"key": key, "generation": gen}).Debug("query started")
	if obs != nil {
		obs(key, rec)
	}

	go c.run(ctx, key, gen, fn)
	return gen, nil
}

func (c *Cache[T]) run(ctx context.Context, key string, gen uint64, fn FetchFunc[T]) {
	var out Outcome[T]
	func() {
		defer func() {
			if r := recover(); r != nil {
				out = Failure[T](fmt.Errorf("fetch panicked: %v", r))
			}
		}()
		data, err := fn(ctx)
		switch {
		case err == nil:
			out = Success(data)
		case ctx.Err() != nil:
			// The signal fired and the fetch failed: whatever error the
			// transport surfaced, this attempt was aborted.
			out = Outcome[T]{Err: err, Aborted: true}
		default:
			out = Failure[T](err)
		}
	}()
	c.Settle(key, gen, out)
}

// Settle applies the outcome of attempt gen for key. It reports false, and
// changes nothing, if gen is no longer the current loading attempt.
func (c *Cache[T]) Settle(key string, gen uint64, out Outcome[T]) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.gen != gen || e.rec.Status != StatusLoading {
		c.mu.Unlock()
		c.log.WithFields(logrus.Fields{"key": key, "generation": gen}).Debug("discarding stale settlement")
		return false
	}

	var zero T
	switch {
	case out.Aborted:
		e.rec.Status = StatusError
		e.rec.Data, e.rec.HasData = zero, false
		e.rec.Err = &AbortedError{Key: key}
		e.rec.Cancelled = true
	case out.Err != nil:
		e.rec.Status = StatusError
		e.rec.Data, e.rec.HasData = zero, false
		e.rec.Err = &TransportError{Key: key, Err: out.Err}
		e.rec.Cancelled = false
	default:
		e.rec.Status = StatusSuccess
		e.rec.Data, e.rec.HasData = out.Data, true
		e.rec.Err = nil
		e.rec.Cancelled = false
	}
	e.rec.UpdatedAt = c.now()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	// done stays open until the outcome has been reported, so Wait returns
	// only after notifications and the observer have run.
	done := e.done
	rec := e.rec
	obs := c.observer
	closed := c.closed
	c.mu.Unlock()

	log := c.log.WithFields(logrus.Fields{"key": key, "generation": gen, "status": rec.Status})
	switch {
	case rec.Cancelled:
		log.Info("query aborted")
	case rec.Err != nil:
		log.WithError(out.Err).Warn("query failed")
	default:
		log.Debug("query succeeded")
	}

	if !closed {
		switch {
		case rec.Cancelled:
			c.notifier.Notify(notify.LevelWarn, c.abortMessage)
		case rec.Err != nil:
			c.notifier.Notify(notify.LevelError, c.errorMessage(key, out.Err))
		}
		if obs != nil {
			obs(key, rec)
		}
	}
	c.delivered(e, done)
	return true
}

// delivered wakes the waiters of a settled attempt.
func (c *Cache[T]) delivered(e *entry[T], done chan struct{}) {
	if done == nil {
		return
	}
	c.mu.Lock()
	if e.done == done {
		e.done = nil
	}
	c.mu.Unlock()
	close(done)
}

// Cancel signals the in-flight attempt for key to stop. The record stays
// loading until the attempt settles. Cancel reports whether there was an
// attempt to signal.
func (c *Cache[T]) Cancel(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	return c.cancelLocked(key, e)
}

// CancelGeneration is Cancel restricted to attempt gen. It is a no-op if that
// attempt has settled or been superseded.
func (c *Cache[T]) CancelGeneration(key string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.gen != gen {
		c.log.WithFields(logrus.Fields{"key": key, "generation": gen}).Debug("ignoring cancel for stale generation")
		return false
	}
	return c.cancelLocked(key, e)
}

// CancelAfter schedules a cancel of the attempt that is current now. When the
// timer fires it only acts if that same attempt is still loading. It returns
// the generation the timer is bound to.
func (c *Cache[T]) CancelAfter(key string, d time.Duration) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0
	}
	var gen uint64
	if e, ok := c.entries[key]; ok {
		gen = e.gen
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		// Holding mu orders this after the assignment of t below.
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.timers, t)
		if c.closed {
			return
		}
		e, ok := c.entries[key]
		if !ok || e.gen != gen {
			c.log.WithFields(logrus.Fields{"key": key, "generation": gen}).Debug("deferred cancel is stale")
			return
		}
		c.cancelLocked(key, e)
	})
	c.timers[t] = struct{}{}
	return gen
}

// Reset returns key to idle. An in-flight attempt is cancelled and its result
// discarded.
func (c *Cache[T]) Reset(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	c.releaseLocked(e)
	e.gen++
	e.rec = Record[T]{Status: StatusIdle, Generation: e.gen, UpdatedAt: c.now()}
	rec := e.rec
	obs := c.observer
	c.mu.Unlock()

	if obs != nil {
		obs(key, rec)
	}
}

// Wait blocks until key is not loading and its outcome has been reported,
// following superseding attempts, and returns the settled record.
func (c *Cache[T]) Wait(ctx context.Context, key string) (Record[T], error) {
	for {
		c.mu.Lock()
		e, ok := c.entries[key]
		if !ok || e.done == nil {
			var rec Record[T]
			if ok {
				rec = e.rec
			} else {
				rec.Status = StatusIdle
			}
			c.mu.Unlock()
			return rec, nil
		}
		done := e.done
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return c.Status(key), ctx.Err()
		}
	}
}

// Close tears the cache down: pending deferred cancels are stopped and every
// in-flight attempt is cancelled. Attempts still settle into their records,
// but observers and the notifier are no longer called.
func (c *Cache[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for t := range c.timers {
		t.Stop()
	}
	c.timers = map[*time.Timer]struct{}{}
	for key, e := range c.entries {
		c.cancelLocked(key, e)
	}
}

func (c *Cache[T]) entryLocked(key string) *entry[T] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{rec: Record[T]{Status: StatusIdle}}
		c.entries[key] = e
	}
	return e
}

func (c *Cache[T]) cancelLocked(key string, e *entry[T]) bool {
	if e.rec.Status != StatusLoading || e.cancel == nil {
		return false
	}
	e.cancel()
	c.log.WithFields(logrus.Fields{"key": key, "generation": e.gen}).Debug("query cancel requested")
	return true
}

// releaseLocked cancels the attempt's context and wakes waiters.
func (c *Cache[T]) releaseLocked(e *entry[T]) {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	// A settled attempt that is still reporting closes its own done.
	if e.done != nil && e.rec.Status == StatusLoading {
		close(e.done)
		e.done = nil
	}
}
