package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"deckhand/internal/notify"
)

// A slow fetch with the abort toggle on: trigger, cancel after 200ms, the
// fetch observes the signal, the record reads error+cancelled and the user
// sees one "Request aborted" toast.
func TestAbortFlow_DeferredCancelNotifiesOnce(t *testing.T) {
	var rec notify.Recorder
	c := New[[]string](Opts{Notifier: &rec})
	t.Cleanup(c.Close)

	c.Define("top-quotes", func(ctx context.Context) ([]string, error) {
		select {
		case <-time.After(2 * time.Second):
			return []string{"too late"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	start := time.Now()
	gen := mustTriggerQuotes(t, c)
	if bound := c.CancelAfter("top-quotes", 200*time.Millisecond); bound != gen {
		t.Fatalf("expected deferred cancel bound to %d, got %d", gen, bound)
	}

	got, err := c.Wait(waitCtx(t), "top-quotes")
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= 2*time.Second {
		t.Fatalf("expected the fetch to stop early, took %s", elapsed)
	}
	if got.Status != StatusError || !got.Cancelled || !errors.Is(got.Err, ErrAborted) {
		t.Fatalf("unexpected record: %#v", got)
	}

	msgs := rec.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one notification, got %#v", msgs)
	}
	if msgs[0].Text != "Request aborted" || msgs[0].Level != notify.LevelWarn {
		t.Fatalf("unexpected notification: %#v", msgs[0])
	}

	// Fetching again clears the cancelled flag.
	c.Define("top-quotes", func(ctx context.Context) ([]string, error) { return []string{"q"}, nil })
	mustTriggerQuotes(t, c)
	got, _ = c.Wait(waitCtx(t), "top-quotes")
	if got.Status != StatusSuccess || got.Cancelled || len(got.Data) != 1 {
		t.Fatalf("unexpected record after refetch: %#v", got)
	}
	if n := len(rec.Messages()); n != 1 {
		t.Fatalf("expected no new notifications on success, got %d total", n)
	}
}

func mustTriggerQuotes(t *testing.T, c *Cache[[]string]) uint64 {
	t.Helper()
	gen, err := c.Trigger("top-quotes")
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	return gen
}
