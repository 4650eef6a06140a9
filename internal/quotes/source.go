// Package quotes provides the "top quotes" fetch collaborators: an in-memory
// list, an HTTP client, a SQLite reader and a Redis read-through cache, plus
// the HTTP server the client talks to.
//
// Every source honours context cancellation and returns an error wrapping
// context.Canceled when aborted.
package quotes

import (
	"context"
	"time"

	"deckhand/internal/model"
	"deckhand/internal/query"
)

// QueryKey is the cache key the quotes widget uses.
const QueryKey = "top-quotes"

type Source interface {
	TopQuotes(ctx context.Context) ([]model.Quote, error)
}

// Fetch adapts a Source to the query cache.
func Fetch(src Source) query.FetchFunc[[]model.Quote] {
	return func(ctx context.Context) ([]model.Quote, error) {
		return src.TopQuotes(ctx)
	}
}

// Static serves a fixed list.
type Static []model.Quote

func (s Static) TopQuotes(ctx context.Context) ([]model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]model.Quote(nil), s...), nil
}

// Slow delays another source, giving the user time to abort.
type Slow struct {
	Source Source
	Delay  time.Duration
}

func (s Slow) TopQuotes(ctx context.Context) ([]model.Quote, error) {
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.Source.TopQuotes(ctx)
}

// Defaults is the sample data served when nothing else is configured.
func Defaults() []model.Quote {
	return []model.Quote{
		{ID: 1, Quote: "Simplicity is prerequisite for reliability.", Author: "Edsger W. Dijkstra"},
		{ID: 2, Quote: "Programs must be written for people to read, and only incidentally for machines to execute.", Author: "Harold Abelson"},
		{ID: 3, Quote: "Premature optimization is the root of all evil.", Author: "Donald Knuth"},
		{ID: 4, Quote: "Make it work, make it right, make it fast.", Author: "Kent Beck"},
		{ID: 5, Quote: "Clear is better than clever.", Author: "Rob Pike"},
	}
}
