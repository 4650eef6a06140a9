package cli

import (
	"context"
	"fmt"
	"strings"

	"deckhand/internal/config"
	"deckhand/internal/model"
	"deckhand/internal/notify"
	"deckhand/internal/query"
	"deckhand/internal/quotes"

	"github.com/redis/go-redis/v9"
)

// openSource builds the configured quote source. simulateLatency applies the
// configured latency to the memory source; `serve` adds latency itself.
func openSource(ctx context.Context, app *App, simulateLatency bool) (quotes.Source, func(), error) {
	cfg, err := app.quotesConfig()
	if err != nil {
		return nil, nil, err
	}
	q := cfg.Quotes
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var src quotes.Source
	switch strings.TrimSpace(q.Source) {
	case "", config.SourceMemory:
		src = quotes.Static(quotes.Defaults())
		if simulateLatency && q.Latency > 0 {
			src = quotes.Slow{Source: src, Delay: q.Latency.D()}
		}
	case config.SourceHTTP:
		src = quotes.NewHTTPSource(q.URL)
	case config.SourceSQLite:
		db, err := quotes.OpenSQLite(ctx, q.SQLitePath, q.Limit)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		src = db
	default:
		return nil, nil, fmt.Errorf("unknown quotes source: %s", q.Source)
	}

	if strings.TrimSpace(q.RedisURL) != "" {
		client, err := newRedisClient(q.RedisURL)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		src = quotes.NewRedisCache(src, client, q.CacheTTL.D(), app.logger())
	}
	return src, closeAll, nil
}

func newRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func newQuoteCache(app *App, src quotes.Source, n notify.Notifier) *query.Cache[[]model.Quote] {
	c := query.New[[]model.Quote](query.Opts{
		Notifier: n,
		Logger:   app.logger(),
		ErrorMessage: func(key string, err error) string {
			return fmt.Sprintf("Failed to fetch %s: %v", key, err)
		},
	})
	c.Define(quotes.QueryKey, quotes.Fetch(src))
	return c
}
