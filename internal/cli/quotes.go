package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"deckhand/internal/config"
	"deckhand/internal/format"
	"deckhand/internal/model"
	"deckhand/internal/notify"
	"deckhand/internal/query"
	"deckhand/internal/quotes"

	"github.com/spf13/cobra"
)

type fetchResult struct {
	Record        query.Record[[]model.Quote] `json:"record"`
	Notifications []notify.Message            `json:"notifications"`
}

func newQuotesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quotes",
		Short: "Fetch, seed and cache top quotes",
	}
	cmd.AddCommand(newQuotesFetchCmd(app))
	cmd.AddCommand(newQuotesSeedCmd(app))
	cmd.AddCommand(newQuotesEvictCmd(app))
	return cmd
}

func newQuotesFetchCmd(app *App) *cobra.Command {
	var (
		abort      bool
		abortAfter time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch top quotes once, optionally aborting after a delay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.quotesConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			if !cmd.Flags().Changed("abort") {
				abort = cfg.Quotes.AbortEnabled()
			}
			if !cmd.Flags().Changed("abort-after") {
				abortAfter = cfg.Quotes.AbortAfter.D()
			}
			if abortAfter < 0 {
				return writeErr(cmd, errors.New("--abort-after must not be negative"))
			}

			ctx := cmd.Context()
			src, closeSrc, err := openSource(ctx, app, true)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSrc()

			rec := &notify.Recorder{}
			c := newQuoteCache(app, src, notify.Multi(rec, notify.Log{Logger: app.logger()}))
			defer c.Close()

			start := time.Now()
			gen, err := c.Trigger(quotes.QueryKey)
			if err != nil {
				return writeErr(cmd, err)
			}
			if abort {
				c.CancelAfter(quotes.QueryKey, abortAfter)
			}
			app.logger().WithField("generation", gen).Debug("quotes fetch started")

			out, err := c.Wait(ctx, quotes.QueryKey)
			if err != nil {
				return writeErr(cmd, err)
			}

			env := format.Envelope{
				Data: fetchResult{Record: out, Notifications: rec.Messages()},
				Meta: &format.Meta{
					Source:   sourceName(cfg),
					Status:   string(out.Status),
					Duration: time.Since(start).Round(time.Millisecond).String(),
				},
			}
			if out.Cancelled {
				env.Hint = fmt.Sprintf("aborted after %s; rerun with --abort=false to wait for the result", abortAfter)
			}
			if err := writeOut(cmd, app, env); err != nil {
				return err
			}
			if out.Status == query.StatusError && !out.Cancelled {
				return writeErr(cmd, out.Err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&abort, "abort", true, "Abort the request after --abort-after (default from config)")
	cmd.Flags().DurationVar(&abortAfter, "abort-after", 200*time.Millisecond, "Delay before the abort fires (default from config)")
	return cmd
}

func newQuotesSeedCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create (or refill) a SQLite quote database with the sample quotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadedConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			path := strings.TrimSpace(cfg.Quotes.SQLitePath)
			if path == "" {
				return writeErr(cmd, errors.New("missing --db"))
			}
			ctx := cmd.Context()
			db, err := quotes.OpenSQLite(ctx, path, 0)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer db.Close()

			qs := quotes.Defaults()
			if err := db.Seed(ctx, qs); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Wrap(map[string]any{"path": path, "count": len(qs)}))
		},
	}
	return cmd
}

func newQuotesEvictCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evict",
		Short: "Drop cached top quotes from Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadedConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			redisURL := strings.TrimSpace(cfg.Quotes.RedisURL)
			if redisURL == "" {
				return writeErr(cmd, errors.New("missing --redis"))
			}
			client, err := newRedisClient(redisURL)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer client.Close()

			c := quotes.NewRedisCache(quotes.Static(nil), client, 0, app.logger())
			if err := c.Evict(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Wrap(map[string]any{"evicted": true}))
		},
	}
	return cmd
}

func sourceName(cfg *config.Config) string {
	name := strings.TrimSpace(cfg.Quotes.Source)
	if name == "" {
		name = config.SourceMemory
	}
	if strings.TrimSpace(cfg.Quotes.RedisURL) != "" {
		name += "+redis"
	}
	return name
}
