package cli

import (
	"deckhand/internal/board"
	"deckhand/internal/notify"
	"deckhand/internal/tui"

	"github.com/spf13/cobra"
)

func runTUI(cmd *cobra.Command, app *App) error {
	cfg, err := app.quotesConfig()
	if err != nil {
		return writeErr(cmd, err)
	}

	b, err := loadBoard(app)
	if err != nil {
		return writeErr(cmd, err)
	}
	src, closeSrc, err := openSource(cmd.Context(), app, true)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer closeSrc()

	toasts := notify.NewQueue(16)
	c := newQuoteCache(app, src, notify.Multi(toasts, notify.Log{Logger: app.logger()}))
	defer c.Close()

	theme := ""
	if cfg.TUI != nil {
		theme = cfg.TUI.Theme
	}
	return tui.Run(tui.Options{
		Quotes:     c,
		Editor:     board.NewEditor(b, app.logger()),
		Toasts:     toasts,
		Abort:      cfg.Quotes.AbortEnabled(),
		AbortAfter: cfg.Quotes.AbortAfter.D(),
		Theme:      theme,
		Logger:     app.logger(),
	})
}
