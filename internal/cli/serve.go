package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"deckhand/internal/config"
	"deckhand/internal/quotes"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var (
		listen  string
		latency time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve top quotes over HTTP with a simulated latency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.quotesConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(cfg.Quotes.Source) == config.SourceHTTP {
				return writeErr(cmd, errors.New("serve needs a memory or sqlite source"))
			}
			if !cmd.Flags().Changed("listen") {
				listen = cfg.Quotes.Listen
			}
			if !cmd.Flags().Changed("latency") {
				latency = cfg.Quotes.Latency.D()
			}

			ctx := cmd.Context()
			src, closeSrc, err := openSource(ctx, app, false)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSrc()

			e := quotes.NewServer(src, quotes.ServerOpts{Latency: latency, Logger: app.logger()})
			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return writeErr(cmd, err)
			}
			e.Listener = ln
			app.logger().WithFields(logrus.Fields{
				"addr":    ln.Addr().String(),
				"latency": latency.String(),
			}).Info("serving quotes")

			errCh := make(chan error, 1)
			go func() { errCh <- e.Start("") }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return writeErr(cmd, err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8080", "Listen address (default from config)")
	cmd.Flags().DurationVar(&latency, "latency", time.Second, "Delay added to every quotes response (default from config)")
	return cmd
}
