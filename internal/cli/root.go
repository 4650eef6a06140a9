package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"deckhand/internal/config"
	"deckhand/internal/format"
	"deckhand/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type App struct {
	ConfigFile string
	PrettyJSON bool
	Format     string

	LogLevel  string
	LogFormat string

	BoardPath string
	Source    string
	URL       string
	DBPath    string
	RedisURL  string

	cfg *config.Config
	// cfgErr is why the config could not be loaded. Only commands that read
	// the config fail on it, so `config init --force` can still repair a bad
	// file.
	cfgErr   error
	log      *logrus.Logger
	closeLog func() error
}

// Execute runs the command line and closes the log file even when the
// command fails.
func Execute(ctx context.Context) error {
	app := &App{}
	return app.execute(ctx, newRootCmd(app))
}

func (app *App) execute(ctx context.Context, cmd *cobra.Command) error {
	defer app.closeLogger()
	err := cmd.ExecuteContext(ctx)
	if err != nil && app.log != nil {
		app.log.WithError(err).Debug("command failed")
	}
	return err
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{})
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "deckhand",
		Short:        "Abortable quote fetching and a task board, in the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  deckhand

  # Fetch quotes headlessly, aborting after 200ms
  deckhand quotes fetch --abort --abort-after 200ms

  # Serve quotes with a simulated 1s latency, then fetch from it
  deckhand serve --latency 1s &
  deckhand --source http --url http://localhost:8080 quotes fetch --abort=false

  # Rename a task on a board file (prints the result; the file is untouched)
  deckhand --board board.yaml board rename --column 0 --task 1 --name "Ship it"
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// The TUI owns the terminal, so it logs to a file.
		return app.setup(cmd.ErrOrStderr(), !cmd.HasParent())
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.closeLogger()
	}

	cmd.PersistentFlags().StringVar(&app.ConfigFile, "config", envOr("DECKHAND_CONFIG", ""), "Config file (default: $DECKHAND_CONFIG_DIR/config.json or ~/.deckhand/config.json)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("DECKHAND_FORMAT", "json"), "Output format (json|edn|yaml)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("DECKHAND_LOG_LEVEL", ""), "Log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.LogFormat, "log-format", envOr("DECKHAND_LOG_FORMAT", ""), "Log format (text|json)")
	cmd.PersistentFlags().StringVar(&app.BoardPath, "board", envOr("DECKHAND_BOARD", ""), "Board file (YAML or JSON; default: built-in sample board)")
	cmd.PersistentFlags().StringVar(&app.Source, "source", envOr("DECKHAND_SOURCE", ""), "Quote source (memory|http|sqlite)")
	cmd.PersistentFlags().StringVar(&app.URL, "url", envOr("DECKHAND_URL", ""), "Quote server base URL (source=http)")
	cmd.PersistentFlags().StringVar(&app.DBPath, "db", envOr("DECKHAND_DB", ""), "Quote database path (source=sqlite)")
	cmd.PersistentFlags().StringVar(&app.RedisURL, "redis", envOr("DECKHAND_REDIS_URL", ""), "Redis URL for the quote cache (e.g. redis://localhost:6379/0)")

	cmd.AddCommand(newQuotesCmd(app))
	cmd.AddCommand(newBoardCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// setup loads config, applies flag/env overrides and builds the logger. A
// config that fails to load is recorded rather than returned; see cfgErr.
func (app *App) setup(stderr io.Writer, tui bool) error {
	var (
		cfg *config.Config
		err error
	)
	if strings.TrimSpace(app.ConfigFile) != "" {
		cfg, err = config.LoadFile(app.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		app.cfgErr = err
		cfg = config.Default()
	}

	if app.BoardPath != "" {
		cfg.Board.Path = app.BoardPath
	}
	if app.Source != "" {
		cfg.Quotes.Source = app.Source
	}
	if app.URL != "" {
		cfg.Quotes.URL = app.URL
	}
	if app.DBPath != "" {
		cfg.Quotes.SQLitePath = app.DBPath
	}
	if app.RedisURL != "" {
		cfg.Quotes.RedisURL = app.RedisURL
	}
	if app.LogLevel != "" {
		cfg.Log.Level = app.LogLevel
	}
	if app.LogFormat != "" {
		cfg.Log.Format = app.LogFormat
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		cfg.Log.Level = "debug"
	}

	opts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}
	if tui && opts.File == "" {
		// The TUI owns the terminal.
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		opts.File = filepath.Join(dir, "deckhand.log")
	}
	log, closeLog, err := logging.New(opts, stderr)
	if err != nil {
		if app.cfgErr == nil {
			app.cfgErr = fmt.Errorf("log: %w", err)
		}
		if log, closeLog, err = logging.New(logging.Options{}, stderr); err != nil {
			return err
		}
	}
	app.cfg = cfg
	app.log = log
	app.closeLog = closeLog
	return nil
}

// loadedConfig returns the effective config, or the error that kept it from
// loading.
func (app *App) loadedConfig() (*config.Config, error) {
	if app.cfgErr != nil {
		return nil, app.cfgErr
	}
	if app.cfg == nil {
		app.cfg = config.Default()
	}
	return app.cfg, nil
}

// quotesConfig is loadedConfig for commands that talk to a quote source.
func (app *App) quotesConfig() (*config.Config, error) {
	cfg, err := app.loadedConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (app *App) logger() *logrus.Logger {
	if app.log == nil {
		app.log = logging.Discard()
	}
	return app.log
}

func (app *App) closeLogger() error {
	if app.closeLog == nil {
		return nil
	}
	closeFn := app.closeLog
	app.closeLog = nil
	return closeFn()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
