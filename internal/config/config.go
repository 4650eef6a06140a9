package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Quote source kinds.
const (
	SourceMemory = "memory"
	SourceHTTP   = "http"
	SourceSQLite = "sqlite"
)

type Config struct {
	Quotes QuotesConfig `json:"quotes"`
	Board  BoardConfig  `json:"board"`
	Log    LogConfig    `json:"log"`

	// TUI holds optional user preferences for the interactive TUI.
	TUI *TUIConfig `json:"tui,omitempty"`
}

type QuotesConfig struct {
	// Source is one of: memory|http|sqlite.
	Source string `json:"source,omitempty"`
	// URL is the quote server base URL (source=http).
	URL string `json:"url,omitempty"`
	// SQLitePath is the quote database (source=sqlite).
	SQLitePath string `json:"sqlitePath,omitempty"`
	// Limit caps the number of quotes returned by the sqlite source.
	Limit int `json:"limit,omitempty"`

	// RedisURL enables a read-through Redis cache in front of any source.
	RedisURL string   `json:"redisUrl,omitempty"`
	CacheTTL Duration `json:"cacheTtl,omitempty"`

	// Latency is simulated delay before quotes are returned. It applies to the
	// memory source and to `deckhand serve`.
	Latency Duration `json:"latency,omitempty"`

	// Abort is the initial state of the "abort" toggle; AbortAfter is how long
	// after a fetch starts the abort fires.
	Abort      *bool    `json:"abort,omitempty"`
	AbortAfter Duration `json:"abortAfter,omitempty"`

	// Listen is the address `deckhand serve` binds.
	Listen string `json:"listen,omitempty"`
}

type BoardConfig struct {
	// Path is a YAML or JSON board file. Empty means the built-in sample board.
	Path string `json:"path,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"`
	// File receives log output. The TUI defaults it to deckhand.log in the
	// config dir, since the terminal is taken.
	File string `json:"file,omitempty"`
}

type TUIConfig struct {
	// Theme is one of: light|dark|auto.
	Theme string `json:"theme,omitempty"`
}

// Duration is a time.Duration that reads and writes as a Go duration string.
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Plain numbers are milliseconds.
		var ms int64
		if err2 := json.Unmarshal(b, &ms); err2 != nil {
			return fmt.Errorf("duration: %w", err)
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	abort := true
	return &Config{
		Quotes: QuotesConfig{
			Source:     SourceMemory,
			Latency:    Duration(time.Second),
			Abort:      &abort,
			AbortAfter: Duration(200 * time.Millisecond),
			CacheTTL:   Duration(time.Minute),
			Limit:      20,
			Listen:     ":8080",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// AbortEnabled reports the initial abort toggle state (default on).
func (q QuotesConfig) AbortEnabled() bool {
	return q.Abort == nil || *q.Abort
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch strings.TrimSpace(c.Quotes.Source) {
	case "", SourceMemory:
	case SourceHTTP:
		if strings.TrimSpace(c.Quotes.URL) == "" {
			return errors.New("quotes.url is required for the http source")
		}
	case SourceSQLite:
		if strings.TrimSpace(c.Quotes.SQLitePath) == "" {
			return errors.New("quotes.sqlitePath is required for the sqlite source")
		}
	default:
		return fmt.Errorf("unknown quotes source: %s", c.Quotes.Source)
	}
	if c.Quotes.AbortAfter < 0 {
		return errors.New("quotes.abortAfter must not be negative")
	}
	if c.Quotes.Latency < 0 {
		return errors.New("quotes.latency must not be negative")
	}
	return nil
}

func Dir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.deckhand).
	if v := strings.TrimSpace(os.Getenv("DECKHAND_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".deckhand"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config file, filling unset fields from Default. A missing
// file is not an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}
