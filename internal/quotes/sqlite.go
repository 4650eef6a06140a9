package quotes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"deckhand/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteSource reads quotes from a local SQLite database.
type SQLiteSource struct {
	db    *sql.DB
	limit int
}

// OpenSQLite opens (and creates if needed) the quote database at path.
// limit caps how many quotes TopQuotes returns; <= 0 means 20.
func OpenSQLite(ctx context.Context, path string, limit int) (*SQLiteSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS quotes (
		id INTEGER PRIMARY KEY,
		quote TEXT NOT NULL,
		author TEXT NOT NULL,
		rank INTEGER NOT NULL DEFAULT 0
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return &SQLiteSource{db: db, limit: limit}, nil
}

func (s *SQLiteSource) Close() error { return s.db.Close() }

// Seed replaces the stored quotes. Ranks follow slice order.
func (s *SQLiteSource) Seed(ctx context.Context, qs []model.Quote) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM quotes`); err != nil {
		return err
	}
	for i, q := range qs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO quotes(id, quote, author, rank) VALUES(?, ?, ?, ?)`,
			q.ID, q.Quote, q.Author, i); err != nil {
			return fmt.Errorf("insert quote %d: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteSource) TopQuotes(ctx context.Context) ([]model.Quote, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, quote, author FROM quotes ORDER BY rank ASC, id ASC LIMIT ?`, s.limit)
	if err != nil {
		return nil, ctxErrOr(ctx, err)
	}
	defer rows.Close()

	out := make([]model.Quote, 0, s.limit)
	for rows.Next() {
		var q model.Quote
		if err := rows.Scan(&q.ID, &q.Quote, &q.Author); err != nil {
			return nil, ctxErrOr(ctx, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, ctxErrOr(ctx, err)
	}
	return out, nil
}

// ctxErrOr prefers the context's error so an interrupted query reads as an
// abort rather than a driver failure.
func ctxErrOr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w: %v", cerr, err)
	}
	return err
}
