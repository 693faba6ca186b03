// Package sqlite opens the SQLite database querygate reads from, applies
// per-namespace migrations and reports the live table layout.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Options tunes the connection.
type Options struct {
	// BusyTimeout is how long a statement waits on a locked database.
	BusyTimeout time.Duration
	// ConnectTimeout bounds the retries of the initial ping.
	ConnectTimeout time.Duration
	// MaxOpenConns caps the pool; zero leaves the driver default.
	MaxOpenConns int
}

// DB wraps a SQLite database connection.
type DB struct {
	*sql.DB
	path   string
	logger zerolog.Logger
}

// Open creates a new SQLite database connection and waits until it answers.
func Open(ctx context.Context, path string, opts Options, logger zerolog.Logger) (*DB, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 30 * time.Second
	}

	db, err := sql.Open("sqlite3", dsn(path, opts))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if isMemory(path) {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = opts.ConnectTimeout
	attempt := 1
	err = backoff.Retry(func() error {
		if err := db.PingContext(ctx); err != nil {
			logger.Info().Int("attempt", attempt).Err(err).Msg("waiting for the database")
			attempt++
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return &DB{DB: db, path: path, logger: logger}, nil
}

// Path returns the database path the connection was opened with.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

func dsn(path string, opts Options) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	params := fmt.Sprintf("_busy_timeout=%d&_foreign_keys=1", opts.BusyTimeout.Milliseconds())
	if !isMemory(path) {
		params = "_journal_mode=WAL&" + params
	}
	return path + sep + params
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:") || strings.Contains(path, "mode=memory")
}
