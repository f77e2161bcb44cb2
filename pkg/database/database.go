// Package database wraps a SQLite connection configured for a single local
// writer with concurrent readers.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/lepinkainen/reddit-feeds/pkg/filesystem"
)

// Database represents a thread-safe database connection
type Database struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if needed) the SQLite database at path.
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*Database, error) {
	if path != ":memory:" {
		if err := filesystem.EnsureDirectoryExists(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to configure database %s: %w", path, err)
	}

	return &Database{db: db}, nil
}

// dsn appends connection pragmas to path. The driver runs them on every
// new connection in the pool.
func dsn(path string) string {
	pragmas := []string{
		"busy_timeout(5000)", // 5 second timeout for lock contention
		"foreign_keys(1)",
		"synchronous(NORMAL)",
		"temp_store(MEMORY)",
	}
	if path != ":memory:" {
		pragmas = append([]string{"journal_mode(WAL)"}, pragmas...)
	}

	q := make(url.Values)
	q["_pragma"] = pragmas
	return path + "?" + q.Encode()
}

// Close closes the database connection
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.db == nil {
		return nil
	}
	err := db.db.Close()
	db.db = nil
	return err
}

// DB returns the underlying sql.DB instance
func (db *Database) DB() *sql.DB {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.db
}

// ExecuteSchema executes a schema statement
func (db *Database) ExecuteSchema(schema string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.db.Exec(schema)
	return err
}

// Transaction executes fn within a database transaction. The transaction is
// rolled back if fn returns an error or panics.
func (db *Database) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				slog.Error("Failed to rollback transaction", "error", rollbackErr)
			}
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			slog.Error("Failed to rollback transaction", "error", rollbackErr)
		}
		return err
	}

	return tx.Commit()
}
