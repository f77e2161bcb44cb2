// Package archive keeps a write-only history of feed fetches in SQLite.
// It never feeds data back into the store.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/reddit-feeds/pkg/database"
	"github.com/lepinkainen/reddit-feeds/pkg/feedstore"
	"github.com/lepinkainen/reddit-feeds/pkg/feedtypes"
	"github.com/lepinkainen/reddit-feeds/pkg/filesystem"
)

const schema = `
CREATE TABLE IF NOT EXISTS fetches (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	category    TEXT NOT NULL,
	requested   TEXT NOT NULL,
	fetched_at  INTEGER NOT NULL,
	post_count  INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fetches_category ON fetches(category, fetched_at);

CREATE TABLE IF NOT EXISTS fetch_posts (
	fetch_id INTEGER NOT NULL REFERENCES fetches(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	post_id  TEXT NOT NULL,
	data     TEXT NOT NULL,
	PRIMARY KEY (fetch_id, position)
);
`

// Entry is one recorded fetch.
type Entry struct {
	ID        int64
	Category  string // category the result was stored under
	Requested string // category the fetch was issued for
	FetchedAt time.Time
	PostCount int
	Error     string
	Duration  time.Duration
}

// Misattributed reports whether the result landed in a different category
// than the one requested.
func (e Entry) Misattributed() bool {
	return e.Category != e.Requested
}

// Archive records fetch completions
type Archive struct {
	db  *database.Database
	now func() time.Time
}

// DefaultPath returns the archive location in the XDG data directory.
func DefaultPath() (string, error) {
	return filesystem.DataFile("archive.db")
}

// Open opens or creates the archive at path.
func Open(path string) (*Archive, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	if err := db.ExecuteSchema(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}

	slog.Debug("Opened fetch archive", "path", path)
	return &Archive{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Record stores a completion and the posts it produced.
func (a *Archive) Record(ctx context.Context, c feedstore.Completion) (int64, error) {
	fetchedAt := c.Feed.LastUpdated
	if fetchedAt.IsZero() {
		fetchedAt = a.now()
	}

	var id int64
	err := a.db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO fetches (category, requested, fetched_at, post_count, error, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.Applied, c.Requested, fetchedAt.UnixMilli(), len(c.Feed.Items), c.Feed.Error, c.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("failed to insert fetch: %w", err)
		}

		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get fetch id: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO fetch_posts (fetch_id, position, post_id, data) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare post insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, post := range c.Feed.Items {
			data, err := json.Marshal(post)
			if err != nil {
				return fmt.Errorf("failed to encode post %s: %w", post.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, id, i, post.ID, string(data)); err != nil {
				return fmt.Errorf("failed to insert post %s: %w", post.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Debug("Archived fetch", "id", id, "category", c.Applied, "posts", len(c.Feed.Items))
	return id, nil
}

// Hook returns an OnCompletion callback that records completions, logging
// failures instead of returning them.
func (a *Archive) Hook(ctx context.Context) func(feedstore.Completion) {
	return func(c feedstore.Completion) {
		if _, err := a.Record(ctx, c); err != nil {
			slog.Warn("Failed to archive fetch", "category", c.Applied, "error", err)
		}
	}
}

// History returns the most recent fetches stored under category, newest
// first. A limit <= 0 returns all of them.
func (a *Archive) History(ctx context.Context, category string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := a.db.DB().QueryContext(ctx,
		`SELECT id, category, requested, fetched_at, post_count, error, duration_ms
		 FROM fetches WHERE category = ?
		 ORDER BY fetched_at DESC, id DESC
		 LIMIT ?`, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		var (
			e          Entry
			fetchedAt  int64
			durationMS int64
		)
		if err := rows.Scan(&e.ID, &e.Category, &e.Requested, &fetchedAt, &e.PostCount, &e.Error, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.FetchedAt = time.UnixMilli(fetchedAt).UTC()
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return entries, nil
}

// Posts returns the posts recorded for a fetch, in listing order.
func (a *Archive) Posts(ctx context.Context, fetchID int64) ([]feedtypes.Post, error) {
	rows, err := a.db.DB().QueryContext(ctx,
		`SELECT data FROM fetch_posts WHERE fetch_id = ? ORDER BY position`, fetchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	posts := []feedtypes.Post{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}

		var post feedtypes.Post
		if err := json.Unmarshal([]byte(data), &post); err != nil {
			return nil, fmt.Errorf("failed to decode post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}

	return posts, nil
}
