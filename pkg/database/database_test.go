package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.ExecuteSchema(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`))
	return db
}

func count(t *testing.T, db *Database) int {
	t.Helper()
	var n int
	require.NoError(t, db.DB().QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestOpenConfiguresWAL(t *testing.T) {
	db := openTemp(t)

	var mode string
	require.NoError(t, db.DB().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpenAppliesPragmasToEveryConnection(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	// hold several connections at once so the pool has to open new ones
	conns := make([]*sql.Conn, 0, 3)
	t.Cleanup(func() {
		for _, c := range conns {
			_ = c.Close()
		}
	})
	for range 3 {
		conn, err := db.DB().Conn(ctx)
		require.NoError(t, err)
		conns = append(conns, conn)
	}

	for i, conn := range conns {
		var foreignKeys, busyTimeout int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys))
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout))
		assert.Equal(t, 1, foreignKeys, "connection %d", i)
		assert.Equal(t, 5000, busyTimeout, "connection %d", i)
	}
}

func TestDSN(t *testing.T) {
	assert.Contains(t, dsn("/tmp/a.db"), "journal_mode%28WAL%29")
	assert.NotContains(t, dsn(":memory:"), "journal_mode")
	assert.True(t, strings.HasPrefix(dsn(":memory:"), ":memory:?_pragma="))
}

func TestTransactionCommit(t *testing.T) {
	db := openTemp(t)

	err := db.Transaction(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO items (name) VALUES (?), (?)`, "a", "b")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count(t, db))
}

func TestTransactionRollback(t *testing.T) {
	db := openTemp(t)
	boom := errors.New("boom")

	err := db.Transaction(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO items (name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, db))
}

func TestTransactionPanicRollsBack(t *testing.T) {
	db := openTemp(t)

	assert.Panics(t, func() {
		_ = db.Transaction(context.Background(), func(tx *sql.Tx) error {
			_, _ = tx.Exec(`INSERT INTO items (name) VALUES ('a')`)
			panic("kaboom")
		})
	})
	assert.Equal(t, 0, count(t, db))
}

func TestOpenMemory(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.ExecuteSchema(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`))
	assert.Equal(t, 0, count(t, db))

	require.NoError(t, db.Close())
	require.NoError(t, db.Close(), "Close is idempotent")
}
