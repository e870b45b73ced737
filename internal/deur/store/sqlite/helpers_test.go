package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/avanserv/deurapi/internal/db"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production. Closed automatically when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each call gets a unique in-memory database. The shared-cache URI
	// keeps the database alive for the lifetime of the connection pool.
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		t.Name(),
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	// Match production: single connection for SQLite safety.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn, closed automatically
// when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

// seedUser inserts a bare directory user.
func seedUser(t *testing.T, conn *sql.DB, uid, name string, access bool) {
	t.Helper()

	var a int
	if access {
		a = 1
	}
	nowMs := time.Now().UTC().UnixMilli()
	_, err := conn.ExecContext(context.Background(), `
INSERT INTO users(uid, name, access, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?);`, uid, name, a, nowMs, nowMs)
	if err != nil {
		t.Fatalf("seedUser %s: %v", uid, err)
	}
}
