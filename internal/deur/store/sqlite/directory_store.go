package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/avanserv/deurapi/internal/db"
	"github.com/avanserv/deurapi/internal/deur/store"
)

// DirectoryStore implements store.DirectoryStore on SQLite. All mutations go
// through the single-writer worker, so the existence / single-pass /
// global-uniqueness checks in AttachPass and the insert they guard are
// serialized against every other directory write. The UNIQUE constraints on
// passes(serial_number) and passes(uid) back the same invariants at the
// schema level.
type DirectoryStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewDirectoryStore(db *sql.DB, writer *dbpkg.Worker) *DirectoryStore {
	return &DirectoryStore{db: db, writer: writer}
}

const userColumns = `
SELECT u.uid, u.name, u.access, COALESCE(p.serial_number, '')
FROM users u
LEFT JOIN passes p ON p.uid = u.uid
`

func (s *DirectoryStore) FindUser(ctx context.Context, uid string) (store.UserRecord, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return store.UserRecord{}, store.ErrUserNotFound
	}

	rows, err := s.db.QueryContext(ctx, userColumns+`WHERE u.uid = ?;`, uid)
	if err != nil {
		return store.UserRecord{}, fmt.Errorf("FindUser query: %w", err)
	}
	defer rows.Close()

	return exactlyOne(rows)
}

func (s *DirectoryStore) FindUserByPass(ctx context.Context, serial string) (store.UserRecord, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return store.UserRecord{}, store.ErrUserNotFound
	}

	rows, err := s.db.QueryContext(ctx, userColumns+`WHERE p.serial_number = ?;`, serial)
	if err != nil {
		return store.UserRecord{}, fmt.Errorf("FindUserByPass query: %w", err)
	}
	defer rows.Close()

	return exactlyOne(rows)
}

// exactlyOne scans a single user record. Zero and multiple matches both read
// as not found: an ambiguous directory entry is never silently
// disambiguated.
func exactlyOne(rows *sql.Rows) (store.UserRecord, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return store.UserRecord{}, fmt.Errorf("scan user: %w", err)
		}
		return store.UserRecord{}, store.ErrUserNotFound
	}

	var rec store.UserRecord
	var access int
	if err := rows.Scan(&rec.UID, &rec.Name, &access, &rec.PassSerial); err != nil {
		return store.UserRecord{}, fmt.Errorf("scan user: %w", err)
	}
	rec.Access = access == 1

	if rows.Next() {
		return store.UserRecord{}, store.ErrUserNotFound
	}
	return rec, rows.Err()
}

func (s *DirectoryStore) ListUsers(ctx context.Context) ([]store.UserRecord, error) {
	rows, err := s.db.QueryContext(ctx, userColumns+`ORDER BY u.uid;`)
	if err != nil {
		return nil, fmt.Errorf("ListUsers query: %w", err)
	}
	defer rows.Close()

	var out []store.UserRecord
	for rows.Next() {
		var rec store.UserRecord
		var access int
		if err := rows.Scan(&rec.UID, &rec.Name, &access, &rec.PassSerial); err != nil {
			return nil, fmt.Errorf("ListUsers scan: %w", err)
		}
		rec.Access = access == 1
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *DirectoryStore) AttachPass(ctx context.Context, uid, serial string) error {
	uid = strings.TrimSpace(uid)
	serial = strings.TrimSpace(serial)
	nowMs := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// Check order matters for error priority: user existence first,
		// then this user's pass, then the global serial collision.
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE uid = ?;`, uid).Scan(&one)
		if err == sql.ErrNoRows {
			return store.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("AttachPass find user: %w", err)
		}

		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM passes WHERE uid = ?;`, uid).Scan(&n); err != nil {
			return fmt.Errorf("AttachPass count user passes: %w", err)
		}
		if n > 0 {
			return store.ErrUserAlreadyHasPass
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM passes WHERE serial_number = ?;`, serial).Scan(&n); err != nil {
			return fmt.Errorf("AttachPass count serial: %w", err)
		}
		if n > 0 {
			return store.ErrPassExists
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO passes(serial_number, uid, assigned_at_ms) VALUES (?, ?, ?);`,
			serial, uid, nowMs); err != nil {
			return fmt.Errorf("AttachPass insert: %w", err)
		}
		return nil
	})
}

func (s *DirectoryStore) DetachPass(ctx context.Context, uid string) error {
	uid = strings.TrimSpace(uid)

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM passes WHERE uid = ?;`, uid)
		if err != nil {
			return fmt.Errorf("DetachPass delete: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("DetachPass rows affected: %w", err)
		}
		if n == 0 {
			return store.ErrNoPass
		}
		return nil
	})
}

func (s *DirectoryStore) GrantAccess(ctx context.Context, uid string) error {
	return s.setAccess(ctx, uid, 1)
}

func (s *DirectoryStore) DenyAccess(ctx context.Context, uid string) error {
	return s.setAccess(ctx, uid, 0)
}

// setAccess is a single atomic toggle of the access column. Repeating the
// same value is a no-op success.
func (s *DirectoryStore) setAccess(ctx context.Context, uid string, access int) error {
	uid = strings.TrimSpace(uid)
	nowMs := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE users SET access = ?, updated_at_ms = ? WHERE uid = ?;`,
			access, nowMs, uid)
		if err != nil {
			return fmt.Errorf("setAccess update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("setAccess rows affected: %w", err)
		}
		if n == 0 {
			return store.ErrUserNotFound
		}
		return nil
	})
}
