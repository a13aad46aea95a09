package local

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Fixed-width timestamp layout so string comparison in ORDER BY matches
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Operation is a queued mutation captured while the backend was
// unreachable. Payload holds the JSON body the originating request carried.
type Operation struct {
	ID         string    `json:"id"`
	UserID     int       `json:"user_id"`
	Collection string    `json:"collection"`
	Kind       string    `json:"kind"`
	Payload    []byte    `json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
	Synced     bool      `json:"synced"`
	Attempts   int       `json:"attempts"`
}

// SyncStatus tracks the last run of a background sync kind per user.
type SyncStatus struct {
	UserID     int       `json:"user_id"`
	Kind       string    `json:"kind"`
	InProgress bool      `json:"in_progress"`
	LastSync   time.Time `json:"last_sync"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
}

// Store is the node-local SQLite database holding the offline queue and
// sync bookkeeping. It deliberately lives outside Postgres so queued work
// survives while the primary database is unreachable.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at dbPath and runs migrations.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// OpenMemory creates an in-memory store for testing.
func OpenMemory() (*Store, error) {
	return Open(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS offline_operations (
		id          TEXT PRIMARY KEY,
		user_id     INTEGER NOT NULL,
		collection  TEXT NOT NULL,
		kind        TEXT NOT NULL,
		payload     TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		synced      INTEGER NOT NULL DEFAULT 0,
		attempts    INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_operations_user    ON offline_operations(user_id);
	CREATE INDEX IF NOT EXISTS idx_operations_created ON offline_operations(created_at);

	CREATE TABLE IF NOT EXISTS sync_status (
		user_id     INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		in_progress INTEGER NOT NULL DEFAULT 0,
		last_sync   TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT '',
		detail      TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, kind)
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *Store) InsertOperation(ctx context.Context, op Operation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO offline_operations (id, user_id, collection, kind, payload, created_at, synced, attempts)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0)
	`, op.ID, op.UserID, op.Collection, op.Kind, string(op.Payload), op.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// UnsyncedOperations returns the user's pending operations oldest first.
// Ties on created_at break on id so replay order is stable.
func (s *Store) UnsyncedOperations(ctx context.Context, userID int) ([]Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, collection, kind, payload, created_at, synced, attempts
		FROM offline_operations
		WHERE user_id = ? AND synced = 0
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list unsynced: %w", err)
	}
	defer rows.Close()
	return scanOperations(rows)
}

// Operations returns every queued operation for the user, synced or not.
func (s *Store) Operations(ctx context.Context, userID int) ([]Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, collection, kind, payload, created_at, synced, attempts
		FROM offline_operations
		WHERE user_id = ?
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()
	return scanOperations(rows)
}

func scanOperations(rows *sql.Rows) ([]Operation, error) {
	var out []Operation
	for rows.Next() {
		var (
			op        Operation
			payload   string
			createdAt string
		)
		if err := rows.Scan(&op.ID, &op.UserID, &op.Collection, &op.Kind, &payload, &createdAt, &op.Synced, &op.Attempts); err != nil {
			return nil, err
		}
		op.Payload = []byte(payload)
		op.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, op)
	}
	return out, rows.Err()
}

// UsersWithPending returns the ids of users who still have unsynced
// operations, for the opportunistic replay after startup.
func (s *Store) UsersWithPending(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM offline_operations WHERE synced = 0
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var uid int
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}

func (s *Store) MarkSynced(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE offline_operations SET synced = 1 WHERE id = ?
	`, id)
	return err
}

func (s *Store) IncrementAttempts(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE offline_operations SET attempts = attempts + 1 WHERE id = ?
	`, id)
	return err
}

// PurgeSynced drops replayed operations. Failed ones stay for the next pass.
func (s *Store) PurgeSynced(ctx context.Context, userID int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM offline_operations WHERE user_id = ? AND synced = 1
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("purge synced: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) SetSyncStatus(ctx context.Context, st SyncStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_status (user_id, kind, in_progress, last_sync, status, detail)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, kind) DO UPDATE SET
			in_progress = excluded.in_progress,
			last_sync = excluded.last_sync,
			status = excluded.status,
			detail = excluded.detail
	`, st.UserID, st.Kind, st.InProgress, st.LastSync.UTC().Format(timeLayout), st.Status, st.Detail)
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	return nil
}

func (s *Store) SyncStatuses(ctx context.Context, userID int) ([]SyncStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, kind, in_progress, last_sync, status, detail
		FROM sync_status
		WHERE user_id = ?
		ORDER BY kind ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sync status: %w", err)
	}
	defer rows.Close()

	var out []SyncStatus
	for rows.Next() {
		var (
			st       SyncStatus
			lastSync string
		)
		if err := rows.Scan(&st.UserID, &st.Kind, &st.InProgress, &lastSync, &st.Status, &st.Detail); err != nil {
			return nil, err
		}
		st.LastSync, _ = time.Parse(timeLayout, lastSync)
		out = append(out, st)
	}
	return out, rows.Err()
}
