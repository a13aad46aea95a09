package db

import (
	"database/sql"

	_ "github.com/lib/pq"
)

func Connect(connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates the schema if it does not exist yet. Idempotent.
func Migrate(db *sql.DB) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS users (
		id         SERIAL PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		password   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id                TEXT PRIMARY KEY,
		user_id           INTEGER NOT NULL REFERENCES users(id),
		title             TEXT NOT NULL,
		description       TEXT NOT NULL DEFAULT '',
		due_date          TIMESTAMPTZ NOT NULL,
		completed         BOOLEAN NOT NULL DEFAULT FALSE,
		category          TEXT NOT NULL,
		priority          TEXT NOT NULL,
		start_time        TEXT NOT NULL DEFAULT '',
		end_time          TEXT NOT NULL DEFAULT '',
		is_recurring      BOOLEAN NOT NULL DEFAULT FALSE,
		recurrence_type   TEXT NOT NULL DEFAULT '',
		reminder_time     INTEGER,
		calendar_event_id TEXT NOT NULL DEFAULT '',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_due  ON tasks(due_date);

	CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    INTEGER NOT NULL REFERENCES users(id),
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		type       TEXT NOT NULL,
		task_id    TEXT NOT NULL DEFAULT '',
		related    TEXT NOT NULL DEFAULT '[]',
		read       BOOLEAN NOT NULL DEFAULT FALSE,
		category   TEXT NOT NULL DEFAULT '',
		priority   TEXT NOT NULL DEFAULT '',
		actions    TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);

	CREATE TABLE IF NOT EXISTS notification_preferences (
		user_id           INTEGER PRIMARY KEY REFERENCES users(id),
		enabled           BOOLEAN NOT NULL DEFAULT TRUE,
		categories        TEXT NOT NULL DEFAULT '{}',
		priorities        TEXT NOT NULL DEFAULT '{}',
		quiet_hours_start TEXT NOT NULL DEFAULT '',
		quiet_hours_end   TEXT NOT NULL DEFAULT '',
		location_aware    BOOLEAN NOT NULL DEFAULT FALSE,
		context_aware     BOOLEAN NOT NULL DEFAULT FALSE,
		intensity         TEXT NOT NULL DEFAULT 'medium',
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS health_data (
		user_id    INTEGER NOT NULL REFERENCES users(id),
		day        DATE NOT NULL,
		steps      INTEGER NOT NULL DEFAULT 0,
		sleep_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
		heart_rate INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, day)
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id               BIGSERIAL PRIMARY KEY,
		event_name       TEXT NOT NULL,
		event_time       TIMESTAMPTZ NOT NULL,
		user_id          INTEGER NOT NULL,
		session_id       TEXT,
		platform         TEXT,
		app_version      TEXT,
		device_locale    TEXT,
		source_event_key TEXT UNIQUE,
		properties       JSONB
	);
	`
	_, err := db.Exec(ddl)
	return err
}
