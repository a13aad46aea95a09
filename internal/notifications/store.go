package notifications

import (
	"context"
	"database/sql"
	"encoding/json"

	"kairos-backend/internal/tasks"
)

// PGStore persists notifications and preferences in Postgres.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) List(ctx context.Context, userID int) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, type, task_id, related,
			read, category, priority, actions, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		var (
			n                    Notification
			relatedJSON, actJSON string
		)
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.TaskID, &relatedJSON,
			&n.Read, &n.Category, &n.Priority, &actJSON, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(relatedJSON), &n.Related)
		_ = json.Unmarshal([]byte(actJSON), &n.Actions)
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, userID int, id string) (Notification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, message, type, task_id, related,
			read, category, priority, actions, created_at
		FROM notifications
		WHERE user_id = $1 AND id = $2
	`, userID, id)

	var (
		n                    Notification
		relatedJSON, actJSON string
	)
	err := row.Scan(
		&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.TaskID, &relatedJSON,
		&n.Read, &n.Category, &n.Priority, &actJSON, &n.CreatedAt,
	)
	if err != nil {
		return Notification{}, err
	}
	_ = json.Unmarshal([]byte(relatedJSON), &n.Related)
	_ = json.Unmarshal([]byte(actJSON), &n.Actions)
	return n, nil
}

func (s *PGStore) Insert(ctx context.Context, n Notification) error {
	related, err := json.Marshal(n.Related)
	if err != nil {
		return err
	}
	actions, err := json.Marshal(n.Actions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (
			id, user_id, title, message, type, task_id, related,
			read, category, priority, actions, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		n.ID, n.UserID, n.Title, n.Message, n.Type, n.TaskID, string(related),
		n.Read, n.Category, n.Priority, string(actions), n.CreatedAt,
	)
	return err
}

func (s *PGStore) MarkRead(ctx context.Context, userID int, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read=TRUE WHERE id=$1 AND user_id=$2
	`, id, userID)
	return err
}

func (s *PGStore) MarkAllRead(ctx context.Context, userID int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read=TRUE WHERE user_id=$1 AND read=FALSE
	`, userID)
	return err
}

func (s *PGStore) Delete(ctx context.Context, userID int, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM notifications WHERE id=$1 AND user_id=$2
	`, id, userID)
	return err
}

// Clear removes every notification the user has.
func (s *PGStore) Clear(ctx context.Context, userID int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM notifications WHERE user_id=$1
	`, userID)
	return err
}

// Preferences returns the user's stored preferences, creating defaults on
// first read.
func (s *PGStore) Preferences(ctx context.Context, userID int) (Preferences, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT enabled, categories, priorities, quiet_hours_start,
			quiet_hours_end, location_aware, context_aware, intensity
		FROM notification_preferences
		WHERE user_id = $1
	`, userID)

	var (
		p                 Preferences
		catJSON, prioJSON string
	)
	err := row.Scan(
		&p.Enabled, &catJSON, &prioJSON, &p.QuietHoursStart,
		&p.QuietHoursEnd, &p.LocationAware, &p.ContextAware, &p.Intensity,
	)
	if err == sql.ErrNoRows {
		defaults := DefaultPreferences()
		if err := s.SavePreferences(ctx, userID, defaults); err != nil {
			return Preferences{}, err
		}
		return defaults, nil
	}
	if err != nil {
		return Preferences{}, err
	}

	p.Categories = make(map[tasks.Category]bool)
	p.Priorities = make(map[tasks.Priority]bool)
	_ = json.Unmarshal([]byte(catJSON), &p.Categories)
	_ = json.Unmarshal([]byte(prioJSON), &p.Priorities)
	return p, nil
}

func (s *PGStore) SavePreferences(ctx context.Context, userID int, p Preferences) error {
	cats, err := json.Marshal(p.Categories)
	if err != nil {
		return err
	}
	prios, err := json.Marshal(p.Priorities)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (
			user_id, enabled, categories, priorities, quiet_hours_start,
			quiet_hours_end, location_aware, context_aware, intensity, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			categories = EXCLUDED.categories,
			priorities = EXCLUDED.priorities,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			location_aware = EXCLUDED.location_aware,
			context_aware = EXCLUDED.context_aware,
			intensity = EXCLUDED.intensity,
			updated_at = now()
	`,
		userID, p.Enabled, string(cats), string(prios), p.QuietHoursStart,
		p.QuietHoursEnd, p.LocationAware, p.ContextAware, p.Intensity,
	)
	return err
}
