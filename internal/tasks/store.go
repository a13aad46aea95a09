package tasks

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const taskColumns = `
	id, user_id, title, description, due_date, completed,
	category, priority, start_time, end_time,
	is_recurring, recurrence_type, reminder_time, calendar_event_id,
	created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var (
		t        Task
		reminder sql.NullInt64
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.DueDate, &t.Completed,
		&t.Category, &t.Priority, &t.StartTime, &t.EndTime,
		&t.IsRecurring, &t.RecurrenceType, &reminder, &t.CalendarEventID,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	if reminder.Valid {
		m := int(reminder.Int64)
		t.ReminderMinutes = &m
	}
	return t, nil
}

func reminderParam(t Task) any {
	if t.ReminderMinutes == nil {
		return nil
	}
	return *t.ReminderMinutes
}

// List returns the user's tasks sorted by due date ascending.
func (s *Store) List(ctx context.Context, userID int) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1
		ORDER BY due_date ASC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) Get(ctx context.Context, userID int, id string) (Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1 AND id = $2
	`, userID, id)
	return scanTask(row)
}

// Insert stores a new task. A missing id is generated; timestamps are set
// server-side.
func (s *Store) Insert(ctx context.Context, t Task) (Task, error) {
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, user_id, title, description, due_date, completed,
			category, priority, start_time, end_time,
			is_recurring, recurrence_type, reminder_time, calendar_event_id,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		t.ID, t.UserID, t.Title, t.Description, t.DueDate, t.Completed,
		t.Category, t.Priority, t.StartTime, t.EndTime,
		t.IsRecurring, t.RecurrenceType, reminderParam(t), t.CalendarEventID,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

// Update rewrites every mutable field of an owned task.
func (s *Store) Update(ctx context.Context, t Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title=$1, description=$2, due_date=$3, completed=$4,
			category=$5, priority=$6, start_time=$7, end_time=$8,
			is_recurring=$9, recurrence_type=$10, reminder_time=$11,
			calendar_event_id=$12, updated_at=now()
		WHERE id=$13 AND user_id=$14
	`,
		t.Title, t.Description, t.DueDate, t.Completed,
		t.Category, t.Priority, t.StartTime, t.EndTime,
		t.IsRecurring, t.RecurrenceType, reminderParam(t),
		t.CalendarEventID, t.ID, t.UserID,
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID int, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM tasks WHERE id=$1 AND user_id=$2
	`, id, userID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) SetCompleted(ctx context.Context, userID int, id string, completed bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET completed=$1, updated_at=now()
		WHERE id=$2 AND user_id=$3
	`, completed, id, userID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) Postpone(ctx context.Context, userID int, id string, until time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET due_date=$1, updated_at=now()
		WHERE id=$2 AND user_id=$3
	`, until, id, userID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) SetCalendarEventID(ctx context.Context, userID int, id, eventID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET calendar_event_id=$1, updated_at=now()
		WHERE id=$2 AND user_id=$3
	`, eventID, id, userID)
	return err
}
