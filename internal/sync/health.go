package sync

import (
	"context"
	"database/sql"
	"time"
)

// HealthDay is one day of imported provider health data. Date is a
// "YYYY-MM-DD" string so it joins directly against task due dates.
type HealthDay struct {
	UserID     int     `json:"user_id"`
	Date       string  `json:"date"`
	Steps      int     `json:"steps"`
	SleepHours float64 `json:"sleep_hours"`
	HeartRate  int     `json:"heart_rate"`
}

// PGHealthStore persists imported health days in Postgres.
type PGHealthStore struct {
	db *sql.DB
}

func NewPGHealthStore(db *sql.DB) *PGHealthStore {
	return &PGHealthStore{db: db}
}

func (s *PGHealthStore) UpsertDay(ctx context.Context, d HealthDay) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO health_data (user_id, day, steps, sleep_hours, heart_rate)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, day) DO UPDATE SET
			steps = EXCLUDED.steps,
			sleep_hours = EXCLUDED.sleep_hours,
			heart_rate = EXCLUDED.heart_rate
	`, d.UserID, d.Date, d.Steps, d.SleepHours, d.HeartRate)
	return err
}

func (s *PGHealthStore) Days(ctx context.Context, userID int) ([]HealthDay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, day, steps, sleep_hours, heart_rate
		FROM health_data
		WHERE user_id = $1
		ORDER BY day ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HealthDay
	for rows.Next() {
		var (
			d   HealthDay
			day time.Time
		)
		if err := rows.Scan(&d.UserID, &day, &d.Steps, &d.SleepHours, &d.HeartRate); err != nil {
			return nil, err
		}
		d.Date = day.Format("2006-01-02")
		out = append(out, d)
	}
	return out, rows.Err()
}
