package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kairos-backend/internal/local"
	"kairos-backend/internal/tasks"
)

const (
	KindCalendar = "calendar"
	KindHealth   = "health"
)

// ErrNotLinked means the user never connected the external provider.
var ErrNotLinked = errors.New("sync: provider not linked")

// Event is a provider calendar event.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartTime   string    `json:"start_time,omitempty"`
	EndTime     string    `json:"end_time,omitempty"`
	Due         time.Time `json:"due"`
}

// CalendarAPI is the provider calendar client. OAuth token exchange
// happens inside the implementation.
type CalendarAPI interface {
	Events(ctx context.Context, userID int, from, to time.Time) ([]Event, error)
	Create(ctx context.Context, userID int, t tasks.Task) (string, error)
	Update(ctx context.Context, userID int, eventID string, t tasks.Task) error
}

// HealthAPI is the provider health client.
type HealthAPI interface {
	Days(ctx context.Context, userID int, from, to time.Time) ([]HealthDay, error)
}

// Linked reports whether the user has connected the provider.
type Linked interface {
	Linked(ctx context.Context, userID int) bool
}

// TaskWriter is the slice of the task store calendar sync mutates.
// *tasks.Store satisfies it.
type TaskWriter interface {
	Insert(ctx context.Context, t tasks.Task) (tasks.Task, error)
	SetCalendarEventID(ctx context.Context, userID int, id, eventID string) error
}

// HealthWriter persists imported health days. *PGHealthStore satisfies it.
type HealthWriter interface {
	UpsertDay(ctx context.Context, d HealthDay) error
}

// StatusWriter records sync progress. *local.Store satisfies it.
type StatusWriter interface {
	SetSyncStatus(ctx context.Context, st local.SyncStatus) error
}

// Result counts calendar changes made during one sync pass.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Service reconciles tasks with the provider calendar and imports health
// days. The provider clients are injected so tests run against fakes.
type Service struct {
	calendar CalendarAPI
	health   HealthAPI
	linked   Linked
	taskw    TaskWriter
	healthw  HealthWriter
	status   StatusWriter
	now      func() time.Time
}

func NewService(calendar CalendarAPI, health HealthAPI, linked Linked, taskw TaskWriter, healthw HealthWriter, status StatusWriter) *Service {
	return &Service{
		calendar: calendar,
		health:   health,
		linked:   linked,
		taskw:    taskw,
		healthw:  healthw,
		status:   status,
		now:      time.Now,
	}
}

// SetClock overrides the service clock. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) setStatus(ctx context.Context, userID int, kind string, inProgress bool, status, detail string) {
	st := local.SyncStatus{
		UserID:     userID,
		Kind:       kind,
		InProgress: inProgress,
		LastSync:   s.now().UTC(),
		Status:     status,
		Detail:     detail,
	}
	_ = s.status.SetSyncStatus(ctx, st)
}

// SyncCalendar reconciles the user's tasks against the provider calendar
// over a window two weeks back to three months ahead. Linked tasks whose
// title or times drifted update the provider event; linked tasks whose
// event vanished get a fresh one; unlinked tasks get events; provider
// events with no matching task are imported as tasks.
func (s *Service) SyncCalendar(ctx context.Context, userID int, list []tasks.Task) (Result, error) {
	if !s.linked.Linked(ctx, userID) {
		return Result{}, ErrNotLinked
	}

	s.setStatus(ctx, userID, KindCalendar, true, "syncing", "")

	now := s.now().UTC()
	from := now.AddDate(0, 0, -14)
	to := now.AddDate(0, 3, 0)

	events, err := s.calendar.Events(ctx, userID, from, to)
	if err != nil {
		s.setStatus(ctx, userID, KindCalendar, false, "error", err.Error())
		return Result{}, fmt.Errorf("fetch events: %w", err)
	}

	byID := make(map[string]Event, len(events))
	for _, e := range events {
		if e.ID != "" {
			byID[e.ID] = e
		}
	}

	var res Result
	for _, t := range list {
		if t.DueDate.IsZero() {
			continue
		}

		if t.CalendarEventID != "" {
			e, ok := byID[t.CalendarEventID]
			if ok {
				if t.Title != e.Title || t.StartTime != e.StartTime || t.EndTime != e.EndTime {
					if err := s.calendar.Update(ctx, userID, t.CalendarEventID, t); err != nil {
						s.setStatus(ctx, userID, KindCalendar, false, "error", err.Error())
						return res, fmt.Errorf("update event %s: %w", t.CalendarEventID, err)
					}
					res.Updated++
				}
				delete(byID, t.CalendarEventID)
				continue
			}
		}

		// unlinked, or the linked event vanished from the provider
		eventID, err := s.calendar.Create(ctx, userID, t)
		if err != nil {
			s.setStatus(ctx, userID, KindCalendar, false, "error", err.Error())
			return res, fmt.Errorf("create event for task %s: %w", t.ID, err)
		}
		if err := s.taskw.SetCalendarEventID(ctx, userID, t.ID, eventID); err != nil {
			s.setStatus(ctx, userID, KindCalendar, false, "error", err.Error())
			return res, fmt.Errorf("link task %s: %w", t.ID, err)
		}
		res.Created++
	}

	// provider events nothing matched: import them as tasks
	for _, e := range byID {
		t := tasks.Task{
			UserID:          userID,
			Title:           e.Title,
			Description:     e.Description,
			DueDate:         e.Due,
			Category:        tasks.CategoryPersonal,
			Priority:        tasks.PriorityMedium,
			StartTime:       e.StartTime,
			EndTime:         e.EndTime,
			CalendarEventID: e.ID,
		}
		if _, err := s.taskw.Insert(ctx, t); err != nil {
			s.setStatus(ctx, userID, KindCalendar, false, "error", err.Error())
			return res, fmt.Errorf("import event %s: %w", e.ID, err)
		}
		res.Created++
	}

	detail := fmt.Sprintf("%d created, %d updated, %d deleted", res.Created, res.Updated, res.Deleted)
	s.setStatus(ctx, userID, KindCalendar, false, "success", detail)
	return res, nil
}

// SyncHealth imports the last 30 days of provider health data.
func (s *Service) SyncHealth(ctx context.Context, userID int) (int, error) {
	if !s.linked.Linked(ctx, userID) {
		return 0, ErrNotLinked
	}

	s.setStatus(ctx, userID, KindHealth, true, "syncing", "")

	now := s.now().UTC()
	days, err := s.health.Days(ctx, userID, now.AddDate(0, 0, -30), now)
	if err != nil {
		s.setStatus(ctx, userID, KindHealth, false, "error", err.Error())
		return 0, fmt.Errorf("fetch health data: %w", err)
	}

	for _, d := range days {
		d.UserID = userID
		if err := s.healthw.UpsertDay(ctx, d); err != nil {
			s.setStatus(ctx, userID, KindHealth, false, "error", err.Error())
			return 0, fmt.Errorf("store health day %s: %w", d.Date, err)
		}
	}

	s.setStatus(ctx, userID, KindHealth, false, "success", fmt.Sprintf("%d days", len(days)))
	return len(days), nil
}
