package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"kairos-backend/internal/local"
	"kairos-backend/internal/tasks"
)

var syncNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

type fakeCalendar struct {
	events    []Event
	eventsErr error
	created   []tasks.Task
	updated   map[string]tasks.Task
	nextID    int
}

func (f *fakeCalendar) Events(context.Context, int, time.Time, time.Time) ([]Event, error) {
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events, nil
}

func (f *fakeCalendar) Create(_ context.Context, _ int, t tasks.Task) (string, error) {
	f.created = append(f.created, t)
	f.nextID++
	return fmt.Sprintf("ev-new-%d", f.nextID), nil
}

func (f *fakeCalendar) Update(_ context.Context, _ int, eventID string, t tasks.Task) error {
	if f.updated == nil {
		f.updated = make(map[string]tasks.Task)
	}
	f.updated[eventID] = t
	return nil
}

type fakeHealth struct {
	days []HealthDay
	err  error
}

func (f *fakeHealth) Days(context.Context, int, time.Time, time.Time) ([]HealthDay, error) {
	return f.days, f.err
}

type fakeLinked bool

func (f fakeLinked) Linked(context.Context, int) bool { return bool(f) }

type fakeTaskWriter struct {
	inserted []tasks.Task
	linked   map[string]string // task id -> event id
}

func (f *fakeTaskWriter) Insert(_ context.Context, t tasks.Task) (tasks.Task, error) {
	f.inserted = append(f.inserted, t)
	return t, nil
}

func (f *fakeTaskWriter) SetCalendarEventID(_ context.Context, _ int, id, eventID string) error {
	if f.linked == nil {
		f.linked = make(map[string]string)
	}
	f.linked[id] = eventID
	return nil
}

type fakeHealthWriter struct {
	days []HealthDay
}

func (f *fakeHealthWriter) UpsertDay(_ context.Context, d HealthDay) error {
	f.days = append(f.days, d)
	return nil
}

func statusStore(t *testing.T) *local.Store {
	t.Helper()
	s, err := local.OpenMemory()
	if err != nil {
		t.Fatalf("open status store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func lastStatus(t *testing.T, store *local.Store, userID int, kind string) local.SyncStatus {
	t.Helper()
	statuses, err := store.SyncStatuses(context.Background(), userID)
	if err != nil {
		t.Fatalf("list statuses: %v", err)
	}
	for _, st := range statuses {
		if st.Kind == kind {
			return st
		}
	}
	t.Fatalf("no %s status recorded", kind)
	return local.SyncStatus{}
}

func syncTask(id, eventID, title string) tasks.Task {
	return tasks.Task{
		ID:              id,
		UserID:          1,
		Title:           title,
		DueDate:         syncNow.Add(24 * time.Hour),
		Category:        tasks.CategoryWork,
		Priority:        tasks.PriorityMedium,
		StartTime:       "10:00",
		EndTime:         "11:00",
		CalendarEventID: eventID,
	}
}

func TestSyncCalendarNotLinked(t *testing.T) {
	svc := NewService(&fakeCalendar{}, &fakeHealth{}, fakeLinked(false), &fakeTaskWriter{}, &fakeHealthWriter{}, statusStore(t))
	if _, err := svc.SyncCalendar(context.Background(), 1, nil); !errors.Is(err, ErrNotLinked) {
		t.Fatalf("expected ErrNotLinked, got %v", err)
	}
}

func TestSyncCalendarReconciles(t *testing.T) {
	ctx := context.Background()
	cal := &fakeCalendar{
		events: []Event{
			{ID: "ev-1", Title: "In sync", StartTime: "10:00", EndTime: "11:00"},
			{ID: "ev-2", Title: "Renamed upstream", StartTime: "10:00", EndTime: "11:00"},
			{ID: "ev-orphan", Title: "Dentist", Due: syncNow.Add(48 * time.Hour)},
		},
	}
	tw := &fakeTaskWriter{}
	status := statusStore(t)
	svc := NewService(cal, &fakeHealth{}, fakeLinked(true), tw, &fakeHealthWriter{}, status)
	svc.SetClock(func() time.Time { return syncNow })

	list := []tasks.Task{
		syncTask("t-same", "ev-1", "In sync"),
		syncTask("t-drift", "ev-2", "Renamed locally"),
		syncTask("t-vanished", "ev-gone", "Event vanished"),
		syncTask("t-unlinked", "", "Never linked"),
	}

	res, err := svc.SyncCalendar(ctx, 1, list)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	// drifted task pushes its fields to the provider
	if len(cal.updated) != 1 {
		t.Fatalf("expected 1 provider update, got %v", cal.updated)
	}
	if cal.updated["ev-2"].Title != "Renamed locally" {
		t.Fatalf("local title must win, got %+v", cal.updated["ev-2"])
	}

	// vanished and unlinked tasks each get a fresh event
	if tw.linked["t-vanished"] == "" || tw.linked["t-unlinked"] == "" {
		t.Fatalf("expected new events linked, got %v", tw.linked)
	}

	// orphan provider event becomes a task
	if len(tw.inserted) != 1 || tw.inserted[0].CalendarEventID != "ev-orphan" {
		t.Fatalf("expected orphan event imported, got %v", tw.inserted)
	}
	if tw.inserted[0].Category != tasks.CategoryPersonal {
		t.Fatalf("imported tasks default to personal, got %s", tw.inserted[0].Category)
	}

	if res.Created != 3 || res.Updated != 1 || res.Deleted != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	st := lastStatus(t, status, 1, KindCalendar)
	if st.InProgress || st.Status != "success" {
		t.Fatalf("expected success status, got %+v", st)
	}
	if !strings.Contains(st.Detail, "3 created") {
		t.Fatalf("detail should carry counts, got %q", st.Detail)
	}
}

func TestSyncCalendarSkipsTasksWithoutDueDate(t *testing.T) {
	cal := &fakeCalendar{}
	svc := NewService(cal, &fakeHealth{}, fakeLinked(true), &fakeTaskWriter{}, &fakeHealthWriter{}, statusStore(t))

	list := []tasks.Task{{ID: "no-due", UserID: 1, Title: "draft"}}
	res, err := svc.SyncCalendar(context.Background(), 1, list)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Created != 0 || len(cal.created) != 0 {
		t.Fatalf("tasks without due dates must be skipped, got %+v", res)
	}
}

func TestSyncCalendarProviderErrorSetsStatus(t *testing.T) {
	cal := &fakeCalendar{eventsErr: errors.New("upstream down")}
	status := statusStore(t)
	svc := NewService(cal, &fakeHealth{}, fakeLinked(true), &fakeTaskWriter{}, &fakeHealthWriter{}, status)

	if _, err := svc.SyncCalendar(context.Background(), 1, nil); err == nil {
		t.Fatal("expected error")
	}
	st := lastStatus(t, status, 1, KindCalendar)
	if st.Status != "error" || st.InProgress {
		t.Fatalf("expected error status, got %+v", st)
	}
	if !strings.Contains(st.Detail, "upstream down") {
		t.Fatalf("detail should carry the cause, got %q", st.Detail)
	}
}

func TestSyncHealthImportsDays(t *testing.T) {
	health := &fakeHealth{days: []HealthDay{
		{Date: "2026-03-03", Steps: 9000, SleepHours: 7.5},
		{Date: "2026-03-04", Steps: 4000, SleepHours: 6},
	}}
	hw := &fakeHealthWriter{}
	status := statusStore(t)
	svc := NewService(&fakeCalendar{}, health, fakeLinked(true), &fakeTaskWriter{}, hw, status)

	count, err := svc.SyncHealth(context.Background(), 1)
	if err != nil {
		t.Fatalf("sync health: %v", err)
	}
	if count != 2 || len(hw.days) != 2 {
		t.Fatalf("expected 2 days imported, got %d", count)
	}
	if hw.days[0].UserID != 1 {
		t.Fatalf("imported days must carry the user id, got %+v", hw.days[0])
	}

	st := lastStatus(t, status, 1, KindHealth)
	if st.Status != "success" || st.Detail != "2 days" {
		t.Fatalf("unexpected status %+v", st)
	}
}
