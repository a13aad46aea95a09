package tasks

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidCategory   = errors.New("tasks: invalid category")
	ErrInvalidPriority   = errors.New("tasks: invalid priority")
	ErrInvalidRecurrence = errors.New("tasks: invalid recurrence type")
)

type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryFitness  Category = "fitness"
	CategoryAcademic Category = "academic"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryPersonal, CategoryWork, CategoryFitness, CategoryAcademic:
		return true
	default:
		return false
	}
}

func Categories() []Category {
	return []Category{CategoryPersonal, CategoryWork, CategoryFitness, CategoryAcademic}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
)

func (r RecurrenceType) IsValid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	default:
		return false
	}
}

// DefaultReminderMinutes applies when a task has no reminder lead configured.
const DefaultReminderMinutes = 30

type Task struct {
	ID              string         `json:"id"`
	UserID          int            `json:"user_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	DueDate         time.Time      `json:"due_date"`
	Completed       bool           `json:"completed"`
	Category        Category       `json:"category"`
	Priority        Priority       `json:"priority"`
	StartTime       string         `json:"start_time,omitempty"`
	EndTime         string         `json:"end_time,omitempty"`
	IsRecurring     bool           `json:"is_recurring,omitempty"`
	RecurrenceType  RecurrenceType `json:"recurrence_type,omitempty"`
	ReminderMinutes *int           `json:"reminder_time,omitempty"`
	CalendarEventID string         `json:"calendar_event_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("tasks: title is required")
	}
	if t.DueDate.IsZero() {
		return errors.New("tasks: due date is required")
	}
	if !t.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, t.Category)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.IsRecurring && !t.RecurrenceType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRecurrence, t.RecurrenceType)
	}
	if t.ReminderMinutes != nil && *t.ReminderMinutes < 0 {
		return errors.New("tasks: reminder lead must be non-negative")
	}
	return nil
}

// ReminderLead returns the configured reminder lead time, falling back to
// the default when unset.
func (t Task) ReminderLead() time.Duration {
	minutes := DefaultReminderMinutes
	if t.ReminderMinutes != nil {
		minutes = *t.ReminderMinutes
	}
	return time.Duration(minutes) * time.Minute
}
