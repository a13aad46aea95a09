package notifications

import (
	"time"

	"kairos-backend/internal/tasks"
)

// Notification types
const (
	TypeReminder    = "reminder"
	TypeDueDate     = "dueDate"
	TypeSuggestion  = "suggestion"
	TypeOverdue     = "overdue"
	TypeAchievement = "achievement"
)

type ActionKind string

const (
	ActionComplete ActionKind = "complete"
	ActionPostpone ActionKind = "postpone"
	ActionView     ActionKind = "view"
	ActionDismiss  ActionKind = "dismiss"
)

type Action struct {
	Label  string     `json:"label"`
	Action ActionKind `json:"action"`
}

type Notification struct {
	ID        string         `json:"id"`
	UserID    int            `json:"user_id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	TaskID    string         `json:"task_id,omitempty"`
	Related   []string       `json:"related,omitempty"`
	Read      bool           `json:"read"`
	Category  tasks.Category `json:"category,omitempty"`
	Priority  tasks.Priority `json:"priority,omitempty"`
	Actions   []Action       `json:"actions,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// Preferences is the per-user configuration the reminder engine consumes.
// A category or priority missing from its map counts as enabled.
type Preferences struct {
	Enabled         bool                    `json:"enabled"`
	Categories      map[tasks.Category]bool `json:"categories"`
	Priorities      map[tasks.Priority]bool `json:"priorities"`
	QuietHoursStart string                  `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   string                  `json:"quiet_hours_end,omitempty"`
	LocationAware   bool                    `json:"location_aware"`
	ContextAware    bool                    `json:"context_aware"`
	Intensity       Intensity               `json:"intensity"`
}

func DefaultPreferences() Preferences {
	cats := make(map[tasks.Category]bool, 4)
	for _, c := range tasks.Categories() {
		cats[c] = true
	}
	return Preferences{
		Enabled:    true,
		Categories: cats,
		Priorities: map[tasks.Priority]bool{
			tasks.PriorityLow:    true,
			tasks.PriorityMedium: true,
			tasks.PriorityHigh:   true,
		},
		Intensity: IntensityMedium,
	}
}

func (p Preferences) CategoryEnabled(c tasks.Category) bool {
	if v, ok := p.Categories[c]; ok {
		return v
	}
	return true
}

func (p Preferences) PriorityEnabled(pr tasks.Priority) bool {
	if v, ok := p.Priorities[pr]; ok {
		return v
	}
	return true
}

// FocusMode is a transient suppression window. The expiry is a timestamp
// checked lazily on each engine invocation rather than a timer, so it
// survives a restart.
type FocusMode struct {
	Active bool      `json:"active"`
	Until  time.Time `json:"until,omitempty"`
}

func (f FocusMode) ActiveAt(now time.Time) bool {
	return f.Active && now.Before(f.Until)
}
