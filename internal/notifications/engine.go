package notifications

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"kairos-backend/internal/tasks"
)

// Engine derives notifications from the current task set. Evaluate is a
// pure function of its inputs; re-running it with unchanged inputs produces
// nothing new, so callers may trigger it as often as they like.
type Engine struct{}

// InQuietHours reports whether now falls inside the [start,end] window.
// Both bounds are "HH:MM" strings and both are inclusive. A window whose
// start is later than its end wraps past midnight (22:00-08:00 suppresses
// late evening and early morning).
func InQuietHours(now time.Time, start, end string) bool {
	if start == "" || end == "" {
		return false
	}
	s, err := time.Parse("15:04", start)
	if err != nil {
		return false
	}
	e, err := time.Parse("15:04", end)
	if err != nil {
		return false
	}
	n := time.Date(0, 1, 1, now.Hour(), now.Minute(), 0, 0, time.UTC)

	if !s.After(e) {
		return !n.Before(s) && !n.After(e)
	}
	return !n.Before(s) || !n.After(e)
}

// qualifies reports whether a task is due for a reminder: incomplete, due
// strictly in the future, inside its reminder lead window, and not filtered
// out by preferences.
func qualifies(t tasks.Task, prefs Preferences, now time.Time) bool {
	if t.Completed {
		return false
	}
	until := t.DueDate.Sub(now)
	if until <= 0 || until > t.ReminderLead() {
		return false
	}
	return prefs.CategoryEnabled(t.Category) && prefs.PriorityEnabled(t.Priority)
}

func hasUnreadTaskReminder(existing []Notification, taskID string) bool {
	for _, n := range existing {
		if !n.Read && n.Type == TypeReminder && n.TaskID == taskID {
			return true
		}
	}
	return false
}

func hasUnreadGroupReminder(existing []Notification, c tasks.Category) bool {
	for _, n := range existing {
		if !n.Read && n.Type == TypeReminder && n.Category == c && len(n.Related) >= 2 {
			return true
		}
	}
	return false
}

func hasUnreadOverdue(existing []Notification) bool {
	for _, n := range existing {
		if !n.Read && n.Type == TypeOverdue {
			return true
		}
	}
	return false
}

func taskActions() []Action {
	return []Action{
		{Label: "Complete", Action: ActionComplete},
		{Label: "Postpone", Action: ActionPostpone},
		{Label: "View", Action: ActionView},
	}
}

func singleReminder(t tasks.Task, now time.Time) Notification {
	minutes := int(t.DueDate.Sub(now).Minutes())
	return Notification{
		ID:        uuid.New().String(),
		UserID:    t.UserID,
		Title:     fmt.Sprintf("Reminder: %s", t.Title),
		Message:   fmt.Sprintf("%q is due in %d minutes", t.Title, minutes),
		Type:      TypeReminder,
		TaskID:    t.ID,
		Category:  t.Category,
		Priority:  t.Priority,
		Actions:   taskActions(),
		CreatedAt: now,
	}
}

func groupReminder(c tasks.Category, group []tasks.Task, now time.Time) Notification {
	related := make([]string, 0, len(group))
	priority := tasks.PriorityMedium
	for _, t := range group {
		related = append(related, t.ID)
		if t.Priority == tasks.PriorityHigh {
			priority = tasks.PriorityHigh
		}
	}
	return Notification{
		ID:        uuid.New().String(),
		UserID:    group[0].UserID,
		Title:     fmt.Sprintf("%d %s tasks due soon", len(group), c),
		Message:   fmt.Sprintf("You have %d %s tasks approaching their due dates", len(group), c),
		Type:      TypeReminder,
		Related:   related,
		Category:  c,
		Priority:  priority,
		Actions:   []Action{{Label: "View all", Action: ActionView}},
		CreatedAt: now,
	}
}

func overdueSummary(userID int, overdue []tasks.Task, now time.Time) Notification {
	related := make([]string, 0, len(overdue))
	for _, t := range overdue {
		related = append(related, t.ID)
	}
	word := "tasks"
	if len(overdue) == 1 {
		word = "task"
	}
	return Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     "Overdue tasks",
		Message:   fmt.Sprintf("You have %d overdue %s", len(overdue), word),
		Type:      TypeOverdue,
		Related:   related,
		Priority:  tasks.PriorityHigh,
		Actions:   []Action{{Label: "View", Action: ActionView}},
		CreatedAt: now,
	}
}

// Evaluate returns the notifications that should be created right now. It
// never returns a duplicate of an unread notification already in existing.
func (Engine) Evaluate(now time.Time, list []tasks.Task, prefs Preferences, focus FocusMode, existing []Notification) []Notification {
	if !prefs.Enabled {
		return nil
	}
	if focus.ActiveAt(now) {
		return nil
	}
	if InQuietHours(now, prefs.QuietHoursStart, prefs.QuietHoursEnd) {
		return nil
	}

	var out []Notification

	// Upcoming reminders, grouped by category. Category order is fixed so
	// output is deterministic.
	byCategory := make(map[tasks.Category][]tasks.Task)
	for _, t := range list {
		if qualifies(t, prefs, now) {
			byCategory[t.Category] = append(byCategory[t.Category], t)
		}
	}
	for _, c := range tasks.Categories() {
		group := byCategory[c]
		switch {
		case len(group) == 1:
			if !hasUnreadTaskReminder(existing, group[0].ID) {
				out = append(out, singleReminder(group[0], now))
			}
		case len(group) >= 2:
			if !hasUnreadGroupReminder(existing, c) {
				out = append(out, groupReminder(c, group, now))
			}
		}
	}

	// Overdue summary, independent of the reminder window.
	var overdue []tasks.Task
	for _, t := range list {
		if t.Completed || !t.DueDate.Before(now) {
			continue
		}
		if prefs.CategoryEnabled(t.Category) && prefs.PriorityEnabled(t.Priority) {
			overdue = append(overdue, t)
		}
	}
	if len(overdue) > 0 && !hasUnreadOverdue(existing) {
		out = append(out, overdueSummary(overdue[0].UserID, overdue, now))
	}

	return out
}
