package tasks

import (
	"math"
	"sort"
	"time"
)

// Query helpers over an in-memory task slice. All of them leave the input
// untouched.

func ByDateRange(list []Task, start, end time.Time) []Task {
	var out []Task
	for _, t := range list {
		if !t.DueDate.Before(start) && !t.DueDate.After(end) {
			out = append(out, t)
		}
	}
	return out
}

func ByCategory(list []Task, c Category) []Task {
	var out []Task
	for _, t := range list {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out
}

func Completed(list []Task) []Task {
	var out []Task
	for _, t := range list {
		if t.Completed {
			out = append(out, t)
		}
	}
	return out
}

func Pending(list []Task) []Task {
	var out []Task
	for _, t := range list {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

func SortByDueDate(list []Task, ascending bool) []Task {
	out := make([]Task, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].DueDate.After(out[j].DueDate)
	})
	return out
}

func SortByPriority(list []Task) []Task {
	rank := map[Priority]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}
	out := make([]Task, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		return rank[out[i].Priority] < rank[out[j].Priority]
	})
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DueToday returns incomplete tasks whose due date falls on now's calendar day.
func DueToday(list []Task, now time.Time) []Task {
	var out []Task
	for _, t := range list {
		if !t.Completed && sameDay(t.DueDate, now) {
			out = append(out, t)
		}
	}
	return out
}

// Overdue returns incomplete tasks strictly past due.
func Overdue(list []Task, now time.Time) []Task {
	var out []Task
	for _, t := range list {
		if !t.Completed && t.DueDate.Before(now) {
			out = append(out, t)
		}
	}
	return out
}

// CurrentWeek returns tasks due in the Monday-to-Sunday week containing now.
func CurrentWeek(list []Task, now time.Time) []Task {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday closes the week
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, -(weekday - 1))
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return ByDateRange(list, start, end)
}

// ProductivityScore is the completed percentage, rounded, 0 for an empty list.
func ProductivityScore(list []Task) int {
	if len(list) == 0 {
		return 0
	}
	return int(math.Round(float64(len(Completed(list))) / float64(len(list)) * 100))
}

func CategoryDistribution(list []Task) map[Category]int {
	dist := make(map[Category]int, 4)
	for _, c := range Categories() {
		dist[c] = 0
	}
	for _, t := range list {
		dist[t.Category]++
	}
	return dist
}
