package sync

import (
	"fmt"

	"kairos-backend/internal/tasks"
)

// Correlation joins one health day with that day's task completion.
type Correlation struct {
	Date           string  `json:"date"`
	Steps          int     `json:"steps"`
	SleepHours     float64 `json:"sleep_hours"`
	HeartRate      int     `json:"heart_rate"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

type Insight struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Confidence  string `json:"confidence"`
}

type Report struct {
	Correlations []Correlation `json:"correlations"`
	Insights     []Insight     `json:"insights"`
}

// minimum data before an insight is worth emitting
const (
	minCorrelatedDays = 5
	minDaysPerSide    = 3
)

// CorrelateHealthWithProductivity joins health days with per-date task
// completion rates and emits insights when the contrast is large enough.
// An insight needs at least 5 correlated days, 3 on each side of the
// threshold, and a completion-rate lift above 10%.
func CorrelateHealthWithProductivity(health []HealthDay, list []tasks.Task) Report {
	type dayStats struct {
		total, completed int
	}
	byDate := make(map[string]*dayStats)
	for _, t := range list {
		if t.DueDate.IsZero() {
			continue
		}
		date := t.DueDate.UTC().Format("2006-01-02")
		st := byDate[date]
		if st == nil {
			st = &dayStats{}
			byDate[date] = st
		}
		st.total++
		if t.Completed {
			st.completed++
		}
	}

	var report Report
	for _, h := range health {
		st, ok := byDate[h.Date]
		if !ok {
			continue
		}
		report.Correlations = append(report.Correlations, Correlation{
			Date:           h.Date,
			Steps:          h.Steps,
			SleepHours:     h.SleepHours,
			HeartRate:      h.HeartRate,
			TotalTasks:     st.total,
			CompletedTasks: st.completed,
			CompletionRate: float64(st.completed) / float64(st.total),
		})
	}

	if len(report.Correlations) < minCorrelatedDays {
		return report
	}

	if in, ok := contrast(report.Correlations, "sleep",
		func(c Correlation) bool { return c.SleepHours >= 7 },
		func(c Correlation) bool { return c.SleepHours > 0 && c.SleepHours < 7 },
		"You complete about %.0f%% more tasks on days you sleep 7 or more hours.",
	); ok {
		report.Insights = append(report.Insights, in)
	}

	if in, ok := contrast(report.Correlations, "steps",
		func(c Correlation) bool { return c.Steps >= 8000 },
		func(c Correlation) bool { return c.Steps > 0 && c.Steps < 8000 },
		"You complete about %.0f%% more tasks on days you take 8,000 or more steps.",
	); ok {
		report.Insights = append(report.Insights, in)
	}

	return report
}

func contrast(correlations []Correlation, kind string, above, below func(Correlation) bool, format string) (Insight, bool) {
	var aboveDays, belowDays []Correlation
	for _, c := range correlations {
		switch {
		case above(c):
			aboveDays = append(aboveDays, c)
		case below(c):
			belowDays = append(belowDays, c)
		}
	}
	if len(aboveDays) < minDaysPerSide || len(belowDays) < minDaysPerSide {
		return Insight{}, false
	}

	avgAbove := avgCompletion(aboveDays)
	avgBelow := avgCompletion(belowDays)
	if avgBelow == 0 {
		return Insight{}, false
	}

	diff := (avgAbove - avgBelow) / avgBelow * 100
	if diff <= 10 {
		return Insight{}, false
	}

	confidence := "medium"
	if diff > 30 {
		confidence = "high"
	}
	return Insight{
		Type:        kind,
		Description: fmt.Sprintf(format, diff),
		Impact:      "positive",
		Confidence:  confidence,
	}, true
}

func avgCompletion(days []Correlation) float64 {
	var sum float64
	for _, d := range days {
		sum += d.CompletionRate
	}
	return sum / float64(len(days))
}
