package sync

import (
	"fmt"
	"testing"
	"time"

	"kairos-backend/internal/tasks"
)

func dayTasks(date string, completed, total int) []tasks.Task {
	due, _ := time.Parse("2006-01-02", date)
	out := make([]tasks.Task, 0, total)
	for i := 0; i < total; i++ {
		out = append(out, tasks.Task{
			ID:        fmt.Sprintf("%s-%d", date, i),
			Title:     "t",
			DueDate:   due.Add(10 * time.Hour),
			Completed: i < completed,
			Category:  tasks.CategoryWork,
			Priority:  tasks.PriorityLow,
		})
	}
	return out
}

func sleepDay(date string, hours float64) HealthDay {
	return HealthDay{Date: date, SleepHours: hours}
}

func TestSleepInsightHighConfidence(t *testing.T) {
	var list []tasks.Task
	var health []HealthDay

	// well rested days complete everything
	for _, date := range []string{"2026-03-01", "2026-03-02", "2026-03-03"} {
		list = append(list, dayTasks(date, 2, 2)...)
		health = append(health, sleepDay(date, 8))
	}
	// short sleep days complete half
	for _, date := range []string{"2026-03-04", "2026-03-05", "2026-03-06"} {
		list = append(list, dayTasks(date, 1, 2)...)
		health = append(health, sleepDay(date, 5))
	}

	report := CorrelateHealthWithProductivity(health, list)
	if len(report.Correlations) != 6 {
		t.Fatalf("expected 6 correlated days, got %d", len(report.Correlations))
	}
	if len(report.Insights) != 1 {
		t.Fatalf("expected one sleep insight, got %v", report.Insights)
	}
	in := report.Insights[0]
	if in.Type != "sleep" || in.Confidence != "high" || in.Impact != "positive" {
		t.Fatalf("unexpected insight %+v", in)
	}
}

func TestInsightNeedsEnoughDays(t *testing.T) {
	var list []tasks.Task
	var health []HealthDay
	for _, date := range []string{"2026-03-01", "2026-03-02"} {
		list = append(list, dayTasks(date, 2, 2)...)
		health = append(health, sleepDay(date, 8))
	}
	for _, date := range []string{"2026-03-03", "2026-03-04"} {
		list = append(list, dayTasks(date, 0, 2)...)
		health = append(health, sleepDay(date, 5))
	}

	report := CorrelateHealthWithProductivity(health, list)
	if len(report.Insights) != 0 {
		t.Fatalf("4 correlated days must not yield insights, got %v", report.Insights)
	}
}

func TestInsightNeedsDaysOnBothSides(t *testing.T) {
	var list []tasks.Task
	var health []HealthDay
	for _, date := range []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05"} {
		list = append(list, dayTasks(date, 2, 2)...)
		health = append(health, sleepDay(date, 8))
	}

	report := CorrelateHealthWithProductivity(health, list)
	if len(report.Insights) != 0 {
		t.Fatalf("one-sided data must not yield insights, got %v", report.Insights)
	}
}

func TestSmallDifferenceSuppressed(t *testing.T) {
	var list []tasks.Task
	var health []HealthDay
	// 55% vs 50% completion is only a 10% lift, below the bar
	for _, date := range []string{"2026-03-01", "2026-03-02", "2026-03-03"} {
		list = append(list, dayTasks(date, 11, 20)...)
		health = append(health, sleepDay(date, 8))
	}
	for _, date := range []string{"2026-03-04", "2026-03-05", "2026-03-06"} {
		list = append(list, dayTasks(date, 10, 20)...)
		health = append(health, sleepDay(date, 5))
	}

	report := CorrelateHealthWithProductivity(health, list)
	if len(report.Insights) != 0 {
		t.Fatalf("a 10%% lift must be suppressed, got %v", report.Insights)
	}
}

func TestMediumConfidence(t *testing.T) {
	var list []tasks.Task
	var health []HealthDay
	// 60% vs 50% completion is a 20% lift: insight, but not high confidence
	for _, date := range []string{"2026-03-01", "2026-03-02", "2026-03-03"} {
		list = append(list, dayTasks(date, 6, 10)...)
		health = append(health, sleepDay(date, 8))
	}
	for _, date := range []string{"2026-03-04", "2026-03-05", "2026-03-06"} {
		list = append(list, dayTasks(date, 5, 10)...)
		health = append(health, sleepDay(date, 5))
	}

	report := CorrelateHealthWithProductivity(health, list)
	if len(report.Insights) != 1 || report.Insights[0].Confidence != "medium" {
		t.Fatalf("expected one medium-confidence insight, got %v", report.Insights)
	}
}

func TestStepsInsight(t *testing.T) {
	var list []tasks.Task
	var health []HealthDay
	for _, date := range []string{"2026-03-01", "2026-03-02", "2026-03-03"} {
		list = append(list, dayTasks(date, 2, 2)...)
		health = append(health, HealthDay{Date: date, Steps: 10000})
	}
	for _, date := range []string{"2026-03-04", "2026-03-05", "2026-03-06"} {
		list = append(list, dayTasks(date, 1, 2)...)
		health = append(health, HealthDay{Date: date, Steps: 3000})
	}

	report := CorrelateHealthWithProductivity(health, list)
	if len(report.Insights) != 1 || report.Insights[0].Type != "steps" {
		t.Fatalf("expected one steps insight, got %v", report.Insights)
	}
}

func TestHealthDaysWithoutTasksIgnored(t *testing.T) {
	list := dayTasks("2026-03-01", 1, 2)
	health := []HealthDay{
		sleepDay("2026-03-01", 8),
		sleepDay("2026-02-01", 8), // no tasks that day
	}

	report := CorrelateHealthWithProductivity(health, list)
	if len(report.Correlations) != 1 {
		t.Fatalf("expected 1 correlated day, got %d", len(report.Correlations))
	}
	if report.Correlations[0].CompletionRate != 0.5 {
		t.Fatalf("unexpected completion rate %v", report.Correlations[0].CompletionRate)
	}
}
