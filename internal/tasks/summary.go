package tasks

import (
	"encoding/json"
	"net/http"
	"time"

	"kairos-backend/internal/auth"
)

// SummaryHandler reports the headline productivity numbers the dashboard
// shows: completion score, category spread, and what needs attention today.
func SummaryHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		list, err := store.List(r.Context(), uid)
		if err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		now := time.Now().UTC()
		summary := map[string]any{
			"total":                 len(list),
			"completed":             len(Completed(list)),
			"productivity_score":    ProductivityScore(list),
			"category_distribution": CategoryDistribution(list),
			"due_today":             len(DueToday(list, now)),
			"overdue":               len(Overdue(list, now)),
			"current_week":          len(CurrentWeek(list, now)),
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(summary)
	}
}
