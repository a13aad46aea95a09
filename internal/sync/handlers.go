package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"kairos-backend/internal/analytics"
	"kairos-backend/internal/auth"
	"kairos-backend/internal/local"
	"kairos-backend/internal/tasks"
)

// TaskLister supplies the task set a sync pass reconciles.
type TaskLister interface {
	List(ctx context.Context, userID int) ([]tasks.Task, error)
}

func SyncCalendarHandler(dbx *sql.DB, svc *Service, lister TaskLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		list, err := lister.List(r.Context(), uid)
		if err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		res, err := svc.SyncCalendar(r.Context(), uid, list)
		if err != nil {
			if errors.Is(err, ErrNotLinked) {
				http.Error(w, "calendar provider not linked", http.StatusBadRequest)
				return
			}
			http.Error(w, "sync failed: "+err.Error(), http.StatusBadGateway)
			return
		}

		// analytics: calendar_synced
		{
			env := analytics.FromRequest(r)
			env.UserID = uid
			props := map[string]any{
				"created": res.Created,
				"updated": res.Updated,
				"deleted": res.Deleted,
			}
			_ = analytics.Log(r.Context(), dbx, env, "calendar_synced", props, analytics.SourceEventKeyFromRequest(r))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}
}

func SyncHealthHandler(dbx *sql.DB, svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		count, err := svc.SyncHealth(r.Context(), uid)
		if err != nil {
			if errors.Is(err, ErrNotLinked) {
				http.Error(w, "health provider not linked", http.StatusBadRequest)
				return
			}
			http.Error(w, "sync failed: "+err.Error(), http.StatusBadGateway)
			return
		}

		{
			env := analytics.FromRequest(r)
			env.UserID = uid
			props := map[string]any{"days": count}
			_ = analytics.Log(r.Context(), dbx, env, "health_synced", props, analytics.SourceEventKeyFromRequest(r))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"days": count})
	}
}

func SyncStatusHandler(store *local.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		statuses, err := store.SyncStatuses(r.Context(), uid)
		if err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statuses)
	}
}

func InsightsHandler(healthStore *PGHealthStore, lister TaskLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		days, err := healthStore.Days(r.Context(), uid)
		if err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		list, err := lister.List(r.Context(), uid)
		if err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(CorrelateHealthWithProductivity(days, list))
	}
}
