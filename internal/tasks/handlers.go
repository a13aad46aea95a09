package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"kairos-backend/internal/analytics"
	"kairos-backend/internal/auth"
)

// Recompute is called after any task mutation so the reminder engine can
// re-derive notifications for the user. Wired in main.
type Recompute func(ctx context.Context, userID int)

func notifyMutation(ctx context.Context, recompute Recompute, userID int) {
	if recompute != nil {
		recompute(ctx, userID)
	}
}

func GetTasksHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := store.List(r.Context(), uid)
		if err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

func CreateTaskHandler(dbx *sql.DB, store *Store, recompute Recompute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var t Task
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		t.UserID = uid

		created, err := store.Insert(r.Context(), t)
		if err != nil {
			http.Error(w, "invalid task: "+err.Error(), http.StatusBadRequest)
			return
		}

		// analytics: task_created
		{
			env := analytics.FromRequest(r)
			env.UserID = uid

			props := map[string]any{
				"task_id":      created.ID,
				"category":     created.Category,
				"priority":     created.Priority,
				"is_recurring": created.IsRecurring,
				"has_reminder": created.ReminderMinutes != nil,
			}
			_ = analytics.Log(r.Context(), dbx, env, "task_created", props, analytics.SourceEventKeyFromRequest(r))
		}

		notifyMutation(r.Context(), recompute, uid)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(created)
	}
}

func UpdateTaskHandler(dbx *sql.DB, store *Store, recompute Recompute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var t Task
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if t.ID == "" {
			http.Error(w, "id required", http.StatusBadRequest)
			return
		}
		t.UserID = uid

		if err := store.Update(r.Context(), t); err != nil {
			if err == sql.ErrNoRows {
				http.Error(w, "task not found", http.StatusNotFound)
				return
			}
			http.Error(w, "update failed: "+err.Error(), http.StatusBadRequest)
			return
		}

		{
			env := analytics.FromRequest(r)
			env.UserID = uid
			props := map[string]any{"task_id": t.ID}
			_ = analytics.Log(r.Context(), dbx, env, "task_updated", props, analytics.SourceEventKeyFromRequest(r))
		}

		notifyMutation(r.Context(), recompute, uid)

		full, err := store.Get(r.Context(), uid, t.ID)
		if err != nil {
			log.Printf("[WARN] fetch after update failed task_id=%s: %v", t.ID, err)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(full)
	}
}

func SetTaskStatusHandler(dbx *sql.DB, store *Store, recompute Recompute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			TaskID    string `json:"task_id"`
			Completed bool   `json:"completed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.TaskID == "" {
			http.Error(w, "task_id required", http.StatusBadRequest)
			return
		}

		if err := store.SetCompleted(r.Context(), uid, body.TaskID, body.Completed); err != nil {
			if err == sql.ErrNoRows {
				http.Error(w, "task not found", http.StatusNotFound)
				return
			}
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		event := "task_uncompleted"
		if body.Completed {
			event = "task_completed"
		}
		{
			env := analytics.FromRequest(r)
			env.UserID = uid
			props := map[string]any{"task_id": body.TaskID}
			_ = analytics.Log(r.Context(), dbx, env, event, props, analytics.SourceEventKeyFromRequest(r))
		}

		notifyMutation(r.Context(), recompute, uid)

		full, err := store.Get(r.Context(), uid, body.TaskID)
		if err != nil {
			http.Error(w, "fetch error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(full)
	}
}

func PostponeTaskHandler(dbx *sql.DB, store *Store, recompute Recompute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			TaskID string `json:"task_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.TaskID == "" {
			http.Error(w, "task_id required", http.StatusBadRequest)
			return
		}

		until := time.Now().UTC().Add(24 * time.Hour)
		if err := store.Postpone(r.Context(), uid, body.TaskID, until); err != nil {
			if err == sql.ErrNoRows {
				http.Error(w, "task not found", http.StatusNotFound)
				return
			}
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		{
			env := analytics.FromRequest(r)
			env.UserID = uid
			props := map[string]any{"task_id": body.TaskID}
			_ = analytics.Log(r.Context(), dbx, env, "task_postponed", props, analytics.SourceEventKeyFromRequest(r))
		}

		notifyMutation(r.Context(), recompute, uid)

		full, err := store.Get(r.Context(), uid, body.TaskID)
		if err != nil {
			http.Error(w, "fetch error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(full)
	}
}

func DeleteTaskHandler(dbx *sql.DB, store *Store, recompute Recompute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			TaskID string `json:"task_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.TaskID == "" {
			http.Error(w, "task_id required", http.StatusBadRequest)
			return
		}

		if err := store.Delete(r.Context(), uid, body.TaskID); err != nil {
			if err == sql.ErrNoRows {
				http.Error(w, "task not found", http.StatusNotFound)
				return
			}
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		{
			env := analytics.FromRequest(r)
			env.UserID = uid
			props := map[string]any{"task_id": body.TaskID}
			_ = analytics.Log(r.Context(), dbx, env, "task_deleted", props, analytics.SourceEventKeyFromRequest(r))
		}

		notifyMutation(r.Context(), recompute, uid)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}
