package offline

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"kairos-backend/internal/analytics"
	"kairos-backend/internal/auth"
)

func EnqueueHandler(queue *Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			Collection string          `json:"collection"`
			Kind       string          `json:"kind"`
			Payload    json.RawMessage `json:"payload"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.Collection == "" || body.Kind == "" {
			http.Error(w, "collection and kind required", http.StatusBadRequest)
			return
		}

		op := queue.Enqueue(r.Context(), uid, body.Collection, body.Kind, body.Payload)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(op)
	}
}

func SyncQueueHandler(dbx *sql.DB, queue *Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		res, err := queue.Sync(r.Context(), uid)
		if err != nil {
			if errors.Is(err, ErrOffline) {
				http.Error(w, "backend unreachable, operations kept queued", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, "sync failed: "+err.Error(), http.StatusInternalServerError)
			return
		}

		// analytics: offline_queue_synced
		{
			env := analytics.FromRequest(r)
			env.UserID = uid
			props := map[string]any{
				"replayed": res.Replayed,
				"failed":   res.Failed,
			}
			_ = analytics.Log(r.Context(), dbx, env, "offline_queue_synced", props, analytics.SourceEventKeyFromRequest(r))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}
}

func ListOperationsHandler(queue *Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ops, err := queue.Pending(r.Context(), uid)
		if err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ops)
	}
}
