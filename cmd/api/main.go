package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"

	"kairos-backend/internal/analytics"
	"kairos-backend/internal/auth"
	"kairos-backend/internal/config"
	"kairos-backend/internal/db"
	"kairos-backend/internal/local"
	"kairos-backend/internal/notifications"
	"kairos-backend/internal/offline"
	"kairos-backend/internal/sync"
	"kairos-backend/internal/tasks"
)

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.ConnString())
	if err != nil {
		log.Fatal("❌ Failed to connect DB:", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatal("❌ Failed to migrate DB:", err)
	}

	log.Println("✅ Connected to PostgreSQL!")

	localStore, err := local.Open(cfg.LocalDBPath)
	if err != nil {
		log.Fatal("❌ Failed to open local store:", err)
	}
	defer localStore.Close()

	// ----- wiring -----

	taskStore := tasks.NewStore(database)
	notifStore := notifications.NewPGStore(database)
	notifSvc := notifications.NewService(notifStore, taskStore)

	recompute := tasks.Recompute(func(ctx context.Context, userID int) {
		if _, err := notifSvc.Recompute(ctx, userID); err != nil {
			log.Printf("[WARN] recompute notifications for user %d: %v", userID, err)
		}
	})

	queue := offline.NewQueue(localStore, func(ctx context.Context) bool {
		return database.PingContext(ctx) == nil
	})
	queue.Register("tasks", taskStore)

	var (
		calendar sync.CalendarAPI = sync.Disabled{}
		health   sync.HealthAPI   = sync.Disabled{}
		linked   sync.Linked      = sync.Disabled{}
	)
	if cfg.SyncBridgeURL != "" {
		bridge := sync.NewBridgeClient(cfg.SyncBridgeURL)
		calendar, health, linked = bridge, bridge, bridge
	}
	healthStore := sync.NewPGHealthStore(database)
	syncSvc := sync.NewService(calendar, health, linked, taskStore, healthStore, localStore)

	mw := auth.New([]byte(cfg.JWTSecret))

	mux := http.NewServeMux()

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// ----- AUTH API -----
	mux.HandleFunc("/auth/register", method(http.MethodPost, auth.RegisterHandler(database, []byte(cfg.JWTSecret))))
	mux.HandleFunc("/auth/login", method(http.MethodPost, auth.LoginHandler(database, []byte(cfg.JWTSecret))))
	mux.HandleFunc("/auth/logout", method(http.MethodPost, mw.Wrap(auth.LogoutHandler())))
	mux.HandleFunc("/auth/me", method(http.MethodGet, mw.Wrap(auth.MeHandler(database))))
	mux.HandleFunc("/auth/account", method(http.MethodDelete, mw.Wrap(auth.DeleteAccountHandler(database))))

	// ----- TASKS API -----
	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			mw.Wrap(tasks.GetTasksHandler(taskStore))(w, r)
		case http.MethodPost:
			mw.Wrap(tasks.CreateTaskHandler(database, taskStore, recompute))(w, r)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/tasks/update", method(http.MethodPut, mw.Wrap(tasks.UpdateTaskHandler(database, taskStore, recompute))))
	mux.HandleFunc("/tasks/status", method(http.MethodPost, mw.Wrap(tasks.SetTaskStatusHandler(database, taskStore, recompute))))
	mux.HandleFunc("/tasks/postpone", method(http.MethodPost, mw.Wrap(tasks.PostponeTaskHandler(database, taskStore, recompute))))
	mux.HandleFunc("/tasks/delete", method(http.MethodDelete, mw.Wrap(tasks.DeleteTaskHandler(database, taskStore, recompute))))

	// ----- NOTIFICATIONS API -----
	mux.HandleFunc("/notifications", method(http.MethodGet, mw.Wrap(notifications.ListNotificationsHandler(notifStore))))
	mux.HandleFunc("/notifications/read", method(http.MethodPost, mw.Wrap(notifications.MarkReadHandler(notifStore))))
	mux.HandleFunc("/notifications/read-all", method(http.MethodPost, mw.Wrap(notifications.MarkAllReadHandler(notifStore))))
	mux.HandleFunc("/notifications/delete", method(http.MethodDelete, mw.Wrap(notifications.DeleteNotificationHandler(notifStore))))
	mux.HandleFunc("/notifications/clear", method(http.MethodPost, mw.Wrap(notifications.ClearNotificationsHandler(notifStore))))
	mux.HandleFunc("/notifications/action", method(http.MethodPost, mw.Wrap(notifications.PerformActionHandler(database, notifSvc))))
	mux.HandleFunc("/notifications/preferences", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			mw.Wrap(notifications.GetPreferencesHandler(notifStore))(w, r)
		case http.MethodPut:
			mw.Wrap(notifications.UpdatePreferencesHandler(database, notifSvc))(w, r)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/notifications/focus", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			mw.Wrap(notifications.EnableFocusHandler(database, notifSvc))(w, r)
		case http.MethodDelete:
			mw.Wrap(notifications.DisableFocusHandler(database, notifSvc))(w, r)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/notifications/stream", method(http.MethodGet, mw.Wrap(notifications.StreamHandler(notifSvc))))

	// ----- SYNC API -----
	mux.HandleFunc("/sync/calendar", method(http.MethodPost, mw.Wrap(sync.SyncCalendarHandler(database, syncSvc, taskStore))))
	mux.HandleFunc("/sync/health", method(http.MethodPost, mw.Wrap(sync.SyncHealthHandler(database, syncSvc))))
	mux.HandleFunc("/sync/status", method(http.MethodGet, mw.Wrap(sync.SyncStatusHandler(localStore))))
	mux.HandleFunc("/sync/insights", method(http.MethodGet, mw.Wrap(sync.InsightsHandler(healthStore, taskStore))))

	// ----- OFFLINE QUEUE API -----
	mux.HandleFunc("/offline/queue", method(http.MethodPost, mw.Wrap(offline.EnqueueHandler(queue))))
	mux.HandleFunc("/offline/sync", method(http.MethodPost, mw.Wrap(offline.SyncQueueHandler(database, queue))))
	mux.HandleFunc("/offline/operations", method(http.MethodGet, mw.Wrap(offline.ListOperationsHandler(queue))))

	// ----- ANALYTICS API -----
	mux.HandleFunc("/analytics/app-opened", method(http.MethodPost, mw.Wrap(analytics.AppOpenedHandler(database))))
	mux.HandleFunc("/analytics/summary", method(http.MethodGet, mw.Wrap(tasks.SummaryHandler(taskStore))))

	// One opportunistic replay shortly after boot, so operations queued
	// during the previous run don't wait for a client to trigger them.
	go func() {
		time.Sleep(5 * time.Second)
		replayPendingQueues(localStore, queue)
	}()

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key", "X-Platform", "X-App-Version", "X-Session-Id"},
		AllowCredentials: true,
	})

	handler := c.Handler(mux)

	log.Println("🚀 API server is running on " + cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, handler))
}

// method rejects every verb except the expected one, still answering
// preflight requests.
func method(verb string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case verb:
			next(w, r)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func replayPendingQueues(store *local.Store, queue *offline.Queue) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	users, err := store.UsersWithPending(ctx)
	if err != nil {
		log.Printf("[WARN] startup replay skipped: %v", err)
		return
	}
	for _, uid := range users {
		res, err := queue.Sync(ctx, uid)
		if err != nil {
			if errors.Is(err, offline.ErrOffline) {
				log.Println("[WARN] startup replay skipped: backend unreachable")
				return
			}
			log.Printf("[WARN] startup replay for user %d: %v", uid, err)
			continue
		}
		if res.Replayed > 0 || res.Failed > 0 {
			log.Printf("startup replay user %d: %d replayed, %d failed", uid, res.Replayed, res.Failed)
		}
	}
}
