package notifications

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"kairos-backend/internal/tasks"
)

// Store is what the service needs from notification persistence. *PGStore
// is the production implementation; tests use an in-memory fake.
type Store interface {
	List(ctx context.Context, userID int) ([]Notification, error)
	Get(ctx context.Context, userID int, id string) (Notification, error)
	Insert(ctx context.Context, n Notification) error
	MarkRead(ctx context.Context, userID int, id string) error
	MarkAllRead(ctx context.Context, userID int) error
	Delete(ctx context.Context, userID int, id string) error
	Clear(ctx context.Context, userID int) error
	Preferences(ctx context.Context, userID int) (Preferences, error)
	SavePreferences(ctx context.Context, userID int, p Preferences) error
}

// TaskSource is the slice of the task store the service mutates when a
// notification action runs. *tasks.Store satisfies it.
type TaskSource interface {
	List(ctx context.Context, userID int) ([]tasks.Task, error)
	SetCompleted(ctx context.Context, userID int, id string, completed bool) error
	Postpone(ctx context.Context, userID int, id string, until time.Time) error
}

// Service owns reminder derivation, focus mode, notification actions and
// live fan-out. Recompute must be called explicitly after any task or
// preference mutation; there is no ambient reactivity.
type Service struct {
	engine Engine
	store  Store
	tasks  TaskSource
	now    func() time.Time

	mu    sync.Mutex
	focus map[int]FocusMode

	subscribersMu sync.RWMutex
	subscribers   map[int]map[string]chan Notification
}

func NewService(store Store, taskSource TaskSource) *Service {
	return &Service{
		store:       store,
		tasks:       taskSource,
		now:         time.Now,
		focus:       make(map[int]FocusMode),
		subscribers: make(map[int]map[string]chan Notification),
	}
}

// SetClock overrides the service clock. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Recompute re-derives notifications for the user and persists anything
// new. Safe to call repeatedly: the engine's de-duplication makes a rerun
// with unchanged inputs a no-op.
func (s *Service) Recompute(ctx context.Context, userID int) ([]Notification, error) {
	list, err := s.tasks.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	prefs, err := s.store.Preferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	existing, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}

	fresh := s.engine.Evaluate(s.now(), list, prefs, s.Focus(userID), existing)
	for _, n := range fresh {
		if err := s.store.Insert(ctx, n); err != nil {
			return nil, fmt.Errorf("insert notification: %w", err)
		}
		s.broadcast(userID, n)
	}
	return fresh, nil
}

// PerformAction executes a suggested action and marks the notification
// read. A failed task write does not roll the read flag back; the error is
// surfaced to the caller for a best-effort toast.
func (s *Service) PerformAction(ctx context.Context, userID int, notificationID string, kind ActionKind) error {
	n, err := s.store.Get(ctx, userID, notificationID)
	if err != nil {
		return fmt.Errorf("load notification: %w", err)
	}

	var actionErr error
	switch kind {
	case ActionComplete:
		if n.TaskID != "" {
			actionErr = s.tasks.SetCompleted(ctx, userID, n.TaskID, true)
		}
	case ActionPostpone:
		if n.TaskID != "" {
			actionErr = s.tasks.Postpone(ctx, userID, n.TaskID, s.now().Add(24*time.Hour))
		}
	case ActionView, ActionDismiss:
		// navigation only, no task mutation
	default:
		// unknown kinds are no-ops
	}
	if actionErr != nil {
		log.Printf("[WARN] notification action %s failed for task %s: %v", kind, n.TaskID, actionErr)
	}

	if err := s.store.MarkRead(ctx, userID, notificationID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return actionErr
}

func (s *Service) EnableFocusMode(userID int, d time.Duration) FocusMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := FocusMode{Active: true, Until: s.now().Add(d)}
	s.focus[userID] = f
	return f
}

func (s *Service) DisableFocusMode(userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.focus, userID)
}

// Focus returns the user's focus state with lazy expiry applied.
func (s *Service) Focus(userID int) FocusMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.focus[userID]
	if !ok {
		return FocusMode{}
	}
	if !f.ActiveAt(s.now()) {
		delete(s.focus, userID)
		return FocusMode{}
	}
	return f
}

// Subscribe registers a live stream for the user and returns its channel.
// Slow subscribers miss notifications rather than block delivery.
func (s *Service) Subscribe(userID int, subscriberID string) chan Notification {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	if s.subscribers[userID] == nil {
		s.subscribers[userID] = make(map[string]chan Notification)
	}
	ch := make(chan Notification, 16)
	s.subscribers[userID][subscriberID] = ch
	return ch
}

func (s *Service) Unsubscribe(userID int, subscriberID string) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	if userSubs, ok := s.subscribers[userID]; ok {
		if ch, ok := userSubs[subscriberID]; ok {
			close(ch)
			delete(userSubs, subscriberID)
		}
		if len(userSubs) == 0 {
			delete(s.subscribers, userID)
		}
	}
}

func (s *Service) broadcast(userID int, n Notification) {
	s.subscribersMu.RLock()
	defer s.subscribersMu.RUnlock()

	for _, ch := range s.subscribers[userID] {
		select {
		case ch <- n:
		default:
			// channel full, skip
		}
	}
}
