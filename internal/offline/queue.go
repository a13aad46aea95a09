package offline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"kairos-backend/internal/local"
)

// ErrOffline reports a sync pass skipped because the backend is
// unreachable. Queued operations are untouched.
var ErrOffline = errors.New("offline: backend unreachable")

// Operation kinds. Payload interpretation is up to the handler.
const (
	KindInsert = "insert"
	KindUpdate = "update"
	KindDelete = "delete"
)

// Handler replays a queued operation against the authoritative store.
// Replay is not idempotent: a handler may be called again for an operation
// whose previous attempt partially succeeded.
type Handler interface {
	ApplyOffline(ctx context.Context, userID int, kind string, payload []byte) error
}

// Result summarizes one sync pass.
type Result struct {
	Replayed int   `json:"replayed"`
	Failed   int   `json:"failed"`
	Purged   int64 `json:"purged"`
}

// Queue captures mutations while the backend is unreachable and replays
// them oldest-first once connectivity returns. Operations that keep
// failing stay queued; there is no attempt cap.
type Queue struct {
	store    *local.Store
	handlers map[string]Handler
	online   func(ctx context.Context) bool
	now      func() time.Time

	mu sync.Mutex // one sync pass at a time
}

func NewQueue(store *local.Store, online func(ctx context.Context) bool) *Queue {
	return &Queue{
		store:    store,
		handlers: make(map[string]Handler),
		online:   online,
		now:      time.Now,
	}
}

// Register binds a collection name to its replay handler. Called during
// startup wiring, before any Sync.
func (q *Queue) Register(collection string, h Handler) {
	q.handlers[collection] = h
}

// Enqueue persists an operation for later replay. Persistence is
// best-effort: a failed write is logged and the operation is dropped.
func (q *Queue) Enqueue(ctx context.Context, userID int, collection, kind string, payload []byte) local.Operation {
	op := local.Operation{
		ID:         uuid.New().String(),
		UserID:     userID,
		Collection: collection,
		Kind:       kind,
		Payload:    payload,
		CreatedAt:  q.now().UTC(),
	}
	if err := q.store.InsertOperation(ctx, op); err != nil {
		log.Printf("[WARN] dropping offline operation %s/%s: %v", collection, kind, err)
	}
	return op
}

// Sync replays the user's pending operations in timestamp order. When the
// backend is unreachable the pass fails fast with ErrOffline. Each
// operation is dispatched once; failures bump the attempt counter and stay
// queued for the next pass. Successfully replayed operations are purged
// afterwards.
func (q *Queue) Sync(ctx context.Context, userID int) (Result, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.online != nil && !q.online(ctx) {
		return Result{}, ErrOffline
	}

	ops, err := q.store.UnsyncedOperations(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load pending operations: %w", err)
	}

	var res Result
	for _, op := range ops {
		h, ok := q.handlers[op.Collection]
		if !ok {
			log.Printf("[WARN] no handler for collection %q, operation %s stays queued", op.Collection, op.ID)
			res.Failed++
			if err := q.store.IncrementAttempts(ctx, op.ID); err != nil {
				log.Printf("[WARN] bump attempts for %s: %v", op.ID, err)
			}
			continue
		}

		if err := h.ApplyOffline(ctx, op.UserID, op.Kind, op.Payload); err != nil {
			log.Printf("[WARN] replay %s %s/%s failed (attempt %d): %v", op.ID, op.Collection, op.Kind, op.Attempts+1, err)
			res.Failed++
			if err := q.store.IncrementAttempts(ctx, op.ID); err != nil {
				log.Printf("[WARN] bump attempts for %s: %v", op.ID, err)
			}
			continue
		}

		res.Replayed++
		if err := q.store.MarkSynced(ctx, op.ID); err != nil {
			return res, fmt.Errorf("mark %s synced: %w", op.ID, err)
		}
	}

	purged, err := q.store.PurgeSynced(ctx, userID)
	if err != nil {
		return res, err
	}
	res.Purged = purged
	return res, nil
}

// Pending returns every queued operation for the user.
func (q *Queue) Pending(ctx context.Context, userID int) ([]local.Operation, error) {
	return q.store.Operations(ctx, userID)
}
