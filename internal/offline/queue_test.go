package offline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"kairos-backend/internal/local"
)

type replayCall struct {
	kind    string
	payload string
}

type recordingHandler struct {
	calls  []replayCall
	failOn map[string]error // payload -> error
}

func (h *recordingHandler) ApplyOffline(_ context.Context, _ int, kind string, payload []byte) error {
	if err, ok := h.failOn[string(payload)]; ok {
		return err
	}
	h.calls = append(h.calls, replayCall{kind: kind, payload: string(payload)})
	return nil
}

func testQueue(t *testing.T, online bool) (*Queue, *recordingHandler) {
	t.Helper()
	store, err := local.OpenMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	q := NewQueue(store, func(context.Context) bool { return online })
	h := &recordingHandler{failOn: map[string]error{}}
	q.Register("tasks", h)
	return q, h
}

func TestSyncReplaysInTimestampOrder(t *testing.T) {
	ctx := context.Background()
	q, h := testQueue(t, true)
	base := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	// enqueue out of order via a controllable clock
	times := []time.Time{base.Add(2 * time.Second), base, base.Add(time.Second)}
	payloads := []string{"third", "first", "second"}
	for i := range times {
		at := times[i]
		q.now = func() time.Time { return at }
		q.Enqueue(ctx, 1, "tasks", KindUpdate, []byte(payloads[i]))
	}

	res, err := q.Sync(ctx, 1)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Replayed != 3 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	want := []string{"first", "second", "third"}
	for i, call := range h.calls {
		if call.payload != want[i] {
			t.Fatalf("replay order wrong at %d: want %s, got %s", i, want[i], call.payload)
		}
	}
}

func TestSyncPreservesDependentOrder(t *testing.T) {
	ctx := context.Background()
	q, h := testQueue(t, true)
	base := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	q.now = func() time.Time { return base }
	q.Enqueue(ctx, 1, "tasks", KindDelete, []byte(`{"id":"x"}`))
	q.now = func() time.Time { return base.Add(time.Second) }
	q.Enqueue(ctx, 1, "tasks", KindUpdate, []byte(`{"id":"y"}`))

	if _, err := q.Sync(ctx, 1); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(h.calls) != 2 || h.calls[0].kind != KindDelete || h.calls[1].kind != KindUpdate {
		t.Fatalf("delete must replay before the later update, got %v", h.calls)
	}
}

func TestSyncPurgesReplayedOperations(t *testing.T) {
	ctx := context.Background()
	q, _ := testQueue(t, true)

	q.Enqueue(ctx, 1, "tasks", KindInsert, []byte(`{}`))
	q.Enqueue(ctx, 1, "tasks", KindInsert, []byte(`{}`))

	res, err := q.Sync(ctx, 1)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Purged != 2 {
		t.Fatalf("expected 2 purged, got %d", res.Purged)
	}

	pending, err := q.Pending(ctx, 1)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("queue should be empty after purge, got %v", pending)
	}
}

func TestFailedOperationStaysQueued(t *testing.T) {
	ctx := context.Background()
	q, h := testQueue(t, true)
	h.failOn["bad"] = errors.New("boom")

	q.Enqueue(ctx, 1, "tasks", KindUpdate, []byte("bad"))
	q.Enqueue(ctx, 1, "tasks", KindUpdate, []byte("good"))

	res, err := q.Sync(ctx, 1)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Replayed != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	pending, _ := q.Pending(ctx, 1)
	if len(pending) != 1 || string(pending[0].Payload) != "bad" {
		t.Fatalf("failed operation must stay queued, got %v", pending)
	}
	if pending[0].Attempts != 1 {
		t.Fatalf("expected 1 attempt recorded, got %d", pending[0].Attempts)
	}

	// failure does not stop later operations
	if len(h.calls) != 1 || h.calls[0].payload != "good" {
		t.Fatalf("later operations must still replay, got %v", h.calls)
	}
}

func TestRetryHasNoAttemptCap(t *testing.T) {
	ctx := context.Background()
	q, h := testQueue(t, true)
	h.failOn["bad"] = errors.New("boom")

	q.Enqueue(ctx, 1, "tasks", KindUpdate, []byte("bad"))

	for i := 0; i < 5; i++ {
		if _, err := q.Sync(ctx, 1); err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
	}

	pending, _ := q.Pending(ctx, 1)
	if len(pending) != 1 || pending[0].Attempts != 5 {
		t.Fatalf("operation should survive every failed pass, got %v", pending)
	}

	// once the underlying problem clears, the operation replays
	delete(h.failOn, "bad")
	res, err := q.Sync(ctx, 1)
	if err != nil {
		t.Fatalf("final sync: %v", err)
	}
	if res.Replayed != 1 {
		t.Fatalf("expected replay after recovery, got %+v", res)
	}
}

func TestSyncFailsFastWhileOffline(t *testing.T) {
	ctx := context.Background()
	q, h := testQueue(t, false)

	q.Enqueue(ctx, 1, "tasks", KindInsert, []byte(`{}`))

	res, err := q.Sync(ctx, 1)
	if !errors.Is(err, ErrOffline) {
		t.Fatalf("expected ErrOffline, got %v", err)
	}
	if res.Replayed != 0 || res.Failed != 0 || len(h.calls) != 0 {
		t.Fatalf("offline sync must not touch the queue, got %+v", res)
	}

	pending, _ := q.Pending(ctx, 1)
	if len(pending) != 1 {
		t.Fatalf("operation must remain queued while offline, got %v", pending)
	}
}

func TestUnknownCollectionStaysQueued(t *testing.T) {
	ctx := context.Background()
	q, _ := testQueue(t, true)

	q.Enqueue(ctx, 1, "widgets", KindInsert, []byte(`{}`))

	res, err := q.Sync(ctx, 1)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("unroutable operation should count as failed, got %+v", res)
	}
	pending, _ := q.Pending(ctx, 1)
	if len(pending) != 1 {
		t.Fatalf("unroutable operation must stay queued, got %v", pending)
	}
}

func ExampleQueue_Sync() {
	store, _ := local.OpenMemory()
	defer store.Close()

	q := NewQueue(store, func(context.Context) bool { return true })
	q.Register("tasks", &recordingHandler{})

	q.Enqueue(context.Background(), 1, "tasks", KindInsert, []byte(`{"title":"buy milk"}`))
	res, _ := q.Sync(context.Background(), 1)
	fmt.Println(res.Replayed)
	// Output: 1
}
