package local

import (
	"context"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOperationsOrderedByTimestamp(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	base := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	// inserted newest first on purpose
	ops := []Operation{
		{ID: "op-3", UserID: 1, Collection: "tasks", Kind: "update", CreatedAt: base.Add(2 * time.Second)},
		{ID: "op-1", UserID: 1, Collection: "tasks", Kind: "insert", CreatedAt: base},
		{ID: "op-2", UserID: 1, Collection: "tasks", Kind: "delete", CreatedAt: base.Add(time.Second)},
	}
	for _, op := range ops {
		if err := s.InsertOperation(ctx, op); err != nil {
			t.Fatalf("insert %s: %v", op.ID, err)
		}
	}

	got, err := s.UnsyncedOperations(ctx, 1)
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(got))
	}
	for i, want := range []string{"op-1", "op-2", "op-3"} {
		if got[i].ID != want {
			t.Fatalf("position %d: want %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestTimestampTiesBreakOnID(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	at := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"b", "a", "c"} {
		op := Operation{ID: id, UserID: 1, Collection: "tasks", Kind: "update", CreatedAt: at}
		if err := s.InsertOperation(ctx, op); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	got, err := s.UnsyncedOperations(ctx, 1)
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].ID != want {
			t.Fatalf("position %d: want %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestMarkSyncedAndPurge(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	at := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"x", "y"} {
		op := Operation{ID: id, UserID: 1, Collection: "tasks", Kind: "insert", CreatedAt: at}
		if err := s.InsertOperation(ctx, op); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	if err := s.MarkSynced(ctx, "x"); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	unsynced, err := s.UnsyncedOperations(ctx, 1)
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(unsynced) != 1 || unsynced[0].ID != "y" {
		t.Fatalf("expected only y unsynced, got %v", unsynced)
	}

	purged, err := s.PurgeSynced(ctx, 1)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}

	all, err := s.Operations(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].ID != "y" {
		t.Fatalf("failed operation must survive the purge, got %v", all)
	}
}

func TestIncrementAttempts(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	op := Operation{ID: "op", UserID: 1, Collection: "tasks", Kind: "update", CreatedAt: time.Now().UTC()}
	if err := s.InsertOperation(ctx, op); err != nil {
		t.Fatalf("insert: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.IncrementAttempts(ctx, "op"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	got, err := s.Operations(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got[0].Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", got[0].Attempts)
	}
}

func TestOperationsScopedToUser(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	at := time.Now().UTC()

	_ = s.InsertOperation(ctx, Operation{ID: "mine", UserID: 1, Collection: "tasks", Kind: "insert", CreatedAt: at})
	_ = s.InsertOperation(ctx, Operation{ID: "theirs", UserID: 2, Collection: "tasks", Kind: "insert", CreatedAt: at})

	got, err := s.UnsyncedOperations(ctx, 1)
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(got) != 1 || got[0].ID != "mine" {
		t.Fatalf("expected only user 1 operations, got %v", got)
	}
}

func TestSyncStatusUpsert(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	at := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	st := SyncStatus{UserID: 1, Kind: "calendar", InProgress: true, LastSync: at, Status: "syncing"}
	if err := s.SetSyncStatus(ctx, st); err != nil {
		t.Fatalf("set status: %v", err)
	}

	st.InProgress = false
	st.Status = "success"
	st.LastSync = at.Add(time.Minute)
	if err := s.SetSyncStatus(ctx, st); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, err := s.SyncStatuses(ctx, 1)
	if err != nil {
		t.Fatalf("list statuses: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("upsert must not duplicate rows, got %d", len(got))
	}
	if got[0].Status != "success" || got[0].InProgress {
		t.Fatalf("unexpected status %+v", got[0])
	}
	if !got[0].LastSync.Equal(at.Add(time.Minute)) {
		t.Fatalf("last sync not updated: %v", got[0].LastSync)
	}
}
