package out_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	trackeradapter "notegenius/internal/modules/tracker/adapter/out"
	"notegenius/internal/modules/tracker/domain"
	trackerout "notegenius/internal/modules/tracker/port/out"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func openOutbox(t *testing.T) *trackeradapter.SQLiteOutbox {
	t.Helper()
	outbox, err := trackeradapter.NewSQLiteOutbox(filepath.Join(t.TempDir(), "client.db"))
	if err != nil {
		t.Fatalf("open outbox: %v", err)
	}
	t.Cleanup(func() { _ = outbox.Close() })
	return outbox
}

func endEntry(key, session string, next time.Time) trackerout.OutboxEntry {
	return trackerout.OutboxEntry{
		IdempotencyKey: key,
		SessionID:      session,
		Op:             trackerout.OutboxEnd,
		Patch:          domain.EndPatch(t0.Add(30*time.Minute), 1800),
		NextAttemptAt:  next,
		CreatedAt:      t0,
	}
}

func TestSQLiteOutboxDedupesByKey(t *testing.T) {
	t.Parallel()
	outbox := openOutbox(t)
	ctx := context.Background()

	for range 3 {
		if err := outbox.Enqueue(ctx, endEntry("key-1", "rec-1", t0)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	depth, err := outbox.Depth(ctx)
	if err != nil || depth != 1 {
		t.Fatalf("expected one entry, got %d err=%v", depth, err)
	}

	due, err := outbox.Due(ctx, t0, 10)
	if err != nil || len(due) != 1 {
		t.Fatalf("expected one due entry, got %d err=%v", len(due), err)
	}
	got := due[0]
	if got.SessionID != "rec-1" || got.Op != trackerout.OutboxEnd || got.Patch.Duration == nil || *got.Patch.Duration != 1800 {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if got.Patch.IsActive == nil || *got.Patch.IsActive {
		t.Fatalf("expected the end patch to mark the record inactive: %+v", got.Patch)
	}
}

func TestSQLiteOutboxDueOrderAndRetry(t *testing.T) {
	t.Parallel()
	outbox := openOutbox(t)
	ctx := context.Background()

	_ = outbox.Enqueue(ctx, endEntry("late", "rec-2", t0.Add(time.Minute)))
	_ = outbox.Enqueue(ctx, endEntry("early", "rec-1", t0))

	due, err := outbox.Due(ctx, t0.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 2 || due[0].IdempotencyKey != "early" || due[1].IdempotencyKey != "late" {
		t.Fatalf("expected due order by next attempt, got %+v", due)
	}

	if err := outbox.Retry(ctx, due[0].ID, t0.Add(time.Hour), "connection refused"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	due, _ = outbox.Due(ctx, t0.Add(time.Minute), 10)
	if len(due) != 1 || due[0].IdempotencyKey != "late" {
		t.Fatalf("expected the retried entry deferred, got %+v", due)
	}
	due, _ = outbox.Due(ctx, t0.Add(time.Hour), 10)
	if len(due) != 2 || due[1].Attempts != 1 || due[1].LastError != "connection refused" {
		t.Fatalf("unexpected entries after retry: %+v", due)
	}
}

func TestSQLiteOutboxAckAndDrop(t *testing.T) {
	t.Parallel()
	outbox := openOutbox(t)
	ctx := context.Background()
	_ = outbox.Enqueue(ctx, endEntry("a", "rec-1", t0))
	_ = outbox.Enqueue(ctx, endEntry("b", "rec-2", t0))

	due, _ := outbox.Due(ctx, t0, 10)
	if len(due) != 2 {
		t.Fatalf("expected two due entries, got %d", len(due))
	}
	if err := outbox.Ack(ctx, due[0].ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if err := outbox.Drop(ctx, due[1].ID, "not found"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	depth, _ := outbox.Depth(ctx)
	if depth != 0 {
		t.Fatalf("expected empty queue, got %d", depth)
	}
	// A dropped key stays reserved so the same write is not queued again.
	_ = outbox.Enqueue(ctx, endEntry("b", "rec-2", t0))
	if depth, _ := outbox.Depth(ctx); depth != 0 {
		t.Fatalf("expected dropped key to stay reserved, got depth %d", depth)
	}
}

func TestSQLiteOutboxSupersedeFreesKeys(t *testing.T) {
	t.Parallel()
	outbox := openOutbox(t)
	ctx := context.Background()
	update := func(key, session string) trackerout.OutboxEntry {
		return trackerout.OutboxEntry{
			IdempotencyKey: key,
			SessionID:      session,
			Op:             trackerout.OutboxUpdate,
			Patch:          domain.ActivityPatch(domain.ActivityQuizTaking),
			NextAttemptAt:  t0,
			CreatedAt:      t0,
		}
	}
	for _, e := range []trackerout.OutboxEntry{update("u-1", "rec-1"), update("u-2", "rec-2"), endEntry("e-1", "rec-1", t0)} {
		if err := outbox.Enqueue(ctx, e); err != nil {
			t.Fatalf("enqueue %s: %v", e.IdempotencyKey, err)
		}
	}

	n, err := outbox.Supersede(ctx, "rec-1", trackerout.OutboxUpdate)
	if err != nil || n != 1 {
		t.Fatalf("expected one superseded entry, got %d err=%v", n, err)
	}
	if depth, _ := outbox.Depth(ctx); depth != 2 {
		t.Fatalf("other sessions and ops must stay queued, depth %d", depth)
	}
	// The key is free again for a later identical write.
	if err := outbox.Enqueue(ctx, update("u-1", "rec-1")); err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}
	if depth, _ := outbox.Depth(ctx); depth != 3 {
		t.Fatalf("expected the write queued again, depth %d", depth)
	}
}
