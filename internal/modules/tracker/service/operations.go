package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notegenius/internal/modules/tracker/domain"
	trackerout "notegenius/internal/modules/tracker/port/out"
	"notegenius/internal/platform/digest"
	apperrors "notegenius/internal/platform/errors"
)

// goRemote runs fn off the loop. fn must return the completion event that
// the loop uses to account for the finished call.
func (t *Tracker) goRemote(fn func(ctx context.Context) any) {
	t.inflight++
	t.ops.Add(1)
	go func() {
		defer t.ops.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.opts.RemoteTimeout)
		defer cancel()
		_ = t.post(fn(ctx))
	}()
}

func (t *Tracker) launchStart(now time.Time) {
	if t.opts.UserID == "" {
		t.log.Warn("cannot start a study session", apperrors.ErrUnknownUser)
		t.followUp(domain.EventStartFailed)
		t.releaseStartWaiters()
		return
	}
	candidate := domain.Record{
		UserID:       t.opts.UserID,
		StartTime:    now,
		IsActive:     true,
		ActivityType: domain.ActivityGeneral,
		AutoCreated:  true,
	}
	if t.nav.mounted {
		candidate.ActivityType = t.classifier.Classify(t.nav.path)
	}
	t.goRemote(func(ctx context.Context) any {
		record, adopted, err := t.createOrAdopt(ctx, candidate, now)
		return startDone{record: record, adopted: adopted, err: err}
	})
}

// createOrAdopt returns the user's open record when there is a plausible one
// and otherwise claims a new one. An open record older than the ceiling is
// closed at the ceiling first.
func (t *Tracker) createOrAdopt(ctx context.Context, candidate domain.Record, now time.Time) (domain.Record, bool, error) {
	existing, ok, err := t.remote.FindActive(ctx, candidate.UserID)
	if err != nil {
		return domain.Record{}, false, fmt.Errorf("find active session: %w", err)
	}
	if ok {
		start := existing.StartTime
		candidate := domain.SessionState{SessionID: existing.ID, IsActive: true, StartTime: &start}
		if err := t.opts.Limits.CheckState(candidate, now); err == nil {
			return existing, true, nil
		}
		closeAt := start.Add(t.opts.Limits.MaxSession)
		duration := t.opts.Limits.CapDuration(int(t.opts.Limits.MaxSession / time.Second))
		if err := t.remote.Update(ctx, existing.ID, domain.EndPatch(closeAt, duration)); err != nil {
			t.log.Warn("close stale remote session", existing.ID, err)
		} else {
			t.log.Info("closed stale remote session", existing.ID)
		}
	}
	record, adopted, err := t.remote.InsertOrGetActive(ctx, candidate)
	if err != nil {
		return domain.Record{}, false, fmt.Errorf("create session: %w", err)
	}
	return record, adopted, nil
}

// pushPatch writes patch to the current remote record. A failed write is
// parked in the outbox so the record still converges, unless a newer write
// of the same kind was issued meanwhile.
func (t *Tracker) pushPatch(op trackerout.OutboxOp, patch domain.Patch) {
	id := t.state.SessionID
	if id == "" {
		return
	}
	key := writeKey{sessionID: id, op: op}
	seq := t.writes.issue(key)
	t.goRemote(func(ctx context.Context) any {
		err := t.remote.Update(ctx, id, patch)
		newest := t.writes.settle(key, seq)
		switch {
		case err != nil && newest:
			t.park(ctx, id, op, patch, err)
		case err != nil:
			t.log.Debug("failed write overtaken by a newer one", id, string(op))
		case newest && op == trackerout.OutboxUpdate:
			t.supersede(ctx, id, op)
		}
		return opDone{op: string(op), err: err}
	})
}

func (t *Tracker) park(ctx context.Context, sessionID string, op trackerout.OutboxOp, patch domain.Patch, cause error) {
	if t.outbox == nil {
		t.log.Warn("remote write lost without an outbox", sessionID, string(op))
		return
	}
	key, err := IdempotencyKey(sessionID, op, patch)
	if err != nil {
		t.log.Error("outbox key", err)
		return
	}
	now := t.clock.Now()
	entry := trackerout.OutboxEntry{
		IdempotencyKey: key,
		SessionID:      sessionID,
		Op:             op,
		Patch:          patch,
		NextAttemptAt:  now,
		LastError:      cause.Error(),
		CreatedAt:      now,
	}
	ctx, cancel := t.writeContext(ctx)
	defer cancel()
	if op == trackerout.OutboxUpdate {
		t.supersede(ctx, sessionID, op)
	}
	if err := t.outbox.Enqueue(ctx, entry); err != nil {
		t.log.Error("enqueue outbox entry", err, sessionID)
	}
}

// supersede removes older queued writes that the current one replaces.
func (t *Tracker) supersede(ctx context.Context, sessionID string, op trackerout.OutboxOp) {
	if t.outbox == nil {
		return
	}
	ctx, cancel := t.writeContext(ctx)
	defer cancel()
	n, err := t.outbox.Supersede(ctx, sessionID, op)
	if err != nil {
		t.log.Warn("supersede outbox entries", sessionID, err)
		return
	}
	if n > 0 {
		t.log.Debug("outbox entries superseded", sessionID, string(op), n)
	}
}

// writeContext replaces a remote context that is already spent on a timeout.
func (t *Tracker) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.Background(), t.opts.RemoteTimeout)
}

type writeKey struct {
	sessionID string
	op        trackerout.OutboxOp
}

// writeOrder numbers remote writes per record and kind. The loop issues
// numbers; remote goroutines settle them.
type writeOrder struct {
	mu     sync.Mutex
	seq    uint64
	latest map[writeKey]uint64
}

func (w *writeOrder) issue(key writeKey) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.latest == nil {
		w.latest = map[writeKey]uint64{}
	}
	w.seq++
	w.latest[key] = w.seq
	return w.seq
}

// settle reports whether seq is the newest write issued for key.
func (w *writeOrder) settle(key writeKey, seq uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.latest[key] != seq {
		return false
	}
	delete(w.latest, key)
	return true
}

// IdempotencyKey identifies a remote write so the same write is queued once.
func IdempotencyKey(sessionID string, op trackerout.OutboxOp, patch domain.Patch) (string, error) {
	return digest.Of(struct {
		SessionID string             `json:"session_id"`
		Op        trackerout.OutboxOp `json:"op"`
		Patch     domain.Patch       `json:"patch"`
	}{sessionID, op, patch})
}
