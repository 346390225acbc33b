package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"notegenius/internal/modules/tracker/domain"
	trackerout "notegenius/internal/modules/tracker/port/out"
	"notegenius/internal/modules/tracker/service"
	"notegenius/internal/platform/clock/clocktest"
	apperrors "notegenius/internal/platform/errors"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeRemote struct {
	mu       sync.Mutex
	records  map[string]domain.Record
	seq      int
	inserts  int
	updates  []domain.Patch
	failWith error
	entered  chan struct{}
	gate     chan struct{}
	counters map[string]domain.Counters
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: map[string]domain.Record{}, counters: map[string]domain.Counters{}}
}

func (f *fakeRemote) seed(r domain.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[r.ID] = r
}

func (f *fakeRemote) failUpdates(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

func (f *fakeRemote) record(id string) domain.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id]
}

func (f *fakeRemote) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}

func (f *fakeRemote) FindActive(_ context.Context, userID string) (domain.Record, bool, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.activeLocked(userID)
	return r, ok, nil
}

func (f *fakeRemote) activeLocked(userID string) (domain.Record, bool) {
	var latest domain.Record
	found := false
	for _, r := range f.records {
		if r.UserID == userID && r.IsActive && (!found || r.StartTime.After(latest.StartTime)) {
			latest, found = r, true
		}
	}
	return latest, found
}

func (f *fakeRemote) InsertOrGetActive(_ context.Context, r domain.Record) (domain.Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.activeLocked(r.UserID); ok {
		return existing, true, nil
	}
	f.seq++
	f.inserts++
	r.ID = fmt.Sprintf("rec-%d", f.seq)
	f.records[r.ID] = r
	return r, false, nil
}

func (f *fakeRemote) Insert(_ context.Context, r domain.Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.inserts++
	r.ID = fmt.Sprintf("rec-%d", f.seq)
	f.records[r.ID] = r
	return r.ID, nil
}

func (f *fakeRemote) Update(_ context.Context, id string, patch domain.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	r, ok := f.records[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if patch.EndTime != nil {
		end := *patch.EndTime
		r.EndTime = &end
	}
	if patch.Duration != nil {
		r.Duration = *patch.Duration
	}
	if patch.IsActive != nil {
		r.IsActive = *patch.IsActive
	}
	if patch.ActivityType != nil {
		r.ActivityType = *patch.ActivityType
	}
	f.records[id] = r
	f.updates = append(f.updates, patch)
	return nil
}

func (f *fakeRemote) IncrementCounters(_ context.Context, id string, delta domain.Counters) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.counters[id]
	c.ItemsReviewed += delta.ItemsReviewed
	c.CorrectAnswers += delta.CorrectAnswers
	c.QuizScore += delta.QuizScore
	c.QuizTotal += delta.QuizTotal
	c.NotesCreated += delta.NotesCreated
	c.NotesReviewed += delta.NotesReviewed
	f.counters[id] = c
	return nil
}

func (f *fakeRemote) ListRecent(_ context.Context, userID string, limit int) ([]domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Record{}
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeLocal struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{values: map[string]string{}}
}

func (f *fakeLocal) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeLocal) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	f.writes++
	return nil
}

func (f *fakeLocal) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func (f *fakeLocal) has(key string) bool {
	_, ok, _ := f.Get(key)
	return ok
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func (f *fakeNotifier) Notify(n domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, n)
}

func (f *fakeNotifier) titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.notes))
	for _, n := range f.notes {
		out = append(out, n.Title)
	}
	return out
}

func (f *fakeNotifier) count(title string) int {
	n := 0
	for _, got := range f.titles() {
		if got == title {
			n++
		}
	}
	return n
}

type fakeOutbox struct {
	mu      sync.Mutex
	seq     int64
	entries map[int64]*trackerout.OutboxEntry
	dropped map[int64]string
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{entries: map[int64]*trackerout.OutboxEntry{}, dropped: map[int64]string{}}
}

func (f *fakeOutbox) Enqueue(_ context.Context, entry trackerout.OutboxEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.IdempotencyKey == entry.IdempotencyKey {
			return nil
		}
	}
	f.seq++
	entry.ID = f.seq
	f.entries[entry.ID] = &entry
	return nil
}

func (f *fakeOutbox) Due(_ context.Context, now time.Time, limit int) ([]trackerout.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []trackerout.OutboxEntry{}
	for _, e := range f.entries {
		if !e.NextAttemptAt.After(now) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeOutbox) Ack(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, id)
	return nil
}

func (f *fakeOutbox) Retry(_ context.Context, id int64, next time.Time, lastErr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.entries[id]
	e.Attempts++
	e.NextAttemptAt = next
	e.LastError = lastErr
	return nil
}

func (f *fakeOutbox) Drop(_ context.Context, id int64, lastErr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, id)
	f.dropped[id] = lastErr
	return nil
}

func (f *fakeOutbox) Depth(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries), nil
}

func (f *fakeOutbox) Supersede(_ context.Context, sessionID string, op trackerout.OutboxOp) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, e := range f.entries {
		if e.SessionID == sessionID && e.Op == op {
			delete(f.entries, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeOutbox) list() []trackerout.OutboxEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []trackerout.OutboxEntry{}
	for _, e := range f.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type harness struct {
	t        *testing.T
	clock    *clocktest.Fake
	remote   *fakeRemote
	local    *fakeLocal
	notifier *fakeNotifier
	outbox   *fakeOutbox
	tracker  *service.Tracker
}

func newHarness(t *testing.T, mutate ...func(*service.Options)) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		clock:    clocktest.New(t0),
		remote:   newFakeRemote(),
		local:    newFakeLocal(),
		notifier: &fakeNotifier{},
		outbox:   newFakeOutbox(),
	}
	h.tracker = h.open(mutate...)
	return h
}

func (h *harness) open(mutate ...func(*service.Options)) *service.Tracker {
	h.t.Helper()
	opts := service.Options{
		UserID: "user-1",
		Idle:   service.DefaultIdleThresholds(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	tr, err := service.New(service.Deps{
		Clock:    h.clock,
		Remote:   h.remote,
		Local:    h.local,
		Notifier: h.notifier,
		Outbox:   h.outbox,
	}, opts)
	if err != nil {
		h.t.Fatalf("new tracker: %v", err)
	}
	h.t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func (h *harness) flush() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.tracker.Flush(ctx); err != nil {
		h.t.Fatalf("flush: %v", err)
	}
}

// step advances the clock one second at a time so every timer is handled
// at its own deadline.
func (h *harness) step(d time.Duration) {
	h.t.Helper()
	for elapsed := time.Duration(0); elapsed < d; elapsed += time.Second {
		h.clock.Advance(time.Second)
		h.flush()
	}
}

func (h *harness) navigate(path string) {
	h.t.Helper()
	if err := h.tracker.Navigate(path); err != nil {
		h.t.Fatalf("navigate %s: %v", path, err)
	}
	h.flush()
}

func (h *harness) start() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.tracker.Start(ctx); err != nil {
		h.t.Fatalf("start: %v", err)
	}
	h.flush()
}

func (h *harness) expectPhase(want domain.Phase) {
	h.t.Helper()
	if got := h.tracker.Phase(); got != want {
		h.t.Fatalf("expected phase %s, got %s", want, got)
	}
}
