package out

import (
	"context"
	"time"

	"notegenius/internal/modules/tracker/domain"
)

// RemoteSessionStore is the system of record for study sessions.
type RemoteSessionStore interface {
	// FindActive returns the latest active record of the user.
	FindActive(ctx context.Context, userID string) (domain.Record, bool, error)
	// InsertOrGetActive inserts record unless the user already owns an active
	// record, which is then returned with adopted set.
	InsertOrGetActive(ctx context.Context, record domain.Record) (domain.Record, bool, error)
	Insert(ctx context.Context, record domain.Record) (string, error)
	Update(ctx context.Context, id string, patch domain.Patch) error
	IncrementCounters(ctx context.Context, id string, delta domain.Counters) error
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.Record, error)
}

// LocalStore is the per-process key/value store that survives restarts.
type LocalStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

type Notifier interface {
	Notify(n domain.Notification)
}

type OutboxOp string

const (
	OutboxUpdate OutboxOp = "update"
	OutboxEnd    OutboxOp = "end"
)

type OutboxEntry struct {
	ID             int64
	IdempotencyKey string
	SessionID      string
	Op             OutboxOp
	Patch          domain.Patch
	Attempts       int
	NextAttemptAt  time.Time
	LastError      string
	CreatedAt      time.Time
}

// Outbox holds remote writes that failed and must be retried.
type Outbox interface {
	Enqueue(ctx context.Context, entry OutboxEntry) error
	Due(ctx context.Context, now time.Time, limit int) ([]OutboxEntry, error)
	Ack(ctx context.Context, id int64) error
	Retry(ctx context.Context, id int64, next time.Time, lastErr string) error
	Drop(ctx context.Context, id int64, lastErr string) error
	Depth(ctx context.Context) (int, error)
	// Supersede removes the queued entries of sessionID and op, so a newer
	// write to the same fields is never overtaken by an older replay.
	Supersede(ctx context.Context, sessionID string, op OutboxOp) (int, error)
}

type Metrics interface {
	Transition(from, to domain.Phase, event domain.Event)
	RemoteFailure(op string)
	OutboxDepth(n int)
}

type SessionExporter interface {
	Export(ctx context.Context, summary domain.Summary) (string, error)
}
