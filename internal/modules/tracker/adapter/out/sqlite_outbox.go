package out

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"notegenius/internal/modules/tracker/domain"
	trackerout "notegenius/internal/modules/tracker/port/out"

	_ "modernc.org/sqlite"
)

const outboxTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteOutbox stores failed remote writes in the client database. Entries
// with the same idempotency key are stored once.
type SQLiteOutbox struct {
	db *sqlx.DB
}

type outboxRow struct {
	ID             int64  `db:"id"`
	IdempotencyKey string `db:"idempotency_key"`
	SessionID      string `db:"session_id"`
	Op             string `db:"op"`
	Patch          string `db:"patch"`
	Attempts       int    `db:"attempts"`
	NextAttemptAt  string `db:"next_attempt_at"`
	LastError      string `db:"last_error"`
	Dropped        bool   `db:"dropped"`
	CreatedAt      string `db:"created_at"`
}

func NewSQLiteOutbox(dbPath string) (*SQLiteOutbox, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "create outbox dir")
	}
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open outbox")
	}
	db.SetMaxOpenConns(1)
	o := &SQLiteOutbox{db: db}
	if err := o.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return o, nil
}

var _ trackerout.Outbox = (*SQLiteOutbox)(nil)

func (o *SQLiteOutbox) Close() error {
	return o.db.Close()
}

func (o *SQLiteOutbox) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS outbox (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  idempotency_key TEXT NOT NULL UNIQUE,
  session_id TEXT NOT NULL,
  op TEXT NOT NULL,
  patch TEXT NOT NULL,
  attempts INTEGER NOT NULL DEFAULT 0,
  next_attempt_at TEXT NOT NULL,
  last_error TEXT NOT NULL DEFAULT '',
  dropped INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS outbox_due ON outbox(dropped, next_attempt_at);
`
	if _, err := o.db.ExecContext(ctx, ddl); err != nil {
		return errors.Wrap(err, "create outbox table")
	}
	return nil
}

func (o *SQLiteOutbox) Enqueue(ctx context.Context, entry trackerout.OutboxEntry) error {
	patch, err := json.Marshal(entry.Patch)
	if err != nil {
		return errors.Wrap(err, "encode outbox patch")
	}
	row := outboxRow{
		IdempotencyKey: entry.IdempotencyKey,
		SessionID:      entry.SessionID,
		Op:             string(entry.Op),
		Patch:          string(patch),
		Attempts:       entry.Attempts,
		NextAttemptAt:  entry.NextAttemptAt.UTC().Format(outboxTimeLayout),
		LastError:      entry.LastError,
		CreatedAt:      entry.CreatedAt.UTC().Format(outboxTimeLayout),
	}
	_, err = o.db.NamedExecContext(ctx, `
INSERT INTO outbox (idempotency_key, session_id, op, patch, attempts, next_attempt_at, last_error, created_at)
VALUES (:idempotency_key, :session_id, :op, :patch, :attempts, :next_attempt_at, :last_error, :created_at)
ON CONFLICT(idempotency_key) DO NOTHING`, row)
	if err != nil {
		return errors.Wrap(err, "enqueue outbox entry")
	}
	return nil
}

func (o *SQLiteOutbox) Due(ctx context.Context, now time.Time, limit int) ([]trackerout.OutboxEntry, error) {
	rows := []outboxRow{}
	err := o.db.SelectContext(ctx, &rows, `
SELECT * FROM outbox WHERE dropped = 0 AND next_attempt_at <= ? ORDER BY next_attempt_at, id LIMIT ?`,
		now.UTC().Format(outboxTimeLayout), limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due outbox entries")
	}
	out := make([]trackerout.OutboxEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := fromOutboxRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (o *SQLiteOutbox) Ack(ctx context.Context, id int64) error {
	if _, err := o.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return errors.Wrapf(err, "ack outbox entry %d", id)
	}
	return nil
}

func (o *SQLiteOutbox) Retry(ctx context.Context, id int64, next time.Time, lastErr string) error {
	_, err := o.db.ExecContext(ctx,
		`UPDATE outbox SET attempts = attempts + 1, next_attempt_at = ?, last_error = ? WHERE id = ?`,
		next.UTC().Format(outboxTimeLayout), lastErr, id)
	if err != nil {
		return errors.Wrapf(err, "retry outbox entry %d", id)
	}
	return nil
}

// Drop keeps the entry for inspection but takes it out of the queue.
func (o *SQLiteOutbox) Drop(ctx context.Context, id int64, lastErr string) error {
	_, err := o.db.ExecContext(ctx,
		`UPDATE outbox SET attempts = attempts + 1, dropped = 1, last_error = ? WHERE id = ?`, lastErr, id)
	if err != nil {
		return errors.Wrapf(err, "drop outbox entry %d", id)
	}
	return nil
}

func (o *SQLiteOutbox) Depth(ctx context.Context) (int, error) {
	n := 0
	if err := o.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM outbox WHERE dropped = 0`); err != nil {
		return 0, errors.Wrap(err, "count outbox entries")
	}
	return n, nil
}

// Supersede deletes the queued entries so their keys can be used again.
// Dropped entries stay for inspection.
func (o *SQLiteOutbox) Supersede(ctx context.Context, sessionID string, op trackerout.OutboxOp) (int, error) {
	res, err := o.db.ExecContext(ctx,
		`DELETE FROM outbox WHERE session_id = ? AND op = ? AND dropped = 0`, sessionID, string(op))
	if err != nil {
		return 0, errors.Wrapf(err, "supersede outbox entries of %s", sessionID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "count superseded outbox entries")
	}
	return int(n), nil
}

func fromOutboxRow(row outboxRow) (trackerout.OutboxEntry, error) {
	patch := domain.Patch{}
	if err := json.Unmarshal([]byte(row.Patch), &patch); err != nil {
		return trackerout.OutboxEntry{}, errors.Wrapf(err, "decode outbox patch %d", row.ID)
	}
	next, err := time.Parse(outboxTimeLayout, row.NextAttemptAt)
	if err != nil {
		return trackerout.OutboxEntry{}, errors.Wrapf(err, "parse next_attempt_at of %d", row.ID)
	}
	created, _ := time.Parse(outboxTimeLayout, row.CreatedAt)
	return trackerout.OutboxEntry{
		ID:             row.ID,
		IdempotencyKey: row.IdempotencyKey,
		SessionID:      row.SessionID,
		Op:             trackerout.OutboxOp(row.Op),
		Patch:          patch,
		Attempts:       row.Attempts,
		NextAttemptAt:  next,
		LastError:      row.LastError,
		CreatedAt:      created,
	}, nil
}
