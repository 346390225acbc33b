package out

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"notegenius/internal/modules/records/domain"
	recordsout "notegenius/internal/modules/records/port/out"
	"notegenius/internal/platform/clock"

	_ "modernc.org/sqlite"
)

// Fixed width UTC timestamps keep TEXT ordering chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db    *sqlx.DB
	clock clock.Clock
}

type recordRow struct {
	ID             string      `db:"id"`
	UserID         string      `db:"user_id"`
	Title          string      `db:"title"`
	Subject        string      `db:"subject"`
	StartTime      string      `db:"start_time"`
	EndTime        null.String `db:"end_time"`
	Duration       int         `db:"duration"`
	IsActive       bool        `db:"is_active"`
	ActivityType   string      `db:"activity_type"`
	AutoCreated    bool        `db:"auto_created"`
	ItemsReviewed  int         `db:"items_reviewed"`
	CorrectAnswers int         `db:"correct_answers"`
	QuizScore      int         `db:"quiz_score"`
	QuizTotal      int         `db:"quiz_total"`
	NotesCreated   int         `db:"notes_created"`
	NotesReviewed  int         `db:"notes_reviewed"`
	CreatedAt      string      `db:"created_at"`
	UpdatedAt      string      `db:"updated_at"`
}

// NewSQLiteRepository opens dbPath. clk stamps updated_at on writes; nil
// uses the system clock.
func NewSQLiteRepository(dbPath string, clk clock.Clock) (*SQLiteRepository, error) {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "create db dir")
	}
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// One writer keeps the active-session constraint check and insert serial.
	db.SetMaxOpenConns(1)
	repo := &SQLiteRepository{db: db, clock: clk}
	if err := repo.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

var _ recordsout.Repository = (*SQLiteRepository)(nil)

func (s *SQLiteRepository) Close() error {
	return s.db.Close()
}

func (s *SQLiteRepository) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS study_sessions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  title TEXT NOT NULL,
  subject TEXT NOT NULL DEFAULT '',
  start_time TEXT NOT NULL,
  end_time TEXT,
  duration INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL,
  activity_type TEXT NOT NULL,
  auto_created INTEGER NOT NULL DEFAULT 0,
  items_reviewed INTEGER NOT NULL DEFAULT 0,
  correct_answers INTEGER NOT NULL DEFAULT 0,
  quiz_score INTEGER NOT NULL DEFAULT 0,
  quiz_total INTEGER NOT NULL DEFAULT 0,
  notes_created INTEGER NOT NULL DEFAULT 0,
  notes_reviewed INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS study_sessions_one_active_per_user
  ON study_sessions(user_id) WHERE is_active = 1;
CREATE INDEX IF NOT EXISTS study_sessions_user_start
  ON study_sessions(user_id, start_time DESC);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return errors.Wrap(err, "create study_sessions table")
	}
	return nil
}

const insertColumns = `id, user_id, title, subject, start_time, end_time, duration, is_active, activity_type, auto_created,
  items_reviewed, correct_answers, quiz_score, quiz_total, notes_created, notes_reviewed, created_at, updated_at`

const insertValues = `:id, :user_id, :title, :subject, :start_time, :end_time, :duration, :is_active, :activity_type, :auto_created,
  :items_reviewed, :correct_answers, :quiz_score, :quiz_total, :notes_created, :notes_reviewed, :created_at, :updated_at`

func (s *SQLiteRepository) Insert(ctx context.Context, record domain.Record) error {
	stmt := `INSERT INTO study_sessions (` + insertColumns + `) VALUES (` + insertValues + `)`
	if _, err := s.db.NamedExecContext(ctx, stmt, toRow(record)); err != nil {
		return errors.Wrap(err, "insert study session")
	}
	return nil
}

func (s *SQLiteRepository) InsertIfNoActive(ctx context.Context, record domain.Record) (bool, error) {
	stmt := `INSERT INTO study_sessions (` + insertColumns + `) VALUES (` + insertValues + `) ON CONFLICT DO NOTHING`
	res, err := s.db.NamedExecContext(ctx, stmt, toRow(record))
	if err != nil {
		return false, errors.Wrap(err, "claim study session")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "claim study session rows")
	}
	return n == 1, nil
}

func (s *SQLiteRepository) Get(ctx context.Context, id string) (domain.Record, error) {
	row := recordRow{}
	err := s.db.GetContext(ctx, &row, `SELECT * FROM study_sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.Record{}, errors.Wrapf(err, "get study session %s", id)
	}
	return fromRow(row)
}

func (s *SQLiteRepository) Update(ctx context.Context, id string, patch domain.Patch) error {
	sets := []string{"updated_at = ?"}
	args := []any{s.clock.Now().UTC().Format(timeLayout)}
	if patch.EndTime != nil {
		sets = append(sets, "end_time = ?")
		args = append(args, patch.EndTime.UTC().Format(timeLayout))
	}
	if patch.Duration != nil {
		sets = append(sets, "duration = ?")
		args = append(args, *patch.Duration)
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *patch.IsActive)
	}
	if patch.ActivityType != nil {
		sets = append(sets, "activity_type = ?")
		args = append(args, *patch.ActivityType)
	}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE study_sessions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return errors.Wrapf(err, "update study session %s", id)
	}
	return requireRow(res, id)
}

func (s *SQLiteRepository) AddCounters(ctx context.Context, id string, delta domain.Counters) error {
	const stmt = `
UPDATE study_sessions SET
  items_reviewed = items_reviewed + ?,
  correct_answers = correct_answers + ?,
  quiz_score = quiz_score + ?,
  quiz_total = quiz_total + ?,
  notes_created = notes_created + ?,
  notes_reviewed = notes_reviewed + ?,
  updated_at = ?
WHERE id = ?`
	res, err := s.db.ExecContext(ctx, stmt,
		delta.ItemsReviewed, delta.CorrectAnswers, delta.QuizScore, delta.QuizTotal,
		delta.NotesCreated, delta.NotesReviewed, s.clock.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return errors.Wrapf(err, "add counters to study session %s", id)
	}
	return requireRow(res, id)
}

func (s *SQLiteRepository) FindActive(ctx context.Context, userID string) (domain.Record, bool, error) {
	row := recordRow{}
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM study_sessions WHERE user_id = ? AND is_active = 1 ORDER BY start_time DESC LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, false, nil
	}
	if err != nil {
		return domain.Record{}, false, errors.Wrap(err, "find active study session")
	}
	record, err := fromRow(row)
	if err != nil {
		return domain.Record{}, false, err
	}
	return record, true, nil
}

func (s *SQLiteRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Record, error) {
	rows := []recordRow{}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM study_sessions WHERE user_id = ? ORDER BY start_time DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list study sessions")
	}
	out := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		record, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.Wrap(domain.ErrRecordNotFound, id)
	}
	return nil
}

func toRow(record domain.Record) recordRow {
	row := recordRow{
		ID:             record.ID,
		UserID:         record.UserID,
		Title:          record.Title,
		Subject:        record.Subject,
		StartTime:      record.StartTime.UTC().Format(timeLayout),
		Duration:       record.Duration,
		IsActive:       record.IsActive,
		ActivityType:   record.ActivityType,
		AutoCreated:    record.AutoCreated,
		ItemsReviewed:  record.Counters.ItemsReviewed,
		CorrectAnswers: record.Counters.CorrectAnswers,
		QuizScore:      record.Counters.QuizScore,
		QuizTotal:      record.Counters.QuizTotal,
		NotesCreated:   record.Counters.NotesCreated,
		NotesReviewed:  record.Counters.NotesReviewed,
		CreatedAt:      record.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:      record.UpdatedAt.UTC().Format(timeLayout),
	}
	if record.EndTime != nil {
		row.EndTime = null.StringFrom(record.EndTime.UTC().Format(timeLayout))
	}
	return row
}

func fromRow(row recordRow) (domain.Record, error) {
	start, err := time.Parse(timeLayout, row.StartTime)
	if err != nil {
		return domain.Record{}, errors.Wrapf(err, "parse start_time of %s", row.ID)
	}
	created, _ := time.Parse(timeLayout, row.CreatedAt)
	updated, _ := time.Parse(timeLayout, row.UpdatedAt)
	record := domain.Record{
		ID:           row.ID,
		UserID:       row.UserID,
		Title:        row.Title,
		Subject:      row.Subject,
		StartTime:    start,
		Duration:     row.Duration,
		IsActive:     row.IsActive,
		ActivityType: row.ActivityType,
		AutoCreated:  row.AutoCreated,
		Counters: domain.Counters{
			ItemsReviewed:  row.ItemsReviewed,
			CorrectAnswers: row.CorrectAnswers,
			QuizScore:      row.QuizScore,
			QuizTotal:      row.QuizTotal,
			NotesCreated:   row.NotesCreated,
			NotesReviewed:  row.NotesReviewed,
		},
		CreatedAt: created,
		UpdatedAt: updated,
	}
	if row.EndTime.Valid {
		end, err := time.Parse(timeLayout, row.EndTime.String)
		if err != nil {
			return domain.Record{}, errors.Wrapf(err, "parse end_time of %s", row.ID)
		}
		record.EndTime = &end
	}
	return record, nil
}
