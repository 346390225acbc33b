package usecase

import (
	"context"
	"fmt"
	"time"

	"notegenius/internal/modules/tracker/domain"
	trackerdto "notegenius/internal/modules/tracker/dto"
	trackerin "notegenius/internal/modules/tracker/port/in"
	trackerout "notegenius/internal/modules/tracker/port/out"
	"notegenius/internal/modules/tracker/service"
	apperrors "notegenius/internal/platform/errors"
	"notegenius/internal/platform/logger"
)

const defaultHistoryLimit = 20

type Interactor struct {
	tracker  *service.Tracker
	remote   trackerout.RemoteSessionStore
	outbox   trackerout.Outbox
	worker   *service.OutboxWorker
	exporter trackerout.SessionExporter
	limits   domain.Limits
	userID   string
	log      logger.Logger
}

type Config struct {
	UserID   string
	Limits   domain.Limits
	Outbox   trackerout.Outbox
	Worker   *service.OutboxWorker
	Exporter trackerout.SessionExporter
	Log      logger.Logger
}

func NewInteractor(tracker *service.Tracker, remote trackerout.RemoteSessionStore, cfg Config) trackerin.Usecase {
	if cfg.Limits == (domain.Limits{}) {
		cfg.Limits = domain.DefaultLimits()
	}
	if cfg.Log == nil {
		cfg.Log = logger.Discard()
	}
	return &Interactor{
		tracker:  tracker,
		remote:   remote,
		outbox:   cfg.Outbox,
		worker:   cfg.Worker,
		exporter: cfg.Exporter,
		limits:   cfg.Limits,
		userID:   cfg.UserID,
		log:      cfg.Log,
	}
}

func (i *Interactor) Navigate(_ context.Context, input trackerdto.NavigateInput) error {
	return i.tracker.Navigate(input.Path)
}

func (i *Interactor) RecordInput(_ context.Context, input trackerdto.InputEvent) error {
	return i.tracker.Input(domain.InputKind(input.Kind))
}

func (i *Interactor) SetVisibility(_ context.Context, visible bool) error {
	return i.tracker.SetVisible(visible)
}

func (i *Interactor) Start(ctx context.Context) (trackerdto.StateOutput, error) {
	if i.userID == "" {
		return trackerdto.StateOutput{}, apperrors.ErrUnknownUser
	}
	if err := i.tracker.Start(ctx); err != nil {
		return trackerdto.StateOutput{}, err
	}
	out := i.State(ctx)
	if !out.Active {
		return out, fmt.Errorf("%w: the session could not be started", apperrors.ErrNoActiveSession)
	}
	return out, nil
}

// End closes the session and waits for the terminal write to be sent or
// parked, so a short-lived command never loses it.
func (i *Interactor) End(ctx context.Context) (trackerdto.EndOutput, error) {
	summary, err := i.tracker.End(ctx)
	if err != nil {
		return trackerdto.EndOutput{}, err
	}
	if err := i.tracker.Flush(ctx); err != nil {
		return trackerdto.EndOutput{}, err
	}
	out := trackerdto.EndOutput{
		SessionID:       summary.SessionID,
		Activity:        string(summary.Activity),
		StartedAt:       summary.StartTime,
		EndedAt:         summary.EndTime,
		DurationSeconds: summary.Duration,
		PausedSeconds:   summary.PausedSeconds,
		Reason:          summary.Reason,
	}
	if i.exporter != nil {
		path, err := i.exporter.Export(ctx, summary)
		if err != nil {
			i.log.Warn("export session note", summary.SessionID, err)
		} else {
			out.NotePath = path
		}
	}
	return out, nil
}

func (i *Interactor) TogglePause(ctx context.Context) (trackerdto.StateOutput, error) {
	state, err := i.tracker.TogglePause(ctx)
	if err != nil {
		return trackerdto.StateOutput{}, err
	}
	if !state.IsActive {
		return trackerdto.StateOutput{}, apperrors.ErrNoActiveSession
	}
	return i.State(ctx), nil
}

func (i *Interactor) UpdateActivityType(_ context.Context) error {
	return i.tracker.UpdateActivityType()
}

func (i *Interactor) UpdateSessionActivity(_ context.Context, input trackerdto.CountersInput) error {
	delta := domain.Counters{
		ItemsReviewed:  input.ItemsReviewed,
		CorrectAnswers: input.CorrectAnswers,
		QuizScore:      input.QuizScore,
		QuizTotal:      input.QuizTotal,
		NotesCreated:   input.NotesCreated,
		NotesReviewed:  input.NotesReviewed,
	}
	if delta.IsZero() {
		return fmt.Errorf("%w: no counters to add", apperrors.ErrInvalidInput)
	}
	return i.tracker.UpdateSessionActivity(delta)
}

func (i *Interactor) State(_ context.Context) trackerdto.StateOutput {
	return toStateOutput(i.tracker.Phase(), i.tracker.State())
}

func (i *Interactor) History(ctx context.Context, input trackerdto.HistoryInput) (trackerdto.HistoryOutput, error) {
	if i.userID == "" {
		return trackerdto.HistoryOutput{}, apperrors.ErrUnknownUser
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	records, err := i.remote.ListRecent(ctx, i.userID, limit)
	if err != nil {
		return trackerdto.HistoryOutput{}, err
	}
	out := trackerdto.HistoryOutput{Items: make([]trackerdto.HistoryItem, 0, len(records))}
	total := 0
	for _, r := range records {
		duration := i.limits.SanitizeDuration(r.Duration)
		total += duration
		out.Items = append(out.Items, trackerdto.HistoryItem{
			ID:              r.ID,
			Title:           r.Title,
			Activity:        string(r.ActivityType),
			StartTime:       r.StartTime,
			EndTime:         r.EndTime,
			DurationSeconds: duration,
			Hours:           i.limits.SanitizeHours(float64(duration) / float64(time.Hour/time.Second)),
			Active:          r.IsActive,
			AutoCreated:     r.AutoCreated,
			ItemsReviewed:   r.Counters.ItemsReviewed,
			CorrectAnswers:  r.Counters.CorrectAnswers,
		})
	}
	out.TotalSeconds = domain.ClampTotal(total)
	out.TotalHours = float64(out.TotalSeconds) / float64(time.Hour/time.Second)
	return out, nil
}

func (i *Interactor) DrainOutbox(ctx context.Context) (trackerdto.DrainOutput, error) {
	if i.worker == nil {
		return trackerdto.DrainOutput{}, fmt.Errorf("%w: outbox is not configured", apperrors.ErrInvalidInput)
	}
	res, err := i.worker.Drain(ctx)
	if err != nil {
		return trackerdto.DrainOutput{}, err
	}
	return trackerdto.DrainOutput{Sent: res.Sent, Retried: res.Retried, Dropped: res.Dropped, Depth: res.Depth}, nil
}

func (i *Interactor) OutboxStatus(ctx context.Context) (trackerdto.OutboxStatusOutput, error) {
	if i.outbox == nil {
		return trackerdto.OutboxStatusOutput{}, nil
	}
	depth, err := i.outbox.Depth(ctx)
	if err != nil {
		return trackerdto.OutboxStatusOutput{}, err
	}
	return trackerdto.OutboxStatusOutput{Depth: depth}, nil
}

func (i *Interactor) Flush(ctx context.Context) error {
	return i.tracker.Flush(ctx)
}

func toStateOutput(phase domain.Phase, s domain.SessionState) trackerdto.StateOutput {
	out := trackerdto.StateOutput{
		SessionID:      s.SessionID,
		Phase:          phase.String(),
		Active:         s.IsActive,
		Paused:         s.IsPaused,
		PauseReason:    string(s.PauseReason),
		Activity:       string(s.CurrentActivity),
		ElapsedSeconds: s.ElapsedSeconds,
		PausedSeconds:  s.PausedSeconds,
	}
	if s.StartTime != nil {
		start := *s.StartTime
		out.StartTime = &start
	}
	return out
}
