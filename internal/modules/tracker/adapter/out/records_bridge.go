package out

import (
	"context"
	"errors"

	recordsdto "notegenius/internal/modules/records/dto"
	recordsin "notegenius/internal/modules/records/port/in"
	"notegenius/internal/modules/tracker/domain"
	trackerout "notegenius/internal/modules/tracker/port/out"
	apperrors "notegenius/internal/platform/errors"
)

// RecordsBridge serves the remote store from the records module in the same
// process.
type RecordsBridge struct {
	records recordsin.Usecase
}

func NewRecordsBridge(records recordsin.Usecase) trackerout.RemoteSessionStore {
	return &RecordsBridge{records: records}
}

func (b *RecordsBridge) FindActive(ctx context.Context, userID string) (domain.Record, bool, error) {
	out, err := b.records.FindActive(ctx, userID)
	if errors.Is(err, apperrors.ErrNoActiveSession) {
		return domain.Record{}, false, nil
	}
	if err != nil {
		return domain.Record{}, false, err
	}
	return fromRecordOutput(out), true, nil
}

func (b *RecordsBridge) InsertOrGetActive(ctx context.Context, record domain.Record) (domain.Record, bool, error) {
	out, err := b.records.Claim(ctx, toCreateInput(record))
	if err != nil {
		return domain.Record{}, false, err
	}
	return fromRecordOutput(out.Record), out.Adopted, nil
}

func (b *RecordsBridge) Insert(ctx context.Context, record domain.Record) (string, error) {
	out, err := b.records.Insert(ctx, toCreateInput(record))
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

func (b *RecordsBridge) Update(ctx context.Context, id string, patch domain.Patch) error {
	_, err := b.records.Update(ctx, id, toUpdateInput(patch))
	return err
}

func (b *RecordsBridge) IncrementCounters(ctx context.Context, id string, delta domain.Counters) error {
	_, err := b.records.IncrementCounters(ctx, id, toCountersInput(delta))
	return err
}

func (b *RecordsBridge) ListRecent(ctx context.Context, userID string, limit int) ([]domain.Record, error) {
	outs, err := b.records.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	records := make([]domain.Record, 0, len(outs))
	for _, out := range outs {
		records = append(records, fromRecordOutput(out))
	}
	return records, nil
}

func toCreateInput(r domain.Record) recordsdto.CreateInput {
	return recordsdto.CreateInput{
		UserID:       r.UserID,
		Title:        r.Title,
		StartTime:    r.StartTime,
		ActivityType: string(r.ActivityType),
		AutoCreated:  r.AutoCreated,
		Counters:     toCountersInput(r.Counters),
	}
}

func toUpdateInput(p domain.Patch) recordsdto.UpdateInput {
	in := recordsdto.UpdateInput{EndTime: p.EndTime, Duration: p.Duration, IsActive: p.IsActive}
	if p.ActivityType != nil {
		activity := string(*p.ActivityType)
		in.ActivityType = &activity
	}
	return in
}

func toCountersInput(c domain.Counters) recordsdto.CountersInput {
	return recordsdto.CountersInput{
		ItemsReviewed:  c.ItemsReviewed,
		CorrectAnswers: c.CorrectAnswers,
		QuizScore:      c.QuizScore,
		QuizTotal:      c.QuizTotal,
		NotesCreated:   c.NotesCreated,
		NotesReviewed:  c.NotesReviewed,
	}
}

func fromRecordOutput(out recordsdto.RecordOutput) domain.Record {
	return domain.Record{
		ID:           out.ID,
		UserID:       out.UserID,
		Title:        out.Title,
		StartTime:    out.StartTime,
		EndTime:      out.EndTime,
		Duration:     out.Duration,
		IsActive:     out.IsActive,
		ActivityType: domain.Activity(out.ActivityType),
		AutoCreated:  out.AutoCreated,
		Counters: domain.Counters{
			ItemsReviewed:  out.Counters.ItemsReviewed,
			CorrectAnswers: out.Counters.CorrectAnswers,
			QuizScore:      out.Counters.QuizScore,
			QuizTotal:      out.Counters.QuizTotal,
			NotesCreated:   out.Counters.NotesCreated,
			NotesReviewed:  out.Counters.NotesReviewed,
		},
	}
}
