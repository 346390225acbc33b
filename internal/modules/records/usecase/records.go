package usecase

import (
	"context"

	"notegenius/internal/modules/records/domain"
	"notegenius/internal/modules/records/dto"
	recordsin "notegenius/internal/modules/records/port/in"
	"notegenius/internal/modules/records/service"
	apperrors "notegenius/internal/platform/errors"
)

type Interactor struct {
	svc *service.RecordService
}

func NewInteractor(svc *service.RecordService) recordsin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Insert(ctx context.Context, input dto.CreateInput) (dto.RecordOutput, error) {
	record, err := i.svc.Insert(ctx, fromCreate(input))
	if err != nil {
		return dto.RecordOutput{}, err
	}
	return toOutput(record), nil
}

func (i *Interactor) Claim(ctx context.Context, input dto.CreateInput) (dto.ClaimOutput, error) {
	record, adopted, err := i.svc.Claim(ctx, fromCreate(input))
	if err != nil {
		return dto.ClaimOutput{}, err
	}
	return dto.ClaimOutput{Record: toOutput(record), Adopted: adopted}, nil
}

func (i *Interactor) Update(ctx context.Context, id string, input dto.UpdateInput) (dto.RecordOutput, error) {
	record, err := i.svc.Update(ctx, id, domain.Patch{
		EndTime:      input.EndTime,
		Duration:     input.Duration,
		IsActive:     input.IsActive,
		ActivityType: input.ActivityType,
		Title:        input.Title,
	})
	if err != nil {
		return dto.RecordOutput{}, err
	}
	return toOutput(record), nil
}

func (i *Interactor) IncrementCounters(ctx context.Context, id string, input dto.CountersInput) (dto.RecordOutput, error) {
	record, err := i.svc.IncrementCounters(ctx, id, fromCounters(input))
	if err != nil {
		return dto.RecordOutput{}, err
	}
	return toOutput(record), nil
}

func (i *Interactor) FindActive(ctx context.Context, userID string) (dto.RecordOutput, error) {
	record, ok, err := i.svc.FindActive(ctx, userID)
	if err != nil {
		return dto.RecordOutput{}, err
	}
	if !ok {
		return dto.RecordOutput{}, apperrors.ErrNoActiveSession
	}
	return toOutput(record), nil
}

func (i *Interactor) ListByUser(ctx context.Context, userID string, limit int) ([]dto.RecordOutput, error) {
	records, err := i.svc.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RecordOutput, 0, len(records))
	for _, record := range records {
		out = append(out, toOutput(record))
	}
	return out, nil
}

func fromCreate(input dto.CreateInput) domain.Record {
	return domain.Record{
		UserID:       input.UserID,
		Title:        input.Title,
		Subject:      input.Subject,
		StartTime:    input.StartTime,
		ActivityType: input.ActivityType,
		AutoCreated:  input.AutoCreated,
		Counters:     fromCounters(input.Counters),
	}
}

func fromCounters(input dto.CountersInput) domain.Counters {
	return domain.Counters{
		ItemsReviewed:  input.ItemsReviewed,
		CorrectAnswers: input.CorrectAnswers,
		QuizScore:      input.QuizScore,
		QuizTotal:      input.QuizTotal,
		NotesCreated:   input.NotesCreated,
		NotesReviewed:  input.NotesReviewed,
	}
}

func toOutput(record domain.Record) dto.RecordOutput {
	return dto.RecordOutput{
		ID:           record.ID,
		UserID:       record.UserID,
		Title:        record.Title,
		Subject:      record.Subject,
		StartTime:    record.StartTime,
		EndTime:      record.EndTime,
		Duration:     record.Duration,
		IsActive:     record.IsActive,
		ActivityType: record.ActivityType,
		AutoCreated:  record.AutoCreated,
		Counters: dto.CountersInput{
			ItemsReviewed:  record.Counters.ItemsReviewed,
			CorrectAnswers: record.Counters.CorrectAnswers,
			QuizScore:      record.Counters.QuizScore,
			QuizTotal:      record.Counters.QuizTotal,
			NotesCreated:   record.Counters.NotesCreated,
			NotesReviewed:  record.Counters.NotesReviewed,
		},
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
