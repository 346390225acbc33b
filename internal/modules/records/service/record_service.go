package service

import (
	"context"
	"fmt"
	"strings"

	"notegenius/internal/modules/records/domain"
	recordsout "notegenius/internal/modules/records/port/out"
	"notegenius/internal/platform/clock"
	apperrors "notegenius/internal/platform/errors"
	"notegenius/internal/platform/id"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

type RecordService struct {
	clock clock.Clock
	idGen id.Generator
	repo  recordsout.Repository
}

func NewRecordService(clock clock.Clock, idGen id.Generator, repo recordsout.Repository) *RecordService {
	return &RecordService{clock: clock, idGen: idGen, repo: repo}
}

func (s *RecordService) prepare(record domain.Record) (domain.Record, error) {
	now := s.clock.Now()
	record.ID = s.idGen.New()
	record.IsActive = record.EndTime == nil
	if record.StartTime.IsZero() {
		record.StartTime = now
	}
	if strings.TrimSpace(record.Title) == "" {
		record.Title = defaultTitle(record)
	}
	record.CreatedAt = now
	record.UpdatedAt = now
	if err := record.Validate(); err != nil {
		return domain.Record{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return record, nil
}

func (s *RecordService) Insert(ctx context.Context, record domain.Record) (domain.Record, error) {
	record, err := s.prepare(record)
	if err != nil {
		return domain.Record{}, err
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		return domain.Record{}, err
	}
	return record, nil
}

// Claim inserts an active record for the user or returns the one that the
// uniqueness constraint says already exists.
func (s *RecordService) Claim(ctx context.Context, record domain.Record) (domain.Record, bool, error) {
	record, err := s.prepare(record)
	if err != nil {
		return domain.Record{}, false, err
	}
	inserted, err := s.repo.InsertIfNoActive(ctx, record)
	if err != nil {
		return domain.Record{}, false, err
	}
	if inserted {
		return record, false, nil
	}
	existing, ok, err := s.repo.FindActive(ctx, record.UserID)
	if err != nil {
		return domain.Record{}, false, err
	}
	if !ok {
		// The competing record ended between the two statements.
		return domain.Record{}, false, fmt.Errorf("claim active session: %w", apperrors.ErrActiveSessionExists)
	}
	return existing, true, nil
}

func (s *RecordService) Update(ctx context.Context, id string, patch domain.Patch) (domain.Record, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Record{}, fmt.Errorf("%w: record id is required", apperrors.ErrInvalidInput)
	}
	if err := patch.Validate(); err != nil {
		return domain.Record{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if err := s.repo.Update(ctx, id, patch); err != nil {
		return domain.Record{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *RecordService) IncrementCounters(ctx context.Context, id string, delta domain.Counters) (domain.Record, error) {
	if err := delta.Validate(); err != nil {
		return domain.Record{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if delta.IsZero() {
		return s.repo.Get(ctx, id)
	}
	if err := s.repo.AddCounters(ctx, id, delta); err != nil {
		return domain.Record{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *RecordService) FindActive(ctx context.Context, userID string) (domain.Record, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Record{}, false, apperrors.ErrUnknownUser
	}
	return s.repo.FindActive(ctx, userID)
}

func (s *RecordService) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ErrUnknownUser
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

func defaultTitle(record domain.Record) string {
	label := strings.ReplaceAll(record.ActivityType, "_", " ")
	if label == "" {
		label = "study"
	}
	return fmt.Sprintf("%s session %s", label, record.StartTime.Format("2006-01-02 15:04"))
}
