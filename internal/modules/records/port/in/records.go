package in

import (
	"context"

	"notegenius/internal/modules/records/dto"
)

type Usecase interface {
	Insert(ctx context.Context, input dto.CreateInput) (dto.RecordOutput, error)
	// Claim inserts a new active record unless the user already has one, in
	// which case the existing record is returned with Adopted set.
	Claim(ctx context.Context, input dto.CreateInput) (dto.ClaimOutput, error)
	Update(ctx context.Context, id string, input dto.UpdateInput) (dto.RecordOutput, error)
	IncrementCounters(ctx context.Context, id string, input dto.CountersInput) (dto.RecordOutput, error)
	FindActive(ctx context.Context, userID string) (dto.RecordOutput, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]dto.RecordOutput, error)
}
