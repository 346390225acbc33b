package in

import (
	"context"

	"notegenius/internal/modules/tracker/dto"
)

type Usecase interface {
	Navigate(ctx context.Context, input dto.NavigateInput) error
	RecordInput(ctx context.Context, input dto.InputEvent) error
	SetVisibility(ctx context.Context, visible bool) error
	Start(ctx context.Context) (dto.StateOutput, error)
	End(ctx context.Context) (dto.EndOutput, error)
	TogglePause(ctx context.Context) (dto.StateOutput, error)
	UpdateActivityType(ctx context.Context) error
	UpdateSessionActivity(ctx context.Context, input dto.CountersInput) error
	State(ctx context.Context) dto.StateOutput
	History(ctx context.Context, input dto.HistoryInput) (dto.HistoryOutput, error)
	DrainOutbox(ctx context.Context) (dto.DrainOutput, error)
	OutboxStatus(ctx context.Context) (dto.OutboxStatusOutput, error)
	Flush(ctx context.Context) error
}
