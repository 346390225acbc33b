package in

import (
	"context"

	trackerdto "notegenius/internal/modules/tracker/dto"
	trackerin "notegenius/internal/modules/tracker/port/in"
)

type CLIHandler struct {
	usecase trackerin.Usecase
}

func NewCLIHandler(usecase trackerin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Navigate(ctx context.Context, path string) error {
	return h.usecase.Navigate(ctx, trackerdto.NavigateInput{Path: path})
}

func (h CLIHandler) Input(ctx context.Context, kind string) error {
	return h.usecase.RecordInput(ctx, trackerdto.InputEvent{Kind: kind})
}

func (h CLIHandler) SetVisible(ctx context.Context, visible bool) error {
	return h.usecase.SetVisibility(ctx, visible)
}

func (h CLIHandler) Start(ctx context.Context) (trackerdto.StateOutput, error) {
	return h.usecase.Start(ctx)
}

func (h CLIHandler) End(ctx context.Context) (trackerdto.EndOutput, error) {
	return h.usecase.End(ctx)
}

func (h CLIHandler) TogglePause(ctx context.Context) (trackerdto.StateOutput, error) {
	return h.usecase.TogglePause(ctx)
}

func (h CLIHandler) Reclassify(ctx context.Context) error {
	return h.usecase.UpdateActivityType(ctx)
}

func (h CLIHandler) AddCounters(ctx context.Context, input trackerdto.CountersInput) error {
	if err := h.usecase.UpdateSessionActivity(ctx, input); err != nil {
		return err
	}
	return h.usecase.Flush(ctx)
}

func (h CLIHandler) Status(ctx context.Context) trackerdto.StateOutput {
	return h.usecase.State(ctx)
}

func (h CLIHandler) History(ctx context.Context, limit int) (trackerdto.HistoryOutput, error) {
	return h.usecase.History(ctx, trackerdto.HistoryInput{Limit: limit})
}

func (h CLIHandler) DrainOutbox(ctx context.Context) (trackerdto.DrainOutput, error) {
	return h.usecase.DrainOutbox(ctx)
}

func (h CLIHandler) OutboxStatus(ctx context.Context) (trackerdto.OutboxStatusOutput, error) {
	return h.usecase.OutboxStatus(ctx)
}

func (h CLIHandler) Flush(ctx context.Context) error {
	return h.usecase.Flush(ctx)
}
