package bootstrap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"notegenius/internal/bootstrap"
	trackerdto "notegenius/internal/modules/tracker/dto"
	"notegenius/internal/platform/config"
)

// invoke opens the app on dir like one command line run and closes it again.
func invoke(t *testing.T, dir string, fn func(ctx context.Context, app *bootstrap.App)) trackerdto.StateOutput {
	t.Helper()
	cfg, err := config.New(dir)
	require.NoError(t, err)
	cfg.UserID = "user-1"
	app, err := bootstrap.New(cfg, bootstrap.Options{})
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Close()) }()

	ctx := context.Background()
	fn(ctx, app)
	require.NoError(t, app.TrackerCLI.Flush(ctx))
	return app.TrackerCLI.Status(ctx)
}

func TestNavigateAcrossInvocations(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	navigate := func(path string) trackerdto.StateOutput {
		return invoke(t, dir, func(ctx context.Context, app *bootstrap.App) {
			require.NoError(t, app.TrackerCLI.Navigate(ctx, path))
		})
	}

	state := navigate("/notes")
	require.Equal(t, "running", state.Phase)
	require.Equal(t, "note_review", state.Activity)

	state = navigate("/dashboard")
	require.Equal(t, "paused_by_navigation", state.Phase)
	require.Equal(t, "navigation", state.PauseReason)

	state = navigate("/quizzes/12")
	require.Equal(t, "running", state.Phase)
	require.Equal(t, "quiz_taking", state.Activity)
	require.Equal(t, state.SessionID, navigate("/quiz/13").SessionID)
}

func TestActivityCommandUsesRecordedRoute(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	state := invoke(t, dir, func(ctx context.Context, app *bootstrap.App) {
		_, err := app.TrackerCLI.Start(ctx)
		require.NoError(t, err)
	})
	require.Equal(t, "general", state.Activity)

	// The first route of a run only records where the user is.
	state = invoke(t, dir, func(ctx context.Context, app *bootstrap.App) {
		require.NoError(t, app.TrackerCLI.Navigate(ctx, "/flashcards/deck-3"))
	})
	require.Equal(t, "general", state.Activity)

	state = invoke(t, dir, func(ctx context.Context, app *bootstrap.App) {
		require.NoError(t, app.TrackerCLI.Reclassify(ctx))
	})
	require.Equal(t, "running", state.Phase)
	require.Equal(t, "flashcard_study", state.Activity)
}
