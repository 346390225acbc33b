package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"notegenius/internal/bootstrap"
	trackerdto "notegenius/internal/modules/tracker/dto"
	"notegenius/internal/platform/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	dataDir string
	userID  string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "notegenius",
		Short:         "Continuous study session tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dataDir, "data", defaultDataDir(), "data directory")
	root.PersistentFlags().StringVar(&flags.userID, "user", "", "user id (overrides config)")

	root.AddCommand(newTUICmd(flags))
	root.AddCommand(newSessionCmd(flags))
	root.AddCommand(newOutboxCmd(flags))
	root.AddCommand(newServeCmd(flags))
	return root
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + string(os.PathSeparator) + "notegenius"
	}
	return ".notegenius"
}

func loadApp(flags *globalFlags) (*bootstrap.App, error) {
	cfg, err := config.New(flags.dataDir)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(flags.userID) != "" {
		cfg.UserID = strings.TrimSpace(flags.userID)
	}
	return bootstrap.New(cfg, bootstrap.Options{Console: os.Stderr})
}

func withApp(flags *globalFlags, fn func(app *bootstrap.App) error) (err error) {
	app, err := loadApp(flags)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(app)
}

func newTUICmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal UI with live session tracking",
		RunE: func(_ *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("tui needs an interactive terminal")
			}
			cfg, err := config.New(flags.dataDir)
			if err != nil {
				return err
			}
			if strings.TrimSpace(flags.userID) != "" {
				cfg.UserID = strings.TrimSpace(flags.userID)
			}
			// Notifications render inside the program, not on stderr.
			app, err := bootstrap.New(cfg, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			return bootstrap.RunTUI(app)
		},
	}
}

func newSessionCmd(flags *globalFlags) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Study session lifecycle"}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start a session or report the one already running",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(app *bootstrap.App) error {
				out, err := app.TrackerCLI.Start(cmd.Context())
				if err != nil {
					return err
				}
				printState(cmd, out)
				return nil
			})
		},
	}

	end := &cobra.Command{
		Use:   "end",
		Short: "End the active session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(app *bootstrap.App) error {
				out, err := app.TrackerCLI.End(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session ended: %s activity=%s duration=%s paused=%s reason=%s\n",
					out.SessionID, out.Activity, formatSeconds(out.DurationSeconds), formatSeconds(out.PausedSeconds), out.Reason)
				if out.NotePath != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "note=%s\n", out.NotePath)
				}
				return nil
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current session state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(app *bootstrap.App) error {
				printState(cmd, app.TrackerCLI.Status(cmd.Context()))
				return nil
			})
		},
	}

	pause := &cobra.Command{
		Use:   "pause",
		Short: "Toggle a user pause on the active session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(app *bootstrap.App) error {
				out, err := app.TrackerCLI.TogglePause(cmd.Context())
				if err != nil {
					return err
				}
				printState(cmd, out)
				return nil
			})
		},
	}

	navigate := &cobra.Command{
		Use:   "navigate <path>",
		Short: "Report a route change to the tracker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *bootstrap.App) error {
				if err := app.TrackerCLI.Navigate(cmd.Context(), args[0]); err != nil {
					return err
				}
				if err := app.TrackerCLI.Flush(cmd.Context()); err != nil {
					return err
				}
				printState(cmd, app.TrackerCLI.Status(cmd.Context()))
				return nil
			})
		},
	}

	activity := &cobra.Command{
		Use:   "activity",
		Short: "Reclassify the activity from the current route",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(app *bootstrap.App) error {
				if err := app.TrackerCLI.Reclassify(cmd.Context()); err != nil {
					return err
				}
				if err := app.TrackerCLI.Flush(cmd.Context()); err != nil {
					return err
				}
				printState(cmd, app.TrackerCLI.Status(cmd.Context()))
				return nil
			})
		},
	}

	var counters trackerdto.CountersInput
	count := &cobra.Command{
		Use:   "count",
		Short: "Add activity counters to the active session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(app *bootstrap.App) error {
				if err := app.TrackerCLI.AddCounters(cmd.Context(), counters); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "counters recorded")
				return nil
			})
		},
	}
	count.Flags().IntVar(&counters.ItemsReviewed, "reviewed", 0, "items reviewed")
	count.Flags().IntVar(&counters.CorrectAnswers, "correct", 0, "correct answers")
	count.Flags().IntVar(&counters.QuizScore, "quiz-score", 0, "quiz score")
	count.Flags().IntVar(&counters.QuizTotal, "quiz-total", 0, "quiz total")
	count.Flags().IntVar(&counters.NotesCreated, "notes-created", 0, "notes created")
	count.Flags().IntVar(&counters.NotesReviewed, "notes-reviewed", 0, "notes reviewed")

	var limit int
	history := &cobra.Command{
		Use:   "history",
		Short: "List recent sessions with sanitized durations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(app *bootstrap.App) error {
				out, err := app.TrackerCLI.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(out.Items) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
					return nil
				}
				for _, item := range out.Items {
					state := "ended"
					if item.Active {
						state = "active"
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%.2fh\t%s\n",
						item.ID, item.StartTime.Local().Format(time.DateTime), item.Activity, formatSeconds(item.DurationSeconds), item.Hours, state)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "total %s (%.2fh)\n", formatSeconds(out.TotalSeconds), out.TotalHours)
				return nil
			})
		},
	}
	history.Flags().IntVar(&limit, "limit", 20, "number of sessions")

	session.AddCommand(start, end, status, pause, navigate, activity, count, history)
	return session
}

func newOutboxCmd(flags *globalFlags) *cobra.Command {
	outbox := &cobra.Command{Use: "outbox", Short: "Pending session writes"}

	outbox.AddCommand(&cobra.Command{
		Use:   "drain",
		Short: "Retry due writes now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(app *bootstrap.App) error {
				out, err := app.TrackerCLI.DrainOutbox(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sent=%d retried=%d dropped=%d pending=%d\n", out.Sent, out.Retried, out.Dropped, out.Depth)
				return nil
			})
		},
	})

	outbox.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show how many writes are pending",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(app *bootstrap.App) error {
				out, err := app.TrackerCLI.OutboxStatus(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pending=%d\n", out.Depth)
				return nil
			})
		},
	})
	return outbox
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the session records API with metrics",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(flags, func(app *bootstrap.App) error {
				return bootstrap.Serve(ctx, app)
			})
		},
	}
}

func printState(cmd *cobra.Command, s trackerdto.StateOutput) {
	if !s.Active {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "no active session (%s)\n", s.Phase)
		return
	}
	line := fmt.Sprintf("session %s phase=%s activity=%s elapsed=%s", s.SessionID, s.Phase, s.Activity, formatSeconds(s.ElapsedSeconds))
	if s.Paused {
		line += " paused=" + s.PauseReason
	}
	if s.StartTime != nil {
		line += " started=" + s.StartTime.Local().Format(time.DateTime)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
}

func formatSeconds(seconds int) string {
	return (time.Duration(seconds) * time.Second).String()
}
