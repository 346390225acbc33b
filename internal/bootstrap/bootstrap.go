package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	recordsinadapter "notegenius/internal/modules/records/adapter/in"
	recordsoutadapter "notegenius/internal/modules/records/adapter/out"
	recordsservice "notegenius/internal/modules/records/service"
	recordsusecase "notegenius/internal/modules/records/usecase"
	trackerinadapter "notegenius/internal/modules/tracker/adapter/in"
	trackeroutadapter "notegenius/internal/modules/tracker/adapter/out"
	"notegenius/internal/modules/tracker/domain"
	trackerout "notegenius/internal/modules/tracker/port/out"
	trackerservice "notegenius/internal/modules/tracker/service"
	trackerusecase "notegenius/internal/modules/tracker/usecase"
	"notegenius/internal/platform/clock"
	"notegenius/internal/platform/config"
	"notegenius/internal/platform/id"
	"notegenius/internal/platform/logger"
	uiapp "notegenius/internal/ui/app"
)

// Version is stamped into Rollbar reports.
var Version = "dev"

type App struct {
	Config      config.Config
	Log         logger.Logger
	TrackerCLI  trackerinadapter.CLIHandler
	RecordsHTTP recordsinadapter.HTTPHandler
	Registry    *prometheus.Registry

	worker  *trackerservice.OutboxWorker
	relay   *relayNotifier
	closers []func() error
	flush   func()
}

type Options struct {
	// Console receives notifications outside the TUI; nil keeps them silent.
	Console io.Writer
}

func New(cfg config.Config, opts Options) (_ *App, err error) {
	clk := clock.SystemClock{}
	ids := id.UUID{}
	app := &App{Config: cfg, Registry: prometheus.NewRegistry(), relay: &relayNotifier{}}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	base := logger.New(os.Stderr, cfg.Debug)
	app.Log = base
	if cfg.Rollbar.Token != "" {
		rb := logger.NewRollbar(logger.RollbarOptions{
			Token:       cfg.Rollbar.Token,
			Environment: cfg.Env,
			CodeVersion: Version,
			UserID:      cfg.UserID,
		}, base)
		app.Log = rb
		app.flush = rb.Close
	}
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	recordsRepo, err := recordsoutadapter.NewSQLiteRepository(cfg.RecordsDBPath, clk)
	if err != nil {
		return nil, fmt.Errorf("new records repository: %w", err)
	}
	app.closers = append(app.closers, recordsRepo.Close)
	recordsUC := recordsusecase.NewInteractor(recordsservice.NewRecordService(clk, ids, recordsRepo))
	app.RecordsHTTP = recordsinadapter.NewHTTPHandler(recordsUC, app.Log)

	var remote trackerout.RemoteSessionStore
	switch cfg.Remote.Mode {
	case config.RemoteModeHTTP:
		remote, err = trackeroutadapter.NewHTTPRemoteStore(cfg.Remote.URL, cfg.Remote.Timeout)
		if err != nil {
			return nil, fmt.Errorf("new http remote store: %w", err)
		}
	default:
		remote = trackeroutadapter.NewRecordsBridge(recordsUC)
	}

	outbox, err := trackeroutadapter.NewSQLiteOutbox(cfg.ClientDBPath)
	if err != nil {
		return nil, fmt.Errorf("new outbox: %w", err)
	}
	app.closers = append(app.closers, outbox.Close)
	metrics := trackeroutadapter.NewPromMetrics(app.Registry)

	notifiers := trackeroutadapter.MultiNotifier{app.relay}
	if opts.Console != nil {
		notifiers = append(notifiers, trackeroutadapter.NewConsoleNotifier(opts.Console))
	}
	if cfg.Notify.Plugin != "" {
		plugin, perr := trackeroutadapter.NewPluginNotifier(cfg.Notify.Plugin, app.Log)
		if perr != nil {
			app.Log.Warn("notify plugin unavailable", cfg.Notify.Plugin, perr)
		} else {
			notifiers = append(notifiers, plugin)
			app.closers = append(app.closers, plugin.Close)
		}
	}

	limits := domain.Limits{
		MaxSession: cfg.Session.MaxDuration,
		MinSession: cfg.Session.MinDuration,
		ClockSkew:  domain.DefaultLimits().ClockSkew,
	}
	tracker, err := trackerservice.New(trackerservice.Deps{
		Clock:    clk,
		Remote:   remote,
		Local:    trackeroutadapter.NewFileLocalStore(cfg.LocalDir),
		Notifier: notifiers,
		Outbox:   outbox,
		Metrics:  metrics,
		Log:      app.Log,
	}, trackerservice.Options{
		UserID:            cfg.UserID,
		StudyRoutes:       cfg.StudyRoutes,
		Idle:              trackerservice.IdleThresholds{Warn: cfg.Inactivity.Warn, Pause: cfg.Inactivity.Pause, End: cfg.Inactivity.End},
		Limits:            limits,
		ExcludePausedTime: cfg.Session.ExcludePausedTime,
		RemoteTimeout:     cfg.Remote.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("new tracker: %w", err)
	}
	// The tracker goes first so its in-flight writes still find the outbox.
	app.closers = append([]func() error{tracker.Close}, app.closers...)

	app.worker = trackerservice.NewOutboxWorker(outbox, remote, clk, metrics, app.Log, cfg.Outbox.MaxAttempts)
	var exporter trackerout.SessionExporter
	if cfg.Export.Dir != "" {
		exporter = trackeroutadapter.NewMarkdownExporter(cfg.Export.Dir)
	}
	trackerUC := trackerusecase.NewInteractor(tracker, remote, trackerusecase.Config{
		UserID:   cfg.UserID,
		Limits:   limits,
		Outbox:   outbox,
		Worker:   app.worker,
		Exporter: exporter,
		Log:      app.Log,
	})
	app.TrackerCLI = trackerinadapter.NewCLIHandler(trackerUC)
	return app, nil
}

// Close stops the tracker and releases stores in order.
func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.flush != nil {
		a.flush()
		a.flush = nil
	}
	return errors.Join(errs...)
}

// RunOutbox drains the outbox on the configured interval until ctx ends.
func (a *App) RunOutbox(ctx context.Context) {
	a.worker.Run(ctx, a.Config.Outbox.Interval)
}

func RunTUI(app *App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := uiapp.NewModel(app.TrackerCLI, app.Config.StudyRoutes)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithMouseCellMotion())
	// Send blocks until the program reads it, and notifications are raised
	// from inside tracker calls that Update may be waiting on.
	app.relay.set(trackeroutadapter.FuncNotifier(func(n domain.Notification) {
		go program.Send(uiapp.NoticeMsg{Title: n.Title, Description: n.Description, Severity: string(n.Severity)})
	}))
	defer app.relay.set(nil)

	go app.RunOutbox(ctx)
	_, err := program.Run()
	return err
}

// Serve runs the records API with metrics until ctx is cancelled.
func Serve(ctx context.Context, app *App) error {
	e := recordsinadapter.NewServer(app.RecordsHTTP, app.Config.Debug, func(e *echo.Echo) {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})))
		e.GET("/healthz", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
		})
	})
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(app.Config.Server.Addr)
	}()
	app.Log.Info("records api listening", app.Config.Server.Addr)
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Remote.Timeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}

// relayNotifier forwards to a sink installed after the tracker was built.
type relayNotifier struct {
	mu   sync.RWMutex
	sink trackerout.Notifier
}

func (r *relayNotifier) set(sink trackerout.Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

func (r *relayNotifier) Notify(n domain.Notification) {
	r.mu.RLock()
	sink := r.sink
	r.mu.RUnlock()
	if sink != nil {
		sink.Notify(n)
	}
}
