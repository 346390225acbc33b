package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"notegenius/internal/modules/tracker/domain"
	trackerout "notegenius/internal/modules/tracker/port/out"
	"notegenius/internal/platform/clock"
	apperrors "notegenius/internal/platform/errors"
	"notegenius/internal/platform/logger"
)

const eventBuffer = 64

// IdleThresholds is the staged inactivity ladder; zero disables a stage.
type IdleThresholds struct {
	Warn  time.Duration
	Pause time.Duration
	End   time.Duration
}

func DefaultIdleThresholds() IdleThresholds {
	return IdleThresholds{Warn: 2 * time.Minute, Pause: 3 * time.Minute, End: 15 * time.Minute}
}

type Options struct {
	UserID            string
	StudyRoutes       []string
	Idle              IdleThresholds
	Limits            domain.Limits
	ExcludePausedTime bool
	RemoteTimeout     time.Duration
	SnapshotKey       string
}

type Deps struct {
	Clock    clock.Clock
	Remote   trackerout.RemoteSessionStore
	Local    trackerout.LocalStore
	Notifier trackerout.Notifier
	Outbox   trackerout.Outbox
	Metrics  trackerout.Metrics
	Log      logger.Logger
}

type startOrigin int

const (
	originExplicit startOrigin = iota
	originNavigation
)

type view struct {
	phase domain.Phase
	state domain.SessionState
}

// Tracker owns the study session of one client process. Every trigger is
// turned into an event and applied by a single goroutine, so transitions
// never interleave. Remote calls run on their own goroutines and report
// back through completion events.
type Tracker struct {
	opts       Options
	clock      clock.Clock
	remote     trackerout.RemoteSessionStore
	notifier   trackerout.Notifier
	outbox     trackerout.Outbox
	metrics    trackerout.Metrics
	log        logger.Logger
	classifier domain.Classifier
	snapshots  *persistence

	events    chan any
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	ops       sync.WaitGroup
	published atomic.Pointer[view]
	writes    writeOrder

	// Owned by the loop goroutine.
	phase        domain.Phase
	state        domain.SessionState
	nav          watcher
	visible      bool
	timer        ticker
	idle         idleDetector
	origin       startOrigin
	adopted      bool
	inflight     int
	followUps    []domain.Event
	startWaiters []chan struct{}
	flushWaiters []chan struct{}
	replies      []func()
	lastSummary  domain.Summary
}

// New restores any persisted session and starts the event loop. Close must
// be called to stop timers and wait for in-flight remote writes.
func New(deps Deps, opts Options) (*Tracker, error) {
	if deps.Clock == nil || deps.Remote == nil || deps.Local == nil {
		return nil, fmt.Errorf("%w: tracker needs a clock, a remote store and a local store", apperrors.ErrInvalidInput)
	}
	if opts.Limits == (domain.Limits{}) {
		opts.Limits = domain.DefaultLimits()
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = 10 * time.Second
	}
	if opts.SnapshotKey == "" {
		opts.SnapshotKey = SnapshotKey
	}
	if len(opts.StudyRoutes) == 0 {
		opts.StudyRoutes = DefaultStudyRoutes
	}
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	classifier := domain.NewClassifier(opts.StudyRoutes)
	t := &Tracker{
		opts:       opts,
		clock:      deps.Clock,
		remote:     deps.Remote,
		notifier:   deps.Notifier,
		outbox:     deps.Outbox,
		metrics:    metrics,
		log:        log,
		classifier: classifier,
		snapshots:  newPersistence(deps.Local, opts.SnapshotKey, log),
		events:     make(chan any, eventBuffer),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		phase:      domain.PhaseNoSession,
		state:      domain.Empty(),
		nav:        watcher{classifier: classifier},
		visible:    true,
	}
	t.restore()
	t.publish()
	go t.run()
	return t, nil
}

// DefaultStudyRoutes is used when no study routes are configured.
var DefaultStudyRoutes = []string{"/flashcards", "/notes", "/quiz", "/study"}

func (t *Tracker) restore() {
	now := t.clock.Now()
	state, route, ok := t.snapshots.restore(now, t.opts.Limits)
	if !ok {
		return
	}
	if state.UserID != "" && t.opts.UserID != "" && state.UserID != t.opts.UserID {
		t.log.Warn("discarding session snapshot of another user", state.SessionID)
		t.snapshots.clear()
		return
	}
	state.ElapsedSeconds = state.ElapsedAt(now, t.opts.ExcludePausedTime)
	t.state = state
	t.phase = domain.PhaseRunning
	if state.IsPaused {
		t.phase = domain.PhaseForPause(state.PauseReason)
	}
	if route != "" {
		t.nav.mounted = true
		t.nav.path = domain.NormalizePath(route)
	}
	// The window was hidden when the snapshot was taken; the next visible
	// report resumes.
	if t.phase == domain.PhasePausedByVisibility {
		t.visible = false
	}
	if t.phase == domain.PhaseRunning {
		t.startTimer(now)
	}
	if t.phase == domain.PhaseRunning || t.phase == domain.PhasePausedByInactivity {
		t.armIdle()
	}
	t.persist()
	t.log.Info("study session restored", t.state.SessionID, t.phase.String())
}

// Navigate reports the current route path.
func (t *Tracker) Navigate(path string) error {
	return t.post(routeEvent{path: path})
}

// Input reports a qualifying user input event.
func (t *Tracker) Input(kind domain.InputKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: input kind %q", apperrors.ErrInvalidInput, kind)
	}
	return t.post(inputEvent{kind: kind})
}

// SetVisible reports a visibility change.
func (t *Tracker) SetVisible(visible bool) error {
	return t.post(visibilityEvent{visible: visible})
}

// Start creates or adopts a session and returns once the remote store has
// answered. It is a no-op while a session is active or being started.
func (t *Tracker) Start(ctx context.Context) error {
	done := make(chan struct{})
	if err := t.postCtx(ctx, startCmd{done: done}); err != nil {
		return err
	}
	return t.wait(ctx, done)
}

// End closes the active session locally and pushes the terminal write.
func (t *Tracker) End(ctx context.Context) (domain.Summary, error) {
	reply := make(chan endReply, 1)
	if err := t.postCtx(ctx, endCmd{reply: reply}); err != nil {
		return domain.Summary{}, err
	}
	select {
	case r := <-reply:
		return r.summary, r.err
	case <-ctx.Done():
		return domain.Summary{}, ctx.Err()
	case <-t.done:
		return domain.Summary{}, apperrors.ErrClosed
	}
}

// TogglePause flips the local pause flag without talking to the remote store.
func (t *Tracker) TogglePause(ctx context.Context) (domain.SessionState, error) {
	reply := make(chan domain.SessionState, 1)
	if err := t.postCtx(ctx, toggleCmd{reply: reply}); err != nil {
		return domain.SessionState{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return domain.SessionState{}, ctx.Err()
	case <-t.done:
		return domain.SessionState{}, apperrors.ErrClosed
	}
}

// UpdateActivityType reclassifies the current route and pushes the activity
// when it changed.
func (t *Tracker) UpdateActivityType() error {
	return t.post(reclassifyCmd{})
}

// UpdateSessionActivity adds counters to the active remote record.
func (t *Tracker) UpdateSessionActivity(delta domain.Counters) error {
	return t.post(countersCmd{delta: delta})
}

func (t *Tracker) State() domain.SessionState {
	return t.published.Load().state
}

func (t *Tracker) Phase() domain.Phase {
	return t.published.Load().phase
}

// Flush returns once every queued event is applied and no remote call is in
// flight.
func (t *Tracker) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := t.postCtx(ctx, flushCmd{done: done}); err != nil {
		return err
	}
	return t.wait(ctx, done)
}

func (t *Tracker) Close() error {
	t.closeOnce.Do(func() { close(t.quit) })
	<-t.done
	t.ops.Wait()
	return nil
}

func (t *Tracker) post(ev any) error {
	select {
	case <-t.quit:
		return apperrors.ErrClosed
	default:
	}
	select {
	case t.events <- ev:
		return nil
	case <-t.quit:
		return apperrors.ErrClosed
	}
}

func (t *Tracker) postCtx(ctx context.Context, ev any) error {
	select {
	case <-t.quit:
		return apperrors.ErrClosed
	default:
	}
	select {
	case t.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.quit:
		return apperrors.ErrClosed
	}
}

func (t *Tracker) wait(ctx context.Context, done chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return apperrors.ErrClosed
	}
}

type (
	routeEvent      struct{ path string }
	inputEvent      struct{ kind domain.InputKind }
	visibilityEvent struct{ visible bool }
	tickEvent       struct{ gen uint64 }
	deadlineEvent   struct {
		stage idleStage
		gen   uint64
	}
	startCmd      struct{ done chan struct{} }
	endCmd        struct{ reply chan endReply }
	toggleCmd     struct{ reply chan domain.SessionState }
	reclassifyCmd struct{}
	countersCmd   struct{ delta domain.Counters }
	flushCmd      struct{ done chan struct{} }
	startDone     struct {
		record  domain.Record
		adopted bool
		err     error
	}
	opDone struct {
		op  string
		err error
	}
	endReply struct {
		summary domain.Summary
		err     error
	}
)

func (t *Tracker) run() {
	defer close(t.done)
	for {
		select {
		case <-t.quit:
			t.shutdown()
			return
		case ev := <-t.events:
			t.handle(ev)
			t.drainFollowUps()
			t.publish()
			t.answer()
			t.releaseFlush()
		}
	}
}

func (t *Tracker) handle(ev any) {
	switch ev := ev.(type) {
	case routeEvent:
		t.onRoute(ev.path)
	case inputEvent:
		t.fire(domain.EventInput)
	case visibilityEvent:
		t.onVisibility(ev.visible)
	case tickEvent:
		t.onTick(ev.gen)
	case deadlineEvent:
		t.onDeadline(ev.stage, ev.gen)
	case startCmd:
		t.onStart(ev.done)
	case endCmd:
		r := t.onEnd()
		t.replies = append(t.replies, func() { ev.reply <- r })
	case toggleCmd:
		if !t.phase.Active() {
			t.log.Debug("toggle pause without an active session")
		} else {
			t.fire(domain.EventTogglePause)
		}
		t.replies = append(t.replies, func() { ev.reply <- t.state })
	case reclassifyCmd:
		t.reclassify()
		t.persist()
	case countersCmd:
		t.onCounters(ev.delta)
	case flushCmd:
		t.flushWaiters = append(t.flushWaiters, ev.done)
	case startDone:
		t.inflight--
		t.onStartDone(ev)
	case opDone:
		t.inflight--
		t.onOpDone(ev)
	default:
		t.log.Warn("tracker ignored unknown event", fmt.Sprintf("%T", ev))
	}
}

// fire applies event to the state machine. Events without a transition in
// the current phase are ignored.
func (t *Tracker) fire(event domain.Event) bool {
	tr, ok := domain.Next(t.phase, event)
	if !ok {
		t.log.Debug("event ignored", t.phase.String(), event.String())
		return false
	}
	from := t.phase
	t.phase = tr.To
	t.apply(event, tr.Effects)
	t.metrics.Transition(from, tr.To, event)
	return true
}

// followUp queues an event raised while effects of another event run.
func (t *Tracker) followUp(event domain.Event) {
	t.followUps = append(t.followUps, event)
}

func (t *Tracker) drainFollowUps() {
	for len(t.followUps) > 0 {
		event := t.followUps[0]
		t.followUps = t.followUps[1:]
		t.fire(event)
	}
}

func (t *Tracker) apply(event domain.Event, eff domain.Effect) {
	now := t.clock.Now()
	if eff.Has(domain.EffectMarkResumed) {
		t.state = t.state.MarkResumed(now)
	}
	if eff.Has(domain.EffectStopTimer) {
		t.recompute(now)
		t.timer.stop()
	}
	if eff.Has(domain.EffectMarkPaused) {
		t.state = t.state.MarkPaused(now, t.phase.PauseReason())
	}
	if eff.Has(domain.EffectDisarmIdle) {
		t.idle.disarm()
	}
	if eff.Has(domain.EffectReclassify) {
		t.reclassify()
	}
	if eff.Has(domain.EffectStartTimer) {
		t.startTimer(now)
	}
	if eff.Has(domain.EffectArmIdle) {
		t.armIdle()
	}
	if eff.Has(domain.EffectRemoteCreate) {
		t.launchStart(now)
	}
	if eff.Has(domain.EffectRemoteEnd) {
		t.finish(now, event)
	}
	if eff.Has(domain.EffectPersist) {
		t.persist()
	}
	if eff.Has(domain.EffectClearSnapshot) {
		t.snapshots.clear()
	}
	t.announce(eff)
}

func (t *Tracker) persist() {
	route := ""
	if t.nav.mounted {
		route = t.nav.path
	}
	t.snapshots.save(t.state, route)
}

func (t *Tracker) publish() {
	t.published.Store(&view{phase: t.phase, state: t.state})
}

// answer runs the replies of the handled event once its outcome is
// published, so callers that read State afterwards see it.
func (t *Tracker) answer() {
	for _, reply := range t.replies {
		reply()
	}
	t.replies = nil
}

func (t *Tracker) releaseFlush() {
	if t.inflight > 0 || len(t.flushWaiters) == 0 {
		return
	}
	for _, done := range t.flushWaiters {
		close(done)
	}
	t.flushWaiters = nil
}

func (t *Tracker) shutdown() {
	t.timer.stop()
	t.idle.disarm()
	t.releaseStartWaiters()
	t.answer()
	t.flushWaiters = nil
}

func (t *Tracker) onVisibility(visible bool) {
	if visible == t.visible {
		return
	}
	t.visible = visible
	switch {
	case !visible:
		t.fire(domain.EventHidden)
	case t.nav.onStudy():
		t.fire(domain.EventVisible)
	default:
		t.fire(domain.EventVisibleAway)
	}
}

func (t *Tracker) onStart(done chan struct{}) {
	switch {
	case t.phase == domain.PhaseStarting:
		t.startWaiters = append(t.startWaiters, done)
	case t.phase.Active():
		t.replies = append(t.replies, func() { close(done) })
	default:
		t.startWaiters = append(t.startWaiters, done)
		t.origin = originExplicit
		t.fire(domain.EventStart)
	}
}

func (t *Tracker) onEnd() endReply {
	if !t.phase.Active() {
		return endReply{err: apperrors.ErrNoActiveSession}
	}
	t.fire(domain.EventEnd)
	return endReply{summary: t.lastSummary}
}

func (t *Tracker) releaseStartWaiters() {
	for _, done := range t.startWaiters {
		t.replies = append(t.replies, func() { close(done) })
	}
	t.startWaiters = nil
}

func (t *Tracker) onStartDone(ev startDone) {
	defer t.releaseStartWaiters()
	if t.phase != domain.PhaseStarting {
		return
	}
	if ev.err != nil {
		t.metrics.RemoteFailure("start")
		t.log.Error("start study session", ev.err, t.opts.UserID)
		t.fire(domain.EventStartFailed)
		return
	}
	now := t.clock.Now()
	start := ev.record.StartTime
	activity := ev.record.ActivityType
	if !activity.Valid() {
		activity = domain.ActivityGeneral
	}
	state := domain.SessionState{
		SessionID:       ev.record.ID,
		UserID:          t.opts.UserID,
		IsActive:        true,
		StartTime:       &start,
		CurrentActivity: activity,
	}
	if err := t.opts.Limits.CheckState(state, now); err != nil {
		t.log.Warn("remote session rejected", ev.record.ID, err)
		t.fire(domain.EventStartFailed)
		return
	}
	state.ElapsedSeconds = state.ElapsedAt(now, t.opts.ExcludePausedTime)
	t.state = state
	t.adopted = ev.adopted

	event := domain.EventStarted
	switch {
	case !t.visible:
		event = domain.EventStartedHidden
	case t.origin == originNavigation && !t.nav.onStudy():
		event = domain.EventStartedAway
	}
	t.fire(event)
}

func (t *Tracker) onOpDone(ev opDone) {
	if ev.err == nil {
		return
	}
	t.metrics.RemoteFailure(ev.op)
	t.log.Warn("remote session write failed", ev.op, ev.err)
}

func (t *Tracker) onCounters(delta domain.Counters) {
	if !t.phase.Active() || delta.IsZero() {
		t.log.Debug("counters dropped without an active session")
		return
	}
	id := t.state.SessionID
	t.goRemote(func(ctx context.Context) any {
		err := t.remote.IncrementCounters(ctx, id, delta)
		return opDone{op: "counters", err: err}
	})
}

// recompute derives elapsed seconds from the start time and flags sessions
// that ran past the ceiling.
func (t *Tracker) recompute(now time.Time) {
	if !t.state.IsActive {
		return
	}
	t.state.ElapsedSeconds = t.state.ElapsedAt(now, t.opts.ExcludePausedTime)
	if t.phase == domain.PhaseRunning && t.opts.Limits.Exceeded(t.state.ElapsedAt(now, false)) {
		t.followUp(domain.EventExpired)
	}
}

func (t *Tracker) reclassify() {
	if !t.state.IsActive || !t.nav.mounted || !t.classifier.IsStudyRoute(t.nav.path) {
		return
	}
	activity := t.classifier.Classify(t.nav.path)
	if activity == t.state.CurrentActivity {
		return
	}
	t.state.CurrentActivity = activity
	t.pushPatch(trackerout.OutboxUpdate, domain.ActivityPatch(activity))
}

func (t *Tracker) finish(now time.Time, event domain.Event) {
	prev := t.state
	duration := t.opts.Limits.CapDuration(prev.ElapsedAt(now, t.opts.ExcludePausedTime))
	t.lastSummary = domain.Summary{
		SessionID:     prev.SessionID,
		UserID:        prev.UserID,
		Activity:      prev.CurrentActivity,
		StartTime:     *prev.StartTime,
		EndTime:       now,
		Duration:      duration,
		PausedSeconds: prev.MarkResumed(now).PausedSeconds,
		Reason:        event.String(),
	}
	t.pushPatch(trackerout.OutboxEnd, domain.EndPatch(now, duration))
	t.state = domain.Empty()
	t.adopted = false
}

func (t *Tracker) announce(eff domain.Effect) {
	if t.notifier == nil {
		return
	}
	switch {
	case eff.Has(domain.EffectNotifyStarted):
		n := domain.Notification{Title: "Study session started", Description: "Tracking " + activityLabel(t.state.CurrentActivity) + ".", Severity: domain.SeveritySuccess}
		if t.adopted {
			n = domain.Notification{Title: "Study session resumed", Description: "Continuing the session that is already open.", Severity: domain.SeverityInfo}
		}
		t.notifier.Notify(n)
	case eff.Has(domain.EffectNotifyPaused):
		t.notifier.Notify(domain.Notification{Title: "Study session paused", Description: pauseDescription(t.state.PauseReason, t.opts.Idle.Pause), Severity: domain.SeverityInfo})
	case eff.Has(domain.EffectNotifyResumed):
		t.notifier.Notify(domain.Notification{Title: "Study session resumed", Description: "Welcome back.", Severity: domain.SeverityInfo})
	case eff.Has(domain.EffectNotifyIdleWarning):
		t.notifier.Notify(domain.Notification{
			Title:       "Still studying?",
			Description: fmt.Sprintf("The session pauses after %s without activity.", t.opts.Idle.Pause),
			Severity:    domain.SeverityWarning,
		})
	case eff.Has(domain.EffectNotifyEnded):
		t.notifier.Notify(domain.Notification{
			Title:       "Study session ended",
			Description: fmt.Sprintf("%s studied.", time.Duration(t.lastSummary.Duration)*time.Second),
			Severity:    domain.SeveritySuccess,
		})
	}
}

func activityLabel(a domain.Activity) string {
	switch a {
	case domain.ActivityFlashcardStudy:
		return "flashcard study"
	case domain.ActivityNoteReview:
		return "note review"
	case domain.ActivityQuizTaking:
		return "quiz taking"
	}
	return "general study"
}

func pauseDescription(reason domain.PauseReason, idle time.Duration) string {
	switch reason {
	case domain.PauseNavigation:
		return "You left the study area."
	case domain.PauseInactivity:
		return fmt.Sprintf("No activity for %s.", idle)
	case domain.PauseUser:
		return "Paused until you resume."
	}
	return "The session is paused."
}

type nopMetrics struct{}

func (nopMetrics) Transition(domain.Phase, domain.Phase, domain.Event) {}
func (nopMetrics) RemoteFailure(string)                                {}
func (nopMetrics) OutboxDepth(int)                                     {}
