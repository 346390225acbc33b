package domain_test

import (
	"errors"
	"testing"
	"time"

	"notegenius/internal/modules/tracker/domain"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestClassifierMatchesPrefixes(t *testing.T) {
	t.Parallel()
	c := domain.NewClassifier([]string{"/flashcards", "/notes/", "/quiz", "/study", "/"})
	cases := []struct {
		path     string
		activity domain.Activity
		study    bool
	}{
		{"/flashcards", domain.ActivityFlashcardStudy, true},
		{"/flashcards/deck/42?side=back", domain.ActivityFlashcardStudy, true},
		{"/notes/", domain.ActivityNoteReview, true},
		{"notes#heading", domain.ActivityNoteReview, true},
		{"/quiz/7", domain.ActivityQuizTaking, true},
		{"/study", domain.ActivityGeneral, true},
		{"/notesbook", domain.ActivityNoteReview, true},
		{"/quizzes/42", domain.ActivityQuizTaking, true},
		{"/flashcardsets", domain.ActivityFlashcardStudy, true},
		{"/stats/quiz", domain.ActivityGeneral, false},
		{"/dashboard", domain.ActivityGeneral, false},
		{"/", domain.ActivityGeneral, false},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.path); got != tc.activity {
			t.Fatalf("classify %q: expected %s, got %s", tc.path, tc.activity, got)
		}
		if got := c.IsStudyRoute(tc.path); got != tc.study {
			t.Fatalf("study route %q: expected %t, got %t", tc.path, tc.study, got)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"":               "/",
		"/":              "/",
		"/notes//":       "/notes",
		" /quiz?id=1 ":   "/quiz",
		"flashcards#top": "/flashcards",
	} {
		if got := domain.NormalizePath(in); got != want {
			t.Fatalf("normalize %q: expected %q, got %q", in, want, got)
		}
	}
}

func TestClassifyNavigationEvents(t *testing.T) {
	t.Parallel()
	cases := []struct {
		prev, next bool
		kind       domain.NavTransition
		event      domain.Event
	}{
		{true, true, domain.NavStudyToStudy, domain.EventStudyNavigation},
		{false, true, domain.NavEnterStudy, domain.EventStudyNavigation},
		{true, false, domain.NavLeaveStudy, domain.EventLeaveStudy},
		{false, false, domain.NavOutsideStudy, domain.EventLeaveStudy},
	}
	for _, tc := range cases {
		kind := domain.ClassifyNavigation(tc.prev, tc.next)
		if kind != tc.kind || kind.Event() != tc.event {
			t.Fatalf("prev=%t next=%t: expected %s/%s, got %s/%s", tc.prev, tc.next, tc.kind, tc.event, kind, kind.Event())
		}
	}
}

func TestTransitions(t *testing.T) {
	t.Parallel()
	cases := []struct {
		from  domain.Phase
		event domain.Event
		to    domain.Phase
		has   domain.Effect
	}{
		{domain.PhaseNoSession, domain.EventStart, domain.PhaseStarting, domain.EffectRemoteCreate},
		{domain.PhaseEnded, domain.EventStudyNavigation, domain.PhaseStarting, domain.EffectRemoteCreate},
		{domain.PhaseStarting, domain.EventStarted, domain.PhaseRunning, domain.EffectStartTimer | domain.EffectArmIdle | domain.EffectNotifyStarted},
		{domain.PhaseStarting, domain.EventStartedAway, domain.PhasePausedByNavigation, domain.EffectMarkPaused},
		{domain.PhaseStarting, domain.EventStartedHidden, domain.PhasePausedByVisibility, domain.EffectMarkPaused},
		{domain.PhaseStarting, domain.EventStartFailed, domain.PhaseNoSession, 0},
		{domain.PhaseRunning, domain.EventLeaveStudy, domain.PhasePausedByNavigation, domain.EffectStopTimer | domain.EffectNotifyPaused},
		{domain.PhaseRunning, domain.EventHidden, domain.PhasePausedByVisibility, domain.EffectStopTimer | domain.EffectDisarmIdle},
		{domain.PhaseRunning, domain.EventIdleWarn, domain.PhaseRunning, domain.EffectNotifyIdleWarning},
		{domain.PhaseRunning, domain.EventIdlePause, domain.PhasePausedByInactivity, domain.EffectStopTimer},
		{domain.PhaseRunning, domain.EventExpired, domain.PhaseEnded, domain.EffectRemoteEnd | domain.EffectClearSnapshot},
		{domain.PhasePausedByNavigation, domain.EventStudyNavigation, domain.PhaseRunning, domain.EffectMarkResumed | domain.EffectReclassify},
		{domain.PhasePausedByVisibility, domain.EventVisible, domain.PhaseRunning, domain.EffectStartTimer},
		{domain.PhasePausedByVisibility, domain.EventVisibleAway, domain.PhasePausedByNavigation, domain.EffectMarkPaused},
		{domain.PhasePausedByInactivity, domain.EventInput, domain.PhaseRunning, domain.EffectMarkResumed | domain.EffectArmIdle},
		{domain.PhasePausedByInactivity, domain.EventHidden, domain.PhasePausedByVisibility, domain.EffectDisarmIdle},
		{domain.PhasePausedByInactivity, domain.EventIdleEnd, domain.PhaseEnded, domain.EffectRemoteEnd},
		{domain.PhasePausedByUser, domain.EventTogglePause, domain.PhaseRunning, domain.EffectNotifyResumed},
		{domain.PhasePausedByUser, domain.EventStudyNavigationHidden, domain.PhasePausedByVisibility, domain.EffectMarkPaused | domain.EffectReclassify},
		{domain.PhasePausedByNavigation, domain.EventStudyNavigationHidden, domain.PhasePausedByVisibility, domain.EffectMarkPaused | domain.EffectPersist},
	}
	for _, tc := range cases {
		tr, ok := domain.Next(tc.from, tc.event)
		if !ok {
			t.Fatalf("%s on %s: expected a transition", tc.event, tc.from)
		}
		if tr.To != tc.to {
			t.Fatalf("%s on %s: expected %s, got %s", tc.event, tc.from, tc.to, tr.To)
		}
		if !tr.Effects.Has(tc.has) {
			t.Fatalf("%s on %s: missing effects %b in %b", tc.event, tc.from, tc.has, tr.Effects)
		}
	}
}

func TestIgnoredEvents(t *testing.T) {
	t.Parallel()
	cases := []struct {
		from  domain.Phase
		event domain.Event
	}{
		{domain.PhaseNoSession, domain.EventEnd},
		{domain.PhaseNoSession, domain.EventLeaveStudy},
		{domain.PhaseStarting, domain.EventStart},
		{domain.PhaseStarting, domain.EventEnd},
		{domain.PhasePausedByUser, domain.EventInput},
		{domain.PhasePausedByUser, domain.EventVisible},
		{domain.PhasePausedByNavigation, domain.EventInput},
		{domain.PhaseEnded, domain.EventEnd},
	}
	for _, tc := range cases {
		if _, ok := domain.Next(tc.from, tc.event); ok {
			t.Fatalf("%s on %s: expected no transition", tc.event, tc.from)
		}
	}
}

func TestPhaseHelpers(t *testing.T) {
	t.Parallel()
	if domain.PhaseStarting.Active() || domain.PhaseEnded.Active() || !domain.PhasePausedByUser.Active() {
		t.Fatalf("unexpected Active results")
	}
	for _, reason := range []domain.PauseReason{domain.PauseNavigation, domain.PauseVisibility, domain.PauseInactivity, domain.PauseUser} {
		if got := domain.PhaseForPause(reason).PauseReason(); got != reason {
			t.Fatalf("round trip %q: got %q", reason, got)
		}
	}
	if domain.PhaseRunning.Paused() {
		t.Fatalf("running must not be paused")
	}
}

func TestElapsedIncludesPausedTimeByDefault(t *testing.T) {
	t.Parallel()
	start := t0
	s := domain.SessionState{SessionID: "s1", IsActive: true, StartTime: &start}
	s = s.MarkPaused(t0.Add(10*time.Minute), domain.PauseUser)
	s = s.MarkPaused(t0.Add(12*time.Minute), domain.PauseVisibility)
	now := t0.Add(15 * time.Minute)
	if got := s.ElapsedAt(now, false); got != 900 {
		t.Fatalf("expected 900s wall clock, got %d", got)
	}
	if got := s.ElapsedAt(now, true); got != 600 {
		t.Fatalf("expected 600s without the open pause, got %d", got)
	}
	s = s.MarkResumed(now)
	if s.IsPaused || s.PausedAt != nil || s.PausedSeconds != 300 || s.PauseReason != domain.PauseNone {
		t.Fatalf("unexpected resumed state: %+v", s)
	}
	if got := s.ElapsedAt(t0.Add(20*time.Minute), true); got != 900 {
		t.Fatalf("expected 900s after resume, got %d", got)
	}
}

func TestElapsedIsZeroWithoutActiveSession(t *testing.T) {
	t.Parallel()
	if got := domain.Empty().ElapsedAt(t0, false); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	future := t0.Add(time.Hour)
	s := domain.SessionState{SessionID: "s1", IsActive: true, StartTime: &future}
	if got := s.ElapsedAt(t0, false); got != 0 {
		t.Fatalf("expected negative elapsed to clamp to 0, got %d", got)
	}
}

func TestCheckState(t *testing.T) {
	t.Parallel()
	limits := domain.DefaultLimits()
	at := func(d time.Duration) *time.Time {
		v := t0.Add(d)
		return &v
	}
	cases := []struct {
		name  string
		state domain.SessionState
		want  error
	}{
		{"valid", domain.SessionState{SessionID: "s", StartTime: at(-time.Hour)}, nil},
		{"no id", domain.SessionState{StartTime: at(-time.Hour)}, domain.ErrMissingIdentity},
		{"no start", domain.SessionState{SessionID: "s"}, domain.ErrMissingIdentity},
		{"skew tolerated", domain.SessionState{SessionID: "s", StartTime: at(30 * time.Second)}, nil},
		{"future", domain.SessionState{SessionID: "s", StartTime: at(5 * time.Minute)}, domain.ErrStartInFuture},
		{"too long", domain.SessionState{SessionID: "s", StartTime: at(-5 * time.Hour)}, domain.ErrSessionTooLong},
	}
	for _, tc := range cases {
		err := limits.CheckState(tc.state, t0)
		if tc.want == nil && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestDurationBounds(t *testing.T) {
	t.Parallel()
	limits := domain.DefaultLimits()
	if got := limits.CapDuration(5 * 3600); got != 4*3600 {
		t.Fatalf("expected cap at 14400, got %d", got)
	}
	if got := limits.CapDuration(-4); got != 0 {
		t.Fatalf("expected negative to clamp, got %d", got)
	}
	if limits.Exceeded(4*3600) || !limits.Exceeded(4*3600+1) {
		t.Fatalf("ceiling is inclusive")
	}
	for in, want := range map[int]int{30: 0, 60: 60, 7200: 7200, 4*3600 + 1: 0} {
		if got := limits.SanitizeDuration(in); got != want {
			t.Fatalf("sanitize %d: expected %d, got %d", in, want, got)
		}
	}
	if limits.SanitizeHours(-1) != 0 || limits.SanitizeHours(5) != 0 || limits.SanitizeHours(1.5) != 1.5 {
		t.Fatalf("unexpected sanitized hours")
	}
}

func TestPatches(t *testing.T) {
	t.Parallel()
	p := domain.EndPatch(t0, 120)
	if p.EndTime == nil || !p.EndTime.Equal(t0) || *p.Duration != 120 || *p.IsActive {
		t.Fatalf("unexpected end patch: %+v", p)
	}
	a := domain.ActivityPatch(domain.ActivityQuizTaking)
	if a.ActivityType == nil || *a.ActivityType != domain.ActivityQuizTaking || a.EndTime != nil {
		t.Fatalf("unexpected activity patch: %+v", a)
	}
	if !(domain.Counters{}).IsZero() || (domain.Counters{QuizTotal: 1}).IsZero() {
		t.Fatalf("unexpected IsZero")
	}
}
