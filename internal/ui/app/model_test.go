package app

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	trackerdto "notegenius/internal/modules/tracker/dto"
	apperrors "notegenius/internal/platform/errors"
	"notegenius/internal/ui/components"
)

type fakeTracker struct {
	mu       sync.Mutex
	paths    []string
	inputs   []string
	counters []trackerdto.CountersInput
	state    trackerdto.StateOutput
}

func (f *fakeTracker) Navigate(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return nil
}

func (f *fakeTracker) Input(_ context.Context, kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, kind)
	return nil
}

func (f *fakeTracker) SetVisible(context.Context, bool) error { return nil }

func (f *fakeTracker) Start(context.Context) (trackerdto.StateOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = trackerdto.StateOutput{Active: true, Phase: "running", Activity: "flashcard_study", ElapsedSeconds: 5}
	return f.state, nil
}

func (f *fakeTracker) End(context.Context) (trackerdto.EndOutput, error) {
	return trackerdto.EndOutput{}, apperrors.ErrNoActiveSession
}

func (f *fakeTracker) TogglePause(context.Context) (trackerdto.StateOutput, error) {
	return trackerdto.StateOutput{}, apperrors.ErrNoActiveSession
}

func (f *fakeTracker) Reclassify(context.Context) error { return nil }

func (f *fakeTracker) AddCounters(_ context.Context, in trackerdto.CountersInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, in)
	return nil
}

func (f *fakeTracker) Status(context.Context) trackerdto.StateOutput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// drive runs cmd and feeds every resulting message back into the model.
// Ticks are never produced by the paths under test.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			m = drive(t, m, c)
		}
	default:
		next, follow := m.Update(msg)
		m = drive(t, next.(Model), follow)
	}
	return m
}

func press(t *testing.T, m Model, keys string) Model {
	t.Helper()
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	next, cmd := m.Update(msg)
	return drive(t, next.(Model), cmd)
}

func TestTabKeysNavigate(t *testing.T) {
	t.Parallel()
	tracker := &fakeTracker{}
	m := NewModel(tracker, []string{"/flashcards", "/notes"})

	m = press(t, m, "2")
	if m.activeTab != tabFlashcards {
		t.Fatalf("expected flashcards tab, got %d", m.activeTab)
	}
	if len(tracker.paths) != 1 || tracker.paths[0] != "/flashcards" {
		t.Fatalf("unexpected navigation: %v", tracker.paths)
	}
	if len(tracker.inputs) != 1 || tracker.inputs[0] != "key" {
		t.Fatalf("expected the key press recorded as input, got %v", tracker.inputs)
	}

	// Re-selecting the active tab does not navigate again.
	m = press(t, m, "2")
	if len(tracker.paths) != 1 {
		t.Fatalf("expected no extra navigation, got %v", tracker.paths)
	}
	if !strings.Contains(m.renderTabBar(), "Flashcards ·") {
		t.Fatalf("expected study tabs to be marked")
	}
}

func TestStartUpdatesClock(t *testing.T) {
	t.Parallel()
	tracker := &fakeTracker{}
	m := NewModel(tracker, nil)
	m.width, m.height = 80, 24

	if !strings.Contains(m.View(), "00:00:00") {
		t.Fatalf("expected an idle clock")
	}
	m = press(t, m, "s")
	if !m.state.Active || m.status != "session running" {
		t.Fatalf("unexpected state after start: %+v status=%q", m.state, m.status)
	}
	if !strings.Contains(m.View(), "00:00:05") {
		t.Fatalf("expected the running clock in the view")
	}

	m = press(t, m, "p")
	if m.status != "session: no active session" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestPaletteCommands(t *testing.T) {
	t.Parallel()
	tracker := &fakeTracker{}
	m := NewModel(tracker, nil)

	submit := func(input string) {
		next, cmd := m.Update(components.PaletteSubmitMsg{Input: input})
		m = drive(t, next.(Model), cmd)
	}

	submit("nav /quiz")
	if m.activeTab != tabQuiz || len(tracker.paths) != 1 || tracker.paths[0] != "/quiz" {
		t.Fatalf("unexpected navigation: tab=%d paths=%v", m.activeTab, tracker.paths)
	}

	submit("review 3 2")
	submit("note")
	submit("quiz 4")
	if m.status != "usage: quiz <score> <total>" {
		t.Fatalf("unexpected status %q", m.status)
	}
	want := []trackerdto.CountersInput{{ItemsReviewed: 3, CorrectAnswers: 2}, {NotesCreated: 1}}
	if len(tracker.counters) != 2 || tracker.counters[0] != want[0] || tracker.counters[1] != want[1] {
		t.Fatalf("unexpected counters: %+v", tracker.counters)
	}

	submit("review many")
	if m.status != "not a number: many" {
		t.Fatalf("unexpected status %q", m.status)
	}
	submit("dance")
	if m.status != "unknown command: dance" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestFormatClock(t *testing.T) {
	t.Parallel()
	cases := map[int]string{0: "00:00:00", 3725: "01:02:05", -4: "00:00:00", 14400: "04:00:00"}
	for in, want := range cases {
		if got := formatClock(in); got != want {
			t.Fatalf("formatClock(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestPaletteCompletesCommand(t *testing.T) {
	t.Parallel()
	p := components.NewPalette(paletteHints...)
	p.Open()
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("rec")})
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyTab})
	if view := p.View(); !strings.Contains(view, "reclassify") || strings.Contains(view, "quiz <score>") {
		t.Fatalf("unexpected palette view:\n%s", view)
	}
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if msg, ok := cmd().(components.PaletteSubmitMsg); !ok || msg.Input != "reclassify" {
		t.Fatalf("expected the completed command, got %#v", cmd())
	}
}
