package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	trackerdto "notegenius/internal/modules/tracker/dto"
	apperrors "notegenius/internal/platform/errors"
	"notegenius/internal/ui/components"
	"notegenius/internal/ui/theme"
)

type trackerPort interface {
	Navigate(ctx context.Context, path string) error
	Input(ctx context.Context, kind string) error
	SetVisible(ctx context.Context, visible bool) error
	Start(ctx context.Context) (trackerdto.StateOutput, error)
	End(ctx context.Context) (trackerdto.EndOutput, error)
	TogglePause(ctx context.Context) (trackerdto.StateOutput, error)
	Reclassify(ctx context.Context) error
	AddCounters(ctx context.Context, input trackerdto.CountersInput) error
	Status(ctx context.Context) trackerdto.StateOutput
}

type tabID int

const (
	tabDashboard tabID = iota
	tabFlashcards
	tabNotes
	tabQuiz
	tabStudy
	tabChat
	tabCount
)

var tabLabels = [tabCount]string{
	"Dashboard", "Flashcards", "Notes", "Quiz", "Study", "Chat",
}

var tabRoutes = [tabCount]string{
	"/dashboard", "/flashcards", "/notes", "/quiz", "/study", "/chat",
}

var paletteHints = []components.Hint{
	{Usage: "start", Help: "begin a session"},
	{Usage: "end", Help: "finish and save the session"},
	{Usage: "pause", Help: "pause or resume"},
	{Usage: "nav <path>", Help: "move to another page"},
	{Usage: "reclassify", Help: "refresh the activity from the page"},
	{Usage: "review [items] [correct]"},
	{Usage: "quiz <score> <total>"},
	{Usage: "note [created] [reviewed]"},
}

const refreshInterval = time.Second

// NoticeMsg carries a tracker notification into the program.
type NoticeMsg struct {
	Title       string
	Description string
	Severity    string
}

type tickMsg time.Time

type stateMsg struct {
	state trackerdto.StateOutput
	err   error
}

type endedMsg struct {
	out trackerdto.EndOutput
	err error
}

type callDoneMsg struct {
	op  string
	err error
}

type keyMap struct {
	Tab     key.Binding
	Jump    key.Binding
	Start   key.Binding
	End     key.Binding
	Pause   key.Binding
	Review  key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:     key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next page")),
		Jump:    key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6"), key.WithHelp("1-6", "jump to page")),
		Start:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start session")),
		End:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end session")),
		Pause:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause/resume")),
		Review:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "count a review")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "commands")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Start, k.Pause, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Jump},
		{k.Start, k.End, k.Pause, k.Review},
		{k.Help, k.Palette, k.Quit},
	}
}

// Model is the root Bubble Tea model. Each tab stands in for an app route,
// so switching tabs is what drives the tracker's navigation handling.
type Model struct {
	tracker trackerPort
	study   map[tabID]bool

	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	palette   components.Palette
	state     trackerdto.StateOutput
	notice    NoticeMsg
	status    string
	width     int
	height    int
}

func NewModel(tracker trackerPort, studyRoutes []string) Model {
	study := make(map[tabID]bool, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		for _, prefix := range studyRoutes {
			if strings.HasPrefix(tabRoutes[i], prefix) {
				study[i] = true
			}
		}
	}
	return Model{
		tracker:   tracker,
		study:     study,
		activeTab: tabDashboard,
		keys:      defaultKeys(),
		help:      help.New(),
		palette:   components.NewPalette(paletteHints...),
		status:    "ready",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.navigateCmd(m.activeTab), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 72))
		m.help.Width = m.width

	case tickMsg:
		m.state = m.tracker.Status(context.Background())
		return m, tick()

	case tea.FocusMsg:
		return m, m.call("focus", func(ctx context.Context) error { return m.tracker.SetVisible(ctx, true) })

	case tea.BlurMsg:
		return m, m.call("blur", func(ctx context.Context) error { return m.tracker.SetVisible(ctx, false) })

	case tea.MouseMsg:
		kind := "pointer"
		if tea.MouseEvent(msg).IsWheel() {
			kind = "scroll"
		} else if msg.Action == tea.MouseActionPress {
			kind = "click"
		}
		return m, m.inputCmd(kind)

	case NoticeMsg:
		m.notice = msg

	case stateMsg:
		if msg.err != nil {
			m.status = describeErr("session", msg.err)
		} else {
			m.state = msg.state
			m.status = "session " + msg.state.Phase
		}

	case endedMsg:
		if msg.err != nil {
			m.status = describeErr("end", msg.err)
		} else {
			m.state = m.tracker.Status(context.Background())
			m.status = fmt.Sprintf("session ended after %s", formatClock(msg.out.DurationSeconds))
			if msg.out.NotePath != "" {
				m.status += " note=" + msg.out.NotePath
			}
		}

	case callDoneMsg:
		if msg.err != nil {
			m.status = describeErr(msg.op, msg.err)
		} else if msg.op != "" {
			m.status = msg.op + " ok"
		}

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"

	case tea.KeyMsg:
		input := m.inputCmd("key")
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, input
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			return m.switchTab((m.activeTab+1)%tabCount, input)
		case "shift+tab":
			return m.switchTab((m.activeTab+tabCount-1)%tabCount, input)
		case "1", "2", "3", "4", "5", "6":
			n, _ := strconv.Atoi(msg.String())
			return m.switchTab(tabID(n-1), input)
		case "?":
			m.showHelp = !m.showHelp
		case ":":
			return m, tea.Batch(input, m.palette.Open())
		case "s":
			return m, tea.Batch(input, m.startCmd())
		case "e":
			return m, tea.Batch(input, m.endCmd())
		case "p":
			return m, tea.Batch(input, m.pauseCmd())
		case "r":
			return m, tea.Batch(input, m.countersCmd(trackerdto.CountersInput{ItemsReviewed: 1}))
		}
		return m, input
	}
	return m, nil
}

func (m Model) switchTab(next tabID, input tea.Cmd) (tea.Model, tea.Cmd) {
	if next == m.activeTab {
		return m, input
	}
	m.activeTab = next
	return m, tea.Batch(input, m.navigateCmd(next))
}

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	contentH := m.height - lipgloss.Height(tabBar) - lipgloss.Height(statusBar)
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center, m.palette.View())
	default:
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center, m.renderSession())
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		label := tabLabels[i]
		if m.study[i] {
			label += " ·"
		}
		if i == m.activeTab {
			parts[i] = theme.TabActive.Render(label)
		} else {
			parts[i] = theme.Tab.Render(label)
		}
	}
	bar := "notegenius  " + strings.Join(parts, "")
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderSession() string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(tabLabels[m.activeTab]) + "\n\n")
	if !m.state.Active {
		sb.WriteString(theme.ClockIdle.Render(formatClock(0)) + "\n")
		if m.state.Phase == "starting" {
			sb.WriteString(theme.Muted.Render("starting session…"))
		} else {
			sb.WriteString(theme.Muted.Render("no active session, press s to start"))
		}
		return sb.String()
	}
	clock := theme.Clock
	if m.state.Paused {
		clock = theme.ClockIdle
	}
	sb.WriteString(clock.Render(formatClock(m.state.ElapsedSeconds)) + "\n")
	line := m.state.Activity
	if m.state.Paused {
		line += "  paused (" + m.state.PauseReason + ")"
	}
	sb.WriteString(theme.Muted.Render(line))
	if m.state.PausedSeconds > 0 {
		sb.WriteString("\n" + theme.Muted.Render("paused for "+formatClock(m.state.PausedSeconds)))
	}
	return sb.String()
}

func (m Model) renderStatusBar() string {
	left := m.status
	if m.notice.Title != "" {
		left = theme.Severity(m.notice.Severity).Render(m.notice.Title) + " " + theme.Muted.Render(m.notice.Description) + "  " + left
	}
	right := m.help.ShortHelpView(m.keys.ShortHelp())
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}
	var args []int
	switch parts[0] {
	case "review", "quiz", "note":
		var err error
		if args, err = atois(parts[1:]); err != nil {
			m.status = err.Error()
			return m, nil
		}
	}

	switch parts[0] {
	case "start":
		return m, m.startCmd()
	case "end":
		return m, m.endCmd()
	case "pause":
		return m, m.pauseCmd()
	case "reclassify":
		return m, m.call("reclassify", m.tracker.Reclassify)
	case "nav":
		if len(parts) < 2 {
			m.status = "usage: nav <path>"
			return m, nil
		}
		path := parts[1]
		for i := tabID(0); i < tabCount; i++ {
			if tabRoutes[i] == path {
				m.activeTab = i
			}
		}
		return m, m.call("", func(ctx context.Context) error { return m.tracker.Navigate(ctx, path) })
	case "review":
		in := trackerdto.CountersInput{ItemsReviewed: argOr(args, 0, 1), CorrectAnswers: argOr(args, 1, 0)}
		return m, m.countersCmd(in)
	case "quiz":
		if len(args) < 2 {
			m.status = "usage: quiz <score> <total>"
			return m, nil
		}
		return m, m.countersCmd(trackerdto.CountersInput{QuizScore: args[0], QuizTotal: args[1]})
	case "note":
		in := trackerdto.CountersInput{NotesCreated: argOr(args, 0, 1), NotesReviewed: argOr(args, 1, 0)}
		return m, m.countersCmd(in)
	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) call(op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return callDoneMsg{op: op, err: fn(context.Background())}
	}
}

func (m Model) inputCmd(kind string) tea.Cmd {
	return func() tea.Msg {
		if err := m.tracker.Input(context.Background(), kind); err != nil {
			return callDoneMsg{op: "input", err: err}
		}
		return nil
	}
}

func (m Model) navigateCmd(tab tabID) tea.Cmd {
	path := tabRoutes[tab]
	return m.call("", func(ctx context.Context) error { return m.tracker.Navigate(ctx, path) })
}

func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		state, err := m.tracker.Start(context.Background())
		return stateMsg{state: state, err: err}
	}
}

func (m Model) pauseCmd() tea.Cmd {
	return func() tea.Msg {
		state, err := m.tracker.TogglePause(context.Background())
		return stateMsg{state: state, err: err}
	}
}

func (m Model) endCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.tracker.End(context.Background())
		return endedMsg{out: out, err: err}
	}
}

func (m Model) countersCmd(in trackerdto.CountersInput) tea.Cmd {
	return m.call("counters", func(ctx context.Context) error { return m.tracker.AddCounters(ctx, in) })
}

func describeErr(op string, err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNoActiveSession):
		return op + ": no active session"
	case errors.Is(err, apperrors.ErrUnknownUser):
		return op + ": no user configured"
	}
	return op + ": " + err.Error()
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}

func atois(raw []string) ([]int, error) {
	out := make([]int, 0, len(raw))
	for _, r := range raw {
		n, err := strconv.Atoi(r)
		if err != nil {
			return nil, fmt.Errorf("not a number: %s", r)
		}
		out = append(out, n)
	}
	return out, nil
}

func argOr(args []int, i, fallback int) int {
	if i < len(args) {
		return args[i]
	}
	return fallback
}
