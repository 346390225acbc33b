package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"notegenius/internal/ui/theme"
)

const maxHints = 6

// PaletteSubmitMsg carries the trimmed command line on enter.
type PaletteSubmitMsg struct{ Input string }

// PaletteCancelMsg is sent when the palette is dismissed with esc.
type PaletteCancelMsg struct{}

// Hint documents one palette command.
type Hint struct {
	Usage string
	Help  string
}

func (h Hint) command() string {
	name, _, _ := strings.Cut(h.Usage, " ")
	return name
}

var (
	paletteBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Peach).
			Background(theme.Mantle).
			Foreground(theme.Text).
			Padding(0, 1)

	usageStyle = lipgloss.NewStyle().Foreground(theme.Lavender)
	helpStyle  = lipgloss.NewStyle().Foreground(theme.Subtext0)
)

// Palette is the ':' command line of the session screen.
type Palette struct {
	input   textinput.Model
	hints   []Hint
	visible bool
	width   int
}

func NewPalette(hints ...Hint) Palette {
	ti := textinput.New()
	ti.Placeholder = "start, end, pause, nav /notes"
	ti.CharLimit = 128
	return Palette{input: ti, hints: hints}
}

func (p Palette) Visible() bool { return p.visible }

// Open clears the line and focuses it.
func (p *Palette) Open() tea.Cmd {
	p.visible = true
	p.input.SetValue("")
	return p.input.Focus()
}

func (p *Palette) SetWidth(w int) { p.width = w }

func (p *Palette) close() {
	p.visible = false
	p.input.Blur()
}

// matches returns the hints whose command starts with the typed word.
func (p Palette) matches() []Hint {
	word, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(p.input.Value())), " ")
	var out []Hint
	for _, h := range p.hints {
		if strings.HasPrefix(h.command(), word) {
			out = append(out, h)
		}
		if len(out) == maxHints {
			break
		}
	}
	return out
}

func (p Palette) Update(msg tea.Msg) (Palette, tea.Cmd) {
	if !p.visible {
		return p, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			p.close()
			return p, func() tea.Msg { return PaletteCancelMsg{} }
		case "enter":
			line := strings.TrimSpace(p.input.Value())
			p.close()
			return p, func() tea.Msg { return PaletteSubmitMsg{Input: line} }
		case "tab":
			// Complete the command word when exactly one command fits.
			if m := p.matches(); len(m) == 1 && !strings.Contains(p.input.Value(), " ") {
				p.input.SetValue(m[0].command() + " ")
				p.input.CursorEnd()
			}
			return p, nil
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p Palette) View() string {
	if !p.visible {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Session commands") + "\n")
	sb.WriteString(": " + p.input.View() + "\n")
	if hints := p.matches(); len(hints) > 0 {
		sb.WriteString("\n")
		for _, h := range hints {
			sb.WriteString("  " + usageStyle.Render(h.Usage))
			if h.Help != "" {
				sb.WriteString("  " + helpStyle.Render(h.Help))
			}
			sb.WriteString("\n")
		}
	}
	w := p.width
	if w < 20 {
		w = 64
	}
	return paletteBox.Width(w - 2).Render(sb.String())
}
