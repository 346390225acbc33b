package theme

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha.
var (
	Base     = lipgloss.Color("#1e1e2e")
	Mantle   = lipgloss.Color("#181825")
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Yellow   = lipgloss.Color("#f9e2af")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")

	App = lipgloss.NewStyle().
		Background(Base).
		Foreground(Text).
		Padding(1, 2)

	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Surface1).
		Background(Mantle).
		Foreground(Text).
		Padding(1)

	PaneActive = Pane.BorderForeground(Lavender)

	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)
	Hot   = lipgloss.NewStyle().Foreground(Peach).Bold(true)
	Tab   = lipgloss.NewStyle().Foreground(Subtext0).Padding(0, 1)

	TabActive = lipgloss.NewStyle().Foreground(Base).Background(Lavender).Bold(true).Padding(0, 1)
	Clock     = lipgloss.NewStyle().Foreground(Green).Bold(true)
	ClockIdle = lipgloss.NewStyle().Foreground(Surface1).Bold(true)
)

// Severity styles the badge of a notification by its severity name.
func Severity(severity string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(Base)
	switch severity {
	case "success":
		return base.Background(Green)
	case "warning":
		return base.Background(Yellow)
	case "error":
		return base.Background(Red)
	}
	return base.Background(Sapphire)
}
