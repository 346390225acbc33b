package out

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"notegenius/internal/modules/tracker/domain"
	trackerout "notegenius/internal/modules/tracker/port/out"
	"notegenius/internal/ui/theme"
)

// ConsoleNotifier prints notifications as styled lines.
type ConsoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

var _ trackerout.Notifier = (*ConsoleNotifier)(nil)

func (n *ConsoleNotifier) Notify(note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintln(n.w, Render(note))
}

// Render formats a notification for a terminal line.
func Render(note domain.Notification) string {
	parts := []string{
		theme.Severity(string(note.Severity)).Render(strings.ToUpper(string(note.Severity))),
		theme.Title.Render(note.Title),
	}
	if note.Description != "" {
		parts = append(parts, theme.Muted.Render(note.Description))
	}
	return strings.Join(parts, " ")
}

// FuncNotifier adapts a function, used by the TUI to route notifications
// into its message loop.
type FuncNotifier func(domain.Notification)

func (f FuncNotifier) Notify(note domain.Notification) {
	f(note)
}

// MultiNotifier fans a notification out to several notifiers.
type MultiNotifier []trackerout.Notifier

func (m MultiNotifier) Notify(note domain.Notification) {
	for _, n := range m {
		if n != nil {
			n.Notify(note)
		}
	}
}
