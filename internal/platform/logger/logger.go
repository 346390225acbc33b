package logger

import (
	"fmt"
	"io"
	"sort"

	hclog "github.com/hashicorp/go-hclog"
)

// Logger is the logging surface shared by services and adapters.
// args carry context values: errors, ids, maps.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// HCLogger writes leveled key/value lines through go-hclog. Each entry is
// one line, also when goroutines log concurrently.
type HCLogger struct {
	hc hclog.Logger
}

var _ Logger = (*HCLogger)(nil)

func New(w io.Writer, debug bool) *HCLogger {
	level := hclog.Info
	if debug {
		level = hclog.Debug
	}
	return &HCLogger{hc: hclog.New(&hclog.LoggerOptions{
		Name:   "notegenius",
		Level:  level,
		Output: w,
	})}
}

// Discard is a logger for tests and one-shot commands that must stay quiet.
func Discard() *HCLogger {
	return &HCLogger{hc: hclog.NewNullLogger()}
}

// Named returns the underlying hclog logger under a sub name, for libraries
// that take an hclog.Logger.
func (l *HCLogger) Named(name string) hclog.Logger {
	return l.hc.Named(name)
}

// fields turns positional context values into key/value pairs. Errors are
// keyed "error", maps are spread, anything else is keyed by position.
func fields(args []any) []any {
	out := make([]any, 0, 2*len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case error:
			out = append(out, "error", v)
		case map[string]any:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				out = append(out, k, v[k])
			}
		default:
			out = append(out, fmt.Sprintf("v%d", i), v)
		}
	}
	return out
}

func (l *HCLogger) Debug(msg string, args ...any) {
	l.hc.Debug(msg, fields(args)...)
}

func (l *HCLogger) Info(msg string, args ...any) {
	l.hc.Info(msg, fields(args)...)
}

func (l *HCLogger) Warn(msg string, args ...any) {
	l.hc.Warn(msg, fields(args)...)
}

func (l *HCLogger) Error(msg string, args ...any) {
	l.hc.Error(msg, fields(args)...)
}
