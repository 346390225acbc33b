package logger

import (
	"github.com/rollbar/rollbar-go"
)

type RollbarOptions struct {
	Token       string
	Environment string
	CodeVersion string
	UserID      string
}

// RollbarLogger reports to Rollbar and mirrors every entry to a local logger.
type RollbarLogger struct {
	mirror Logger
}

var _ Logger = (*RollbarLogger)(nil)

func NewRollbar(opts RollbarOptions, mirror Logger) *RollbarLogger {
	rollbar.SetToken(opts.Token)
	rollbar.SetEnvironment(opts.Environment)
	rollbar.SetCodeVersion(opts.CodeVersion)
	if opts.UserID != "" {
		rollbar.SetPerson(opts.UserID, "", "")
	}
	return &RollbarLogger{mirror: mirror}
}

// expected fmt: msg | error, map[string]interface{}
func (l *RollbarLogger) prepare(msg string, args []any) []any {
	out := make([]any, 0, len(args)+1)
	out = append(out, msg)
	return append(out, args...)
}

func (l *RollbarLogger) Debug(msg string, args ...any) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.mirror.Debug(msg, args...)
}

func (l *RollbarLogger) Info(msg string, args ...any) {
	rollbar.Info(l.prepare(msg, args)...)
	l.mirror.Info(msg, args...)
}

func (l *RollbarLogger) Warn(msg string, args ...any) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.mirror.Warn(msg, args...)
}

func (l *RollbarLogger) Error(msg string, args ...any) {
	rollbar.Error(l.prepare(msg, args)...)
	l.mirror.Error(msg, args...)
}

// Close flushes queued Rollbar items.
func (l *RollbarLogger) Close() {
	rollbar.Wait()
}
