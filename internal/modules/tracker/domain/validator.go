package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrMissingIdentity = errors.New("session has no id or start time")
	ErrStartInFuture   = errors.New("session start time is in the future")
	ErrSessionTooLong  = errors.New("session exceeds the maximum duration")
)

// Limits bound plausible session durations.
type Limits struct {
	MaxSession time.Duration
	MinSession time.Duration
	ClockSkew  time.Duration
}

func DefaultLimits() Limits {
	return Limits{MaxSession: 4 * time.Hour, MinSession: time.Minute, ClockSkew: time.Minute}
}

func (l Limits) maxSeconds() int {
	return int(l.MaxSession / time.Second)
}

// CheckState rejects a restored or computed state that cannot describe a
// real session at now.
func (l Limits) CheckState(s SessionState, now time.Time) error {
	if s.SessionID == "" || s.StartTime == nil || s.StartTime.IsZero() {
		return ErrMissingIdentity
	}
	if s.StartTime.After(now.Add(l.ClockSkew)) {
		return fmt.Errorf("%w: %s", ErrStartInFuture, s.StartTime.Format(time.RFC3339))
	}
	if l.MaxSession > 0 && now.Sub(*s.StartTime) > l.MaxSession {
		return fmt.Errorf("%w: started %s", ErrSessionTooLong, s.StartTime.Format(time.RFC3339))
	}
	return nil
}

// Exceeded reports whether elapsed seconds passed the ceiling.
func (l Limits) Exceeded(elapsed int) bool {
	return l.MaxSession > 0 && elapsed > l.maxSeconds()
}

// CapDuration limits a computed duration to the ceiling and to zero below.
func (l Limits) CapDuration(seconds int) int {
	seconds = ClampTotal(seconds)
	if l.MaxSession > 0 && seconds > l.maxSeconds() {
		return l.maxSeconds()
	}
	return seconds
}

// SanitizeDuration zeroes durations too short or too long to be real study.
func (l Limits) SanitizeDuration(seconds int) int {
	if seconds < int(l.MinSession/time.Second) {
		return 0
	}
	if l.MaxSession > 0 && seconds > l.maxSeconds() {
		return 0
	}
	return seconds
}

// SanitizeHours applies the same bounds to an hour figure.
func (l Limits) SanitizeHours(hours float64) float64 {
	if hours <= 0 || math.IsNaN(hours) {
		return 0
	}
	if l.MaxSession > 0 && hours > l.MaxSession.Hours() {
		return 0
	}
	return hours
}

func ClampTotal(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
