package domain

import "time"

type PauseReason string

const (
	PauseNone       PauseReason = ""
	PauseNavigation PauseReason = "navigation"
	PauseVisibility PauseReason = "visibility"
	PauseInactivity PauseReason = "inactivity"
	PauseUser       PauseReason = "user"
)

// SessionState is the single in-memory record of the tracked session. It is
// replaced as a whole value; callers never mutate a shared instance.
type SessionState struct {
	SessionID       string
	UserID          string
	IsActive        bool
	StartTime       *time.Time
	ElapsedSeconds  int
	CurrentActivity Activity
	IsPaused        bool
	PauseReason     PauseReason
	PausedSeconds   int
	PausedAt        *time.Time
}

func Empty() SessionState {
	return SessionState{CurrentActivity: ActivityGeneral}
}

// ElapsedAt recomputes elapsed seconds from StartTime. Paused time is only
// subtracted when excludePaused is set.
func (s SessionState) ElapsedAt(now time.Time, excludePaused bool) int {
	if !s.IsActive || s.StartTime == nil {
		return 0
	}
	total := int(now.Sub(*s.StartTime) / time.Second)
	if excludePaused {
		total -= s.pausedAt(now)
	}
	if total < 0 {
		return 0
	}
	return total
}

func (s SessionState) pausedAt(now time.Time) int {
	paused := s.PausedSeconds
	if s.PausedAt != nil && now.After(*s.PausedAt) {
		paused += int(now.Sub(*s.PausedAt) / time.Second)
	}
	return paused
}

// MarkPaused records the moment the clock stopped advancing. Calling it on an
// already paused state keeps the earlier moment.
func (s SessionState) MarkPaused(now time.Time, reason PauseReason) SessionState {
	if s.PausedAt == nil {
		at := now
		s.PausedAt = &at
	}
	s.IsPaused = true
	s.PauseReason = reason
	return s
}

// MarkResumed folds the open pause interval into PausedSeconds.
func (s SessionState) MarkResumed(now time.Time) SessionState {
	s.PausedSeconds = s.pausedAt(now)
	s.PausedAt = nil
	s.IsPaused = false
	s.PauseReason = PauseNone
	return s
}

func (s SessionState) Equal(o SessionState) bool {
	return s.SessionID == o.SessionID &&
		s.UserID == o.UserID &&
		s.IsActive == o.IsActive &&
		timeEqual(s.StartTime, o.StartTime) &&
		s.ElapsedSeconds == o.ElapsedSeconds &&
		s.CurrentActivity == o.CurrentActivity &&
		s.IsPaused == o.IsPaused &&
		s.PauseReason == o.PauseReason &&
		s.PausedSeconds == o.PausedSeconds &&
		timeEqual(s.PausedAt, o.PausedAt)
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
