package domain

import "time"

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
)

type Notification struct {
	Title       string
	Description string
	Severity    Severity
}

type InputKind string

const (
	InputPointer InputKind = "pointer"
	InputKey     InputKind = "key"
	InputScroll  InputKind = "scroll"
	InputTouch   InputKind = "touch"
	InputClick   InputKind = "click"
	InputFocus   InputKind = "focus"
	InputBlur    InputKind = "blur"
)

func (k InputKind) Valid() bool {
	switch k {
	case InputPointer, InputKey, InputScroll, InputTouch, InputClick, InputFocus, InputBlur:
		return true
	}
	return false
}

type Counters struct {
	ItemsReviewed  int
	CorrectAnswers int
	QuizScore      int
	QuizTotal      int
	NotesCreated   int
	NotesReviewed  int
}

func (c Counters) IsZero() bool {
	return c == Counters{}
}

// Record is the tracker's view of a remote session record: timing and
// lifecycle fields plus the counters written by the rest of the application.
type Record struct {
	ID           string
	UserID       string
	Title        string
	StartTime    time.Time
	EndTime      *time.Time
	Duration     int
	IsActive     bool
	ActivityType Activity
	AutoCreated  bool
	Counters     Counters
}

// Patch carries the timing and lifecycle fields the tracker writes.
type Patch struct {
	EndTime      *time.Time `json:"end_time,omitempty"`
	Duration     *int       `json:"duration,omitempty"`
	IsActive     *bool      `json:"is_active,omitempty"`
	ActivityType *Activity  `json:"activity_type,omitempty"`
}

func EndPatch(end time.Time, duration int) Patch {
	inactive := false
	return Patch{EndTime: &end, Duration: &duration, IsActive: &inactive}
}

func ActivityPatch(a Activity) Patch {
	return Patch{ActivityType: &a}
}

// Summary describes an ended session for exporters and callers of End.
type Summary struct {
	SessionID     string
	UserID        string
	Activity      Activity
	StartTime     time.Time
	EndTime       time.Time
	Duration      int
	PausedSeconds int
	Reason        string
}
