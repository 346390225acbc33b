package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "notegenius/internal/platform/errors"
)

var ErrRecordNotFound = fmt.Errorf("session record: %w", apperrors.ErrNotFound)

// Counters are the free-form study counters that the surrounding
// application increments while a session runs.
type Counters struct {
	ItemsReviewed  int `json:"items_reviewed"`
	CorrectAnswers int `json:"correct_answers"`
	QuizScore      int `json:"quiz_score"`
	QuizTotal      int `json:"quiz_total"`
	NotesCreated   int `json:"notes_created"`
	NotesReviewed  int `json:"notes_reviewed"`
}

func (c Counters) Add(delta Counters) Counters {
	return Counters{
		ItemsReviewed:  c.ItemsReviewed + delta.ItemsReviewed,
		CorrectAnswers: c.CorrectAnswers + delta.CorrectAnswers,
		QuizScore:      c.QuizScore + delta.QuizScore,
		QuizTotal:      c.QuizTotal + delta.QuizTotal,
		NotesCreated:   c.NotesCreated + delta.NotesCreated,
		NotesReviewed:  c.NotesReviewed + delta.NotesReviewed,
	}
}

func (c Counters) IsZero() bool {
	return c == Counters{}
}

func (c Counters) Validate() error {
	for name, v := range map[string]int{
		"items_reviewed":  c.ItemsReviewed,
		"correct_answers": c.CorrectAnswers,
		"quiz_score":      c.QuizScore,
		"quiz_total":      c.QuizTotal,
		"notes_created":   c.NotesCreated,
		"notes_reviewed":  c.NotesReviewed,
	} {
		if v < 0 {
			return fmt.Errorf("counter %s must not be negative", name)
		}
	}
	return nil
}

// Record is one study session as held by the system of record.
type Record struct {
	ID           string
	UserID       string
	Title        string
	Subject      string
	StartTime    time.Time
	EndTime      *time.Time
	Duration     int
	IsActive     bool
	ActivityType string
	AutoCreated  bool
	Counters     Counters
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if r.StartTime.IsZero() {
		return fmt.Errorf("start time is required")
	}
	if r.Duration < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	if r.EndTime != nil && r.EndTime.Before(r.StartTime) {
		return fmt.Errorf("end time before start time")
	}
	return r.Counters.Validate()
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	EndTime      *time.Time
	Duration     *int
	IsActive     *bool
	ActivityType *string
	Title        *string
}

func (p Patch) IsEmpty() bool {
	return p.EndTime == nil && p.Duration == nil && p.IsActive == nil && p.ActivityType == nil && p.Title == nil
}

func (p Patch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("patch has no fields")
	}
	if p.Duration != nil && *p.Duration < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	return nil
}

// Apply returns r with the patch applied.
func (p Patch) Apply(r Record) Record {
	if p.EndTime != nil {
		t := *p.EndTime
		r.EndTime = &t
	}
	if p.Duration != nil {
		r.Duration = *p.Duration
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
	if p.ActivityType != nil {
		r.ActivityType = *p.ActivityType
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	return r
}
