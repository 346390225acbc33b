package dto

import "time"

type StateOutput struct {
	SessionID      string
	Phase          string
	Active         bool
	Paused         bool
	PauseReason    string
	Activity       string
	StartTime      *time.Time
	ElapsedSeconds int
	PausedSeconds  int
}

type NavigateInput struct {
	Path string
}

type InputEvent struct {
	Kind string
}

type CountersInput struct {
	ItemsReviewed  int
	CorrectAnswers int
	QuizScore      int
	QuizTotal      int
	NotesCreated   int
	NotesReviewed  int
}

type EndOutput struct {
	SessionID       string
	Activity        string
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds int
	PausedSeconds   int
	Reason          string
	NotePath        string
}

type HistoryInput struct {
	Limit int
}

type HistoryItem struct {
	ID              string
	Title           string
	Activity        string
	StartTime       time.Time
	EndTime         *time.Time
	DurationSeconds int
	Hours           float64
	Active          bool
	AutoCreated     bool
	ItemsReviewed   int
	CorrectAnswers  int
}

type HistoryOutput struct {
	Items        []HistoryItem
	TotalSeconds int
	TotalHours   float64
}

type DrainOutput struct {
	Sent    int
	Retried int
	Dropped int
	Depth   int
}

type OutboxStatusOutput struct {
	Depth int
}
