package dto

import "time"

type CountersInput struct {
	ItemsReviewed  int `json:"items_reviewed"`
	CorrectAnswers int `json:"correct_answers"`
	QuizScore      int `json:"quiz_score"`
	QuizTotal      int `json:"quiz_total"`
	NotesCreated   int `json:"notes_created"`
	NotesReviewed  int `json:"notes_reviewed"`
}

type CreateInput struct {
	UserID       string        `json:"user_id"`
	Title        string        `json:"title"`
	Subject      string        `json:"subject"`
	StartTime    time.Time     `json:"start_time"`
	ActivityType string        `json:"activity_type"`
	AutoCreated  bool          `json:"auto_created"`
	Counters     CountersInput `json:"counters"`
}

type UpdateInput struct {
	EndTime      *time.Time `json:"end_time,omitempty"`
	Duration     *int       `json:"duration,omitempty"`
	IsActive     *bool      `json:"is_active,omitempty"`
	ActivityType *string    `json:"activity_type,omitempty"`
	Title        *string    `json:"title,omitempty"`
}

type RecordOutput struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	Title        string        `json:"title"`
	Subject      string        `json:"subject"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      *time.Time    `json:"end_time,omitempty"`
	Duration     int           `json:"duration"`
	IsActive     bool          `json:"is_active"`
	ActivityType string        `json:"activity_type"`
	AutoCreated  bool          `json:"auto_created"`
	Counters     CountersInput `json:"counters"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type ClaimOutput struct {
	Record  RecordOutput `json:"record"`
	Adopted bool         `json:"adopted"`
}
