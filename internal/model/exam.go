package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the authoring lifecycle states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// AccessMode controls how students gain entry to an exam.
type AccessMode string

const (
	AccessModeOpen       AccessMode = "OPEN"
	AccessModeCode       AccessMode = "CODE"
	AccessModeInvitation AccessMode = "INVITATION"
)

// Exam represents a scheduled assessment. StartTime/EndTime bound the window
// during which the exam is accessible at all; DurationMinutes is the separate
// per-attempt time budget once a student starts.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	AuthorID        int        `json:"author_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DurationMinutes int        `json:"duration_minutes"`
	AccessMode      AccessMode `json:"access_mode"`
	AccessCode      string     `json:"access_code,omitempty"`
	RequireWebcam   bool       `json:"require_webcam"`
	MaxViolations   int        `json:"max_violations"`
	Status          ExamStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
// The schedule window must be ordered, but duration is deliberately NOT
// validated against the window size: an exam may legitimately close before a
// late starter's full duration elapses.
type CreateExamRequest struct {
	Title           string    `json:"title" binding:"required,min=3,max=255"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	EndTime         time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=1,max=480"`
	AccessMode      string    `json:"access_mode" binding:"required,oneof=OPEN CODE INVITATION"`
	AccessCode      string    `json:"access_code" binding:"omitempty,min=4,max=20"`
	RequireWebcam   bool      `json:"require_webcam"`
	MaxViolations   int       `json:"max_violations" binding:"omitempty,min=1,max=100"`
}

// UpdateExamRequest is the payload for updating a draft exam.
type UpdateExamRequest struct {
	Title           string     `json:"title" binding:"omitempty,min=3,max=255"`
	StartTime       *time.Time `json:"start_time" binding:"omitempty"`
	EndTime         *time.Time `json:"end_time" binding:"omitempty"`
	DurationMinutes int        `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	AccessMode      string     `json:"access_mode" binding:"omitempty,oneof=OPEN CODE INVITATION"`
	AccessCode      string     `json:"access_code" binding:"omitempty,min=4,max=20"`
	RequireWebcam   *bool      `json:"require_webcam" binding:"omitempty"`
	MaxViolations   *int       `json:"max_violations" binding:"omitempty,min=1,max=100"`
}

// ExamPayload is the Redis-cached paper sent to students (no answer keys).
type ExamPayload struct {
	ExamID    uuid.UUID            `json:"exam_id"`
	Title     string               `json:"title"`
	Duration  int                  `json:"duration_minutes"`
	Questions []QuestionForStudent `json:"questions"`
}
