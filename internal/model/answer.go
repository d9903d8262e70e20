package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Answer is one student response to one question within a session.
// MarksObtained is nil until the answer has been graded; an explicit zero is
// a valid grade. MCQ answers are graded automatically at submission time.
type Answer struct {
	ID            uuid.UUID       `json:"id"`
	SessionID     uuid.UUID       `json:"session_id"`
	QuestionID    uuid.UUID       `json:"question_id"`
	QuestionType  QuestionType    `json:"question_type"`
	MaxMarks      float64         `json:"max_marks"`
	Response      json.RawMessage `json:"response"`
	MarksObtained *float64        `json:"marks_obtained,omitempty"`
	GradedAt      *time.Time      `json:"graded_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Graded reports whether marks have been assigned to this answer.
func (a *Answer) Graded() bool {
	return a.MarksObtained != nil
}

// SubmitAnswerRequest is the payload for saving one answer during an attempt.
// Response shape depends on the question type: {"selected_option": n} for
// MCQ, {"text": "..."} for SAQ, {"code": "..."} for coding.
type SubmitAnswerRequest struct {
	QuestionID uuid.UUID       `json:"question_id" binding:"required"`
	Response   json.RawMessage `json:"response" binding:"required"`
}

// AssignMarksRequest is the teacher payload for grading one answer.
type AssignMarksRequest struct {
	Marks float64 `json:"marks" binding:"min=0"`
}
