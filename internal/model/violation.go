package model

import (
	"time"

	"github.com/google/uuid"
)

// Violation is one proctoring event reported for an in-progress session.
// Events are produced by the browser-side proctoring collaborator; this core
// only counts them and terminates sessions past the exam's threshold.
type Violation struct {
	ID         int64     `json:"id"`
	ExamID     uuid.UUID `json:"exam_id"`
	StudentID  int       `json:"student_id"`
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
