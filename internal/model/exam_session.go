package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states. The state machine only moves
// forward: NOT_STARTED -> IN_PROGRESS -> COMPLETED | TERMINATED. COMPLETED
// and TERMINATED are terminal.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "NOT_STARTED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusTerminated SessionStatus = "TERMINATED"
)

// ExamSession represents one student's attempt at one exam. A session is
// created as NOT_STARTED when the student joins; StartedAt is set exactly
// once, at the transition into IN_PROGRESS.
type ExamSession struct {
	ID             uuid.UUID     `json:"id"`
	ExamID         uuid.UUID     `json:"exam_id"`
	StudentID      int           `json:"student_id"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
	Status         SessionStatus `json:"status"`
	ViolationCount int           `json:"violation_count"`
	TotalScore     *float64      `json:"total_score,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Terminal reports whether the session has reached a terminal state.
func (s *ExamSession) Terminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusTerminated
}

// JoinExamRequest is the payload for a student joining an exam. AccessCode is
// required only for CODE-mode exams.
type JoinExamRequest struct {
	AccessCode string `json:"access_code" binding:"omitempty,min=4,max=20"`
}
