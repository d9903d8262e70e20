// Package examtime derives exam and session status from wall-clock time.
// Everything in this package is pure: time is always an explicit argument and
// no function here touches storage, so results are fully deterministic.
package examtime

import (
	"time"

	"github.com/examhall/examhall-backend/internal/model"
)

// State is the student-facing exam state.
type State string

const (
	StateUpcoming  State = "UPCOMING"
	StateActive    State = "ACTIVE"
	StateCompleted State = "COMPLETED"
	StateExpired   State = "EXPIRED"
)

// Status describes what a student can currently do with an exam. All duration
// fields are milliseconds; nil means the field does not apply in this state.
type Status struct {
	State          State  `json:"status"`
	CanJoin        bool   `json:"can_join"`
	CanStart       bool   `json:"can_start"`
	TimeUntilStart *int64 `json:"time_until_start_ms,omitempty"`
	TimeUntilEnd   *int64 `json:"time_until_end_ms,omitempty"`
	TimeRemaining  *int64 `json:"time_remaining_ms,omitempty"`
	Message        string `json:"message"`
}

// SessionDeadline returns the instant at which an attempt's time budget runs
// out: session start plus the exam's duration. The caller must ensure the
// session has started.
func SessionDeadline(exam *model.Exam, session *model.ExamSession) time.Time {
	return session.StartedAt.Add(time.Duration(exam.DurationMinutes) * time.Minute)
}

// ResolveStatus computes the status descriptor for one student and one exam.
// The rules are evaluated in strict order; the first match wins:
//
//  1. Past the exam window end: EXPIRED, even if a session is still open.
//  2. Before the window start: UPCOMING.
//  3. Within the window, the session (if any) decides: terminal sessions
//     report COMPLETED, an in-progress session is cut off at its own
//     deadline (start + duration), otherwise the exam is ACTIVE.
//
// A TERMINATED session is reported to the student as COMPLETED with a
// distinct message; the audit distinction lives on the session record.
// ResolveStatus never fails: terminal exam states are ordinary results.
func ResolveStatus(exam *model.Exam, session *model.ExamSession, now time.Time) Status {
	if now.After(exam.EndTime) {
		return Status{
			State:   StateExpired,
			Message: "This exam has ended.",
		}
	}

	if now.Before(exam.StartTime) {
		return Status{
			State:          StateUpcoming,
			TimeUntilStart: msPtr(exam.StartTime.Sub(now)),
			Message:        "This exam has not opened yet.",
		}
	}

	// Within [start, end].
	if session == nil {
		return Status{
			State:        StateActive,
			CanJoin:      true,
			CanStart:     true,
			TimeUntilEnd: msPtr(exam.EndTime.Sub(now)),
			Message:      "This exam is open.",
		}
	}

	switch session.Status {
	case model.SessionStatusCompleted:
		return Status{
			State:   StateCompleted,
			Message: "You have completed this exam.",
		}

	case model.SessionStatusTerminated:
		return Status{
			State:   StateCompleted,
			Message: "Your attempt was closed by the proctoring policy.",
		}

	case model.SessionStatusInProgress:
		deadline := SessionDeadline(exam, session)
		if now.After(deadline) {
			return Status{
				State:   StateCompleted,
				Message: "Your time for this exam has run out.",
			}
		}
		return Status{
			State:         StateActive,
			CanJoin:       true,
			TimeRemaining: msPtr(deadline.Sub(now)),
			TimeUntilEnd:  msPtr(exam.EndTime.Sub(now)),
			Message:       "Your attempt is in progress.",
		}

	default: // NOT_STARTED
		return Status{
			State:        StateActive,
			CanJoin:      true,
			CanStart:     true,
			TimeUntilEnd: msPtr(exam.EndTime.Sub(now)),
			Message:      "This exam is open.",
		}
	}
}

func msPtr(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}
