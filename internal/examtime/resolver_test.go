package examtime

import (
	"testing"
	"time"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/google/uuid"
)

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func makeExam(t *testing.T, start, end string, durationMinutes int) *model.Exam {
	t.Helper()
	return &model.Exam{
		ID:              uuid.New(),
		StartTime:       ts(t, start),
		EndTime:         ts(t, end),
		DurationMinutes: durationMinutes,
		Status:          model.ExamStatusPublished,
	}
}

func sessionWith(status model.SessionStatus, startedAt *time.Time) *model.ExamSession {
	return &model.ExamSession{
		ID:        uuid.New(),
		Status:    status,
		StartedAt: startedAt,
	}
}

func TestResolveStatus_WindowBoundaries(t *testing.T) {
	exam := makeExam(t, "2024-01-01T10:00:00Z", "2024-01-01T11:00:00Z", 30)

	tests := []struct {
		name           string
		now            string
		session        *model.ExamSession
		wantState      State
		wantCanJoin    bool
		wantCanStart   bool
		wantUntilStart *int64
		wantUntilEnd   *int64
	}{
		{
			name:           "before start is upcoming",
			now:            "2024-01-01T09:00:00Z",
			wantState:      StateUpcoming,
			wantUntilStart: int64Ptr(3_600_000),
		},
		{
			name:         "within window no session is active",
			now:          "2024-01-01T10:30:00Z",
			wantState:    StateActive,
			wantCanJoin:  true,
			wantCanStart: true,
			wantUntilEnd: int64Ptr(1_800_000),
		},
		{
			name:      "after end is expired",
			now:       "2024-01-01T12:00:00Z",
			wantState: StateExpired,
		},
		{
			name:      "window end beats an open session",
			now:       "2024-01-01T12:00:00Z",
			session:   sessionWith(model.SessionStatusInProgress, timePtr(ts(t, "2024-01-01T10:50:00Z"))),
			wantState: StateExpired,
		},
		{
			name:         "exactly at start is within window",
			now:          "2024-01-01T10:00:00Z",
			wantState:    StateActive,
			wantCanJoin:  true,
			wantCanStart: true,
			wantUntilEnd: int64Ptr(3_600_000),
		},
		{
			name:         "exactly at end is within window",
			now:          "2024-01-01T11:00:00Z",
			wantState:    StateActive,
			wantCanJoin:  true,
			wantCanStart: true,
			wantUntilEnd: int64Ptr(0),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveStatus(exam, tc.session, ts(t, tc.now))

			if got.State != tc.wantState {
				t.Errorf("state = %s, want %s", got.State, tc.wantState)
			}
			if got.CanJoin != tc.wantCanJoin {
				t.Errorf("canJoin = %t, want %t", got.CanJoin, tc.wantCanJoin)
			}
			if got.CanStart != tc.wantCanStart {
				t.Errorf("canStart = %t, want %t", got.CanStart, tc.wantCanStart)
			}
			assertMs(t, "timeUntilStart", got.TimeUntilStart, tc.wantUntilStart)
			assertMs(t, "timeUntilEnd", got.TimeUntilEnd, tc.wantUntilEnd)
			if got.Message == "" {
				t.Error("message must never be empty")
			}
		})
	}
}

func TestResolveStatus_SessionStates(t *testing.T) {
	// 30-minute attempt budget inside a one-hour window.
	exam := makeExam(t, "2024-01-01T10:00:00Z", "2024-01-01T11:00:00Z", 30)
	started := ts(t, "2024-01-01T10:10:00Z")

	tests := []struct {
		name          string
		now           string
		session       *model.ExamSession
		wantState     State
		wantCanJoin   bool
		wantCanStart  bool
		wantRemaining *int64
	}{
		{
			name:          "in progress with time left",
			now:           "2024-01-01T10:15:00Z",
			session:       sessionWith(model.SessionStatusInProgress, &started),
			wantState:     StateActive,
			wantCanJoin:   true,
			wantRemaining: int64Ptr(1_500_000), // 25 minutes
		},
		{
			name:      "in progress past its deadline",
			now:       "2024-01-01T10:45:00Z",
			session:   sessionWith(model.SessionStatusInProgress, &started),
			wantState: StateCompleted,
		},
		{
			name:          "exactly at deadline still active",
			now:           "2024-01-01T10:40:00Z",
			session:       sessionWith(model.SessionStatusInProgress, &started),
			wantState:     StateActive,
			wantCanJoin:   true,
			wantRemaining: int64Ptr(0),
		},
		{
			name:         "not started can still start",
			now:          "2024-01-01T10:30:00Z",
			session:      sessionWith(model.SessionStatusNotStarted, nil),
			wantState:    StateActive,
			wantCanJoin:  true,
			wantCanStart: true,
		},
		{
			name:      "completed session",
			now:       "2024-01-01T10:30:00Z",
			session:   sessionWith(model.SessionStatusCompleted, &started),
			wantState: StateCompleted,
		},
		{
			name:      "terminated reported as completed",
			now:       "2024-01-01T10:30:00Z",
			session:   sessionWith(model.SessionStatusTerminated, &started),
			wantState: StateCompleted,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveStatus(exam, tc.session, ts(t, tc.now))

			if got.State != tc.wantState {
				t.Errorf("state = %s, want %s", got.State, tc.wantState)
			}
			if got.CanJoin != tc.wantCanJoin {
				t.Errorf("canJoin = %t, want %t", got.CanJoin, tc.wantCanJoin)
			}
			if got.CanStart != tc.wantCanStart {
				t.Errorf("canStart = %t, want %t", got.CanStart, tc.wantCanStart)
			}
			assertMs(t, "timeRemaining", got.TimeRemaining, tc.wantRemaining)
		})
	}
}

func TestResolveStatus_TerminatedMessageDiffers(t *testing.T) {
	exam := makeExam(t, "2024-01-01T10:00:00Z", "2024-01-01T11:00:00Z", 30)
	now := ts(t, "2024-01-01T10:30:00Z")
	started := ts(t, "2024-01-01T10:10:00Z")

	completed := ResolveStatus(exam, sessionWith(model.SessionStatusCompleted, &started), now)
	terminated := ResolveStatus(exam, sessionWith(model.SessionStatusTerminated, &started), now)

	if completed.State != terminated.State {
		t.Fatalf("both must surface as %s", StateCompleted)
	}
	if completed.Message == terminated.Message {
		t.Error("terminated must carry a distinct message")
	}
}

func TestResolveStatus_DeadlineSweepsAcrossWindow(t *testing.T) {
	// The attempt deadline and the window end are independent: a session
	// started late enough is cut off by the window, not its own budget.
	exam := makeExam(t, "2024-01-01T10:00:00Z", "2024-01-01T11:00:00Z", 30)
	started := ts(t, "2024-01-01T10:45:00Z")
	sess := sessionWith(model.SessionStatusInProgress, &started)

	// Budget would run until 11:15, but the window closes at 11:00.
	got := ResolveStatus(exam, sess, ts(t, "2024-01-01T11:05:00Z"))
	if got.State != StateExpired {
		t.Errorf("state = %s, want %s", got.State, StateExpired)
	}

	// Inside the window the budget still applies.
	got = ResolveStatus(exam, sess, ts(t, "2024-01-01T10:50:00Z"))
	if got.State != StateActive {
		t.Errorf("state = %s, want %s", got.State, StateActive)
	}
	if want := int64(25 * 60 * 1000); got.TimeRemaining == nil || *got.TimeRemaining != want {
		t.Errorf("timeRemaining = %v, want %d", got.TimeRemaining, want)
	}
}

func TestSessionDeadline(t *testing.T) {
	exam := makeExam(t, "2024-01-01T10:00:00Z", "2024-01-01T12:00:00Z", 45)
	started := ts(t, "2024-01-01T10:10:00Z")
	sess := sessionWith(model.SessionStatusInProgress, &started)

	want := ts(t, "2024-01-01T10:55:00Z")
	if got := SessionDeadline(exam, sess); !got.Equal(want) {
		t.Errorf("deadline = %s, want %s", got, want)
	}
}

func assertMs(t *testing.T, field string, got, want *int64) {
	t.Helper()
	if want == nil {
		if got != nil {
			t.Errorf("%s = %d, want unset", field, *got)
		}
		return
	}
	if got == nil {
		t.Errorf("%s unset, want %d", field, *want)
		return
	}
	if *got != *want {
		t.Errorf("%s = %d, want %d", field, *got, *want)
	}
}

func int64Ptr(v int64) *int64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }
