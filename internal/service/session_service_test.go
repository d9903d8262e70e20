package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/examhall/examhall-backend/internal/examtime"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/google/uuid"
)

func TestStartDenied(t *testing.T) {
	svc := &SessionService{}

	tests := []struct {
		name    string
		status  examtime.Status
		session *model.ExamSession
		want    error
	}{
		{
			name:   "before the window",
			status: examtime.Status{State: examtime.StateUpcoming},
			want:   ErrExamNotYetOpen,
		},
		{
			name:   "after the window",
			status: examtime.Status{State: examtime.StateExpired},
			want:   ErrExamWindowClosed,
		},
		{
			name:    "already running",
			status:  examtime.Status{State: examtime.StateActive},
			session: &model.ExamSession{Status: model.SessionStatusInProgress},
			want:    ErrSessionAlreadyStarted,
		},
		{
			name:    "already submitted",
			status:  examtime.Status{State: examtime.StateCompleted},
			session: &model.ExamSession{Status: model.SessionStatusCompleted},
			want:    ErrSessionAlreadyCompleted,
		},
		{
			name:    "terminated by proctoring",
			status:  examtime.Status{State: examtime.StateCompleted},
			session: &model.ExamSession{Status: model.SessionStatusTerminated},
			want:    ErrSessionAlreadyCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.startDenied(tt.status, tt.session); !errors.Is(got, tt.want) {
				t.Errorf("startDenied() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActiveDenied(t *testing.T) {
	tests := []struct {
		name   string
		status examtime.Status
		want   error
	}{
		{
			name:   "window closed under the attempt",
			status: examtime.Status{State: examtime.StateExpired},
			want:   ErrExamWindowClosed,
		},
		{
			name:   "attempt deadline passed",
			status: examtime.Status{State: examtime.StateCompleted},
			want:   ErrSessionAlreadyCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := activeDenied(tt.status); !errors.Is(got, tt.want) {
				t.Errorf("activeDenied() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeCachedAttempt(t *testing.T) {
	examID := uuid.New()
	sessionID := uuid.New()
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	raw, err := json.Marshal(cachedAttempt{SessionID: sessionID, StartedAt: started.Unix()})
	if err != nil {
		t.Fatal(err)
	}

	session, deadline, ok := decodeCachedAttempt(raw, 45, examID, 7)
	if !ok {
		t.Fatal("decodeCachedAttempt() rejected a valid record")
	}
	if session.ID != sessionID || session.ExamID != examID || session.StudentID != 7 {
		t.Errorf("session identity = %v/%v/%d", session.ID, session.ExamID, session.StudentID)
	}
	if session.Status != model.SessionStatusInProgress {
		t.Errorf("status = %s, want %s", session.Status, model.SessionStatusInProgress)
	}
	if session.StartedAt == nil || !session.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", session.StartedAt, started)
	}
	if want := started.Add(45 * time.Minute); !deadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", deadline, want)
	}

	bad := [][]byte{
		[]byte("not json"),
		[]byte("{}"),
		mustJSON(t, cachedAttempt{SessionID: uuid.Nil, StartedAt: started.Unix()}),
		mustJSON(t, cachedAttempt{SessionID: sessionID, StartedAt: 0}),
	}
	for _, b := range bad {
		if _, _, ok := decodeCachedAttempt(b, 45, examID, 7); ok {
			t.Errorf("decodeCachedAttempt(%q) accepted an invalid record", b)
		}
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestGenerateInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateInviteCode()
		if err != nil {
			t.Fatalf("generateInviteCode() error: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("code %q has length %d, want 8", code, len(code))
		}
		for _, c := range code {
			if c == '0' || c == 'O' || c == '1' || c == 'I' || c == 'L' {
				t.Fatalf("code %q contains ambiguous character %q", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 90 {
		t.Errorf("expected mostly unique codes, got %d unique out of 100", len(seen))
	}
}
