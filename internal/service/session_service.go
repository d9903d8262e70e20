package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/examtime"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Lifecycle errors. Handlers map these onto the error-code envelope.
var (
	ErrExamNotAvailable        = errors.New("exam is not available")
	ErrExamNotYetOpen          = errors.New("exam has not opened yet")
	ErrExamWindowClosed        = errors.New("exam window has closed")
	ErrInvalidAccessCode       = errors.New("invalid access code")
	ErrNotEnrolled             = errors.New("student is not enrolled in this exam")
	ErrNotJoined               = errors.New("exam has not been joined")
	ErrSessionAlreadyStarted   = errors.New("session already started")
	ErrSessionAlreadyCompleted = errors.New("session already completed")
	ErrSessionNotStarted       = errors.New("session has not been started")
)

// LobbyExam is one exam as shown in the student lobby, with the
// resolver-derived status overlay.
type LobbyExam struct {
	Exam       model.Exam           `json:"exam"`
	Status     examtime.Status      `json:"status"`
	TotalScore *float64             `json:"total_score,omitempty"`
	Session    *model.SessionStatus `json:"session_status,omitempty"`
}

// SessionService owns the exam-session state machine: join, start, submit,
// self-timeout, and proctoring termination. Every gate re-derives status via
// the resolver at the moment of the request; nothing trusts client state.
type SessionService struct {
	sessionRepo    *repository.ExamSessionRepository
	examRepo       *repository.ExamRepository
	invitationRepo *repository.InvitationRepository
	answerRepo     *repository.AnswerRepository
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessionRepo *repository.ExamSessionRepository,
	examRepo *repository.ExamRepository,
	invitationRepo *repository.InvitationRepository,
	answerRepo *repository.AnswerRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo:    sessionRepo,
		examRepo:       examRepo,
		invitationRepo: invitationRepo,
		answerRepo:     answerRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "session_service").Logger(),
	}
}

// Lobby returns every published exam with the student's own status overlay.
func (s *SessionService) Lobby(ctx context.Context, studentID int, now time.Time) ([]LobbyExam, error) {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published exams: %w", err)
	}

	sessions, err := s.sessionRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessionMap := make(map[uuid.UUID]*model.ExamSession, len(sessions))
	for i := range sessions {
		sessionMap[sessions[i].ExamID] = &sessions[i]
	}

	lobby := make([]LobbyExam, 0, len(exams))
	for i := range exams {
		exam := &exams[i]
		sess := sessionMap[exam.ID]

		entry := LobbyExam{
			Exam:   *exam,
			Status: examtime.ResolveStatus(exam, sess, now),
		}
		entry.Exam.AccessCode = "" // Never leak entry codes to the lobby
		if sess != nil {
			entry.TotalScore = sess.TotalScore
			entry.Session = &sess.Status
		}
		lobby = append(lobby, entry)
	}
	return lobby, nil
}

// Join creates (or idempotently returns) the student's session for an exam.
// The session is created NOT_STARTED; the attempt clock does not run yet.
func (s *SessionService) Join(ctx context.Context, examID uuid.UUID, studentID int, accessCode string, now time.Time) (*model.ExamSession, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotAvailable
	}

	existing, err := s.sessionRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing session: %w", err)
	}

	// Re-derive the time gate at the moment of the request.
	status := examtime.ResolveStatus(exam, existing, now)
	switch status.State {
	case examtime.StateUpcoming:
		return nil, ErrExamNotYetOpen
	case examtime.StateExpired:
		return nil, ErrExamWindowClosed
	case examtime.StateCompleted:
		return nil, ErrSessionAlreadyCompleted
	}

	if existing != nil {
		// Idempotent re-join: same session, whatever device they use.
		return existing, nil
	}

	switch exam.AccessMode {
	case model.AccessModeCode:
		if exam.AccessCode != accessCode {
			return nil, ErrInvalidAccessCode
		}
	case model.AccessModeInvitation:
		enrolled, err := s.invitationRepo.IsEnrolled(ctx, examID, studentID)
		if err != nil {
			return nil, fmt.Errorf("check enrollment: %w", err)
		}
		if !enrolled {
			return nil, ErrNotEnrolled
		}
	}

	session := &model.ExamSession{ExamID: examID, StudentID: studentID}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent join: the other request won the insert.
			return s.sessionRepo.GetByExamAndStudent(ctx, examID, studentID)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Start transitions the student's session into IN_PROGRESS and stamps the
// attempt start instant exactly once.
func (s *SessionService) Start(ctx context.Context, examID uuid.UUID, studentID int, now time.Time) (*model.ExamSession, error) {
	exam, session, err := s.load(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}

	status := examtime.ResolveStatus(exam, session, now)
	if !status.CanStart {
		return nil, s.startDenied(status, session)
	}

	started, err := s.sessionRepo.Start(ctx, session.ID, now)
	if errors.Is(err, repository.ErrStaleTransition) {
		// Lost a race: someone (another tab) started or closed it first.
		return nil, s.startDenied(status, session)
	}
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	// Cache the attempt so the hot paths (autosave, proctoring) verify the
	// session in Redis instead of PostgreSQL. The key expires with the exam
	// window, so a hit always means the window is still open.
	if ttl := exam.EndTime.Sub(now); ttl > 0 {
		payload, _ := json.Marshal(cachedAttempt{
			SessionID: started.ID,
			StartedAt: started.StartedAt.Unix(),
		})
		startKey := config.CacheKey.SessionStartKey(examID.String(), studentID)
		if err := s.rdb.Set(ctx, startKey, payload, ttl).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache session start")
		}
	}

	return started, nil
}

// cachedAttempt is the Redis record of one running attempt, written at Start
// and deleted when the attempt closes.
type cachedAttempt struct {
	SessionID uuid.UUID `json:"session_id"`
	StartedAt int64     `json:"started_at"`
}

// decodeCachedAttempt rebuilds an IN_PROGRESS session and its deadline from
// the cached attempt record plus the exam's cached duration.
func decodeCachedAttempt(raw []byte, durationMinutes int, examID uuid.UUID, studentID int) (*model.ExamSession, time.Time, bool) {
	var att cachedAttempt
	if err := json.Unmarshal(raw, &att); err != nil || att.SessionID == uuid.Nil || att.StartedAt <= 0 {
		return nil, time.Time{}, false
	}
	started := time.Unix(att.StartedAt, 0)
	session := &model.ExamSession{
		ID:        att.SessionID,
		ExamID:    examID,
		StudentID: studentID,
		StartedAt: &started,
		Status:    model.SessionStatusInProgress,
	}
	return session, started.Add(time.Duration(durationMinutes) * time.Minute), true
}

// attemptFromCache resolves a running attempt and its deadline from Redis.
// A miss on either key falls back to PostgreSQL.
func (s *SessionService) attemptFromCache(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamSession, time.Time, bool) {
	pipe := s.rdb.Pipeline()
	attemptCmd := pipe.Get(ctx, config.CacheKey.SessionStartKey(examID.String(), studentID))
	durationCmd := pipe.Get(ctx, config.CacheKey.ExamDurationKey(examID.String()))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, time.Time{}, false
	}

	raw, err := attemptCmd.Bytes()
	if err != nil {
		return nil, time.Time{}, false
	}
	duration, err := durationCmd.Int()
	if err != nil || duration <= 0 {
		return nil, time.Time{}, false
	}
	return decodeCachedAttempt(raw, duration, examID, studentID)
}

func (s *SessionService) startDenied(status examtime.Status, session *model.ExamSession) error {
	switch status.State {
	case examtime.StateUpcoming:
		return ErrExamNotYetOpen
	case examtime.StateExpired:
		return ErrExamWindowClosed
	}
	if session != nil && session.Status == model.SessionStatusInProgress {
		return ErrSessionAlreadyStarted
	}
	return ErrSessionAlreadyCompleted
}

// Submit closes the student's attempt. A submission that arrives after the
// attempt deadline but while the row is still IN_PROGRESS lands on the same
// transition the timeout would have taken: end time now, score frozen.
// Submitting an already-closed session fails with ErrSessionAlreadyCompleted.
func (s *SessionService) Submit(ctx context.Context, examID uuid.UUID, studentID int, now time.Time) (*model.ExamSession, error) {
	exam, session, err := s.load(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case model.SessionStatusNotStarted:
		return nil, ErrSessionNotStarted
	case model.SessionStatusCompleted, model.SessionStatusTerminated:
		return nil, ErrSessionAlreadyCompleted
	}

	if now.After(exam.EndTime) {
		// The window closed under them. Close the row, reject the submit.
		if _, cerr := s.sessionRepo.Complete(ctx, session.ID, now); cerr != nil && !errors.Is(cerr, repository.ErrStaleTransition) {
			s.log.Error().Err(cerr).Str("session_id", session.ID.String()).Msg("Failed to close session past window")
		}
		return nil, ErrExamWindowClosed
	}

	completed, err := s.sessionRepo.Complete(ctx, session.ID, now)
	if errors.Is(err, repository.ErrStaleTransition) {
		return nil, ErrSessionAlreadyCompleted
	}
	if err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}

	// Freeze the score from whatever is graded right now; later manual
	// grading updates it through the score worker.
	if err := s.answerRepo.RecomputeTotal(ctx, completed.ID); err != nil {
		s.log.Error().Err(err).Str("session_id", completed.ID.String()).Msg("Score freeze failed")
	} else {
		refreshed, gerr := s.sessionRepo.GetByID(ctx, completed.ID)
		if gerr == nil {
			completed = refreshed
		}
	}

	s.clearAttemptCache(ctx, examID, studentID)
	return completed, nil
}

// ViolationOutcome is what one proctoring event did to the session.
type ViolationOutcome struct {
	Count      int
	Limit      int
	Terminated bool
}

// RecordViolation accumulates one proctoring violation and terminates the
// session once the exam's threshold is crossed.
func (s *SessionService) RecordViolation(ctx context.Context, examID uuid.UUID, studentID int, kind, detail string, now time.Time) (ViolationOutcome, error) {
	exam, session, err := s.load(ctx, examID, studentID)
	if err != nil {
		return ViolationOutcome{}, err
	}
	outcome := ViolationOutcome{Count: session.ViolationCount, Limit: exam.MaxViolations}
	if session.Status != model.SessionStatusInProgress {
		return outcome, ErrSessionAlreadyCompleted
	}

	count, err := s.sessionRepo.IncrementViolations(ctx, session.ID)
	if errors.Is(err, repository.ErrStaleTransition) {
		return outcome, ErrSessionAlreadyCompleted
	}
	if err != nil {
		return outcome, fmt.Errorf("increment violations: %w", err)
	}
	outcome.Count = count

	// Queue the audit record; the violation worker persists it in batches.
	payload, _ := json.Marshal(map[string]interface{}{
		"exam_id":    examID.String(),
		"student_id": studentID,
		"kind":       kind,
		"detail":     detail,
		"timestamp":  now.Unix(),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to queue violation record")
	}

	if count < exam.MaxViolations {
		return outcome, nil
	}
	outcome.Terminated = true

	if _, err := s.sessionRepo.Terminate(ctx, session.ID, now); err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			// Another violation event terminated it first.
			return outcome, nil
		}
		return outcome, fmt.Errorf("terminate session: %w", err)
	}

	if err := s.answerRepo.RecomputeTotal(ctx, session.ID); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Score freeze failed")
	}
	s.clearAttemptCache(ctx, examID, studentID)

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Int("violations", count).
		Msg("Session terminated by proctoring policy")
	return outcome, nil
}

// Status resolves the student's current status for one exam. A session whose
// attempt deadline has silently passed is closed here, lazily, so the student
// sees the same answer the sweeper would have enforced.
func (s *SessionService) Status(ctx context.Context, examID uuid.UUID, studentID int, now time.Time) (examtime.Status, *model.ExamSession, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return examtime.Status{}, nil, fmt.Errorf("get exam: %w", err)
	}

	session, err := s.sessionRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return examtime.Status{}, nil, fmt.Errorf("get session: %w", err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		session = nil
	}

	status := examtime.ResolveStatus(exam, session, now)

	// Self-timeout: the resolver says the attempt is over but the row still
	// says IN_PROGRESS. Best effort; the sweeper is the backstop.
	if session != nil && session.Status == model.SessionStatusInProgress && status.State != examtime.StateActive {
		if closed, cerr := s.sessionRepo.Complete(ctx, session.ID, now); cerr == nil {
			session = closed
			if err := s.answerRepo.RecomputeTotal(ctx, session.ID); err != nil {
				s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Score freeze failed")
			}
		} else if !errors.Is(cerr, repository.ErrStaleTransition) {
			s.log.Warn().Err(cerr).Str("session_id", session.ID.String()).Msg("Lazy timeout close failed")
		}
	}

	return status, session, nil
}

// VerifyActiveSession checks that a student holds an IN_PROGRESS session for
// the exam, with time still on the clock. The Redis attempt record settles
// most calls; PostgreSQL is the fallback and the authority.
func (s *SessionService) VerifyActiveSession(ctx context.Context, examID uuid.UUID, studentID int, now time.Time) (*model.ExamSession, error) {
	if session, deadline, ok := s.attemptFromCache(ctx, examID, studentID); ok {
		if now.Before(deadline) {
			return session, nil
		}
		// The key outlives the deadline only until the window TTL fires,
		// so a stale hit always means the attempt timed out.
		return nil, ErrSessionAlreadyCompleted
	}

	exam, session, err := s.load(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusInProgress {
		if session.Status == model.SessionStatusNotStarted {
			return nil, ErrSessionNotStarted
		}
		return nil, ErrSessionAlreadyCompleted
	}
	status := examtime.ResolveStatus(exam, session, now)
	if status.State != examtime.StateActive {
		return nil, activeDenied(status)
	}
	return session, nil
}

// activeDenied names why a still-open session row no longer counts as active:
// the window closed under it, or its own deadline passed.
func activeDenied(status examtime.Status) error {
	if status.State == examtime.StateExpired {
		return ErrExamWindowClosed
	}
	return ErrSessionAlreadyCompleted
}

// Results lists paginated session results for one exam (teacher view).
func (s *SessionService) Results(ctx context.Context, examID uuid.UUID, page, perPage int) ([]repository.SessionResult, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return s.sessionRepo.ListByExam(ctx, examID, perPage, (page-1)*perPage)
}

// RecentResults lists a student's own most recent finished attempts.
func (s *SessionService) RecentResults(ctx context.Context, studentID, limit int) ([]repository.StudentResult, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	return s.sessionRepo.RecentByStudent(ctx, studentID, limit)
}

func (s *SessionService) load(ctx context.Context, examID uuid.UUID, studentID int) (*model.Exam, *model.ExamSession, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, nil, fmt.Errorf("get exam: %w", err)
	}
	session, err := s.sessionRepo.GetByExamAndStudent(ctx, examID, studentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotJoined
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get session: %w", err)
	}
	return exam, session, nil
}

func (s *SessionService) clearAttemptCache(ctx context.Context, examID uuid.UUID, studentID int) {
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.SessionStartKey(examID.String(), studentID))
	pipe.Del(ctx, config.CacheKey.StudentAnswersKey(examID.String(), studentID))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clear attempt cache")
	}
}
