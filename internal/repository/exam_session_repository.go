package repository

import (
	"context"
	"errors"
	"time"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStaleTransition is returned when a conditional session update matched no
// row: the session was not in the expected state at write time. Callers map
// this onto the specific state-machine violation they were guarding against.
var ErrStaleTransition = errors.New("session not in expected state")

const sessionColumns = `id, exam_id, student_id, started_at, ended_at, status,
	violation_count, total_score, created_at`

// SessionResult combines student data with their session details for the
// teacher's results view.
type SessionResult struct {
	SessionID   uuid.UUID           `json:"session_id"`
	StudentID   int                 `json:"student_id"`
	StudentName string              `json:"student_name"`
	Email       string              `json:"email"`
	Status      model.SessionStatus `json:"status"`
	TotalScore  *float64            `json:"total_score"`
	StartedAt   *time.Time          `json:"started_at"`
	EndedAt     *time.Time          `json:"ended_at"`
}

// ExamSessionRepository handles exam session data access. All state
// transitions are conditional writes: the UPDATE carries the expected current
// status so two racing requests cannot both win.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := row.Scan(
		&s.ID, &s.ExamID, &s.StudentID, &s.StartedAt, &s.EndedAt,
		&s.Status, &s.ViolationCount, &s.TotalScore, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByExamAndStudent retrieves a session for a specific exam-student pair.
func (r *ExamSessionRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID))
}

// GetByID retrieves a session by id.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
}

// Create inserts a NOT_STARTED session for the student. The unique
// (exam_id, student_id) constraint makes the join idempotent: a concurrent
// duplicate surfaces as pgx.ErrNoRows and the caller re-fetches.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	s.Status = model.SessionStatusNotStarted
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, student_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING id, created_at`,
		s.ExamID, s.StudentID, s.Status,
	).Scan(&s.ID, &s.CreatedAt)
}

// Start transitions NOT_STARTED -> IN_PROGRESS, stamping started_at exactly
// once. Returns ErrStaleTransition if the session had already left
// NOT_STARTED.
func (r *ExamSessionRepository) Start(ctx context.Context, id uuid.UUID, now time.Time) (*model.ExamSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET status = $1, started_at = $2
		 WHERE id = $3 AND status = $4
		 RETURNING `+sessionColumns,
		model.SessionStatusInProgress, now, id, model.SessionStatusNotStarted))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStaleTransition
	}
	return s, err
}

// Complete transitions IN_PROGRESS -> COMPLETED. Returns ErrStaleTransition
// if the session was not in progress (already completed, terminated, or never
// started), so re-completing is at-most-once.
func (r *ExamSessionRepository) Complete(ctx context.Context, id uuid.UUID, now time.Time) (*model.ExamSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET status = $1, ended_at = COALESCE(ended_at, $2)
		 WHERE id = $3 AND status = $4
		 RETURNING `+sessionColumns,
		model.SessionStatusCompleted, now, id, model.SessionStatusInProgress))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStaleTransition
	}
	return s, err
}

// Terminate transitions IN_PROGRESS -> TERMINATED (proctoring threshold
// exceeded). Same conditional-write contract as Complete.
func (r *ExamSessionRepository) Terminate(ctx context.Context, id uuid.UUID, now time.Time) (*model.ExamSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET status = $1, ended_at = COALESCE(ended_at, $2)
		 WHERE id = $3 AND status = $4
		 RETURNING `+sessionColumns,
		model.SessionStatusTerminated, now, id, model.SessionStatusInProgress))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStaleTransition
	}
	return s, err
}

// IncrementViolations bumps the violation counter and returns the new count.
// Only meaningful while the session is in progress; other states keep their
// final count.
func (r *ExamSessionRepository) IncrementViolations(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET violation_count = violation_count + 1
		 WHERE id = $1 AND status = $2
		 RETURNING violation_count`,
		id, model.SessionStatusInProgress,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrStaleTransition
	}
	return count, err
}

// CompleteExpired force-completes every in-progress session whose time budget
// (started_at + exam duration) or exam window lies before now, in one
// filtered update. Re-running the same sweep is harmless: completed rows no
// longer match the status filter. Returns the number of sessions
// transitioned.
func (r *ExamSessionRepository) CompleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions AS s
		 SET status = $1, ended_at = $2
		 FROM exams e
		 WHERE e.id = s.exam_id
		   AND s.status = $3
		   AND s.started_at IS NOT NULL
		   AND ($2 > s.started_at + make_interval(mins => e.duration_minutes)
		        OR $2 > e.end_time)`,
		model.SessionStatusCompleted, now, model.SessionStatusInProgress,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByStudent retrieves all sessions for a given student.
func (r *ExamSessionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE student_id = $1
		 ORDER BY created_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// StudentResult is one row of a student's own results history.
type StudentResult struct {
	SessionID  uuid.UUID  `json:"session_id"`
	ExamID     uuid.UUID  `json:"exam_id"`
	ExamTitle  string     `json:"exam_title"`
	Status     string     `json:"status"`
	TotalScore *float64   `json:"total_score"`
	StartedAt  *time.Time `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at"`
}

// RecentByStudent retrieves a student's most recent finished sessions,
// newest first.
func (r *ExamSessionRepository) RecentByStudent(ctx context.Context, studentID, limit int) ([]StudentResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.exam_id, e.title, s.status, s.total_score, s.started_at, s.ended_at
		 FROM exam_sessions s
		 JOIN exams e ON s.exam_id = e.id
		 WHERE s.student_id = $1 AND s.status IN ('COMPLETED', 'TERMINATED')
		 ORDER BY s.ended_at DESC NULLS LAST
		 LIMIT $2`, studentID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []StudentResult
	for rows.Next() {
		var res StudentResult
		if err := rows.Scan(
			&res.SessionID, &res.ExamID, &res.ExamTitle,
			&res.Status, &res.TotalScore, &res.StartedAt, &res.EndedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// ListByExam retrieves all student results for an exam, paginated.
func (r *ExamSessionRepository) ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]SessionResult, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE exam_id = $1`, examID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.student_id, u.name, u.email, s.status, s.total_score, s.started_at, s.ended_at
		 FROM exam_sessions s
		 JOIN users u ON s.student_id = u.id
		 WHERE s.exam_id = $1
		 ORDER BY u.name ASC
		 LIMIT $2 OFFSET $3`, examID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []SessionResult
	for rows.Next() {
		var res SessionResult
		if err := rows.Scan(
			&res.SessionID, &res.StudentID, &res.StudentName, &res.Email,
			&res.Status, &res.TotalScore, &res.StartedAt, &res.EndedAt,
		); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
