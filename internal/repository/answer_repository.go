package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnswerRepository handles answer data access.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert saves a student's response. Auto-graded marks (MCQ) travel with the
// write; nil marks leave the answer ungraded. Resubmitting before the session
// closes overwrites the previous response and its marks.
func (r *AnswerRepository) Upsert(ctx context.Context, a *model.Answer) error {
	var gradedAt *time.Time
	if a.MarksObtained != nil {
		now := time.Now()
		gradedAt = &now
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO answers (session_id, question_id, response, marks_obtained, graded_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET response = EXCLUDED.response,
		     marks_obtained = EXCLUDED.marks_obtained,
		     graded_at = EXCLUDED.graded_at,
		     updated_at = NOW()
		 RETURNING id, updated_at`,
		a.SessionID, a.QuestionID, a.Response, a.MarksObtained, gradedAt,
	).Scan(&a.ID, &a.UpdatedAt)
}

// GetByID retrieves one answer joined with its question's type and max marks.
func (r *AnswerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Answer, error) {
	a := &model.Answer{}
	var response []byte
	err := r.pool.QueryRow(ctx,
		`SELECT a.id, a.session_id, a.question_id, q.type, q.max_marks,
		        a.response, a.marks_obtained, a.graded_at, a.updated_at
		 FROM answers a
		 JOIN questions q ON a.question_id = q.id
		 WHERE a.id = $1`, id,
	).Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.QuestionType, &a.MaxMarks,
		&response, &a.MarksObtained, &a.GradedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Response = json.RawMessage(response)
	return a, nil
}

// ListBySession retrieves all answers for a session with question metadata,
// ordered by question position.
func (r *AnswerRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.session_id, a.question_id, q.type, q.max_marks,
		        a.response, a.marks_obtained, a.graded_at, a.updated_at
		 FROM answers a
		 JOIN questions q ON a.question_id = q.id
		 WHERE a.session_id = $1
		 ORDER BY q.position ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		var response []byte
		if err := rows.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.QuestionType, &a.MaxMarks,
			&response, &a.MarksObtained, &a.GradedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Response = json.RawMessage(response)
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// AssignMarks sets marks_obtained on one answer. Range validation against
// max_marks happens in the service; this write is unconditional so a teacher
// can re-grade any number of times.
func (r *AnswerRepository) AssignMarks(ctx context.Context, id uuid.UUID, marks float64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE answers
		 SET marks_obtained = $1, graded_at = NOW(), updated_at = NOW()
		 WHERE id = $2`, marks, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RecomputeTotals recalculates total_score for a batch of sessions from their
// graded answers. Ungraded answers contribute nothing. Used by the score
// persist worker after marks change.
func (r *AnswerRepository) RecomputeTotals(ctx context.Context, sessionIDs []uuid.UUID) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions s
		 SET total_score = t.score
		 FROM (
			SELECT a.session_id, COALESCE(SUM(a.marks_obtained), 0) AS score
			FROM answers a
			WHERE a.session_id = ANY($1::uuid[])
			  AND a.marks_obtained IS NOT NULL
			GROUP BY a.session_id
		 ) AS t
		 WHERE s.id = t.session_id`,
		sessionIDs,
	)
	return err
}

// RecomputeTotal recalculates total_score for one session. Fallback path when
// the batch update fails.
func (r *AnswerRepository) RecomputeTotal(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET total_score = (
			SELECT COALESCE(SUM(marks_obtained), 0)
			FROM answers
			WHERE session_id = $1 AND marks_obtained IS NOT NULL
		 )
		 WHERE id = $1`, sessionID)
	return err
}
