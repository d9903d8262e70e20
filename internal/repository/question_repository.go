package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question data access. The three question kinds
// share one table; the type-specific detail lives in a jsonb column and is
// rehydrated into the tagged union on scan.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	var detail []byte
	if err := row.Scan(&q.ID, &q.ExamID, &q.Type, &q.Text, &q.MaxMarks, &q.Position, &detail); err != nil {
		return nil, err
	}
	if err := hydrateDetail(q, detail); err != nil {
		return nil, err
	}
	return q, nil
}

func hydrateDetail(q *model.Question, detail []byte) error {
	switch q.Type {
	case model.QuestionTypeMCQ:
		q.MCQ = &model.MCQDetail{}
		return json.Unmarshal(detail, q.MCQ)
	case model.QuestionTypeSAQ:
		q.SAQ = &model.SAQDetail{}
		return json.Unmarshal(detail, q.SAQ)
	case model.QuestionTypeCoding:
		q.Coding = &model.CodingDetail{}
		return json.Unmarshal(detail, q.Coding)
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
}

func marshalDetail(q *model.Question) ([]byte, error) {
	switch q.Type {
	case model.QuestionTypeMCQ:
		if q.MCQ == nil {
			return nil, fmt.Errorf("MCQ question %s has no detail", q.ID)
		}
		return json.Marshal(q.MCQ)
	case model.QuestionTypeSAQ:
		if q.SAQ == nil {
			return nil, fmt.Errorf("SAQ question %s has no detail", q.ID)
		}
		return json.Marshal(q.SAQ)
	case model.QuestionTypeCoding:
		if q.Coding == nil {
			return nil, fmt.Errorf("coding question %s has no detail", q.ID)
		}
		return json.Marshal(q.Coding)
	default:
		return nil, fmt.Errorf("unknown question type %q", q.Type)
	}
}

// ListByExam retrieves all questions for an exam, ordered by position.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, type, text, max_marks, position, detail
		 FROM questions
		 WHERE exam_id = $1
		 ORDER BY position ASC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// GetByID retrieves one question.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		`SELECT id, exam_id, type, text, max_marks, position, detail
		 FROM questions
		 WHERE id = $1`, id))
}

// Add inserts a question.
func (r *QuestionRepository) Add(ctx context.Context, q *model.Question) error {
	detail, err := marshalDetail(q)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, type, text, max_marks, position, detail)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		q.ExamID, q.Type, q.Text, q.MaxMarks, q.Position, detail,
	).Scan(&q.ID)
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}
