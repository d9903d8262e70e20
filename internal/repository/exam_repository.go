package repository

import (
	"context"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const examColumns = `id, title, author_id, start_time, end_time, duration_minutes,
	access_mode, access_code, require_webcam, max_violations, status, created_at, updated_at`

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(
		&e.ID, &e.Title, &e.AuthorID, &e.StartTime, &e.EndTime, &e.DurationMinutes,
		&e.AccessMode, &e.AccessCode, &e.RequireWebcam, &e.MaxViolations,
		&e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, author_id, start_time, end_time, duration_minutes,
		                    access_mode, access_code, require_webcam, max_violations, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.AuthorID, e.StartTime, e.EndTime, e.DurationMinutes,
		e.AccessMode, e.AccessCode, e.RequireWebcam, e.MaxViolations, e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update rewrites the mutable fields of a draft exam.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET title = $1, start_time = $2, end_time = $3, duration_minutes = $4,
		     access_mode = $5, access_code = $6, require_webcam = $7,
		     max_violations = $8, updated_at = NOW()
		 WHERE id = $9`,
		e.Title, e.StartTime, e.EndTime, e.DurationMinutes,
		e.AccessMode, e.AccessCode, e.RequireWebcam, e.MaxViolations, e.ID,
	)
	return err
}

// UpdateStatus changes an exam's lifecycle status.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}

// Delete removes an exam.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}

// ListByAuthorPaginated retrieves exams by author. authorID 0 lists all exams
// (admin view).
func (r *ExamRepository) ListByAuthorPaginated(ctx context.Context, authorID, limit, offset int) ([]model.Exam, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exams WHERE ($1 = 0 OR author_id = $1)`, authorID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+`
		 FROM exams
		 WHERE ($1 = 0 OR author_id = $1)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, authorID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, 0, err
		}
		exams = append(exams, *e)
	}
	return exams, total, rows.Err()
}

// ListPublished retrieves all published exams, newest first.
func (r *ExamRepository) ListPublished(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+`
		 FROM exams
		 WHERE status = $1
		 ORDER BY start_time DESC`, model.ExamStatusPublished,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}
