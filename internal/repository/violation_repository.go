package repository

import (
	"context"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ViolationRepository persists proctoring events for audit. The hot path
// (counting and terminating) runs off the session row; these rows are the
// trail teachers review afterwards.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// BulkInsert copies a batch of violations in one round trip.
func (r *ViolationRepository) BulkInsert(ctx context.Context, batch []model.Violation) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, v := range batch {
		rows = append(rows, []interface{}{
			v.ExamID, v.StudentID, v.Kind, v.Detail, v.RecordedAt,
		})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"violations"},
		[]string{"exam_id", "student_id", "kind", "detail", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert writes a single violation. Fallback path when a bulk copy fails.
func (r *ViolationRepository) Insert(ctx context.Context, v *model.Violation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO violations (exam_id, student_id, kind, detail, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		v.ExamID, v.StudentID, v.Kind, v.Detail, v.RecordedAt)
	return err
}

// ListBySession retrieves the audit trail for one exam-student pair.
func (r *ViolationRepository) ListBySession(ctx context.Context, examID uuid.UUID, studentID int) ([]model.Violation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_id, kind, detail, recorded_at
		 FROM violations
		 WHERE exam_id = $1 AND student_id = $2
		 ORDER BY recorded_at ASC`, examID, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []model.Violation
	for rows.Next() {
		var v model.Violation
		if err := rows.Scan(&v.ID, &v.ExamID, &v.StudentID, &v.Kind, &v.Detail, &v.RecordedAt); err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}
