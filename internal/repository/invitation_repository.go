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

// ErrInvitationTaken is returned when a redeem raced another redeem of the
// same code.
var ErrInvitationTaken = errors.New("invitation already redeemed")

// InvitationRepository handles invitation data access.
type InvitationRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationRepository creates a new InvitationRepository.
func NewInvitationRepository(pool *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{pool: pool}
}

// CreateBatch inserts one invitation per email. Duplicate (exam, email) pairs
// are skipped so re-issuing a list is idempotent.
func (r *InvitationRepository) CreateBatch(ctx context.Context, invitations []model.Invitation) (int64, error) {
	var inserted int64
	for i := range invitations {
		inv := &invitations[i]
		tag, err := r.pool.Exec(ctx,
			`INSERT INTO invitations (exam_id, email, code)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (exam_id, email) DO NOTHING`,
			inv.ExamID, inv.Email, inv.Code)
		if err != nil {
			return inserted, err
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// ListByExam retrieves all invitations for an exam.
func (r *InvitationRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Invitation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, email, code, redeemed_by, redeemed_at, created_at
		 FROM invitations
		 WHERE exam_id = $1
		 ORDER BY created_at ASC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []model.Invitation
	for rows.Next() {
		var inv model.Invitation
		if err := rows.Scan(&inv.ID, &inv.ExamID, &inv.Email, &inv.Code,
			&inv.RedeemedBy, &inv.RedeemedAt, &inv.CreatedAt); err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// Redeem claims an unredeemed code for a student. The conditional write makes
// redemption at-most-once; a raced or reused code returns ErrInvitationTaken.
func (r *InvitationRepository) Redeem(ctx context.Context, code string, studentID int, now time.Time) (*model.Invitation, error) {
	inv := &model.Invitation{}
	err := r.pool.QueryRow(ctx,
		`UPDATE invitations
		 SET redeemed_by = $1, redeemed_at = $2
		 WHERE code = $3 AND redeemed_by IS NULL
		 RETURNING id, exam_id, email, code, redeemed_by, redeemed_at, created_at`,
		studentID, now, code,
	).Scan(&inv.ID, &inv.ExamID, &inv.Email, &inv.Code,
		&inv.RedeemedBy, &inv.RedeemedAt, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvitationTaken
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// IsEnrolled reports whether the student holds a redeemed invitation for the
// exam.
func (r *InvitationRepository) IsEnrolled(ctx context.Context, examID uuid.UUID, studentID int) (bool, error) {
	var enrolled bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM invitations
			WHERE exam_id = $1 AND redeemed_by = $2
		 )`, examID, studentID,
	).Scan(&enrolled)
	return enrolled, err
}
