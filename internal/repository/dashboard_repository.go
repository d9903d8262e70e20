package repository

import (
	"context"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DashboardStats aggregates the headline numbers shown on role dashboards.
type DashboardStats struct {
	TotalExams          int   `json:"total_exams"`
	PublishedExams      int   `json:"published_exams"`
	TotalStudents       int   `json:"total_students"`
	SessionsInProgress  int   `json:"sessions_in_progress"`
	CompletedSessions   int   `json:"completed_sessions"`
	TerminatedSessions  int   `json:"terminated_sessions"`
	UngradedAnswerCount int64 `json:"ungraded_answer_count"`
}

// DashboardRepository computes aggregate counts for dashboards.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetStats returns platform-wide counts. authorID 0 covers all exams (admin);
// otherwise counts are scoped to exams the teacher authored.
func (r *DashboardRepository) GetStats(ctx context.Context, authorID int) (*DashboardStats, error) {
	stats := &DashboardStats{}

	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2)
		 FROM exams
		 WHERE ($1 = 0 OR author_id = $1)`,
		authorID, model.ExamStatusPublished,
	).Scan(&stats.TotalExams, &stats.PublishedExams)
	if err != nil {
		return nil, err
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1`, model.RoleStudent,
	).Scan(&stats.TotalStudents)
	if err != nil {
		return nil, err
	}

	err = r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE s.status = $2),
			COUNT(*) FILTER (WHERE s.status = $3),
			COUNT(*) FILTER (WHERE s.status = $4)
		 FROM exam_sessions s
		 JOIN exams e ON e.id = s.exam_id
		 WHERE ($1 = 0 OR e.author_id = $1)`,
		authorID,
		model.SessionStatusInProgress,
		model.SessionStatusCompleted,
		model.SessionStatusTerminated,
	).Scan(&stats.SessionsInProgress, &stats.CompletedSessions, &stats.TerminatedSessions)
	if err != nil {
		return nil, err
	}

	// Grading backlog: answers awaiting manual marks on closed sessions.
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM answers a
		 JOIN exam_sessions s ON s.id = a.session_id
		 JOIN exams e ON e.id = s.exam_id
		 WHERE a.marks_obtained IS NULL
		   AND s.status IN ($2, $3)
		   AND ($1 = 0 OR e.author_id = $1)`,
		authorID, model.SessionStatusCompleted, model.SessionStatusTerminated,
	).Scan(&stats.UngradedAnswerCount)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
