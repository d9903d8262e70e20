package service

import (
	"context"

	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/rs/zerolog"
)

// DashboardService aggregates the counters behind the admin and teacher
// dashboards.
type DashboardService struct {
	dashboardRepo *repository.DashboardRepository
	log           zerolog.Logger
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(dashboardRepo *repository.DashboardRepository, log zerolog.Logger) *DashboardService {
	return &DashboardService{
		dashboardRepo: dashboardRepo,
		log:           log.With().Str("component", "dashboard_service").Logger(),
	}
}

// Stats returns platform-wide counters when authorID is 0, or the author's
// slice of them otherwise.
func (s *DashboardService) Stats(ctx context.Context, authorID int) (*repository.DashboardStats, error) {
	return s.dashboardRepo.GetStats(ctx, authorID)
}
