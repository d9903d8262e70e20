package handler

import (
	"net/http"

	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the admin and teacher dashboards.
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Stats godoc
// GET /api/v1/manage/dashboard
// Admins get platform-wide counters; teachers get their own exams' slice.
func (h *DashboardHandler) Stats(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	stats, err := h.dashboardService.Stats(c.Request.Context(), author)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}
