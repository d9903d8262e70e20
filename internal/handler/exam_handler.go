package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examhall/examhall-backend/internal/middleware"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/examhall/examhall-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ExamHandler handles exam authoring endpoints for teachers and admins.
type ExamHandler struct {
	examService       *service.ExamService
	sessionService    *service.SessionService
	invitationService *service.InvitationService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(
	examService *service.ExamService,
	sessionService *service.SessionService,
	invitationService *service.InvitationService,
) *ExamHandler {
	return &ExamHandler{
		examService:       examService,
		sessionService:    sessionService,
		invitationService: invitationService,
	}
}

// authorFilter returns 0 (no filter) for admins and the caller's ID otherwise.
func authorFilter(c *gin.Context) (int, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return 0, false
	}
	if claims.Role == model.RoleAdmin {
		return 0, true
	}
	return claims.UserID, true
}

func examIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// ListExams godoc
// GET /api/v1/manage/exams
// Lists exams with pagination. Admins see all; teachers see their own.
func (h *ExamHandler) ListExams(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	exams, pagination, err := h.examService.ListByAuthor(c.Request.Context(), author, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// GetExam godoc
// GET /api/v1/manage/exams/:exam_id
func (h *ExamHandler) GetExam(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	exam, err := h.examService.RequireAuthor(c.Request.Context(), examID, author)
	if err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// CreateExam godoc
// POST /api/v1/manage/exams
// Creates a new draft exam owned by the caller.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if req.AccessMode == string(model.AccessModeCode) && req.AccessCode == "" {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"access_code": "access_code is required for CODE access mode"})
		return
	}

	exam := &model.Exam{
		Title:           req.Title,
		AuthorID:        claims.UserID,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		AccessMode:      model.AccessMode(req.AccessMode),
		AccessCode:      req.AccessCode,
		RequireWebcam:   req.RequireWebcam,
		MaxViolations:   req.MaxViolations,
	}

	if err := h.examService.Create(c.Request.Context(), exam); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/manage/exams/:exam_id
// Updates a draft exam. Published exams are immutable.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		failExam(c, err)
		return
	}

	if req.Title != "" {
		exam.Title = req.Title
	}
	if req.StartTime != nil {
		exam.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		exam.EndTime = *req.EndTime
	}
	if req.DurationMinutes != 0 {
		exam.DurationMinutes = req.DurationMinutes
	}
	if req.AccessMode != "" {
		exam.AccessMode = model.AccessMode(req.AccessMode)
	}
	if req.AccessCode != "" {
		exam.AccessCode = req.AccessCode
	}
	if req.RequireWebcam != nil {
		exam.RequireWebcam = *req.RequireWebcam
	}
	if req.MaxViolations != nil {
		exam.MaxViolations = *req.MaxViolations
	}

	if !exam.EndTime.After(exam.StartTime) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"end_time": "end_time must be after start_time"})
		return
	}

	if err := h.examService.Update(c.Request.Context(), author, exam); err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/manage/exams/:exam_id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), examID, author); err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// PublishExam godoc
// POST /api/v1/manage/exams/:exam_id/publish
// Publishes an exam: warms the Redis paper cache and flips the status.
func (h *ExamHandler) PublishExam(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	if err := h.examService.Publish(c.Request.Context(), examID, author); err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.ExamStatusPublished})
}

// ListResults godoc
// GET /api/v1/manage/exams/:exam_id/results
// Lists session results for one exam, newest first.
func (h *ExamHandler) ListResults(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	if _, err := h.examService.RequireAuthor(c.Request.Context(), examID, author); err != nil {
		failExam(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	results, total, err := h.sessionService.Results(c.Request.Context(), examID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results},
		response.NewPagination(page, perPage, int(total)))
}

// CreateInvitations godoc
// POST /api/v1/manage/exams/:exam_id/invitations
// Issues invitation codes for a list of emails. Already-invited emails are
// skipped.
func (h *ExamHandler) CreateInvitations(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.CreateInvitationsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	invitations, err := h.invitationService.CreateBatch(c.Request.Context(), examID, author, req.Emails)
	if err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"invitations": invitations})
}

// ListInvitations godoc
// GET /api/v1/manage/exams/:exam_id/invitations
func (h *ExamHandler) ListInvitations(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	invitations, err := h.invitationService.ListByExam(c.Request.Context(), examID, author)
	if err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"invitations": invitations})
}

// failExam maps authoring-path service errors onto the response envelope.
func failExam(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotExamAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrAccessDenied)
	case errors.Is(err, service.ErrExamNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrExamNotDraft)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	case errors.Is(err, service.ErrExamNotAvailable):
		response.Fail(c, http.StatusConflict, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
