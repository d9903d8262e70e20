package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/examhall/examhall-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GradingHandler handles the teacher grading endpoints.
type GradingHandler struct {
	gradingService *service.GradingService
	examService    *service.ExamService
	violationRepo  *repository.ViolationRepository
}

// NewGradingHandler creates a new GradingHandler.
func NewGradingHandler(
	gradingService *service.GradingService,
	examService *service.ExamService,
	violationRepo *repository.ViolationRepository,
) *GradingHandler {
	return &GradingHandler{
		gradingService: gradingService,
		examService:    examService,
		violationRepo:  violationRepo,
	}
}

// SessionAnswers godoc
// GET /api/v1/manage/sessions/:session_id/answers
// Returns a session's answers with the grading progress snapshot.
func (h *GradingHandler) SessionAnswers(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	answers, snapshot, err := h.gradingService.SessionAnswers(c.Request.Context(), author, sessionID)
	if err != nil {
		failGrading(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"answers": answers,
		"grading": snapshot,
	})
}

// AssignMarks godoc
// PUT /api/v1/manage/answers/:answer_id/marks
// Records manual marks on a SAQ or coding answer. Re-grading overwrites.
func (h *GradingHandler) AssignMarks(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	answerID, err := uuid.Parse(c.Param("answer_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AssignMarksRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.gradingService.AssignMarks(c.Request.Context(), author, answerID, req.Marks); err != nil {
		failGrading(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// SessionViolations godoc
// GET /api/v1/manage/exams/:exam_id/students/:student_id/violations
// Returns the proctoring audit trail for one student's attempt.
func (h *GradingHandler) SessionViolations(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if _, err := h.examService.RequireAuthor(c.Request.Context(), examID, author); err != nil {
		failExam(c, err)
		return
	}

	violations, err := h.violationRepo.ListBySession(c.Request.Context(), examID, studentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"violations": violations})
}

func failGrading(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, service.ErrAnswerNotFound), errors.Is(err, service.ErrNotJoined):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotExamAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrAccessDenied)
	case errors.Is(err, service.ErrMarksOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrMarksOutOfRange)
	case errors.Is(err, service.ErrNotManuallyGradable):
		response.Fail(c, http.StatusConflict, response.ErrNotManuallyGradable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
