package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/examhall/examhall-backend/internal/examtime"
	"github.com/examhall/examhall-backend/internal/middleware"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/examhall/examhall-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// StudentHandler handles the student exam-taking flow: lobby, join, start,
// paper, answers, state polling, and submit.
type StudentHandler struct {
	sessionService    *service.SessionService
	gradingService    *service.GradingService
	examService       *service.ExamService
	invitationService *service.InvitationService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(
	sessionService *service.SessionService,
	gradingService *service.GradingService,
	examService *service.ExamService,
	invitationService *service.InvitationService,
) *StudentHandler {
	return &StudentHandler{
		sessionService:    sessionService,
		gradingService:    gradingService,
		examService:       examService,
		invitationService: invitationService,
	}
}

// Lobby godoc
// GET /api/v1/student/exams
// Lists published exams with the student's own status on each.
func (h *StudentHandler) Lobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.sessionService.Lobby(c.Request.Context(), claims.UserID, time.Now())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": lobby})
}

// RecentResults godoc
// GET /api/v1/student/results
// Lists the student's own most recent finished attempts with scores.
func (h *StudentHandler) RecentResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	results, err := h.sessionService.RecentResults(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// Join godoc
// POST /api/v1/student/exams/:exam_id/join
// Enters the exam room. Idempotent: re-joining returns the same session.
func (h *StudentHandler) Join(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.JoinExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Join(c.Request.Context(), examID, claims.UserID, req.AccessCode, time.Now())
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Start godoc
// POST /api/v1/student/exams/:exam_id/start
// Starts the attempt clock. The start instant is stamped exactly once.
func (h *StudentHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), examID, claims.UserID, time.Now())
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Paper godoc
// GET /api/v1/student/exams/:exam_id/paper
// Returns the cached paper (no answer keys) plus the student's saved
// responses, so a refresh restores the attempt.
func (h *StudentHandler) Paper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	session, err := h.sessionService.VerifyActiveSession(c.Request.Context(), examID, claims.UserID, time.Now())
	if err != nil {
		failSession(c, err)
		return
	}

	paper, err := h.examService.GetExamPayload(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotAvailable)
		return
	}

	answers, err := h.gradingService.StudentAnswers(c.Request.Context(), session)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"paper":   paper,
		"answers": answers,
	})
}

// SaveAnswer godoc
// POST /api/v1/student/exams/:exam_id/answers
// Autosaves one response. Resubmitting the same question overwrites.
func (h *StudentHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.VerifyActiveSession(c.Request.Context(), examID, claims.UserID, time.Now())
	if err != nil {
		failSession(c, err)
		return
	}

	if err := h.gradingService.SaveAnswer(c.Request.Context(), session, req.QuestionID, req.Response); err != nil {
		if errors.Is(err, service.ErrQuestionMismatch) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// State godoc
// GET /api/v1/student/exams/:exam_id/state
// Polls the resolver-derived status. A session whose clock ran out is closed
// here as a side effect, so the UI and the sweeper always agree.
func (h *StudentHandler) State(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	status, session, err := h.sessionService.Status(c.Request.Context(), examID, claims.UserID, time.Now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	body := gin.H{"status": status}
	if status.TimeRemaining != nil {
		body["time_remaining_text"] = examtime.FormatTimeRemaining(*status.TimeRemaining)
		body["time_remaining_clock"] = examtime.FormatTimeRemainingShort(*status.TimeRemaining)
	}
	if session != nil {
		body["session"] = session
	}

	response.Success(c, http.StatusOK, body)
}

// Submit godoc
// POST /api/v1/student/exams/:exam_id/submit
// Finishes the attempt and freezes the auto-graded score.
func (h *StudentHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Submit(c.Request.Context(), examID, claims.UserID, time.Now())
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// RedeemInvitation godoc
// POST /api/v1/student/invitations/redeem
// Claims an invitation code, enrolling the student in its exam.
func (h *StudentHandler) RedeemInvitation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.RedeemInvitationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	inv, err := h.invitationService.Redeem(c.Request.Context(), req.Code, claims.UserID, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrInvitationInvalid) {
			response.Fail(c, http.StatusConflict, response.ErrInvitationInvalid)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam_id": inv.ExamID})
}

// failSession maps session-path service errors onto the response envelope.
func failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrExamNotAvailable):
		response.Fail(c, http.StatusConflict, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrExamNotYetOpen):
		// Window violations are access violations, not state conflicts.
		response.Fail(c, http.StatusForbidden, response.ErrExamNotYetOpen)
	case errors.Is(err, service.ErrExamWindowClosed):
		response.Fail(c, http.StatusForbidden, response.ErrExamWindowClosed)
	case errors.Is(err, service.ErrInvalidAccessCode):
		response.Fail(c, http.StatusForbidden, response.ErrInvalidAccessCode)
	case errors.Is(err, service.ErrNotEnrolled):
		response.Fail(c, http.StatusForbidden, response.ErrNotEnrolled)
	case errors.Is(err, service.ErrNotJoined):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrSessionAlreadyStarted):
		response.Fail(c, http.StatusConflict, response.ErrSessionAlreadyStarted)
	case errors.Is(err, service.ErrSessionAlreadyCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionAlreadyCompleted)
	case errors.Is(err, service.ErrSessionNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotStarted)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
