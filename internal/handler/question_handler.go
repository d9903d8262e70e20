package handler

import (
	"net/http"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/examhall/examhall-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// QuestionHandler handles question authoring endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ListQuestions godoc
// GET /api/v1/manage/exams/:exam_id/questions
// Returns the paper in order, answer keys included. Author-facing.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	questions, err := h.questionService.ListByExam(c.Request.Context(), examID, author)
	if err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AddQuestion godoc
// POST /api/v1/manage/exams/:exam_id/questions
// Appends a question to a draft exam. The detail payload must match the
// declared type.
func (h *QuestionHandler) AddQuestion(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question := &model.Question{
		Type:     model.QuestionType(req.Type),
		Text:     req.Text,
		MaxMarks: req.MaxMarks,
		Position: req.Position,
		MCQ:      req.MCQ,
		SAQ:      req.SAQ,
		Coding:   req.Coding,
	}
	if fields := question.ValidateDetail(); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.questionService.Add(c.Request.Context(), examID, author, question); err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// DeleteQuestion godoc
// DELETE /api/v1/manage/exams/:exam_id/questions/:question_id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	author, ok := authorFilter(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), examID, questionID, author); err != nil {
		failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
