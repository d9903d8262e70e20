package service

import (
	"context"
	"errors"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var ErrQuestionNotFound = errors.New("question not found")

// QuestionService handles question authoring. Papers are frozen at publish:
// every mutation requires the exam to still be a draft.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	examService  *ExamService
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository, examService *ExamService, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		examService:  examService,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// ListByExam returns an exam's questions in paper order, answer keys intact.
// Author-facing; student paper delivery goes through the exam payload cache.
func (s *QuestionService) ListByExam(ctx context.Context, examID uuid.UUID, authorID int) ([]model.Question, error) {
	if _, err := s.examService.RequireAuthor(ctx, examID, authorID); err != nil {
		return nil, err
	}
	return s.questionRepo.ListByExam(ctx, examID)
}

// Add appends a question to a draft exam.
func (s *QuestionService) Add(ctx context.Context, examID uuid.UUID, authorID int, question *model.Question) error {
	exam, err := s.examService.RequireAuthor(ctx, examID, authorID)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}

	question.ExamID = examID
	if question.Position == 0 {
		existing, err := s.questionRepo.ListByExam(ctx, examID)
		if err != nil {
			return err
		}
		question.Position = len(existing) + 1
	}
	return s.questionRepo.Add(ctx, question)
}

// Delete removes a question from a draft exam.
func (s *QuestionService) Delete(ctx context.Context, examID, questionID uuid.UUID, authorID int) error {
	exam, err := s.examService.RequireAuthor(ctx, examID, authorID)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}

	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return err
	}
	if question.ExamID != examID {
		return ErrQuestionNotFound
	}
	return s.questionRepo.Delete(ctx, questionID)
}
