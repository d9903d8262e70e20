package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/examhall/examhall-backend/internal/response"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrNotExamAuthor = errors.New("not the author of this exam")
	ErrNoQuestions   = errors.New("exam has no questions, cannot publish")
	ErrExamNotDraft  = errors.New("exam status is not DRAFT")
)

// ExamService handles exam authoring, publishing, and the Redis paper cache.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, id)
}

// ListByAuthor retrieves exams, filtered by author unless authorID is 0.
func (s *ExamService) ListByAuthor(ctx context.Context, authorID, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	exams, total, err := s.examRepo.ListByAuthorPaginated(ctx, authorID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}

	if exams == nil {
		exams = []model.Exam{}
	}

	return exams, response.NewPagination(page, perPage, total), nil
}

// RequireAuthor loads an exam and checks ownership. authorID 0 bypasses the
// check for admin callers.
func (s *ExamService) RequireAuthor(ctx context.Context, examID uuid.UUID, authorID int) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if authorID != 0 && exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	return exam, nil
}

// Create inserts a new exam as DRAFT.
func (s *ExamService) Create(ctx context.Context, exam *model.Exam) error {
	exam.Status = model.ExamStatusDraft
	if exam.MaxViolations == 0 {
		exam.MaxViolations = 3
	}
	return s.examRepo.Create(ctx, exam)
}

// Update modifies an existing draft exam.
func (s *ExamService) Update(ctx context.Context, authorID int, exam *model.Exam) error {
	existing, err := s.examRepo.GetByID(ctx, exam.ID)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if existing.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	return s.examRepo.Update(ctx, exam)
}

// Delete removes a draft exam.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID, authorID int) error {
	existing, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if existing.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	return s.examRepo.Delete(ctx, id)
}

// Publish changes exam status to PUBLISHED and caches the paper plus the MCQ
// answer key in Redis. Scheduling fields are immutable from here on.
func (s *ExamService) Publish(ctx context.Context, examID uuid.UUID, authorID int) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}

	if authorID != 0 && exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}

	if err := s.WarmExamCache(ctx, exam); err != nil {
		return err
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam published")
	return nil
}

// WarmExamCache loads an exam's paper, duration, and MCQ answer key from
// PostgreSQL into Redis. Used by Publish and by the startup prewarm.
func (s *ExamService) WarmExamCache(ctx context.Context, exam *model.Exam) error {
	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		studentQuestions[i] = questions[i].ForStudent()
	}

	payload := model.ExamPayload{
		ExamID:    exam.ID,
		Title:     exam.Title,
		Duration:  exam.DurationMinutes,
		Questions: studentQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// MCQ answer key for in-RAM grading at answer submission time.
	answerKey := make(map[string]interface{})
	for i := range questions {
		q := &questions[i]
		if q.Type == model.QuestionTypeMCQ && q.MCQ != nil {
			answerKey[q.ID.String()] = strconv.Itoa(q.MCQ.CorrectOption)
		}
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPayloadKey(exam.ID.String()), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.ExamDurationKey(exam.ID.String()), exam.DurationMinutes, 0)
	pipe.Del(ctx, config.CacheKey.ExamAnswerKey(exam.ID.String()))
	if len(answerKey) > 0 {
		pipe.HSet(ctx, config.CacheKey.ExamAnswerKey(exam.ID.String()), answerKey)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", exam.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published exams into Redis on startup so the
// first student request never lazy-loads under load.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}

	if len(exams) == 0 {
		s.log.Info().Msg("No published exams to prewarm")
		return nil
	}

	warmed := 0
	for i := range exams {
		if err := s.WarmExamCache(ctx, &exams[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("exam_id", exams[i].ID.String()).
				Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(exams)).
		Msg("Prewarming complete")
	return nil
}

// GetExamPayload retrieves the cached student paper from Redis.
func (s *ExamService) GetExamPayload(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.New("exam not published or paper not cached")
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.ExamPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// GetCorrectOption retrieves one question's MCQ answer from the Redis key
// hash. Returns redis.Nil if the question has no cached key (not MCQ, or the
// exam was never warmed).
func (s *ExamService) GetCorrectOption(ctx context.Context, examID, questionID uuid.UUID) (int, error) {
	val, err := s.rdb.HGet(ctx, config.CacheKey.ExamAnswerKey(examID.String()), questionID.String()).Result()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}
