package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Grading errors.
var (
	ErrMarksOutOfRange     = errors.New("marks outside the question's range")
	ErrNotManuallyGradable = errors.New("question is graded automatically")
	ErrAnswerNotFound      = errors.New("answer not found")
	ErrQuestionMismatch    = errors.New("question does not belong to this exam")
)

// GradingStatus summarizes how far a session's grading has progressed.
type GradingStatus string

const (
	GradingStatusPending   GradingStatus = "PENDING"
	GradingStatusPartial   GradingStatus = "PARTIAL"
	GradingStatusCompleted GradingStatus = "COMPLETED"
)

// GradingSnapshot is the aggregate a teacher sees per session.
type GradingSnapshot struct {
	TotalScore    float64       `json:"total_score"`
	GradingStatus GradingStatus `json:"grading_status"`
	GradedCount   int           `json:"graded_count"`
	QuestionCount int           `json:"question_count"`
}

// Aggregate folds a session's answers into a snapshot. Unanswered questions
// count as ungraded: the status reaches COMPLETED only when every question on
// the paper carries marks.
func Aggregate(questionCount int, answers []model.Answer) GradingSnapshot {
	snap := GradingSnapshot{QuestionCount: questionCount}
	for i := range answers {
		if !answers[i].Graded() {
			continue
		}
		snap.GradedCount++
		snap.TotalScore += *answers[i].MarksObtained
	}
	switch {
	case snap.GradedCount == 0:
		snap.GradingStatus = GradingStatusPending
	case snap.GradedCount >= questionCount:
		snap.GradingStatus = GradingStatusCompleted
	default:
		snap.GradingStatus = GradingStatusPartial
	}
	return snap
}

// AutoGradeMCQ marks a multiple-choice response: full marks on an exact match
// with the correct option index, zero otherwise.
func AutoGradeMCQ(selected, correct int, maxMarks float64) float64 {
	if selected == correct {
		return maxMarks
	}
	return 0
}

// GradingService persists student answers, auto-grades MCQs on write, and
// applies teacher marks to the manually graded question types.
type GradingService struct {
	answerRepo   *repository.AnswerRepository
	questionRepo *repository.QuestionRepository
	sessionRepo  *repository.ExamSessionRepository
	examService  *ExamService
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewGradingService creates a new GradingService.
func NewGradingService(
	answerRepo *repository.AnswerRepository,
	questionRepo *repository.QuestionRepository,
	sessionRepo *repository.ExamSessionRepository,
	examService *ExamService,
	rdb *redis.Client,
	log zerolog.Logger,
) *GradingService {
	return &GradingService{
		answerRepo:   answerRepo,
		questionRepo: questionRepo,
		sessionRepo:  sessionRepo,
		examService:  examService,
		rdb:          rdb,
		log:          log.With().Str("component", "grading_service").Logger(),
	}
}

// SaveAnswer records one response for an in-progress session. The write goes
// to the Redis autosave hash immediately and to PostgreSQL through the answer
// worker queue. MCQ responses are graded inline against the cached answer key.
func (g *GradingService) SaveAnswer(ctx context.Context, session *model.ExamSession, questionID uuid.UUID, response json.RawMessage) error {
	question, err := g.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionMismatch
		}
		return fmt.Errorf("get question: %w", err)
	}
	if question.ExamID != session.ExamID {
		return ErrQuestionMismatch
	}

	var marks *float64
	if question.Type == model.QuestionTypeMCQ {
		marks = g.gradeMCQ(ctx, session.ExamID, question, response)
	}

	answersKey := config.CacheKey.StudentAnswersKey(session.ExamID.String(), session.StudentID)
	if err := g.rdb.HSet(ctx, answersKey, questionID.String(), []byte(response)).Err(); err != nil {
		g.log.Warn().Err(err).Msg("Autosave cache write failed")
	}

	event := persistAnswerEvent{
		SessionID:  session.ID,
		QuestionID: questionID,
		Response:   response,
		Marks:      marks,
		SavedAt:    time.Now().Unix(),
	}
	payload, _ := json.Marshal(event)
	if err := g.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		// Queue down: write through synchronously rather than lose the answer.
		g.log.Warn().Err(err).Msg("Answer queue unavailable, persisting inline")
		answer := &model.Answer{
			SessionID:  session.ID,
			QuestionID: questionID,
			Response:   response,
		}
		answer.MarksObtained = marks
		return g.answerRepo.Upsert(ctx, answer)
	}
	return nil
}

type persistAnswerEvent struct {
	SessionID  uuid.UUID       `json:"session_id"`
	QuestionID uuid.UUID       `json:"question_id"`
	Response   json.RawMessage `json:"response"`
	Marks      *float64        `json:"marks,omitempty"`
	SavedAt    int64           `json:"saved_at"`
}

// gradeMCQ resolves the correct option from the Redis answer key, falling
// back to the question row when the cache is cold.
func (g *GradingService) gradeMCQ(ctx context.Context, examID uuid.UUID, question *model.Question, response json.RawMessage) *float64 {
	var body struct {
		SelectedOption *int `json:"selected_option"`
	}
	if err := json.Unmarshal(response, &body); err != nil || body.SelectedOption == nil {
		zero := 0.0
		return &zero
	}

	correct, err := g.examService.GetCorrectOption(ctx, examID, question.ID)
	if err != nil {
		if question.MCQ == nil {
			g.log.Error().Str("question_id", question.ID.String()).Msg("MCQ question missing detail")
			return nil
		}
		correct = question.MCQ.CorrectOption
	}

	marks := AutoGradeMCQ(*body.SelectedOption, correct, question.MaxMarks)
	return &marks
}

// AssignMarks records a teacher's manual marks on a SAQ or coding answer.
// Re-grading is allowed; the latest marks win. MCQ answers are rejected.
func (g *GradingService) AssignMarks(ctx context.Context, authorID int, answerID uuid.UUID, marks float64) error {
	answer, err := g.answerRepo.GetByID(ctx, answerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAnswerNotFound
		}
		return fmt.Errorf("get answer: %w", err)
	}
	if answer.QuestionType == model.QuestionTypeMCQ {
		return ErrNotManuallyGradable
	}
	if marks < 0 || marks > answer.MaxMarks {
		return ErrMarksOutOfRange
	}

	session, err := g.sessionRepo.GetByID(ctx, answer.SessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if _, err := g.examService.RequireAuthor(ctx, session.ExamID, authorID); err != nil {
		return err
	}

	if err := g.answerRepo.AssignMarks(ctx, answerID, marks); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAnswerNotFound
		}
		return fmt.Errorf("assign marks: %w", err)
	}

	// The score worker folds the new marks into the session total.
	if err := g.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, answer.SessionID.String()).Err(); err != nil {
		g.log.Warn().Err(err).Msg("Score queue unavailable, recomputing inline")
		return g.answerRepo.RecomputeTotal(ctx, answer.SessionID)
	}
	return nil
}

// SessionAnswers returns a session's answers with its grading snapshot, for
// the teacher grading screen.
func (g *GradingService) SessionAnswers(ctx context.Context, authorID int, sessionID uuid.UUID) ([]model.Answer, GradingSnapshot, error) {
	session, err := g.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, GradingSnapshot{}, ErrNotJoined
		}
		return nil, GradingSnapshot{}, fmt.Errorf("get session: %w", err)
	}
	if _, err := g.examService.RequireAuthor(ctx, session.ExamID, authorID); err != nil {
		return nil, GradingSnapshot{}, err
	}

	answers, err := g.answerRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, GradingSnapshot{}, fmt.Errorf("list answers: %w", err)
	}
	questions, err := g.questionRepo.ListByExam(ctx, session.ExamID)
	if err != nil {
		return nil, GradingSnapshot{}, fmt.Errorf("list questions: %w", err)
	}
	return answers, Aggregate(len(questions), answers), nil
}

// StudentAnswers returns a student's own saved responses, autosave cache
// first with a PostgreSQL fallback, keyed by question ID.
func (g *GradingService) StudentAnswers(ctx context.Context, session *model.ExamSession) (map[string]json.RawMessage, error) {
	answersKey := config.CacheKey.StudentAnswersKey(session.ExamID.String(), session.StudentID)
	cached, err := g.rdb.HGetAll(ctx, answersKey).Result()
	if err == nil && len(cached) > 0 {
		out := make(map[string]json.RawMessage, len(cached))
		for qid, raw := range cached {
			out[qid] = json.RawMessage(raw)
		}
		return out, nil
	}

	answers, err := g.answerRepo.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make(map[string]json.RawMessage, len(answers))
	for i := range answers {
		out[answers[i].QuestionID.String()] = answers[i].Response
	}
	return out, nil
}
