package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/database"
	"github.com/examhall/examhall-backend/internal/handler"
	"github.com/examhall/examhall-backend/internal/logger"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/examhall/examhall-backend/internal/router"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/examhall/examhall-backend/internal/validator"
	"github.com/examhall/examhall-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExamHall Backend")

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Repositories.
	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewExamSessionRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	invitationRepo := repository.NewInvitationRepository(pool)
	violationRepo := repository.NewViolationRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// Services.
	authService := service.NewAuthService(cfg, rdb)
	examService := service.NewExamService(examRepo, questionRepo, rdb, log)
	questionService := service.NewQuestionService(questionRepo, examService, log)
	sessionService := service.NewSessionService(sessionRepo, examRepo, invitationRepo, answerRepo, rdb, log)
	gradingService := service.NewGradingService(answerRepo, questionRepo, sessionRepo, examService, rdb, log)
	invitationService := service.NewInvitationService(invitationRepo, examService, nil, log)
	dashboardService := service.NewDashboardService(dashboardRepo, log)

	// Handlers.
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, userRepo),
		User:      handler.NewUserHandler(userRepo, authService),
		Exam:      handler.NewExamHandler(examService, sessionService, invitationService),
		Question:  handler.NewQuestionHandler(questionService),
		Student:   handler.NewStudentHandler(sessionService, gradingService, examService, invitationService),
		Grading:   handler.NewGradingHandler(gradingService, examService, violationRepo),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		Proctor:   handler.NewProctorHandler(sessionService, log, cfg.AllowedOrigins),
	}

	// Background workers.
	workerCtx, workerCancel := context.WithCancel(context.Background())

	sweeper := worker.NewSessionSweeper(sessionRepo, cfg.SweepInterval, log)
	answerWorker := worker.NewAnswerWorker(pool, rdb, log)
	scoreWorker := worker.NewScoreWorker(answerRepo, rdb, log)
	violationWorker := worker.NewViolationWorker(violationRepo, rdb, log)

	go sweeper.Start(workerCtx)
	go answerWorker.Start(workerCtx)
	go scoreWorker.Start(workerCtx)
	go violationWorker.Start(workerCtx)

	// Load all published papers into Redis before accepting traffic so the
	// first student request never lazy-loads under a thundering herd.
	if err := examService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	r := router.SetupRouter(authService, handlers, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
