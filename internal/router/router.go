package router

import (
	"net/http"
	"time"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/handler"
	"github.com/examhall/examhall-backend/internal/middleware"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	User      *handler.UserHandler
	Exam      *handler.ExamHandler
	Question  *handler.QuestionHandler
	Student   *handler.StudentHandler
	Grading   *handler.GradingHandler
	Dashboard *handler.DashboardHandler
	Proctor   *handler.ProctorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// Restrict CORS when AllowedOrigins is configured; otherwise allow all
	// so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so every response carries metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for credential and code guessing (30 per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Auth group (public, rate limited).
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
		auth.POST("/logout", middleware.RequireAuth(authService), handlers.Auth.Logout)
	}

	// Student group (JWT + single device).
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireAuth(authService),
		middleware.RequireRole(model.RoleStudent),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/exams", handlers.Student.Lobby)
		studentAPI.GET("/results", handlers.Student.RecentResults)
		studentAPI.POST("/exams/:exam_id/join", handlers.Student.Join)
		studentAPI.POST("/exams/:exam_id/start", handlers.Student.Start)
		studentAPI.GET("/exams/:exam_id/paper", handlers.Student.Paper)
		studentAPI.POST("/exams/:exam_id/answers", handlers.Student.SaveAnswer)
		studentAPI.GET("/exams/:exam_id/state", handlers.Student.State)
		studentAPI.POST("/exams/:exam_id/submit", handlers.Student.Submit)
		studentAPI.POST("/invitations/redeem", authLimiter.Middleware(), handlers.Student.RedeemInvitation)
	}

	// WebSocket group (token via query param).
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireAuth(authService),
		middleware.RequireRole(model.RoleStudent),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		ws.GET("/student/exams/:exam_id/proctor", handlers.Proctor.Stream)
	}

	// Manage group: teachers on their own exams, admins across all.
	manageAPI := router.Group("/api/v1/manage")
	manageAPI.Use(
		middleware.RequireAuth(authService),
		middleware.RequireRole(model.RoleTeacher, model.RoleAdmin),
	)
	{
		manageAPI.GET("/dashboard", handlers.Dashboard.Stats)

		manageAPI.GET("/exams", handlers.Exam.ListExams)
		manageAPI.POST("/exams", handlers.Exam.CreateExam)
		manageAPI.GET("/exams/:exam_id", handlers.Exam.GetExam)
		manageAPI.PUT("/exams/:exam_id", handlers.Exam.UpdateExam)
		manageAPI.DELETE("/exams/:exam_id", handlers.Exam.DeleteExam)
		manageAPI.POST("/exams/:exam_id/publish", handlers.Exam.PublishExam)
		manageAPI.GET("/exams/:exam_id/results", handlers.Exam.ListResults)

		manageAPI.GET("/exams/:exam_id/questions", handlers.Question.ListQuestions)
		manageAPI.POST("/exams/:exam_id/questions", handlers.Question.AddQuestion)
		manageAPI.DELETE("/exams/:exam_id/questions/:question_id", handlers.Question.DeleteQuestion)

		manageAPI.POST("/exams/:exam_id/invitations", handlers.Exam.CreateInvitations)
		manageAPI.GET("/exams/:exam_id/invitations", handlers.Exam.ListInvitations)

		manageAPI.GET("/sessions/:session_id/answers", handlers.Grading.SessionAnswers)
		manageAPI.PUT("/answers/:answer_id/marks", handlers.Grading.AssignMarks)
		manageAPI.GET("/exams/:exam_id/students/:student_id/violations", handlers.Grading.SessionViolations)
	}

	// Admin group: account management.
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(
		middleware.RequireAuth(authService),
		middleware.RequireRole(model.RoleAdmin),
	)
	{
		adminAPI.GET("/users", handlers.User.ListUsers)
		adminAPI.POST("/users", handlers.User.CreateUser)
		adminAPI.DELETE("/users/:user_id", handlers.User.DeleteUser)
	}

	return router
}
