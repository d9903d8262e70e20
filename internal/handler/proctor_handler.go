package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/examhall/examhall-backend/internal/middleware"
	"github.com/examhall/examhall-backend/internal/service"
	ws "github.com/examhall/examhall-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation. An empty
// allow list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ProctorHandler receives proctoring events from the exam client over a
// WebSocket. Violations accumulate on the session and terminate it at the
// exam's threshold; the client is told immediately either way.
type ProctorHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewProctorHandler creates a new ProctorHandler.
func NewProctorHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *ProctorHandler {
	return &ProctorHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "proctor_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// Stream godoc
// WS /ws/v1/student/exams/:exam_id/proctor
// Upgrades to WebSocket for proctoring event intake.
func (h *ProctorHandler) Stream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.UserID

	if _, err := h.sessionService.VerifyActiveSession(c.Request.Context(), examID, studentID, time.Now()); err != nil {
		ws.SendError(conn, "no active session for this exam")
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Proctoring stream connected")

	for {
		var msg ws.ViolationRequest
		if err := ws.Receive(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			ws.Send(conn, ws.PongResponse{Event: ws.EventPong})

		case ws.ActionViolation:
			if msg.Kind == "" {
				ws.SendError(conn, "violation kind is required")
				continue
			}

			outcome, err := h.sessionService.RecordViolation(
				c.Request.Context(), examID, studentID, msg.Kind, msg.Detail, time.Now())
			if err != nil {
				ws.SendError(conn, "session is no longer active")
				return
			}

			if outcome.Terminated {
				ws.Send(conn, ws.TerminatedResponse{
					Event:      ws.EventTerminated,
					Violations: outcome.Count,
					Reason:     "violation limit reached",
				})
				wsLog.Info().Int("violations", outcome.Count).Msg("Stream closed after termination")
				return
			}

			remaining := outcome.Limit - outcome.Count
			if remaining < 0 {
				remaining = 0
			}
			ws.Send(conn, ws.WarningResponse{
				Event:      ws.EventWarning,
				Violations: outcome.Count,
				Remaining:  remaining,
			})

		default:
			ws.SendError(conn, "unknown action")
		}
	}
}
