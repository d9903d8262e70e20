package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/examhall/examhall-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// Window violations are forbidden-access answers; only conflicting state
// transitions answer 409.
func TestFailSessionStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not yet open", service.ErrExamNotYetOpen, http.StatusForbidden},
		{"window closed", service.ErrExamWindowClosed, http.StatusForbidden},
		{"bad access code", service.ErrInvalidAccessCode, http.StatusForbidden},
		{"not enrolled", service.ErrNotEnrolled, http.StatusForbidden},
		{"already started", service.ErrSessionAlreadyStarted, http.StatusConflict},
		{"already completed", service.ErrSessionAlreadyCompleted, http.StatusConflict},
		{"not started", service.ErrSessionNotStarted, http.StatusConflict},
		{"not joined", service.ErrNotJoined, http.StatusNotFound},
		{"unknown exam", pgx.ErrNoRows, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			failSession(c, tc.err)

			if w.Code != tc.want {
				t.Errorf("failSession(%v) status = %d, want %d", tc.err, w.Code, tc.want)
			}
		})
	}
}
