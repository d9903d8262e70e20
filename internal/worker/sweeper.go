package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SessionStore is the slice of the session repository the sweeper needs.
type SessionStore interface {
	CompleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionSweeper periodically closes sessions whose attempt deadline or exam
// window has passed without a submit. The sweep is a single conditional
// UPDATE, so overlapping runs and the lazy per-request timeout path never
// double-close a session.
type SessionSweeper struct {
	store    SessionStore
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewSessionSweeper(store SessionStore, interval time.Duration, log zerolog.Logger) *SessionSweeper {
	return &SessionSweeper{
		store:    store,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "session_sweeper").Logger(),
	}
}

func (w *SessionSweeper) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("SessionSweeper started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Sweep once at boot to clear anything left over from downtime.
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("SessionSweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SessionSweeper) sweep(ctx context.Context) {
	closed, err := w.store.CompleteExpired(ctx, w.now())
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Sweep failed")
		}
		return
	}
	if closed > 0 {
		w.log.Info().Int64("sessions_closed", closed).Msg("Swept expired sessions")
	}
}
