package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeSessionStore struct {
	sweeps  atomic.Int64
	closed  int64
	err     error
	lastNow atomic.Value
}

func (f *fakeSessionStore) CompleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.sweeps.Add(1)
	f.lastNow.Store(now)
	if f.err != nil {
		return 0, f.err
	}
	return f.closed, nil
}

func TestSessionSweeper_SweepsOnBootAndTick(t *testing.T) {
	store := &fakeSessionStore{closed: 3}
	sweeper := NewSessionSweeper(store, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.sweeps.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 sweeps, got %d", store.sweeps.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSessionSweeper_InjectedClock(t *testing.T) {
	store := &fakeSessionStore{}
	sweeper := NewSessionSweeper(store, time.Hour, zerolog.Nop())

	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return fixed }

	sweeper.sweep(context.Background())

	if got := store.lastNow.Load().(time.Time); !got.Equal(fixed) {
		t.Errorf("sweep used now = %v, want %v", got, fixed)
	}
}

func TestSessionSweeper_SurvivesStoreErrors(t *testing.T) {
	store := &fakeSessionStore{err: errors.New("connection refused")}
	sweeper := NewSessionSweeper(store, time.Hour, zerolog.Nop())

	// Must not panic or abort; the next tick retries.
	sweeper.sweep(context.Background())
	sweeper.sweep(context.Background())

	if got := store.sweeps.Load(); got != 2 {
		t.Errorf("sweeps = %d, want 2", got)
	}
}
