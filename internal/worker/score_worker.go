package worker

import (
	"context"
	"time"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ScoreBatchSize    = 50
	ScoreBatchTimeout = 2 * time.Second
	ScorePollTimeout  = 1 * time.Second
)

// ScoreWorker recomputes session totals after manual grading. The queue
// carries plain session UUIDs; batches collapse into one grouped UPDATE.
type ScoreWorker struct {
	answerRepo *repository.AnswerRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

func NewScoreWorker(answerRepo *repository.AnswerRepository, rdb *redis.Client, log zerolog.Logger) *ScoreWorker {
	return &ScoreWorker{
		answerRepo: answerRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "score_worker").Logger(),
	}
}

func (w *ScoreWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoreWorker started")

	batch := make([]uuid.UUID, 0, ScoreBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ScoreBatchSize || time.Since(lastFlush) >= ScoreBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.PersistScoresQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			id, err := uuid.Parse(item[1])
			if err != nil {
				w.log.Error().Err(err).Str("payload", item[1]).Msg("Invalid session ID")
				continue
			}

			batch = append(batch, id)
		}
	}
}

func (w *ScoreWorker) flushSafe(ctx context.Context, batch []uuid.UUID) {
	if len(batch) == 0 {
		return
	}

	if err := w.answerRepo.RecomputeTotals(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk total recompute failed, using fallback")

		for _, id := range batch {
			if err := w.answerRepo.RecomputeTotal(ctx, id); err != nil {
				w.log.Error().Err(err).Str("session_id", id.String()).Msg("Recompute failed, requeueing")
				w.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, id.String())
			}
		}
	}
}
