package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	AnswerBatchSize    = 100
	AnswerBatchTimeout = 2 * time.Second
	AnswerPollTimeout  = 1 * time.Second
)

// AnswerWorker drains the autosave queue into PostgreSQL. Within a batch the
// last write per (session, question) pair wins, matching the submit-overwrite
// semantics of the synchronous path.
type AnswerWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewAnswerWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *AnswerWorker {
	return &AnswerWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "answer_worker").Logger(),
	}
}

type answerPayload struct {
	SessionID  uuid.UUID       `json:"session_id"`
	QuestionID uuid.UUID       `json:"question_id"`
	Response   json.RawMessage `json:"response"`
	Marks      *float64        `json:"marks,omitempty"`
	SavedAt    int64           `json:"saved_at"`
}

func (w *AnswerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AnswerWorker started")

	batch := make([]*answerPayload, 0, AnswerBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AnswerBatchSize || time.Since(lastFlush) >= AnswerBatchTimeout) {

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
			item, err := w.rdb.BLPop(ctx, AnswerPollTimeout, config.WorkerKey.PersistAnswersQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p answerPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *AnswerWorker) flushSafe(ctx context.Context, batch []*answerPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpsertAnswers(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk answer upsert failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("Single upsert failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw)
			}
		}
	}
}

func (w *AnswerWorker) bulkUpsertAnswers(ctx context.Context, batch []*answerPayload) error {
	// Dedupe so the UNNEST upsert never touches one row twice in a statement.
	type key struct {
		session  uuid.UUID
		question uuid.UUID
	}
	latest := make(map[key]*answerPayload, len(batch))
	order := make([]key, 0, len(batch))
	for _, p := range batch {
		k := key{p.SessionID, p.QuestionID}
		if _, seen := latest[k]; !seen {
			order = append(order, k)
		}
		latest[k] = p
	}

	n := len(order)
	sessionIDs := make([]uuid.UUID, 0, n)
	questionIDs := make([]uuid.UUID, 0, n)
	responses := make([][]byte, 0, n)
	marks := make([]*float64, 0, n)
	gradedAts := make([]*time.Time, 0, n)

	now := time.Now()
	for _, k := range order {
		p := latest[k]
		sessionIDs = append(sessionIDs, p.SessionID)
		questionIDs = append(questionIDs, p.QuestionID)
		responses = append(responses, []byte(p.Response))
		marks = append(marks, p.Marks)
		if p.Marks != nil {
			gradedAts = append(gradedAts, &now)
		} else {
			gradedAts = append(gradedAts, nil)
		}
	}

	query := `
		INSERT INTO answers (session_id, question_id, response, marks_obtained, graded_at)
		SELECT u.session_id, u.question_id, u.response, u.marks, u.graded_at
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::jsonb[],
			$4::float8[],
			$5::timestamptz[]
		) AS u (session_id, question_id, response, marks, graded_at)
		ON CONFLICT (session_id, question_id) DO UPDATE
		SET response = EXCLUDED.response,
		    marks_obtained = EXCLUDED.marks_obtained,
		    graded_at = EXCLUDED.graded_at,
		    updated_at = NOW()
	`

	_, err := w.pool.Exec(ctx, query, sessionIDs, questionIDs, responses, marks, gradedAts)
	return err
}

func (w *AnswerWorker) persistSingle(ctx context.Context, p *answerPayload) error {
	var gradedAt *time.Time
	if p.Marks != nil {
		now := time.Now()
		gradedAt = &now
	}

	_, err := w.pool.Exec(ctx,
		`INSERT INTO answers (session_id, question_id, response, marks_obtained, graded_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET response = EXCLUDED.response,
		     marks_obtained = EXCLUDED.marks_obtained,
		     graded_at = EXCLUDED.graded_at,
		     updated_at = NOW()`,
		p.SessionID, p.QuestionID, []byte(p.Response), p.Marks, gradedAt,
	)
	return err
}
