package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ViolationBatchSize    = 100
	ViolationBatchTimeout = 2 * time.Second
	ViolationPollTimeout  = 1 * time.Second
)

// ViolationWorker persists the proctoring audit trail. The session counter
// and termination already happened on the request path; losing a batch here
// loses audit detail, never enforcement, which is why requeue-on-failure is
// enough.
type ViolationWorker struct {
	violationRepo *repository.ViolationRepository
	rdb           *redis.Client
	log           zerolog.Logger
}

func NewViolationWorker(violationRepo *repository.ViolationRepository, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		violationRepo: violationRepo,
		rdb:           rdb,
		log:           log.With().Str("component", "violation_worker").Logger(),
	}
}

type violationPayload struct {
	ExamID    string `json:"exam_id"`
	StudentID int    `json:"student_id"`
	Kind      string `json:"kind"`
	Detail    string `json:"detail"`
	Timestamp int64  `json:"timestamp"`
}

func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")

	batch := make([]*violationPayload, 0, ViolationBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ViolationBatchSize || time.Since(lastFlush) >= ViolationBatchTimeout) {

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
			item, err := w.rdb.BLPop(ctx, ViolationPollTimeout, config.WorkerKey.PersistViolationsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p violationPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *ViolationWorker) flushSafe(ctx context.Context, batch []*violationPayload) {
	if len(batch) == 0 {
		return
	}

	records := make([]model.Violation, 0, len(batch))
	for _, p := range batch {
		v, err := p.toModel()
		if err != nil {
			w.log.Error().Err(err).Str("exam_id", p.ExamID).Msg("Dropping malformed violation")
			continue
		}
		records = append(records, v)
	}
	if len(records) == 0 {
		return
	}

	if err := w.violationRepo.BulkInsert(ctx, records); err != nil {
		w.log.Warn().Err(err).Msg("bulk violation insert failed, using fallback")

		for i := range records {
			if err := w.violationRepo.Insert(ctx, &records[i]); err != nil {
				w.log.Error().Err(err).Msg("Insert failed, requeueing")
				raw, _ := json.Marshal(fromModel(&records[i]))
				w.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, raw)
			}
		}
	}
}

func (p *violationPayload) toModel() (model.Violation, error) {
	examID, err := uuid.Parse(p.ExamID)
	if err != nil {
		return model.Violation{}, err
	}
	return model.Violation{
		ExamID:     examID,
		StudentID:  p.StudentID,
		Kind:       p.Kind,
		Detail:     p.Detail,
		RecordedAt: time.Unix(p.Timestamp, 0),
	}, nil
}

func fromModel(v *model.Violation) *violationPayload {
	return &violationPayload{
		ExamID:    v.ExamID.String(),
		StudentID: v.StudentID,
		Kind:      v.Kind,
		Detail:    v.Detail,
		Timestamp: v.RecordedAt.Unix(),
	}
}
