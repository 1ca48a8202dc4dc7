package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hiresense/interview-engine/internal/config"
	"github.com/hiresense/interview-engine/internal/model"
	"github.com/hiresense/interview-engine/internal/repository"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ReportWorker drains sealed interview reports from the Redis queue into
// PostgreSQL. Batched for throughput; individual inserts and requeueing
// cover the failure paths.
type ReportWorker struct {
	repo *repository.ReportRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewReportWorker(repo *repository.ReportRepository, rdb *redis.Client, log zerolog.Logger) *ReportWorker {
	return &ReportWorker{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "report_worker").Logger(),
	}
}

func (w *ReportWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ReportWorker started")

	buffer := make([]*model.Report, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check Flush Conditions (Time or Size)
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0] // Clear buffer, keep capacity
				lastFlushTime = time.Now()
			}
		}

		// 2. Check Context (Graceful Shutdown)
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
			// Continue
		}

		// 3. Fetch from Redis
		// BLPop blocks for up to PollTimeout. Returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistReportsQueue).Result()

		if err != nil {
			if err == redis.Nil {
				continue // Timeout (queue empty), loop back to check flush timer
			}
			if ctx.Err() != nil {
				return // Context cancelled
			}
			// Real Redis error (e.g., connection lost)
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		// 4. Process Data
		if len(result) < 2 {
			continue
		}

		var report model.Report
		if err := json.Unmarshal([]byte(result[1]), &report); err != nil {
			// If JSON is malformed, we CANNOT retry it. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed report JSON")
			continue
		}

		buffer = append(buffer, &report)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *ReportWorker) flushSafe(ctx context.Context, batch []*model.Report) {
	if err := w.repo.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
		return
	}
	w.log.Debug().Int("count", len(batch)).Msg("Reports persisted")
}

func (w *ReportWorker) fallbackInsert(ctx context.Context, batch []*model.Report) {
	requeueList := make([]*model.Report, 0)

	for _, report := range batch {
		if err := w.repo.Insert(ctx, report); err != nil {
			w.log.Error().Err(err).
				Str("session_id", report.SessionID.String()).
				Msg("Insert failed, requeueing")
			requeueList = append(requeueList, report)
		}
	}

	// If we have items to requeue (DB was down), push them back to Redis.
	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ReportWorker) requeue(ctx context.Context, items []*model.Report) {
	// Use a pipeline to push everything back quickly.
	pipe := w.rdb.Pipeline()
	for _, report := range items {
		data, _ := json.Marshal(report)
		pipe.RPush(ctx, config.WorkerKey.PersistReportsQueue, data)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue reports to Redis. Data loss occurred.")
	} else {
		w.log.Info().Int("count", len(items)).Msg("Requeued failed reports back to Redis")
		// Sleep a bit to avoid thrashing if the DB is down hard.
		time.Sleep(2 * time.Second)
	}
}

func (w *ReportWorker) shutdown(buffer []*model.Report) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	// Give it 5 seconds to flush to DB.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
