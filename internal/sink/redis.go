// Package sink delivers sealed interview reports to durable storage. The
// default implementation enqueues to Redis; a background worker drains the
// queue into PostgreSQL so report delivery never blocks on the database.
package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hiresense/interview-engine/internal/config"
	"github.com/hiresense/interview-engine/internal/model"
)

// RedisSink pushes sealed reports onto the persistence queue.
type RedisSink struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisSink creates a RedisSink.
func NewRedisSink(rdb *redis.Client, log zerolog.Logger) *RedisSink {
	return &RedisSink{
		rdb: rdb,
		log: log.With().Str("component", "report_sink").Logger(),
	}
}

// Submit enqueues one report. The engine calls this exactly once per
// session; a returned error is logged by the caller, not retried.
func (s *RedisSink) Submit(ctx context.Context, report *model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistReportsQueue, data).Err(); err != nil {
		return fmt.Errorf("enqueue report: %w", err)
	}

	s.log.Debug().
		Str("session_id", report.SessionID.String()).
		Str("candidate_ref", report.CandidateRef).
		Msg("Report enqueued")
	return nil
}
