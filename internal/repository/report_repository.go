package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hiresense/interview-engine/internal/model"
)

type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// BulkInsert writes a batch of reports in one round trip.
func (r *ReportRepository) BulkInsert(ctx context.Context, reports []*model.Report) error {
	rows := make([][]interface{}, 0, len(reports))
	for _, rep := range reports {
		doc, err := json.Marshal(rep)
		if err != nil {
			return fmt.Errorf("marshal report %s: %w", rep.SessionID, err)
		}
		rows = append(rows, []interface{}{
			rep.SessionID,
			rep.CandidateRef,
			string(rep.Outcome),
			rep.OutcomeReason,
			rep.Metrics.QuestionsAsked,
			rep.Metrics.FollowUpsIssued,
			rep.Metrics.AverageConfidence,
			rep.Metrics.DurationSeconds,
			rep.Proctoring.StrikeCount,
			doc,
			rep.SealedAt,
		})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"interview_reports"},
		[]string{
			"session_id", "candidate_ref", "outcome", "outcome_reason",
			"questions_asked", "follow_ups_issued", "average_confidence",
			"duration_seconds", "strike_count", "report", "sealed_at",
		},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert writes a single report. Conflicting session IDs are ignored so a
// requeued report is never stored twice.
func (r *ReportRepository) Insert(ctx context.Context, rep *model.Report) error {
	doc, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report %s: %w", rep.SessionID, err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO interview_reports
		     (session_id, candidate_ref, outcome, outcome_reason,
		      questions_asked, follow_ups_issued, average_confidence,
		      duration_seconds, strike_count, report, sealed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11)
		 ON CONFLICT (session_id) DO NOTHING`,
		rep.SessionID, rep.CandidateRef, string(rep.Outcome), rep.OutcomeReason,
		rep.Metrics.QuestionsAsked, rep.Metrics.FollowUpsIssued,
		rep.Metrics.AverageConfidence, rep.Metrics.DurationSeconds,
		rep.Proctoring.StrikeCount, string(doc), rep.SealedAt,
	)
	return err
}

// GetLatestByCandidateRef returns the candidate's most recent report, or
// pgx.ErrNoRows.
func (r *ReportRepository) GetLatestByCandidateRef(ctx context.Context, candidateRef string) (*model.Report, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx,
		`SELECT report FROM interview_reports
		 WHERE candidate_ref = $1
		 ORDER BY sealed_at DESC
		 LIMIT 1`,
		candidateRef,
	).Scan(&doc)
	if err != nil {
		return nil, err
	}

	var rep model.Report
	if err := json.Unmarshal(doc, &rep); err != nil {
		return nil, fmt.Errorf("unmarshal stored report: %w", err)
	}
	return &rep, nil
}

// ListSummaries returns a page of report summaries, newest first, with the
// total row count for pagination.
func (r *ReportRepository) ListSummaries(ctx context.Context, page, perPage int) ([]model.ReportSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM interview_reports`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT session_id, candidate_ref, outcome, average_confidence,
		        duration_seconds, strike_count, sealed_at
		 FROM interview_reports
		 ORDER BY sealed_at DESC
		 LIMIT $1 OFFSET $2`,
		perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var summaries []model.ReportSummary
	for rows.Next() {
		var s model.ReportSummary
		if err := rows.Scan(&s.SessionID, &s.CandidateRef, &s.Outcome,
			&s.AverageConfidence, &s.DurationSeconds, &s.StrikeCount, &s.SealedAt); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}
