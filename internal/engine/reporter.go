package engine

import (
	"github.com/hiresense/interview-engine/internal/model"
)

// BuildReport assembles the final report from a sealed session and the
// signals accumulated during it. Pure: no side effects, same input produces
// the same report.
func BuildReport(s *model.Session, proctoring model.Proctoring, conversation []model.LogEntry, timeline []model.ConfidencePoint, followUpsIssued int) *model.Report {
	answers := make([]model.Answer, len(s.Answers))
	copy(answers, s.Answers)

	var confidenceSum int
	for _, a := range answers {
		confidenceSum += a.Confidence
	}
	var avg float64
	if len(answers) > 0 {
		avg = float64(confidenceSum) / float64(len(answers))
	}

	var duration int
	if s.EndedAt != nil {
		duration = int(s.EndedAt.Sub(s.StartedAt).Seconds())
	}

	points := make([]model.ConfidencePoint, len(timeline))
	copy(points, timeline)
	log := make([]model.LogEntry, len(conversation))
	copy(log, conversation)

	return &model.Report{
		SessionID:     s.ID,
		CandidateRef:  s.CandidateRef,
		Answers:       answers,
		Proctoring:    proctoring,
		Outcome:       s.Outcome,
		OutcomeReason: s.OutcomeReason,
		Metrics: model.Metrics{
			QuestionsAsked:     s.QuestionIndex,
			FollowUpsIssued:    followUpsIssued,
			AverageConfidence:  avg,
			DurationSeconds:    duration,
			ConfidenceTimeline: points,
		},
		Conversation: log,
		SealedAt:     *s.EndedAt,
	}
}
