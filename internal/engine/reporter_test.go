package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hiresense/interview-engine/internal/model"
)

func sealedSession() *model.Session {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(14 * time.Minute)
	return &model.Session{
		ID:            uuid.New(),
		CandidateRef:  "cand-42",
		Phase:         model.PhaseSealed,
		QuestionIndex: 2,
		Answers: []model.Answer{
			{QuestionID: "q-1", Text: "First answer.", Confidence: 6},
			{QuestionID: "q-2", Text: "Second answer.", Confidence: 8},
		},
		StartedAt: start,
		EndedAt:   &end,
		Outcome:   model.OutcomeCompleted,
	}
}

func TestBuildReport(t *testing.T) {
	s := sealedSession()
	proctoring := model.Proctoring{
		Violations:  []model.Violation{{Kind: model.ViolationFocusLoss, OccurredAt: s.StartedAt}},
		StrikeCount: 1,
		Capabilities: model.CapabilitiesState{
			model.CapabilityCamera: true,
		},
	}
	timeline := []model.ConfidencePoint{
		{QuestionNumber: 1, Confidence: 6},
		{QuestionNumber: 2, Confidence: 8},
	}
	conversation := []model.LogEntry{{Speaker: "Huma", Text: "Hello!"}}

	r := BuildReport(s, proctoring, conversation, timeline, 1)

	require.Equal(t, s.ID, r.SessionID)
	require.Equal(t, "cand-42", r.CandidateRef)
	require.Equal(t, model.OutcomeCompleted, r.Outcome)
	require.Len(t, r.Answers, 2)
	require.Equal(t, 1, r.Proctoring.StrikeCount)
	require.Equal(t, 2, r.Metrics.QuestionsAsked)
	require.Equal(t, 1, r.Metrics.FollowUpsIssued)
	require.InDelta(t, 7.0, r.Metrics.AverageConfidence, 0.001)
	require.Equal(t, 14*60, r.Metrics.DurationSeconds)
	require.Equal(t, timeline, r.Metrics.ConfidenceTimeline)
	require.Equal(t, conversation, r.Conversation)
	require.Equal(t, *s.EndedAt, r.SealedAt)
}

func TestBuildReportIsPure(t *testing.T) {
	s := sealedSession()
	timeline := []model.ConfidencePoint{{QuestionNumber: 1, Confidence: 6}}

	first := BuildReport(s, model.Proctoring{}, nil, timeline, 0)
	second := BuildReport(s, model.Proctoring{}, nil, timeline, 0)
	require.Equal(t, first, second)

	// Mutating the report must not reach back into the session.
	first.Answers[0].Text = "tampered"
	require.Equal(t, "First answer.", s.Answers[0].Text)

	first.Metrics.ConfidenceTimeline[0].Confidence = 0
	require.Equal(t, 6, timeline[0].Confidence)
}

func TestBuildReportNoAnswers(t *testing.T) {
	s := sealedSession()
	s.Answers = nil
	s.QuestionIndex = 0
	s.Outcome = model.OutcomeDisqualified
	s.OutcomeReason = "multiple visibility violations"

	r := BuildReport(s, model.Proctoring{StrikeCount: 2}, nil, nil, 0)

	require.Zero(t, r.Metrics.AverageConfidence)
	require.Empty(t, r.Answers)
	require.Equal(t, model.OutcomeDisqualified, r.Outcome)
	require.Equal(t, "multiple visibility violations", r.OutcomeReason)
}
