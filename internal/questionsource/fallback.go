package questionsource

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hiresense/interview-engine/internal/engine"
	"github.com/hiresense/interview-engine/internal/model"
)

// defaultBank is served when the question service is unreachable. The
// interview must always be conductable; a degraded question set beats a
// cancelled interview.
func defaultBank() []model.Question {
	qs := []model.Question{
		{Text: "Tell me about yourself and your professional background.", Category: "basic", Mode: model.ModeText},
		{Text: "Why are you interested in this position?", Category: "basic", Mode: model.ModeText},
		{Text: "Describe a challenging technical problem you solved recently and how you approached it.", Category: "technical", Mode: model.ModeVoice},
		{Text: "How do you ensure the quality of your work under a tight deadline?", Category: "technical", Mode: model.ModeVoice},
		{Text: "Tell me about a time you disagreed with a teammate. You have ninety seconds.", Category: "stress", Mode: model.ModeVoice, TimeLimitSeconds: 90},
		{Text: "What would you do if a production system failed minutes before a demo? Ninety seconds.", Category: "stress", Mode: model.ModeVoice, TimeLimitSeconds: 90},
	}
	for i := range qs {
		qs[i].ID = uuid.New().String()
	}
	return qs
}

// FallbackSource wraps a primary source and degrades to the built-in bank
// when fetching the sequence fails. Follow-up failures pass through: the
// engine already treats those as "no follow-up".
type FallbackSource struct {
	primary engine.QuestionSource
	log     zerolog.Logger
}

// NewFallbackSource wraps primary with the built-in bank.
func NewFallbackSource(primary engine.QuestionSource, log zerolog.Logger) *FallbackSource {
	return &FallbackSource{
		primary: primary,
		log:     log.With().Str("component", "question_source_fallback").Logger(),
	}
}

func (s *FallbackSource) GetQuestions(ctx context.Context, cand engine.CandidateContext) ([]model.Question, error) {
	questions, err := s.primary.GetQuestions(ctx, cand)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		s.log.Warn().Err(err).Str("candidate_ref", cand.CandidateRef).Msg("Question service unavailable, using built-in bank")
		return defaultBank(), nil
	}
	return questions, nil
}

func (s *FallbackSource) GetFollowUp(ctx context.Context, answerText string, q model.Question, candidateRef string) (*engine.FollowUp, error) {
	return s.primary.GetFollowUp(ctx, answerText, q, candidateRef)
}
