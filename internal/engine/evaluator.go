package engine

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hiresense/interview-engine/internal/model"
)

// Confidence scoring weights. A cheap lexical heuristic, not a model call:
// it must run synchronously and never block the interview flow.
const (
	confidenceBase  = 5
	confidenceMax   = 10
	longAnswerWords = 30
	lowPauseSeconds = 3.0
	bonusLongAnswer = 2
	bonusExamples   = 2
	bonusNumbers    = 1
	bonusLowPause   = 1
)

// ScoreAnswer computes a deterministic 0-10 confidence for an answer:
// word count, concrete-example cues, numeric content, and for voice answers
// a low trailing pause.
func ScoreAnswer(text string, vm *model.VoiceMetrics) int {
	lower := strings.ToLower(text)

	score := confidenceBase
	if len(strings.Fields(text)) > longAnswerWords {
		score += bonusLongAnswer
	}
	if strings.Contains(lower, "example") || strings.Contains(lower, "for instance") {
		score += bonusExamples
	}
	if strings.ContainsFunc(text, unicode.IsDigit) {
		score += bonusNumbers
	}
	if vm != nil && vm.PauseDuration < lowPauseSeconds {
		score += bonusLowPause
	}
	if score > confidenceMax {
		score = confidenceMax
	}
	return score
}

// FollowUpPolicy decides whether to attempt a follow-up for an answer. It is
// injectable so tests can substitute a deterministic source.
type FollowUpPolicy func() bool

// NewRandomFollowUpPolicy attempts a follow-up with probability p. The
// default p of 0.5 is a pacing decision, not a correctness one.
func NewRandomFollowUpPolicy(p float64, rng *rand.Rand) FollowUpPolicy {
	var mu sync.Mutex
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return func() bool {
		mu.Lock()
		defer mu.Unlock()
		return rng.Float64() < p
	}
}

// Evaluator scores answers and decides follow-ups. Follow-up text comes from
// the external question source; any failure there degrades to "no follow-up".
type Evaluator struct {
	source QuestionSource
	policy FollowUpPolicy
	log    zerolog.Logger
}

// NewEvaluator builds an evaluator over the given source and policy.
func NewEvaluator(source QuestionSource, policy FollowUpPolicy, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		source: source,
		policy: policy,
		log:    log.With().Str("component", "evaluator").Logger(),
	}
}

// DecideFollowUp returns an inserted follow-up question, or nil to proceed.
// Follow-ups never chain: a question that is itself a follow-up gets none,
// so at most one follow-up exists per original question.
func (e *Evaluator) DecideFollowUp(ctx context.Context, answerText string, q model.Question, candidateRef string) *model.Question {
	if q.FollowUp {
		return nil
	}
	if !e.policy() {
		return nil
	}

	fu, err := e.source.GetFollowUp(ctx, answerText, q, candidateRef)
	if err != nil {
		e.log.Debug().Err(err).Str("question_id", q.ID).Msg("Follow-up unavailable, continuing")
		return nil
	}
	if fu == nil || strings.TrimSpace(fu.Question) == "" {
		return nil
	}

	return &model.Question{
		ID:       uuid.New().String(),
		Text:     fu.Question,
		Category: q.Category,
		Mode:     q.Mode,
		FollowUp: true,
		ParentID: q.ID,
	}
}
