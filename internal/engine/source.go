package engine

import (
	"context"

	"github.com/hiresense/interview-engine/internal/model"
)

// CandidateContext carries what the question source knows about the
// candidate. The engine only reads it for the opening announcement; it never
// computes skills itself.
type CandidateContext struct {
	CandidateRef string   `json:"candidate_ref"`
	Name         string   `json:"name"`
	Skills       []string `json:"skills"`
}

// FollowUp is a supplementary question proposed by the question source.
type FollowUp struct {
	Question string `json:"follow_up_question"`
	Reason   string `json:"reason,omitempty"`
}

// QuestionSource supplies the ordered question sequence and, on demand,
// follow-up questions. GetFollowUp failing or returning nil is never fatal:
// the session proceeds without a follow-up.
type QuestionSource interface {
	GetQuestions(ctx context.Context, cand CandidateContext) ([]model.Question, error)
	GetFollowUp(ctx context.Context, answerText string, q model.Question, candidateRef string) (*FollowUp, error)
}

// SubmissionSink receives the sealed report. The engine attempts delivery
// exactly once per session and does not retry failures itself.
type SubmissionSink interface {
	Submit(ctx context.Context, report *model.Report) error
}
