package model

import (
	"time"

	"github.com/google/uuid"
)

// Phase enumerates interview session states. Transitions are monotonic; the
// only permitted crossover is the single text-to-voice handoff.
type Phase string

const (
	PhaseSetup      Phase = "SETUP"
	PhaseText       Phase = "TEXT_PHASE"
	PhaseVoice      Phase = "VOICE_PHASE"
	PhaseCompleting Phase = "COMPLETING"
	PhaseSealed     Phase = "SEALED"
)

// Outcome is the terminal result of a session.
type Outcome string

const (
	OutcomePending      Outcome = "pending"
	OutcomeCompleted    Outcome = "completed"
	OutcomeDisqualified Outcome = "disqualified"
)

// Session is the aggregate root for one candidate interview. Answers and
// violations are owned by the session and cannot outlive it. Phase and
// QuestionIndex are the only mutable scalar fields; everything else is
// append-only or write-once. The session is sealed exactly once, either by
// normal completion or by disqualification.
type Session struct {
	ID            uuid.UUID         `json:"id"`
	CandidateRef  string            `json:"candidate_ref"`
	Phase         Phase             `json:"phase"`
	QuestionIndex int               `json:"question_index"`
	Answers       []Answer          `json:"answers"`
	Violations    []Violation       `json:"violations"`
	StrikeCount   int               `json:"strike_count"`
	Capabilities  CapabilitiesState `json:"capabilities"`
	StartedAt     time.Time         `json:"started_at"`
	EndedAt       *time.Time        `json:"ended_at,omitempty"`
	Outcome       Outcome           `json:"outcome"`
	OutcomeReason string            `json:"outcome_reason,omitempty"`
}

// Sealed reports whether the session has reached its terminal state.
func (s *Session) Sealed() bool {
	return s.Phase == PhaseSealed
}
