package model

import (
	"time"

	"github.com/google/uuid"
)

// ConfidencePoint is one entry in the per-answer confidence timeline.
type ConfidencePoint struct {
	QuestionNumber int       `json:"question_number"`
	Confidence     int       `json:"confidence"`
	At             time.Time `json:"at"`
}

// LogEntry is a single line of the interviewer/candidate conversation.
type LogEntry struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Proctoring bundles the integrity telemetry attached to a report.
type Proctoring struct {
	Violations   []Violation       `json:"violations"`
	StrikeCount  int               `json:"strike_count"`
	Capabilities CapabilitiesState `json:"capabilities"`
}

// Metrics summarizes session-level signals for the scoring service.
type Metrics struct {
	QuestionsAsked     int               `json:"questions_asked"`
	FollowUpsIssued    int               `json:"follow_ups_issued"`
	AverageConfidence  float64           `json:"average_confidence"`
	DurationSeconds    int               `json:"duration_seconds"`
	ConfidenceTimeline []ConfidencePoint `json:"confidence_timeline"`
}

// ReportSummary is the listing projection of a stored report.
type ReportSummary struct {
	SessionID         uuid.UUID `json:"session_id"`
	CandidateRef      string    `json:"candidate_ref"`
	Outcome           Outcome   `json:"outcome"`
	AverageConfidence float64   `json:"average_confidence"`
	DurationSeconds   int       `json:"duration_seconds"`
	StrikeCount       int       `json:"strike_count"`
	SealedAt          time.Time `json:"sealed_at"`
}

// Report is the sealed, read-only output of a session, handed to the
// submission sink exactly once. This is the only externally visible schema
// the engine produces.
type Report struct {
	SessionID     uuid.UUID  `json:"session_id"`
	CandidateRef  string     `json:"candidate_ref"`
	Answers       []Answer   `json:"answers"`
	Proctoring    Proctoring `json:"proctoring"`
	Outcome       Outcome    `json:"outcome"`
	OutcomeReason string     `json:"outcome_reason,omitempty"`
	Metrics       Metrics    `json:"metrics"`
	Conversation  []LogEntry `json:"conversation,omitempty"`
	SealedAt      time.Time  `json:"sealed_at"`
}
