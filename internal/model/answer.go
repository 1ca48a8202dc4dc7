package model

import "time"

// VoiceMetrics captures delivery characteristics of a spoken answer,
// derived from transcript timing on the capture side.
type VoiceMetrics struct {
	SpeechRate      int     `json:"speech_rate"`      // words per minute
	PauseDuration   float64 `json:"pause_duration"`   // seconds of trailing silence
	VolumeVariation float64 `json:"volume_variation"` // 0..1
	PitchVariation  float64 `json:"pitch_variation"`  // 0..1
}

// Answer is a candidate's response to one question. Created at submit time
// and immutable thereafter. VoiceMetrics is present only for voice answers.
// An auto-submitted answer was force-committed by a question timer or by
// session termination; a disqualified session's in-flight answer is recorded
// with Confidence 0 (scoring is skipped).
type Answer struct {
	QuestionID    string        `json:"question_id"`
	QuestionText  string        `json:"question_text"`
	Text          string        `json:"text"`
	Mode          QuestionMode  `json:"mode"`
	StartedAt     time.Time     `json:"started_at"`
	SubmittedAt   time.Time     `json:"submitted_at"`
	WordCount     int           `json:"word_count"`
	Confidence    int           `json:"confidence"`
	AutoSubmitted bool          `json:"auto_submitted,omitempty"`
	VoiceMetrics  *VoiceMetrics `json:"voice_metrics,omitempty"`
}
