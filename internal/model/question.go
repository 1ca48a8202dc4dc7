package model

// QuestionMode selects the input channel for a question.
type QuestionMode string

const (
	ModeText  QuestionMode = "text"
	ModeVoice QuestionMode = "voice"
)

// Question is a single interview question as issued by the question source.
// Immutable once issued. Follow-up questions are generated mid-session and
// inserted ahead of the next scheduled question; they carry FollowUp=true and
// reference the question that prompted them.
type Question struct {
	ID               string       `json:"id"`
	Text             string       `json:"text"`
	Category         string       `json:"category"`
	Mode             QuestionMode `json:"mode"`
	Difficulty       string       `json:"difficulty,omitempty"`
	TimeLimitSeconds int          `json:"time_limit_seconds,omitempty"`
	FollowUp         bool         `json:"follow_up,omitempty"`
	ParentID         string       `json:"parent_id,omitempty"`
}
