package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	// ActionReady signals that the client finished its local setup and the
	// session may begin.
	ActionReady Action = "ready"
	// ActionCapability answers a capability request, or reports a stream
	// revoked after acquisition.
	ActionCapability Action = "capability"
	// ActionVisibility reports a page focus change.
	ActionVisibility Action = "visibility"
	// ActionTranscript delivers a speech recognition result.
	ActionTranscript Action = "transcript"
	// ActionRecognitionEnded reports that the continuous recognition
	// session ended on the client.
	ActionRecognitionEnded Action = "recognition_ended"
	// ActionUtteranceDone acknowledges that a requested utterance finished
	// playing (or failed).
	ActionUtteranceDone Action = "utterance_done"
	// ActionAnswer submits the current answer.
	ActionAnswer Action = "answer"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// CapabilityRequest reports a grant decision or a revocation.
type CapabilityRequest struct {
	Action     Action `json:"action"`
	Capability string `json:"capability"`
	Granted    bool   `json:"granted"`
}

// VisibilityRequest reports whether the interview surface is hidden.
type VisibilityRequest struct {
	Action Action `json:"action"`
	Hidden bool   `json:"hidden"`
}

// TranscriptRequest carries the text recognized so far. Final closes the
// current utterance.
type TranscriptRequest struct {
	Action Action `json:"action"`
	Text   string `json:"text"`
	Final  bool   `json:"final"`
}

// RecognitionEndedRequest reports the recognition session ending. Error is
// empty for a normal end; "no-speech" is expected and benign.
type RecognitionEndedRequest struct {
	Action Action `json:"action"`
	Error  string `json:"error,omitempty"`
}

// UtteranceDoneRequest completes a speak instruction.
type UtteranceDoneRequest struct {
	Action      Action `json:"action"`
	UtteranceID string `json:"utterance_id"`
	Error       string `json:"error,omitempty"`
}

// AnswerRequest submits an answer for the current question.
type AnswerRequest struct {
	Action Action `json:"action"`
	Text   string `json:"text"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	// EventCapabilityRequest asks the client to acquire a device stream.
	EventCapabilityRequest Event = "capability_request"
	// EventCapabilityRelease tells the client to stop a device stream.
	EventCapabilityRelease Event = "capability_release"
	// EventSpeak instructs the client to synthesize an utterance and reply
	// with utterance_done when playback finishes.
	EventSpeak Event = "speak"
	// EventSpeakCancel flushes any queued or in-flight synthesis.
	EventSpeakCancel Event = "speak_cancel"
	// EventListen toggles continuous speech recognition.
	EventListen Event = "listen"
	// EventPhase announces an interview phase change.
	EventPhase Event = "phase"
	// EventQuestion presents the next question.
	EventQuestion Event = "question"
	// EventNarration carries interviewer narration shown in the transcript
	// pane.
	EventNarration Event = "narration"
	// EventWarning notifies the candidate of a proctoring strike.
	EventWarning Event = "warning"
	// EventTerminated announces disqualification. Terminal.
	EventTerminated Event = "terminated"
	// EventCompleted announces normal completion. Terminal.
	EventCompleted Event = "completed"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

type CapabilityRequestEvent struct {
	Event      Event  `json:"event"`
	Capability string `json:"capability"`
}

type CapabilityReleaseEvent struct {
	Event      Event  `json:"event"`
	Capability string `json:"capability"`
}

type SpeakEvent struct {
	Event       Event  `json:"event"`
	UtteranceID string `json:"utterance_id"`
	Text        string `json:"text"`
}

type SpeakCancelEvent struct {
	Event Event `json:"event"`
}

type ListenEvent struct {
	Event  Event `json:"event"`
	Active bool  `json:"active"`
}

type PhaseEvent struct {
	Event Event  `json:"event"`
	Phase string `json:"phase"`
}

// QuestionEvent presents a question along with its position in the sequence.
type QuestionEvent struct {
	Event            Event  `json:"event"`
	QuestionID       string `json:"question_id"`
	Text             string `json:"text"`
	Category         string `json:"category"`
	Mode             string `json:"mode"`
	FollowUp         bool   `json:"follow_up"`
	Number           int    `json:"number"`
	Total            int    `json:"total"`
	TimeLimitSeconds int    `json:"time_limit_seconds,omitempty"`
}

type NarrationEvent struct {
	Event Event  `json:"event"`
	Text  string `json:"text"`
}

type WarningEvent struct {
	Event   Event  `json:"event"`
	Text    string `json:"text"`
	Strikes int    `json:"strikes"`
}

type TerminatedEvent struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
}

type CompletedEvent struct {
	Event Event `json:"event"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
