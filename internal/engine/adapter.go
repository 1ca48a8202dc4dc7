// Package engine conducts a live, proctored interview session: phase and
// question sequencing, speech coordination, integrity monitoring, answer
// evaluation and final report assembly. It is transport-independent; all host
// capabilities (media streams, speech recognition and synthesis, visibility
// signals, time) enter through the adapter contracts in this file.
package engine

import (
	"context"
	"time"

	"github.com/hiresense/interview-engine/internal/model"
)

// Transcript is one speech recognition result. Interim results carry the
// full text accumulated so far; a final result closes the utterance.
type Transcript struct {
	Text  string
	Final bool
}

// SpeechToText is a continuous transcription capability. Continuous
// recognition sessions end on their own as a matter of course; Ended
// delivers once per run (nil for a normal end) so the coordinator can
// supervise restarts. Adapters hold no session state.
type SpeechToText interface {
	Start() error
	Stop()
	Results() <-chan Transcript
	Ended() <-chan error
}

// TextToSpeech synthesizes one utterance at a time. Speak returns when the
// host reports utterance end or error; Cancel flushes anything queued or in
// flight and is safe to call at any time.
type TextToSpeech interface {
	Speak(ctx context.Context, text string) error
	Cancel()
}

// MediaCapture manages camera, microphone and screen-share streams. Acquire
// blocks until the user grants or denies permission and returns
// ErrCapabilityDenied on rejection. Release is idempotent. Drops delivers
// capabilities revoked after acquisition (user pulled the stream).
type MediaCapture interface {
	Acquire(ctx context.Context, cap model.Capability) error
	Release(cap model.Capability)
	Drops() <-chan model.Capability
}

// VisibilityMonitor reports page focus changes. Events delivers true when
// the interview surface becomes hidden.
type VisibilityMonitor interface {
	Events() <-chan bool
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is a cancellable single-shot timer.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) Timer { return realTimer{time.NewTimer(d)} }

type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }

// NewRealClock returns a Clock backed by the wall clock.
func NewRealClock() Clock { return realClock{} }
