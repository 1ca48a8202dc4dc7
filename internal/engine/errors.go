package engine

import (
	"errors"
	"fmt"

	"github.com/hiresense/interview-engine/internal/model"
)

// Session errors. Only ErrPrerequisitesNotMet and ErrCapabilityDenied surface
// to the caller as user-actionable; everything else is absorbed inside the
// engine so the candidate-facing flow never stalls on a transient fault.
var (
	// ErrPrerequisitesNotMet means proctoring was armed without all required
	// capabilities acquired. Fatal to session start.
	ErrPrerequisitesNotMet = errors.New("proctoring prerequisites not met")

	// ErrCapabilityDenied means the user rejected a capability request or
	// the host lacks it. Fatal to that capability's flow, retryable by the
	// user.
	ErrCapabilityDenied = errors.New("capability denied")

	// ErrNoSpeech is the recognizer's no-input result. Explicitly ignored;
	// never treated as a failure.
	ErrNoSpeech = errors.New("no speech detected")

	// ErrSessionSealed is returned for operations against a session that
	// already reached its terminal state.
	ErrSessionSealed = errors.New("session already sealed")

	// ErrBusySpeaking is returned when listening is requested while an
	// utterance is in flight.
	ErrBusySpeaking = errors.New("cannot listen while speaking")
)

// CapabilityError wraps ErrCapabilityDenied with the capability concerned.
func CapabilityError(cap model.Capability) error {
	return fmt.Errorf("%s: %w", cap, ErrCapabilityDenied)
}
