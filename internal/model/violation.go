package model

import "time"

// Capability is a host-provided proctoring resource.
type Capability string

const (
	CapabilityCamera      Capability = "camera"
	CapabilityMicrophone  Capability = "microphone"
	CapabilityScreenShare Capability = "screen_share"
)

// CapabilitiesState records which capabilities are currently held.
type CapabilitiesState map[Capability]bool

// Clone returns a copy safe to hand outside the owning session.
func (s CapabilitiesState) Clone() CapabilitiesState {
	out := make(CapabilitiesState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ViolationKind enumerates recorded integrity events.
type ViolationKind string

const (
	// ViolationFocusLoss is a tab switch / window blur during an active
	// session. Focus-loss violations count toward the strike threshold.
	ViolationFocusLoss ViolationKind = "focus_loss"
	// ViolationCapabilityRevoked is a camera/mic/screen stream dropping
	// after it was acquired. Recorded but never a strike on its own.
	ViolationCapabilityRevoked ViolationKind = "capability_revoked"
)

// Violation is an append-only integrity event, produced exclusively by the
// proctoring monitor.
type Violation struct {
	Kind       ViolationKind `json:"kind"`
	Capability Capability    `json:"capability,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
