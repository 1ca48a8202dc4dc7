package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hiresense/interview-engine/internal/model"
)

// SignalKind classifies proctoring signals sent to the state machine.
type SignalKind string

const (
	// SignalWarning asks the machine to warn the candidate; the session
	// continues.
	SignalWarning SignalKind = "warning"
	// SignalTerminate demands immediate disqualification. Emitted at most
	// once per session.
	SignalTerminate SignalKind = "terminate"
)

// Signal is a proctoring event with the violation that produced it.
type Signal struct {
	Kind        SignalKind
	Violation   model.Violation
	StrikeCount int
}

// MonitorConfig holds the strike policy. The threshold is configuration, not
// a constant: the default of 2 reproduces the product's "warn once, then
// disqualify" behavior.
type MonitorConfig struct {
	StrikeThreshold int
	Required        []model.Capability
}

// DefaultRequiredCapabilities lists the proctoring prerequisites for a
// standard interview.
func DefaultRequiredCapabilities() []model.Capability {
	return []model.Capability{
		model.CapabilityCamera,
		model.CapabilityMicrophone,
		model.CapabilityScreenShare,
	}
}

// Monitor tracks capability state and focus-loss events for one session and
// enforces the strike policy. Focus loss is the only violation that counts
// toward the threshold; a capability dropping mid-session is recorded but is
// typically involuntary and never terminal by itself.
type Monitor struct {
	cfg        MonitorConfig
	media      MediaCapture
	visibility VisibilityMonitor
	clock      Clock
	log        zerolog.Logger

	mu         sync.Mutex
	armed      bool
	terminated bool
	strikes    int
	state      model.CapabilitiesState
	violations []model.Violation

	signals chan Signal
}

// NewMonitor builds an unarmed monitor.
func NewMonitor(media MediaCapture, visibility VisibilityMonitor, clock Clock, cfg MonitorConfig, log zerolog.Logger) *Monitor {
	if cfg.StrikeThreshold <= 0 {
		cfg.StrikeThreshold = 2
	}
	if len(cfg.Required) == 0 {
		cfg.Required = DefaultRequiredCapabilities()
	}
	return &Monitor{
		cfg:        cfg,
		media:      media,
		visibility: visibility,
		clock:      clock,
		log:        log.With().Str("component", "proctor").Logger(),
		state:      make(model.CapabilitiesState),
		signals:    make(chan Signal, 8),
	}
}

// CapabilityAcquired records a granted capability prior to arming.
func (m *Monitor) CapabilityAcquired(cap model.Capability) {
	m.mu.Lock()
	m.state[cap] = true
	m.mu.Unlock()
}

// Arm verifies every required capability is held, then subscribes to
// capability-drop and visibility events for the session's lifetime. Returns
// ErrPrerequisitesNotMet when a prerequisite is missing.
func (m *Monitor) Arm(ctx context.Context) error {
	m.mu.Lock()
	if m.armed {
		m.mu.Unlock()
		return nil
	}
	for _, cap := range m.cfg.Required {
		if !m.state[cap] {
			m.mu.Unlock()
			return ErrPrerequisitesNotMet
		}
	}
	m.armed = true
	m.mu.Unlock()

	go m.watch(ctx)
	return nil
}

// Signals delivers warning and terminate signals to the state machine.
func (m *Monitor) Signals() <-chan Signal { return m.signals }

func (m *Monitor) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case hidden, ok := <-m.visibility.Events():
			if !ok {
				return
			}
			if hidden {
				m.onFocusLoss(ctx)
			}
		case cap, ok := <-m.media.Drops():
			if !ok {
				return
			}
			m.onCapabilityDrop(cap)
		}
	}
}

func (m *Monitor) onFocusLoss(ctx context.Context) {
	v := model.Violation{Kind: model.ViolationFocusLoss, OccurredAt: m.clock.Now()}

	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	m.violations = append(m.violations, v)
	m.strikes++
	strikes := m.strikes
	kind := SignalWarning
	if strikes >= m.cfg.StrikeThreshold {
		kind = SignalTerminate
		m.terminated = true
	}
	m.mu.Unlock()

	m.log.Warn().Int("strikes", strikes).Str("signal", string(kind)).Msg("Focus loss detected")

	select {
	case m.signals <- Signal{Kind: kind, Violation: v, StrikeCount: strikes}:
	case <-ctx.Done():
	}
}

func (m *Monitor) onCapabilityDrop(cap model.Capability) {
	v := model.Violation{
		Kind:       model.ViolationCapabilityRevoked,
		Capability: cap,
		OccurredAt: m.clock.Now(),
	}

	m.mu.Lock()
	m.state[cap] = false
	m.violations = append(m.violations, v)
	m.mu.Unlock()

	m.log.Warn().Str("capability", string(cap)).Msg("Capability revoked mid-session")
}

// Strikes returns the current focus-loss strike count. Non-decreasing.
func (m *Monitor) Strikes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strikes
}

// Violations returns a copy of the recorded violations.
func (m *Monitor) Violations() []model.Violation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Violation, len(m.violations))
	copy(out, m.violations)
	return out
}

// State returns a copy of the current capability state.
func (m *Monitor) State() model.CapabilitiesState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}
