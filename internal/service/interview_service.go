package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hiresense/interview-engine/internal/config"
	"github.com/hiresense/interview-engine/internal/engine"
)

// ErrSessionAlreadyActive means the candidate already has a live interview.
var ErrSessionAlreadyActive = errors.New("an interview session is already active for this candidate")

// HostAdapters are the per-connection capabilities the transport layer
// provides: the browser on the far end of the WebSocket is the actual host.
type HostAdapters struct {
	Media      engine.MediaCapture
	STT        engine.SpeechToText
	TTS        engine.TextToSpeech
	Visibility engine.VisibilityMonitor
}

// InterviewService owns the live session registry and builds interview
// machines from configuration. At most one session per candidate is live at
// a time.
type InterviewService struct {
	cfg    *config.Config
	source engine.QuestionSource
	sink   engine.SubmissionSink
	log    zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*engine.Machine
}

// NewInterviewService creates a new InterviewService.
func NewInterviewService(cfg *config.Config, source engine.QuestionSource, sink engine.SubmissionSink, log zerolog.Logger) *InterviewService {
	return &InterviewService{
		cfg:      cfg,
		source:   source,
		sink:     sink,
		log:      log.With().Str("component", "interview_service").Logger(),
		sessions: make(map[string]*engine.Machine),
	}
}

// EngineConfig maps application configuration onto the engine policy.
func (s *InterviewService) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	if s.cfg.StrikeThreshold > 0 {
		cfg.StrikeThreshold = s.cfg.StrikeThreshold
	}
	if s.cfg.TextQuestionCount > 0 {
		cfg.TextQuestionCount = s.cfg.TextQuestionCount
	}
	if s.cfg.RecognitionRestartGuard > 0 {
		cfg.Coordinator.RestartGuard = s.cfg.RecognitionRestartGuard
	}
	if s.cfg.RecognitionMaxRestarts > 0 {
		cfg.Coordinator.MaxRestarts = s.cfg.RecognitionMaxRestarts
	}
	return cfg
}

// StartSession builds and starts a machine for the candidate over the given
// host adapters. Returns ErrSessionAlreadyActive when a live session exists.
// The registry entry is removed when the session seals.
func (s *InterviewService) StartSession(ctx context.Context, cand engine.CandidateContext, host HostAdapters) (*engine.Machine, error) {
	deps := engine.Deps{
		Source:         s.source,
		Sink:           s.sink,
		Media:          host.Media,
		STT:            host.STT,
		TTS:            host.TTS,
		Visibility:     host.Visibility,
		Clock:          engine.NewRealClock(),
		FollowUpPolicy: engine.NewRandomFollowUpPolicy(s.cfg.FollowUpProbability, nil),
		Log:            s.log,
	}
	m := engine.NewMachine(s.EngineConfig(), deps, cand)

	s.mu.Lock()
	if _, exists := s.sessions[cand.CandidateRef]; exists {
		s.mu.Unlock()
		return nil, ErrSessionAlreadyActive
	}
	s.sessions[cand.CandidateRef] = m
	s.mu.Unlock()

	if err := m.Start(ctx); err != nil {
		s.remove(cand.CandidateRef, m)
		return nil, err
	}

	go func() {
		<-m.Done()
		s.remove(cand.CandidateRef, m)
	}()

	return m, nil
}

// ActiveSession returns the candidate's live machine, if any.
func (s *InterviewService) ActiveSession(candidateRef string) (*engine.Machine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.sessions[candidateRef]
	return m, ok
}

// ActiveCount reports how many interviews are currently live.
func (s *InterviewService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *InterviewService) remove(candidateRef string, m *engine.Machine) {
	s.mu.Lock()
	if current, ok := s.sessions[candidateRef]; ok && current == m {
		delete(s.sessions, candidateRef)
	}
	s.mu.Unlock()
}
