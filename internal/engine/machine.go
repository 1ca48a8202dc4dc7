package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hiresense/interview-engine/internal/model"
)

// Interviewer narration. Lines match the product's on-screen agent.
const (
	speakerInterviewer = "Huma"
	speakerCandidate   = "You"

	narrationTransition = "Great! You've completed the basic questions. Now let's switch to voice interview for technical and stress-related questions."
	narrationThanks     = "Thank you. That's helpful."
	narrationClosing    = "Excellent! We've completed the interview. I'm now analyzing your responses. Thank you for your time."
	narrationWarning    = "Warning! Tab switch detected. One more violation will terminate your interview."

	disqualifiedReason = "multiple visibility violations"
)

// Voice metrics derivation: transcript time beyond this window counts as
// trailing pause; variation defaults come from the capture side.
const (
	pauseGraceSeconds      = 5.0
	defaultVolumeVariation = 0.5
	defaultPitchVariation  = 0.5
)

// Config tunes one interview session.
type Config struct {
	// StrikeThreshold is the number of focus-loss violations that
	// disqualifies the candidate.
	StrikeThreshold int
	// TextQuestionCount is how many questions are answered in text mode
	// before the voice handoff.
	TextQuestionCount int
	// Coordinator carries the speech restart supervision settings.
	Coordinator CoordinatorConfig
	// SubmitTimeout bounds the report delivery attempt.
	SubmitTimeout time.Duration
}

// DefaultConfig returns the product defaults: two text questions, two
// strikes.
func DefaultConfig() Config {
	return Config{
		StrikeThreshold:   2,
		TextQuestionCount: 2,
		Coordinator:       DefaultCoordinatorConfig(),
		SubmitTimeout:     10 * time.Second,
	}
}

// Deps are the machine's collaborators. The engine never reaches into
// ambient globals; everything arrives here.
type Deps struct {
	Source         QuestionSource
	Sink           SubmissionSink
	Media          MediaCapture
	STT            SpeechToText
	TTS            TextToSpeech
	Visibility     VisibilityMonitor
	Clock          Clock
	FollowUpPolicy FollowUpPolicy
	Log            zerolog.Logger
}

// EventKind classifies outward machine events.
type EventKind string

const (
	EventPhase      EventKind = "phase"
	EventQuestion   EventKind = "question"
	EventWarning    EventKind = "warning"
	EventNarration  EventKind = "narration"
	EventTerminated EventKind = "terminated"
	EventCompleted  EventKind = "completed"
)

// Event is a state change the UI layer renders. Speech itself travels
// through the TextToSpeech adapter, not through events.
type Event struct {
	Kind           EventKind       `json:"kind"`
	Phase          model.Phase     `json:"phase,omitempty"`
	Question       *model.Question `json:"question,omitempty"`
	QuestionNumber int             `json:"question_number,omitempty"`
	TotalQuestions int             `json:"total_questions,omitempty"`
	Text           string          `json:"text,omitempty"`
	StrikeCount    int             `json:"strike_count,omitempty"`
}

// Machine drives one interview session from setup to seal. It is the single
// writer of its Session; all mutation happens under mu, and the question
// loop runs in one goroutine with speech as suspension points.
type Machine struct {
	cfg   Config
	deps  Deps
	coord *Coordinator
	proc  *Monitor
	eval  *Evaluator
	log   zerolog.Logger

	mu           sync.Mutex
	session      *model.Session
	questions    []model.Question
	conversation []model.LogEntry
	timeline     []model.ConfidencePoint
	followUps    int
	textAnswered int
	curStart     time.Time
	cand         CandidateContext
	disqualified bool

	answerCh  chan string
	events    chan Event
	cancelRun context.CancelFunc
	sealOnce  sync.Once
	report    *model.Report
	done      chan struct{}
}

// NewMachine builds a machine for one candidate. Call Start to begin.
func NewMachine(cfg Config, deps Deps, cand CandidateContext) *Machine {
	if deps.Clock == nil {
		deps.Clock = NewRealClock()
	}
	if deps.FollowUpPolicy == nil {
		deps.FollowUpPolicy = NewRandomFollowUpPolicy(0.5, nil)
	}
	log := deps.Log.With().Str("component", "interview_machine").Str("candidate_ref", cand.CandidateRef).Logger()

	m := &Machine{
		cfg:  cfg,
		deps: deps,
		log:  log,
		cand: cand,
		session: &model.Session{
			ID:           uuid.New(),
			CandidateRef: cand.CandidateRef,
			Phase:        model.PhaseSetup,
			Capabilities: make(model.CapabilitiesState),
			Outcome:      model.OutcomePending,
		},
		answerCh: make(chan string, 4),
		events:   make(chan Event, 32),
		done:     make(chan struct{}),
	}
	m.coord = NewCoordinator(deps.STT, deps.TTS, deps.Clock, cfg.Coordinator, log)
	m.proc = NewMonitor(deps.Media, deps.Visibility, deps.Clock, MonitorConfig{StrikeThreshold: cfg.StrikeThreshold}, log)
	m.eval = NewEvaluator(deps.Source, deps.FollowUpPolicy, log)
	return m
}

// Start acquires the proctoring prerequisites, arms the monitor, fetches the
// question sequence and launches the session loop. Acquisition and arming
// failures are blocking: the session never begins and the error surfaces to
// the caller.
func (m *Machine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancelRun = cancel

	for _, cap := range DefaultRequiredCapabilities() {
		if err := m.deps.Media.Acquire(runCtx, cap); err != nil {
			m.releaseCapabilities()
			cancel()
			return CapabilityError(cap)
		}
		m.proc.CapabilityAcquired(cap)
		m.mu.Lock()
		m.session.Capabilities[cap] = true
		m.mu.Unlock()
	}

	if err := m.proc.Arm(runCtx); err != nil {
		m.releaseCapabilities()
		cancel()
		return err
	}

	questions, err := m.deps.Source.GetQuestions(runCtx, m.cand)
	if err != nil {
		m.releaseCapabilities()
		cancel()
		return fmt.Errorf("get questions: %w", err)
	}
	if len(questions) == 0 {
		m.releaseCapabilities()
		cancel()
		return fmt.Errorf("question source returned no questions")
	}

	m.mu.Lock()
	m.questions = questions
	m.session.StartedAt = m.deps.Clock.Now()
	m.mu.Unlock()

	m.coord.Start(runCtx)
	go m.watchProctor(runCtx)
	go m.run(runCtx)

	m.log.Info().Int("questions", len(questions)).Msg("Interview session started")
	return nil
}

// SubmitAnswer delivers a typed answer or a manual voice submit. Blank text
// is ignored at the collection point.
func (m *Machine) SubmitAnswer(text string) error {
	m.mu.Lock()
	sealed := m.session.Sealed()
	m.mu.Unlock()
	if sealed {
		return ErrSessionSealed
	}
	select {
	case m.answerCh <- text:
	default:
		// A submit racing a phase change; the loop is not collecting.
	}
	return nil
}

// Events delivers UI-facing state changes. The channel is never closed
// while the session is live; consumers should select against Done.
func (m *Machine) Events() <-chan Event { return m.events }

// Done closes once the session is sealed and the report delivered.
func (m *Machine) Done() <-chan struct{} { return m.done }

// Snapshot returns a copy of the current session state.
func (m *Machine) Snapshot() model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *m.session
	s.Answers = append([]model.Answer(nil), m.session.Answers...)
	s.Violations = append([]model.Violation(nil), m.session.Violations...)
	s.Capabilities = m.session.Capabilities.Clone()
	return s
}

// Report returns the sealed report, if sealing has happened.
func (m *Machine) Report() (*model.Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.report, m.report != nil
}

func (m *Machine) run(ctx context.Context) {
	defer m.teardown()

	m.setPhase(model.PhaseText)
	m.logLine(speakerInterviewer, m.greeting())

	for {
		m.mu.Lock()
		idx := m.session.QuestionIndex
		total := len(m.questions)
		phase := m.session.Phase
		answeredText := m.textAnswered
		m.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if idx >= total {
			break
		}

		if phase == model.PhaseText && answeredText >= m.cfg.TextQuestionCount {
			m.transitionToVoice(ctx)
		}

		q := m.questionAt(idx)
		m.askQuestion(ctx, q, idx, total)

		text, vm, auto, ok := m.collectAnswer(ctx, q)
		if !ok {
			// Cancelled mid-question: keep whatever accumulated as an
			// unscored partial before unwinding.
			m.recordPartial(q, text, vm)
			return
		}
		m.coord.StopListening()

		// Disqualification wins any race against an in-flight submit: the
		// answer is kept as an unscored partial and nothing else commits.
		if ctx.Err() != nil {
			m.recordPartial(q, text, vm)
			return
		}

		m.commitAnswer(ctx, q, text, vm, auto)

		m.mu.Lock()
		m.session.QuestionIndex++
		m.mu.Unlock()
	}

	m.setPhase(model.PhaseCompleting)
	m.logLine(speakerInterviewer, narrationClosing)
	if err := m.coord.Speak(ctx, narrationClosing); err != nil && ctx.Err() == nil {
		m.log.Warn().Err(err).Msg("Closing narration failed")
	}
	m.seal(model.OutcomeCompleted, "")
}

func (m *Machine) greeting() string {
	name := m.cand.Name
	if name == "" {
		name = "there"
	}
	skills := "your skills"
	if len(m.cand.Skills) > 0 {
		top := m.cand.Skills
		if len(top) > 3 {
			top = top[:3]
		}
		skills = strings.Join(top, ", ")
	}
	return fmt.Sprintf("Hello %s! I'm %s, your AI interviewer. I've reviewed your resume and see you have experience in %s. Let's start with a text-based interview first.", name, speakerInterviewer, skills)
}

func (m *Machine) transitionToVoice(ctx context.Context) {
	m.setPhase(model.PhaseVoice)
	m.logLine(speakerInterviewer, narrationTransition)
	m.emit(Event{Kind: EventNarration, Text: narrationTransition})
	// Best-effort narration; voice mode proceeds regardless.
	if err := m.coord.Speak(ctx, narrationTransition); err != nil && ctx.Err() == nil {
		m.log.Warn().Err(err).Msg("Transition narration failed")
	}
}

func (m *Machine) askQuestion(ctx context.Context, q model.Question, idx, total int) {
	prompt := q.Text
	if q.FollowUp {
		prompt = "Interesting. " + q.Text
	} else if m.phase() == model.PhaseVoice {
		prompt = fmt.Sprintf("Next question. %s", q.Text)
	}

	m.logLine(speakerInterviewer, prompt)
	m.emit(Event{
		Kind:           EventQuestion,
		Question:       &q,
		QuestionNumber: idx + 1,
		TotalQuestions: total,
		Text:           prompt,
	})

	if m.phase() != model.PhaseVoice {
		return
	}

	m.coord.StopListening()
	// Prompt and capture start are one unit so a concurrent narration
	// cannot slot in between and leave the question without a window.
	if err := m.coord.SpeakThenListen(ctx, prompt); err != nil && ctx.Err() == nil {
		m.log.Warn().Err(err).Str("question_id", q.ID).Msg("Question narration failed, continuing")
	}
}

// collectAnswer waits for the candidate's response: transcript finalization,
// an explicit submit, or time-limit expiry (force-submit of whatever text
// accumulated, tagged auto-submitted). The ok result is false when the
// session was cancelled mid-question.
func (m *Machine) collectAnswer(ctx context.Context, q model.Question) (text string, vm *model.VoiceMetrics, auto bool, ok bool) {
	started := m.deps.Clock.Now()
	m.mu.Lock()
	m.curStart = started
	m.mu.Unlock()

	voice := m.phase() == model.PhaseVoice

	var timerC <-chan time.Time
	if q.TimeLimitSeconds > 0 {
		t := m.deps.Clock.NewTimer(time.Duration(q.TimeLimitSeconds) * time.Second)
		// Stopping on every exit keeps a stale expiry from force-submitting
		// a later question.
		defer t.Stop()
		timerC = t.C()
	}

	var transcripts <-chan Transcript
	if voice {
		transcripts = m.coord.Transcripts()
	}

	var cur string
	for {
		select {
		case <-ctx.Done():
			// Capture any interim text still queued so the partial
			// reflects the latest recognized speech.
			for {
				select {
				case t := <-transcripts:
					cur = t.Text
					vm = m.voiceMetrics(cur, started)
				default:
					return cur, vm, true, false
				}
			}

		case t := <-transcripts:
			cur = t.Text
			vm = m.voiceMetrics(cur, started)
			if t.Final && strings.TrimSpace(cur) != "" {
				return cur, vm, false, true
			}

		case submitted := <-m.answerCh:
			if strings.TrimSpace(submitted) == "" {
				continue
			}
			if voice {
				vm = m.voiceMetrics(submitted, started)
			}
			return submitted, vm, false, true

		case <-timerC:
			return cur, vm, true, true
		}
	}
}

func (m *Machine) commitAnswer(ctx context.Context, q model.Question, text string, vm *model.VoiceMetrics, auto bool) {
	now := m.deps.Clock.Now()
	mode := model.ModeText
	if m.phase() == model.PhaseVoice {
		mode = model.ModeVoice
	}

	ans := model.Answer{
		QuestionID:    q.ID,
		QuestionText:  q.Text,
		Text:          text,
		Mode:          mode,
		StartedAt:     m.answerStarted(),
		SubmittedAt:   now,
		WordCount:     len(strings.Fields(text)),
		Confidence:    ScoreAnswer(text, vm),
		AutoSubmitted: auto,
	}
	if mode == model.ModeVoice {
		ans.VoiceMetrics = vm
	}

	m.mu.Lock()
	m.session.Answers = append(m.session.Answers, ans)
	m.timeline = append(m.timeline, model.ConfidencePoint{
		QuestionNumber: m.session.QuestionIndex + 1,
		Confidence:     ans.Confidence,
		At:             now,
	})
	if mode == model.ModeText {
		m.textAnswered++
	}
	m.mu.Unlock()

	m.logLine(speakerCandidate, text)
	m.logLine(speakerInterviewer, narrationThanks)
	if mode == model.ModeVoice {
		if err := m.coord.Speak(ctx, narrationThanks); err != nil && ctx.Err() == nil {
			m.log.Debug().Err(err).Msg("Thanks narration failed")
		}
	}

	if fu := m.eval.DecideFollowUp(ctx, text, q, m.cand.CandidateRef); fu != nil {
		m.mu.Lock()
		at := m.session.QuestionIndex + 1
		m.questions = append(m.questions[:at], append([]model.Question{*fu}, m.questions[at:]...)...)
		m.followUps++
		m.mu.Unlock()
		m.log.Info().Str("parent_id", q.ID).Msg("Follow-up question inserted")
	}
}

// recordPartial keeps the in-flight answer of a cancelled question without
// scoring it.
func (m *Machine) recordPartial(q model.Question, text string, vm *model.VoiceMetrics) {
	if strings.TrimSpace(text) == "" {
		return
	}
	mode := model.ModeText
	if m.phase() == model.PhaseVoice {
		mode = model.ModeVoice
	}
	ans := model.Answer{
		QuestionID:    q.ID,
		QuestionText:  q.Text,
		Text:          text,
		Mode:          mode,
		StartedAt:     m.answerStarted(),
		SubmittedAt:   m.deps.Clock.Now(),
		WordCount:     len(strings.Fields(text)),
		AutoSubmitted: true,
	}
	if mode == model.ModeVoice {
		ans.VoiceMetrics = vm
	}
	m.mu.Lock()
	m.session.Answers = append(m.session.Answers, ans)
	m.mu.Unlock()
}

func (m *Machine) watchProctor(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-m.proc.Signals():
			m.mu.Lock()
			m.session.StrikeCount = sig.StrikeCount
			m.session.Violations = m.proc.Violations()
			m.mu.Unlock()

			switch sig.Kind {
			case SignalWarning:
				m.logLine(speakerInterviewer, narrationWarning)
				m.emit(Event{Kind: EventWarning, Text: narrationWarning, StrikeCount: sig.StrikeCount})
				go func() {
					if err := m.coord.Speak(ctx, narrationWarning); err != nil && ctx.Err() == nil {
						m.log.Debug().Err(err).Msg("Warning narration failed")
					}
				}()
			case SignalTerminate:
				m.log.Warn().Int("strikes", sig.StrikeCount).Msg("Strike threshold crossed, disqualifying")
				m.disqualify()
			}
		}
	}
}

// disqualify forces the terminal transition: the session loop unwinds via
// context cancellation and teardown seals with the disqualified outcome.
func (m *Machine) disqualify() {
	m.mu.Lock()
	m.disqualified = true
	m.mu.Unlock()
	m.cancelRun()
}

// teardown is the single cancellation path: stop listening, flush speech,
// release capabilities, seal. Every step is idempotent, since a timeout and
// a violation can race into it.
func (m *Machine) teardown() {
	m.cancelRun()
	m.coord.Shutdown()
	m.releaseCapabilities()

	m.mu.Lock()
	dq := m.disqualified
	m.mu.Unlock()
	if dq {
		m.seal(model.OutcomeDisqualified, disqualifiedReason)
	} else {
		m.seal(model.OutcomeCompleted, "")
	}
}

func (m *Machine) releaseCapabilities() {
	for _, cap := range DefaultRequiredCapabilities() {
		m.deps.Media.Release(cap)
	}
}

// seal fixes the outcome, builds the report and delivers it to the sink
// exactly once, no matter how many paths race into it.
func (m *Machine) seal(outcome model.Outcome, reason string) {
	m.sealOnce.Do(func() {
		now := m.deps.Clock.Now()

		m.mu.Lock()
		m.session.Outcome = outcome
		m.session.OutcomeReason = reason
		m.session.EndedAt = &now
		m.session.Phase = model.PhaseSealed
		m.session.Violations = m.proc.Violations()
		m.session.StrikeCount = m.proc.Strikes()
		m.session.Capabilities = m.proc.State()

		proctoring := model.Proctoring{
			Violations:   append([]model.Violation(nil), m.session.Violations...),
			StrikeCount:  m.session.StrikeCount,
			Capabilities: m.session.Capabilities.Clone(),
		}
		m.report = BuildReport(m.session, proctoring, m.conversation, m.timeline, m.followUps)
		report := m.report
		m.mu.Unlock()

		if outcome == model.OutcomeDisqualified {
			m.emit(Event{Kind: EventTerminated, Text: reason, StrikeCount: report.Proctoring.StrikeCount})
		} else {
			m.emit(Event{Kind: EventCompleted})
		}

		// Fire-and-forget delivery: failures are logged, never retried here,
		// and never reopen the session.
		ctx, cancel := context.WithTimeout(context.Background(), m.submitTimeout())
		defer cancel()
		if err := m.deps.Sink.Submit(ctx, report); err != nil {
			m.log.Error().Err(err).Str("session_id", report.SessionID.String()).Msg("Report delivery failed")
		} else {
			m.log.Info().Str("session_id", report.SessionID.String()).Str("outcome", string(outcome)).Msg("Report delivered")
		}

		close(m.done)
	})
}

func (m *Machine) submitTimeout() time.Duration {
	if m.cfg.SubmitTimeout > 0 {
		return m.cfg.SubmitTimeout
	}
	return 10 * time.Second
}

func (m *Machine) phase() model.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Phase
}

func (m *Machine) setPhase(p model.Phase) {
	m.mu.Lock()
	m.session.Phase = p
	m.mu.Unlock()
	m.emit(Event{Kind: EventPhase, Phase: p})
}

func (m *Machine) questionAt(i int) model.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.questions[i]
}

func (m *Machine) logLine(speaker, text string) {
	m.mu.Lock()
	m.conversation = append(m.conversation, model.LogEntry{Speaker: speaker, Text: text, At: m.deps.Clock.Now()})
	m.mu.Unlock()
}

// emit never blocks: a gone consumer must not stall the session.
func (m *Machine) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
	}
}

// answerStarted reports when the current question's answer window opened,
// for StartedAt stamps and voice metric timing.
func (m *Machine) answerStarted() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.curStart
}

func (m *Machine) voiceMetrics(text string, started time.Time) *model.VoiceMetrics {
	dur := m.deps.Clock.Now().Sub(started).Seconds()
	if dur <= 0 {
		dur = 1
	}
	words := len(strings.Fields(text))
	pause := 0.0
	if dur > pauseGraceSeconds {
		pause = dur - pauseGraceSeconds
	}
	return &model.VoiceMetrics{
		SpeechRate:      int(float64(words) / dur * 60),
		PauseDuration:   pause,
		VolumeVariation: defaultVolumeVariation,
		PitchVariation:  defaultPitchVariation,
	}
}
