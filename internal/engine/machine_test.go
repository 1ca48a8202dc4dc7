package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hiresense/interview-engine/internal/model"
)

type machineFixture struct {
	m     *Machine
	stt   *fakeSTT
	tts   *fakeTTS
	media *fakeMedia
	vis   *fakeVisibility
	clock *fakeClock
	src   *stubSource
	sink  *captureSink
}

func newMachineFixture(t *testing.T, cfg Config, src *stubSource, policy FollowUpPolicy) *machineFixture {
	t.Helper()
	f := &machineFixture{
		stt:   newFakeSTT(),
		tts:   newFakeTTS(),
		media: newFakeMedia(),
		vis:   newFakeVisibility(),
		clock: newFakeClock(),
		src:   src,
		sink:  &captureSink{},
	}
	deps := Deps{
		Source:         src,
		Sink:           f.sink,
		Media:          f.media,
		STT:            f.stt,
		TTS:            f.tts,
		Visibility:     f.vis,
		Clock:          f.clock,
		FollowUpPolicy: policy,
		Log:            zerolog.Nop(),
	}
	cand := CandidateContext{
		CandidateRef: "cand-42",
		Name:         "Alex",
		Skills:       []string{"Go", "Postgres", "Kubernetes", "Redis"},
	}
	f.m = NewMachine(cfg, deps, cand)
	return f
}

func textQuestion(id, text string) model.Question {
	return model.Question{ID: id, Text: text, Category: "basic", Mode: model.ModeText}
}

func TestMachineCompletesTextAndVoicePhases(t *testing.T) {
	src := &stubSource{questions: []model.Question{
		textQuestion("q-1", "Tell me about yourself."),
		{ID: "q-2", Text: "Describe a production incident you handled.", Category: "technical", Mode: model.ModeVoice},
	}}
	cfg := DefaultConfig()
	cfg.TextQuestionCount = 1
	f := newMachineFixture(t, cfg, src, policyNever)

	require.NoError(t, f.m.Start(context.Background()))

	ev := waitEvent(t, f.m, EventQuestion)
	require.Equal(t, "q-1", ev.Question.ID)
	require.Equal(t, 1, ev.QuestionNumber)
	require.Equal(t, 2, ev.TotalQuestions)

	require.NoError(t, f.m.SubmitAnswer("I build backend services, for example billing APIs."))

	ev = waitEvent(t, f.m, EventQuestion)
	require.Equal(t, "q-2", ev.Question.ID)
	require.Eventually(t, f.stt.isRunning, time.Second, time.Millisecond)

	f.stt.emit("I debugged a cascading failure", false)
	f.stt.emit("I debugged a cascading failure across 3 services", true)

	waitDone(t, f.m)

	reports := f.sink.submitted()
	require.Len(t, reports, 1)
	r := reports[0]
	require.Equal(t, model.OutcomeCompleted, r.Outcome)
	require.Empty(t, r.OutcomeReason)
	require.Len(t, r.Answers, 2)
	require.Equal(t, model.ModeText, r.Answers[0].Mode)
	require.Nil(t, r.Answers[0].VoiceMetrics)
	require.Equal(t, model.ModeVoice, r.Answers[1].Mode)
	require.NotNil(t, r.Answers[1].VoiceMetrics)
	require.False(t, r.Answers[0].AutoSubmitted)
	require.False(t, r.Answers[1].AutoSubmitted)
	require.Equal(t, 2, r.Metrics.QuestionsAsked)
	require.Zero(t, r.Metrics.FollowUpsIssued)
	require.Len(t, r.Metrics.ConfidenceTimeline, 2)

	// The opening announcement names the candidate and their top skills.
	require.NotEmpty(t, r.Conversation)
	require.Contains(t, r.Conversation[0].Text, "Alex")
	require.Contains(t, r.Conversation[0].Text, "Go, Postgres, Kubernetes")

	spoken := f.tts.utterances()
	require.Contains(t, spoken, narrationTransition)
	require.Equal(t, narrationClosing, spoken[len(spoken)-1])

	snap := f.m.Snapshot()
	require.True(t, snap.Sealed())
	require.Equal(t, model.OutcomeCompleted, snap.Outcome)
	require.ErrorIs(t, f.m.SubmitAnswer("too late"), ErrSessionSealed)
}

func TestMachineInsertsFollowUpAfterCurrentQuestion(t *testing.T) {
	src := &stubSource{
		questions: []model.Question{textQuestion("q-1", "Describe your last project.")},
		followUp:  &FollowUp{Question: "What was the trickiest part?"},
	}
	cfg := DefaultConfig()
	cfg.TextQuestionCount = 5
	f := newMachineFixture(t, cfg, src, policyAlways)

	require.NoError(t, f.m.Start(context.Background()))

	ev := waitEvent(t, f.m, EventQuestion)
	require.Equal(t, "q-1", ev.Question.ID)
	require.NoError(t, f.m.SubmitAnswer("A migration project."))

	ev = waitEvent(t, f.m, EventQuestion)
	require.True(t, ev.Question.FollowUp)
	require.Equal(t, "q-1", ev.Question.ParentID)
	require.Equal(t, "Interesting. What was the trickiest part?", ev.Text)
	require.NoError(t, f.m.SubmitAnswer("Zero-downtime cutover."))

	waitDone(t, f.m)

	r := f.sink.submitted()[0]
	require.Len(t, r.Answers, 2)
	require.Equal(t, 1, r.Metrics.FollowUpsIssued)
	require.Equal(t, 2, r.Metrics.QuestionsAsked)
	// A follow-up never chains another follow-up.
	require.Equal(t, 1, src.followUpCalls)
}

func TestMachineWarningKeepsSessionAlive(t *testing.T) {
	src := &stubSource{questions: []model.Question{textQuestion("q-1", "Tell me about yourself.")}}
	cfg := DefaultConfig()
	cfg.TextQuestionCount = 5
	f := newMachineFixture(t, cfg, src, policyNever)

	require.NoError(t, f.m.Start(context.Background()))
	waitEvent(t, f.m, EventQuestion)

	f.vis.hide()
	ev := waitEvent(t, f.m, EventWarning)
	require.Equal(t, 1, ev.StrikeCount)

	require.NoError(t, f.m.SubmitAnswer("Still answering."))
	waitDone(t, f.m)

	r := f.sink.submitted()[0]
	require.Equal(t, model.OutcomeCompleted, r.Outcome)
	require.Equal(t, 1, r.Proctoring.StrikeCount)
	require.Len(t, r.Proctoring.Violations, 1)
	require.Len(t, r.Answers, 1)
}

func TestMachineDisqualifiesAtStrikeThreshold(t *testing.T) {
	src := &stubSource{questions: []model.Question{textQuestion("q-1", "Tell me about yourself.")}}
	cfg := DefaultConfig()
	cfg.TextQuestionCount = 5
	f := newMachineFixture(t, cfg, src, policyNever)

	require.NoError(t, f.m.Start(context.Background()))
	waitEvent(t, f.m, EventQuestion)

	f.vis.hide()
	waitEvent(t, f.m, EventWarning)
	f.vis.hide()
	ev := waitEvent(t, f.m, EventTerminated)
	require.Equal(t, disqualifiedReason, ev.Text)
	require.Equal(t, 2, ev.StrikeCount)

	waitDone(t, f.m)

	reports := f.sink.submitted()
	require.Len(t, reports, 1, "report must be submitted exactly once")
	r := reports[0]
	require.Equal(t, model.OutcomeDisqualified, r.Outcome)
	require.Equal(t, disqualifiedReason, r.OutcomeReason)
	require.Equal(t, 2, r.Proctoring.StrikeCount)
	require.Len(t, r.Proctoring.Violations, 2)
	require.Empty(t, r.Answers)

	released := f.media.releasedCaps()
	for _, cap := range DefaultRequiredCapabilities() {
		require.Contains(t, released, cap)
	}

	snap := f.m.Snapshot()
	require.True(t, snap.Sealed())
	require.ErrorIs(t, f.m.SubmitAnswer("ignored"), ErrSessionSealed)
}

func TestMachineDisqualificationKeepsPartialAnswer(t *testing.T) {
	src := &stubSource{questions: []model.Question{
		{ID: "q-1", Text: "Walk me through a recent incident.", Category: "technical", Mode: model.ModeVoice},
	}}
	cfg := DefaultConfig()
	cfg.TextQuestionCount = 0
	f := newMachineFixture(t, cfg, src, policyNever)

	require.NoError(t, f.m.Start(context.Background()))
	waitEvent(t, f.m, EventQuestion)
	require.Eventually(t, f.stt.isRunning, time.Second, time.Millisecond)

	f.stt.emit("I was tracing a memory leak in", false)

	f.vis.hide()
	waitEvent(t, f.m, EventWarning)
	f.vis.hide()
	waitEvent(t, f.m, EventTerminated)
	waitDone(t, f.m)

	reports := f.sink.submitted()
	require.Len(t, reports, 1)
	r := reports[0]
	require.Equal(t, model.OutcomeDisqualified, r.Outcome)

	// The interim transcript survives as an unscored partial.
	require.Len(t, r.Answers, 1)
	ans := r.Answers[0]
	require.Equal(t, "q-1", ans.QuestionID)
	require.Equal(t, "I was tracing a memory leak in", ans.Text)
	require.True(t, ans.AutoSubmitted)
	require.Zero(t, ans.Confidence)
	require.Equal(t, model.ModeVoice, ans.Mode)
	require.NotNil(t, ans.VoiceMetrics)
}

func TestMachineTimeLimitForcesSubmission(t *testing.T) {
	q := textQuestion("q-1", "Answer within the limit.")
	q.TimeLimitSeconds = 60
	src := &stubSource{questions: []model.Question{q}}
	cfg := DefaultConfig()
	cfg.TextQuestionCount = 5
	f := newMachineFixture(t, cfg, src, policyNever)

	require.NoError(t, f.m.Start(context.Background()))
	waitEvent(t, f.m, EventQuestion)

	limit := waitTimer(t, f.clock)
	f.clock.Advance(60 * time.Second)
	limit.fire(f.clock.Now())

	waitDone(t, f.m)

	r := f.sink.submitted()[0]
	require.Equal(t, model.OutcomeCompleted, r.Outcome)
	require.Len(t, r.Answers, 1)
	require.True(t, r.Answers[0].AutoSubmitted)
	require.Empty(t, r.Answers[0].Text)
}

func TestMachineManualSubmitCancelsTimeLimit(t *testing.T) {
	q := textQuestion("q-1", "Answer within the limit.")
	q.TimeLimitSeconds = 60
	src := &stubSource{questions: []model.Question{q}}
	cfg := DefaultConfig()
	cfg.TextQuestionCount = 5
	f := newMachineFixture(t, cfg, src, policyNever)

	require.NoError(t, f.m.Start(context.Background()))
	waitEvent(t, f.m, EventQuestion)

	limit := waitTimer(t, f.clock)
	require.NoError(t, f.m.SubmitAnswer("Done with time to spare."))
	waitDone(t, f.m)

	require.True(t, limit.wasStopped(), "pending time limit must be cancelled on submit")
	r := f.sink.submitted()[0]
	require.False(t, r.Answers[0].AutoSubmitted)
	require.Equal(t, "Done with time to spare.", r.Answers[0].Text)
}

func TestMachineStartFailsOnDeniedCapability(t *testing.T) {
	src := &stubSource{questions: []model.Question{textQuestion("q-1", "Tell me about yourself.")}}
	f := newMachineFixture(t, DefaultConfig(), src, policyNever)
	f.media.deny[model.CapabilityScreenShare] = true

	err := f.m.Start(context.Background())
	require.ErrorIs(t, err, ErrCapabilityDenied)
	require.Empty(t, f.sink.submitted())

	// Whatever was acquired before the denial is handed back.
	released := f.media.releasedCaps()
	require.Contains(t, released, model.CapabilityCamera)
	require.Contains(t, released, model.CapabilityMicrophone)
}

func TestMachineStartFailsOnQuestionSourceError(t *testing.T) {
	src := &stubSource{questionsErr: errors.New("question service unavailable")}
	f := newMachineFixture(t, DefaultConfig(), src, policyNever)

	err := f.m.Start(context.Background())
	require.Error(t, err)
	require.Empty(t, f.sink.submitted())
	require.Contains(t, f.media.releasedCaps(), model.CapabilityCamera)
}

func TestMachineStartFailsOnEmptyQuestionSet(t *testing.T) {
	src := &stubSource{}
	f := newMachineFixture(t, DefaultConfig(), src, policyNever)

	require.Error(t, f.m.Start(context.Background()))
	require.Empty(t, f.sink.submitted())
}
