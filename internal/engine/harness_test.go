package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hiresense/interview-engine/internal/model"
)

// Fake host adapters. They model the browser capability host closely enough
// to drive the engine deterministically: recognition sessions that end on
// their own, blocking synthesis, revocable media streams.

type fakeSTT struct {
	mu       sync.Mutex
	starts   int
	stops    int
	running  bool
	startErr error

	results chan Transcript
	ended   chan error
}

func newFakeSTT() *fakeSTT {
	return &fakeSTT{
		results: make(chan Transcript, 16),
		ended:   make(chan error, 16),
	}
}

func (f *fakeSTT) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.running = true
	return nil
}

func (f *fakeSTT) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		f.stops++
		f.running = false
	}
}

func (f *fakeSTT) Results() <-chan Transcript { return f.results }
func (f *fakeSTT) Ended() <-chan error        { return f.ended }

func (f *fakeSTT) emit(text string, final bool) {
	f.results <- Transcript{Text: text, Final: final}
}

// end simulates a continuous recognition session ending on its own.
func (f *fakeSTT) end(err error) {
	f.mu.Lock()
	f.running = false
	f.mu.Unlock()
	f.ended <- err
}

func (f *fakeSTT) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeSTT) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *fakeSTT) isRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

type fakeTTS struct {
	mu      sync.Mutex
	spoken  []string
	cancels int
	err     error
	// block, when set, makes Speak wait until the channel closes or the
	// context is cancelled.
	block chan struct{}
}

func newFakeTTS() *fakeTTS { return &fakeTTS{} }

func (f *fakeTTS) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	block := f.block
	err := f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeTTS) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

func (f *fakeTTS) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

func (f *fakeTTS) utterances() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spoken))
	copy(out, f.spoken)
	return out
}

type fakeMedia struct {
	mu       sync.Mutex
	acquired map[model.Capability]bool
	released []model.Capability
	deny     map[model.Capability]bool

	drops chan model.Capability
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{
		acquired: make(map[model.Capability]bool),
		deny:     make(map[model.Capability]bool),
		drops:    make(chan model.Capability, 8),
	}
}

func (f *fakeMedia) Acquire(ctx context.Context, cap model.Capability) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deny[cap] {
		return ErrCapabilityDenied
	}
	f.acquired[cap] = true
	return nil
}

func (f *fakeMedia) Release(cap model.Capability) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, cap)
}

func (f *fakeMedia) Drops() <-chan model.Capability { return f.drops }

func (f *fakeMedia) drop(cap model.Capability) { f.drops <- cap }

func (f *fakeMedia) releasedCaps() []model.Capability {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Capability, len(f.released))
	copy(out, f.released)
	return out
}

type fakeVisibility struct {
	events chan bool
}

func newFakeVisibility() *fakeVisibility {
	return &fakeVisibility{events: make(chan bool, 8)}
}

func (f *fakeVisibility) Events() <-chan bool { return f.events }

// hide simulates the interview surface losing focus.
func (f *fakeVisibility) hide() { f.events <- true }

// fakeClock is a manual clock. Timers never fire on their own; tests pull
// them from the created channel and fire them explicitly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time

	created chan *fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:     time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		created: make(chan *fakeTimer, 16),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	t := &fakeTimer{d: d, ch: make(chan time.Time, 1)}
	select {
	case c.created <- t:
	default:
	}
	return t
}

type fakeTimer struct {
	mu      sync.Mutex
	d       time.Duration
	stopped bool
	fired   bool
	ch      chan time.Time
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (t *fakeTimer) fire(at time.Time) {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()
	t.ch <- at
}

func (t *fakeTimer) wasStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type stubSource struct {
	mu            sync.Mutex
	questions     []model.Question
	questionsErr  error
	followUp      *FollowUp
	followUpErr   error
	followUpCalls int
}

func (s *stubSource) GetQuestions(ctx context.Context, cand CandidateContext) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.questionsErr != nil {
		return nil, s.questionsErr
	}
	out := make([]model.Question, len(s.questions))
	copy(out, s.questions)
	return out, nil
}

func (s *stubSource) GetFollowUp(ctx context.Context, answerText string, q model.Question, candidateRef string) (*FollowUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followUpCalls++
	return s.followUp, s.followUpErr
}

type captureSink struct {
	mu      sync.Mutex
	reports []*model.Report
	err     error
}

func (c *captureSink) Submit(ctx context.Context, report *model.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.reports = append(c.reports, report)
	return nil
}

func (c *captureSink) submitted() []*model.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.Report, len(c.reports))
	copy(out, c.reports)
	return out
}

func policyAlways() bool { return true }
func policyNever() bool  { return false }

// waitEvent consumes machine events until one of the wanted kind arrives.
func waitEvent(t *testing.T, m *Machine, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-m.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
			return Event{}
		}
	}
}

func waitDone(t *testing.T, m *Machine) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session seal")
	}
}

func waitTimer(t *testing.T, c *fakeClock) *fakeTimer {
	t.Helper()
	select {
	case ft := <-c.created:
		return ft
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for timer creation")
		return nil
	}
}
