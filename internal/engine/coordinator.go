package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CoordinatorConfig tunes the speech coordinator's restart supervision.
type CoordinatorConfig struct {
	// RestartGuard is the delay before restarting continuous recognition
	// after the underlying session ends on its own.
	RestartGuard time.Duration
	// MaxRestarts bounds consecutive automatic restarts; the counter resets
	// on every explicit Listen call. Prevents a restart storm when the
	// device is gone for good.
	MaxRestarts int
}

// DefaultCoordinatorConfig mirrors the observed lifecycle of continuous
// browser recognition: a ~200ms guard between end and restart.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{RestartGuard: 200 * time.Millisecond, MaxRestarts: 5}
}

// Coordinator serializes speech capture and synthesis for one session. The
// two devices are hardware-exclusive, so "speaking" and "listening" are never
// active at the same time: Speak pauses capture first, and transcript events
// arriving while an utterance is in flight are stale segments from the guard
// window and get discarded.
//
// Continuous recognition ending on its own is a normal occurrence. While
// listening intent holds and nothing is being spoken, the coordinator
// restarts capture after RestartGuard, with the attempt count bounded by
// MaxRestarts.
type Coordinator struct {
	stt   SpeechToText
	tts   TextToSpeech
	clock Clock
	cfg   CoordinatorConfig
	log   zerolog.Logger

	// speakMu serializes utterances so two prompts are never spoken
	// concurrently, even when a proctoring warning races a question.
	speakMu sync.Mutex

	mu        sync.Mutex
	speaking  bool
	listening bool // listening intent; capture itself may be restarting
	restarts  int
	gen       uint64 // invalidates scheduled restarts on state changes

	out  chan Transcript
	done chan struct{}
}

// NewCoordinator wires a coordinator over the given adapters.
func NewCoordinator(stt SpeechToText, tts TextToSpeech, clock Clock, cfg CoordinatorConfig, log zerolog.Logger) *Coordinator {
	if cfg.RestartGuard <= 0 {
		cfg.RestartGuard = 200 * time.Millisecond
	}
	if cfg.MaxRestarts <= 0 {
		cfg.MaxRestarts = 5
	}
	return &Coordinator{
		stt:   stt,
		tts:   tts,
		clock: clock,
		cfg:   cfg,
		log:   log.With().Str("component", "speech_coordinator").Logger(),
		out:   make(chan Transcript, 16),
		done:  make(chan struct{}),
	}
}

// Start launches the event pump. It returns immediately; the pump stops when
// ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) {
	go c.run(ctx)
}

// Transcripts delivers recognition results accepted while listening.
func (c *Coordinator) Transcripts() <-chan Transcript { return c.out }

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-c.stt.Results():
			if !ok {
				return
			}
			c.mu.Lock()
			drop := c.speaking || !c.listening
			c.mu.Unlock()
			if drop {
				continue
			}
			select {
			case c.out <- t:
			case <-ctx.Done():
				return
			}
		case err, ok := <-c.stt.Ended():
			if !ok {
				return
			}
			c.onRecognitionEnd(ctx, err)
		}
	}
}

// onRecognitionEnd supervises the restart-on-end behavior of continuous
// recognition. No-speech results are ignored outright; other errors are
// logged and the flow continues.
func (c *Coordinator) onRecognitionEnd(ctx context.Context, err error) {
	if err != nil && !errors.Is(err, ErrNoSpeech) {
		c.log.Warn().Err(err).Msg("recognition session ended with error")
	}

	c.mu.Lock()
	if !c.listening || c.speaking {
		c.mu.Unlock()
		return
	}
	if c.restarts >= c.cfg.MaxRestarts {
		c.log.Error().Int("restarts", c.restarts).Msg("recognition restart limit reached, giving up")
		c.listening = false
		c.mu.Unlock()
		return
	}
	c.restarts++
	gen := c.gen
	c.mu.Unlock()

	c.scheduleRestart(ctx, gen, c.cfg.RestartGuard)
}

// scheduleRestart starts recognition again after the guard delay, unless the
// coordinator's state moved on in the meantime.
func (c *Coordinator) scheduleRestart(ctx context.Context, gen uint64, delay time.Duration) {
	go func() {
		t := c.clock.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C():
		}

		c.mu.Lock()
		stale := c.gen != gen || !c.listening || c.speaking
		c.mu.Unlock()
		if stale {
			return
		}
		if err := c.stt.Start(); err != nil {
			c.log.Warn().Err(err).Msg("recognition restart failed")
		}
	}()
}

// Speak pauses capture if needed, synthesizes the utterance, and resumes
// capture afterwards when listening intent still holds. It returns after the
// adapter reports utterance end or error; synthesis errors are returned for
// the caller to absorb, never to abort the session.
func (c *Coordinator) Speak(ctx context.Context, text string) error {
	c.speakMu.Lock()
	defer c.speakMu.Unlock()
	return c.speakLocked(ctx, text)
}

// SpeakThenListen speaks the utterance and opens the listening window before
// any queued utterance can slot in between. A narration racing the question
// prompt waits its turn and then pauses/resumes capture normally instead of
// finding no listening intent to resume.
func (c *Coordinator) SpeakThenListen(ctx context.Context, text string) error {
	c.speakMu.Lock()
	defer c.speakMu.Unlock()

	err := c.speakLocked(ctx, text)
	if ctx.Err() != nil {
		return err
	}
	if lerr := c.Listen(); lerr != nil && err == nil {
		err = lerr
	}
	return err
}

// speakLocked is Speak's body; callers hold speakMu.
func (c *Coordinator) speakLocked(ctx context.Context, text string) error {
	c.mu.Lock()
	wasListening := c.listening
	c.speaking = true
	c.gen++
	c.mu.Unlock()

	if wasListening {
		c.stt.Stop()
	}

	err := c.tts.Speak(ctx, text)

	c.mu.Lock()
	c.speaking = false
	c.gen++
	resume := c.listening && ctx.Err() == nil
	gen := c.gen
	c.mu.Unlock()

	if resume {
		c.scheduleRestart(ctx, gen, c.cfg.RestartGuard)
	}
	return err
}

// Listen starts continuous capture. Valid only while no utterance is in
// flight; calling it while already listening is a no-op.
func (c *Coordinator) Listen() error {
	c.mu.Lock()
	if c.speaking {
		c.mu.Unlock()
		return ErrBusySpeaking
	}
	if c.listening {
		c.mu.Unlock()
		return nil
	}
	c.listening = true
	c.restarts = 0
	c.gen++
	c.mu.Unlock()

	if err := c.stt.Start(); err != nil {
		c.mu.Lock()
		c.listening = false
		c.mu.Unlock()
		return err
	}
	return nil
}

// StopListening drops listening intent and stops capture. Idempotent; safe
// to call at any time.
func (c *Coordinator) StopListening() {
	c.mu.Lock()
	was := c.listening
	c.listening = false
	c.gen++
	c.mu.Unlock()
	if was {
		c.stt.Stop()
	}
}

// Shutdown stops capture and flushes any queued synthesis. Idempotent.
func (c *Coordinator) Shutdown() {
	c.StopListening()
	c.tts.Cancel()
}

// Speaking reports whether an utterance is currently in flight.
func (c *Coordinator) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Listening reports whether listening intent currently holds.
func (c *Coordinator) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}
