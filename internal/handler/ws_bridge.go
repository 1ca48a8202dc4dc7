package handler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hiresense/interview-engine/internal/engine"
	"github.com/hiresense/interview-engine/internal/model"
	"github.com/hiresense/interview-engine/internal/service"
	ws "github.com/hiresense/interview-engine/internal/websocket"
)

// errConnClosed reports bridge operations attempted after the socket died.
var errConnClosed = errors.New("websocket connection closed")

// wsBridge adapts one WebSocket connection into the engine's host
// capabilities. The browser on the far end owns the actual devices; the
// bridge turns engine calls into instructions and client actions into
// adapter events.
//
// Writes are serialized through writeMu since gorilla permits one
// concurrent writer.
type wsBridge struct {
	conn *websocket.Conn
	log  zerolog.Logger

	writeMu sync.Mutex

	results chan engine.Transcript
	ended   chan error
	drops   chan model.Capability
	visible chan bool

	ready     chan struct{}
	readyOnce sync.Once
	closed    chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	pendingCaps map[model.Capability]chan bool
	pendingUtts map[string]chan error
	machine     *engine.Machine
}

func newWSBridge(conn *websocket.Conn, log zerolog.Logger) *wsBridge {
	return &wsBridge{
		conn:        conn,
		log:         log,
		results:     make(chan engine.Transcript, 16),
		ended:       make(chan error, 4),
		drops:       make(chan model.Capability, 4),
		visible:     make(chan bool, 8),
		ready:       make(chan struct{}),
		closed:      make(chan struct{}),
		pendingCaps: make(map[model.Capability]chan bool),
		pendingUtts: make(map[string]chan error),
	}
}

// hostAdapters exposes the bridge as the engine's capability set.
func (b *wsBridge) hostAdapters() service.HostAdapters {
	return service.HostAdapters{Media: b, STT: b, TTS: b, Visibility: b}
}

// bindMachine routes subsequent answer actions into the machine.
func (b *wsBridge) bindMachine(m *engine.Machine) {
	b.mu.Lock()
	b.machine = m
	b.mu.Unlock()
}

func (b *wsBridge) write(v interface{}) error {
	select {
	case <-b.closed:
		return errConnClosed
	default:
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return ws.WriteTyped(b.conn, v)
}

// close tears the bridge down: pending waits unblock, adapter channels stop
// delivering. Idempotent.
func (b *wsBridge) close() {
	b.closeOnce.Do(func() {
		close(b.closed)

		b.mu.Lock()
		for cap, ch := range b.pendingCaps {
			ch <- false
			delete(b.pendingCaps, cap)
		}
		for id, ch := range b.pendingUtts {
			ch <- errConnClosed
			delete(b.pendingUtts, id)
		}
		b.mu.Unlock()
	})
}

// ─── Read pump ──────────────────────────────────────────────────────

// readPump decodes client actions until the connection dies, then closes
// the bridge. Run it on its own goroutine.
func (b *wsBridge) readPump() {
	defer b.close()

	for {
		_, raw, err := b.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				b.log.Debug().Msg("Connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			b.log.Debug().Err(err).Msg("Discarding malformed message")
			continue
		}

		b.dispatch(envelope.Action, raw)
	}
}

func (b *wsBridge) dispatch(action ws.Action, raw []byte) {
	switch action {
	case ws.ActionReady:
		b.readyOnce.Do(func() { close(b.ready) })

	case ws.ActionCapability:
		var msg ws.CapabilityRequest
		if json.Unmarshal(raw, &msg) != nil {
			return
		}
		b.onCapability(model.Capability(msg.Capability), msg.Granted)

	case ws.ActionVisibility:
		var msg ws.VisibilityRequest
		if json.Unmarshal(raw, &msg) != nil {
			return
		}
		if msg.Hidden {
			select {
			case b.visible <- true:
			default:
			}
		}

	case ws.ActionTranscript:
		var msg ws.TranscriptRequest
		if json.Unmarshal(raw, &msg) != nil {
			return
		}
		select {
		case b.results <- engine.Transcript{Text: msg.Text, Final: msg.Final}:
		case <-b.closed:
		}

	case ws.ActionRecognitionEnded:
		var msg ws.RecognitionEndedRequest
		if json.Unmarshal(raw, &msg) != nil {
			return
		}
		select {
		case b.ended <- recognitionError(msg.Error):
		default:
		}

	case ws.ActionUtteranceDone:
		var msg ws.UtteranceDoneRequest
		if json.Unmarshal(raw, &msg) != nil {
			return
		}
		b.onUtteranceDone(msg.UtteranceID, msg.Error)

	case ws.ActionAnswer:
		var msg ws.AnswerRequest
		if json.Unmarshal(raw, &msg) != nil {
			return
		}
		b.mu.Lock()
		m := b.machine
		b.mu.Unlock()
		if m != nil {
			if err := m.SubmitAnswer(msg.Text); err != nil {
				_ = ws.WriteError(b.conn, err.Error())
			}
		}

	case ws.ActionPing:
		_ = b.write(ws.PongResponse{Event: ws.EventPong})

	default:
		b.log.Debug().Str("action", string(action)).Msg("Unknown action")
	}
}

func recognitionError(msg string) error {
	switch msg {
	case "":
		return nil
	case "no-speech":
		return engine.ErrNoSpeech
	default:
		return errors.New(msg)
	}
}

func (b *wsBridge) onCapability(cap model.Capability, granted bool) {
	b.mu.Lock()
	ch, waiting := b.pendingCaps[cap]
	if waiting {
		delete(b.pendingCaps, cap)
	}
	b.mu.Unlock()

	if waiting {
		ch <- granted
		return
	}
	// Unsolicited revocation after acquisition.
	if !granted {
		select {
		case b.drops <- cap:
		default:
		}
	}
}

func (b *wsBridge) onUtteranceDone(id, errMsg string) {
	b.mu.Lock()
	ch, ok := b.pendingUtts[id]
	if ok {
		delete(b.pendingUtts, id)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	if errMsg != "" {
		ch <- errors.New(errMsg)
	} else {
		ch <- nil
	}
}

// ─── engine.MediaCapture ────────────────────────────────────────────

func (b *wsBridge) Acquire(ctx context.Context, cap model.Capability) error {
	reply := make(chan bool, 1)
	b.mu.Lock()
	b.pendingCaps[cap] = reply
	b.mu.Unlock()

	if err := b.write(ws.CapabilityRequestEvent{Event: ws.EventCapabilityRequest, Capability: string(cap)}); err != nil {
		b.mu.Lock()
		delete(b.pendingCaps, cap)
		b.mu.Unlock()
		return err
	}

	select {
	case granted := <-reply:
		if !granted {
			return engine.ErrCapabilityDenied
		}
		return nil
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.pendingCaps, cap)
		b.mu.Unlock()
		return ctx.Err()
	}
}

func (b *wsBridge) Release(cap model.Capability) {
	_ = b.write(ws.CapabilityReleaseEvent{Event: ws.EventCapabilityRelease, Capability: string(cap)})
}

func (b *wsBridge) Drops() <-chan model.Capability { return b.drops }

// ─── engine.SpeechToText ────────────────────────────────────────────

func (b *wsBridge) Start() error {
	return b.write(ws.ListenEvent{Event: ws.EventListen, Active: true})
}

func (b *wsBridge) Stop() {
	_ = b.write(ws.ListenEvent{Event: ws.EventListen, Active: false})
}

func (b *wsBridge) Results() <-chan engine.Transcript { return b.results }

func (b *wsBridge) Ended() <-chan error { return b.ended }

// ─── engine.TextToSpeech ────────────────────────────────────────────

func (b *wsBridge) Speak(ctx context.Context, text string) error {
	id := uuid.New().String()
	done := make(chan error, 1)

	b.mu.Lock()
	b.pendingUtts[id] = done
	b.mu.Unlock()

	if err := b.write(ws.SpeakEvent{Event: ws.EventSpeak, UtteranceID: id, Text: text}); err != nil {
		b.mu.Lock()
		delete(b.pendingUtts, id)
		b.mu.Unlock()
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.pendingUtts, id)
		b.mu.Unlock()
		return ctx.Err()
	}
}

func (b *wsBridge) Cancel() {
	_ = b.write(ws.SpeakCancelEvent{Event: ws.EventSpeakCancel})

	// Anything still in flight will never finish playing.
	b.mu.Lock()
	for id, ch := range b.pendingUtts {
		ch <- nil
		delete(b.pendingUtts, id)
	}
	b.mu.Unlock()
}

// ─── engine.VisibilityMonitor ───────────────────────────────────────

func (b *wsBridge) Events() <-chan bool { return b.visible }
