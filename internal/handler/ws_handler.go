package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hiresense/interview-engine/internal/engine"
	"github.com/hiresense/interview-engine/internal/service"
	ws "github.com/hiresense/interview-engine/internal/websocket"
)

// readySetupTimeout bounds how long a connected client may take to grant
// capabilities and report ready.
const readySetupTimeout = 60 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler runs interview sessions over WebSocket.
type WSHandler struct {
	inviteService    *service.InviteService
	interviewService *service.InterviewService
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(inviteService *service.InviteService, interviewService *service.InterviewService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		inviteService:    inviteService,
		interviewService: interviewService,
		log:              log.With().Str("component", "ws_handler").Logger(),
		upgrader:         buildUpgrader(allowedOrigins),
	}
}

// InterviewStream godoc
// WS /ws/v1/interviews/stream?token=<invite>
// Upgrades to WebSocket and conducts one full interview session: the client
// is the capability host, the server drives the conversation.
func (h *WSHandler) InterviewStream(c *gin.Context) {
	cand, err := h.inviteService.ValidateToken(c.Query("token"))
	if err != nil {
		status := http.StatusUnauthorized
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("candidate_ref", cand.CandidateRef).Logger()
	wsLog.Info().Msg("Candidate connected")

	bridge := newWSBridge(conn, wsLog)
	go bridge.readPump()
	defer bridge.close()

	// The session outlives the HTTP request context once the connection is
	// hijacked; its lifetime is bound to the socket instead.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The client finishes local setup (UI, device prompt wiring) and sends
	// ready before the engine starts requesting capabilities.
	select {
	case <-bridge.ready:
	case <-bridge.closed:
		return
	case <-time.After(readySetupTimeout):
		_ = ws.WriteError(conn, "setup timed out")
		return
	}

	m, err := h.interviewService.StartSession(ctx, cand, bridge.hostAdapters())
	if err != nil {
		wsLog.Warn().Err(err).Msg("Session start rejected")
		_ = ws.WriteError(conn, startErrorMessage(err))
		return
	}
	bridge.bindMachine(m)

	for {
		select {
		case ev := <-m.Events():
			if err := h.writeEvent(bridge, ev); err != nil {
				wsLog.Debug().Err(err).Msg("Event write failed")
			}
		case <-m.Done():
			h.drainEvents(bridge, m)
			wsLog.Info().Msg("Session sealed, closing stream")
			return
		case <-bridge.closed:
			// Connection gone mid-interview: unwind the session. The engine
			// seals with whatever was answered.
			wsLog.Warn().Msg("Connection lost mid-session")
			cancel()
			<-m.Done()
			return
		}
	}
}

// drainEvents flushes events emitted between the last read and sealing, so
// the terminal event always reaches the client.
func (h *WSHandler) drainEvents(bridge *wsBridge, m *engine.Machine) {
	for {
		select {
		case ev := <-m.Events():
			_ = h.writeEvent(bridge, ev)
		default:
			return
		}
	}
}

func (h *WSHandler) writeEvent(bridge *wsBridge, ev engine.Event) error {
	switch ev.Kind {
	case engine.EventPhase:
		return bridge.write(ws.PhaseEvent{Event: ws.EventPhase, Phase: string(ev.Phase)})
	case engine.EventQuestion:
		q := ev.Question
		return bridge.write(ws.QuestionEvent{
			Event:            ws.EventQuestion,
			QuestionID:       q.ID,
			Text:             ev.Text,
			Category:         q.Category,
			Mode:             string(q.Mode),
			FollowUp:         q.FollowUp,
			Number:           ev.QuestionNumber,
			Total:            ev.TotalQuestions,
			TimeLimitSeconds: q.TimeLimitSeconds,
		})
	case engine.EventNarration:
		return bridge.write(ws.NarrationEvent{Event: ws.EventNarration, Text: ev.Text})
	case engine.EventWarning:
		return bridge.write(ws.WarningEvent{Event: ws.EventWarning, Text: ev.Text, Strikes: ev.StrikeCount})
	case engine.EventTerminated:
		return bridge.write(ws.TerminatedEvent{Event: ws.EventTerminated, Reason: ev.Text})
	case engine.EventCompleted:
		return bridge.write(ws.CompletedEvent{Event: ws.EventCompleted})
	default:
		return nil
	}
}

func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrSessionAlreadyActive):
		return "an interview session is already active for this candidate"
	case errors.Is(err, engine.ErrCapabilityDenied):
		return "camera, microphone and screen share permissions are all required"
	case errors.Is(err, engine.ErrPrerequisitesNotMet):
		return "proctoring prerequisites were not met"
	default:
		return "failed to start the interview session"
	}
}
