package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hiresense/interview-engine/internal/config"
	"github.com/hiresense/interview-engine/internal/response"
	"github.com/hiresense/interview-engine/internal/service"
	"github.com/hiresense/interview-engine/internal/validator"
)

// InterviewHandler serves the pre-flight REST surface of the interview flow.
type InterviewHandler struct {
	cfg              *config.Config
	inviteService    *service.InviteService
	interviewService *service.InterviewService
	log              zerolog.Logger
}

// NewInterviewHandler creates a new InterviewHandler.
func NewInterviewHandler(cfg *config.Config, inviteService *service.InviteService, interviewService *service.InterviewService, log zerolog.Logger) *InterviewHandler {
	return &InterviewHandler{
		cfg:              cfg,
		inviteService:    inviteService,
		interviewService: interviewService,
		log:              log.With().Str("component", "interview_handler").Logger(),
	}
}

type joinRequest struct {
	Token string `json:"token" binding:"required"`
}

type joinResponse struct {
	CandidateRef string        `json:"candidate_ref"`
	Name         string        `json:"name"`
	Skills       []string      `json:"skills"`
	StreamPath   string        `json:"stream_path"`
	Policy       sessionPolicy `json:"policy"`
}

type sessionPolicy struct {
	StrikeThreshold   int      `json:"strike_threshold"`
	TextQuestionCount int      `json:"text_question_count"`
	RequiredDevices   []string `json:"required_devices"`
}

// JoinInterview godoc
// POST /api/v1/interviews/join
// Validates an invite token and returns the stream endpoint plus the
// session policy the client must satisfy.
func (h *InterviewHandler) JoinInterview(c *gin.Context) {
	var req joinRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	cand, err := h.inviteService.ValidateToken(req.Token)
	if err != nil {
		code := response.ErrTokenInvalid
		if err == service.ErrInviteExpired {
			code = response.ErrTokenExpired
		}
		response.Fail(c, http.StatusUnauthorized, code)
		return
	}

	if _, active := h.interviewService.ActiveSession(cand.CandidateRef); active {
		response.Fail(c, http.StatusConflict, response.ErrSessionActive)
		return
	}

	response.Success(c, http.StatusOK, joinResponse{
		CandidateRef: cand.CandidateRef,
		Name:         cand.Name,
		Skills:       cand.Skills,
		StreamPath:   "/ws/v1/interviews/stream",
		Policy: sessionPolicy{
			StrikeThreshold:   h.cfg.StrikeThreshold,
			TextQuestionCount: h.cfg.TextQuestionCount,
			RequiredDevices:   []string{"camera", "microphone", "screen_share"},
		},
	})
}

// GetSessionState godoc
// GET /api/v1/interviews/state?token=<invite>
// Returns a snapshot of the candidate's live session, if one exists. Used
// by the client to recover its UI after a reload.
func (h *InterviewHandler) GetSessionState(c *gin.Context) {
	cand, err := h.inviteService.ValidateToken(c.Query("token"))
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	m, ok := h.interviewService.ActiveSession(cand.CandidateRef)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, m.Snapshot())
}
