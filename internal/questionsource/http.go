// Package questionsource supplies interview questions from the question
// generation service, with a built-in bank as fallback so an interview can
// always be conducted.
package questionsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/hiresense/interview-engine/internal/engine"
	"github.com/hiresense/interview-engine/internal/model"
)

// HTTPSource fetches questions from the question generation service.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewHTTPSource creates an HTTPSource against the given base URL.
func NewHTTPSource(baseURL string, timeout time.Duration, log zerolog.Logger) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "question_source").Logger(),
	}
}

type generateRequest struct {
	CandidateRef string   `json:"candidate_ref"`
	Name         string   `json:"name"`
	Skills       []string `json:"skills,omitempty"`
}

type generateResponse struct {
	Questions []questionPayload `json:"questions"`
}

type questionPayload struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	Category         string `json:"category"`
	Mode             string `json:"mode"`
	Difficulty       string `json:"difficulty,omitempty"`
	TimeLimitSeconds int    `json:"time_limit_seconds,omitempty"`
}

type followUpRequest struct {
	CandidateRef string `json:"candidate_ref"`
	Question     string `json:"question"`
	Answer       string `json:"answer"`
}

// GetQuestions requests a personalized question sequence.
func (s *HTTPSource) GetQuestions(ctx context.Context, cand engine.CandidateContext) ([]model.Question, error) {
	var resp generateResponse
	req := generateRequest{CandidateRef: cand.CandidateRef, Name: cand.Name, Skills: cand.Skills}
	if err := s.post(ctx, "/generate-questions", req, &resp); err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(resp.Questions))
	for _, q := range resp.Questions {
		if q.Text == "" {
			continue
		}
		mode := model.QuestionMode(q.Mode)
		if mode != model.ModeText && mode != model.ModeVoice {
			mode = model.ModeText
		}
		questions = append(questions, model.Question{
			ID:               q.ID,
			Text:             q.Text,
			Category:         q.Category,
			Mode:             mode,
			Difficulty:       q.Difficulty,
			TimeLimitSeconds: q.TimeLimitSeconds,
		})
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("question service returned no usable questions")
	}
	return questions, nil
}

// GetFollowUp requests a follow-up probing the given answer.
func (s *HTTPSource) GetFollowUp(ctx context.Context, answerText string, q model.Question, candidateRef string) (*engine.FollowUp, error) {
	var resp engine.FollowUp
	req := followUpRequest{CandidateRef: candidateRef, Question: q.Text, Answer: answerText}
	if err := s.post(ctx, "/generate-followup", req, &resp); err != nil {
		return nil, err
	}
	if resp.Question == "" {
		return nil, nil
	}
	return &resp, nil
}

func (s *HTTPSource) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("question service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("question service returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
