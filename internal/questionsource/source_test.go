package questionsource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hiresense/interview-engine/internal/engine"
	"github.com/hiresense/interview-engine/internal/model"
)

func testCandidate() engine.CandidateContext {
	return engine.CandidateContext{
		CandidateRef: "cand-9",
		Name:         "Sam",
		Skills:       []string{"Go", "PostgreSQL"},
	}
}

func TestHTTPSourceGetQuestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate-questions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "cand-9", req.CandidateRef)
		require.Equal(t, []string{"Go", "PostgreSQL"}, req.Skills)

		json.NewEncoder(w).Encode(generateResponse{Questions: []questionPayload{
			{ID: "q1", Text: "Tell me about Go.", Category: "technical", Mode: "text"},
			{ID: "q2", Text: "Describe an outage you handled.", Category: "stress", Mode: "voice", TimeLimitSeconds: 90},
			{ID: "q3", Text: "", Mode: "text"},
			{ID: "q4", Text: "Mode gets sanitized.", Mode: "video"},
		}})
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, time.Second, zerolog.Nop())
	questions, err := src.GetQuestions(context.Background(), testCandidate())
	require.NoError(t, err)

	// The blank question is dropped, the unknown mode coerced to text.
	require.Len(t, questions, 3)
	require.Equal(t, model.ModeText, questions[0].Mode)
	require.Equal(t, model.ModeVoice, questions[1].Mode)
	require.Equal(t, 90, questions[1].TimeLimitSeconds)
	require.Equal(t, model.ModeText, questions[2].Mode)
}

func TestHTTPSourceGetQuestionsAllBlank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Questions: []questionPayload{{ID: "q1"}}})
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, time.Second, zerolog.Nop())
	_, err := src.GetQuestions(context.Background(), testCandidate())
	require.Error(t, err)
}

func TestHTTPSourceGetQuestionsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, time.Second, zerolog.Nop())
	_, err := src.GetQuestions(context.Background(), testCandidate())
	require.ErrorContains(t, err, "status 500")
}

func TestHTTPSourceGetFollowUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate-followup", r.URL.Path)

		var req followUpRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "I used goroutines.", req.Answer)

		json.NewEncoder(w).Encode(engine.FollowUp{Question: "How did you bound the concurrency?"})
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, time.Second, zerolog.Nop())
	fu, err := src.GetFollowUp(context.Background(), "I used goroutines.", model.Question{Text: "Concurrency?"}, "cand-9")
	require.NoError(t, err)
	require.NotNil(t, fu)
	require.Equal(t, "How did you bound the concurrency?", fu.Question)
}

func TestHTTPSourceGetFollowUpEmptyMeansNone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(engine.FollowUp{})
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, time.Second, zerolog.Nop())
	fu, err := src.GetFollowUp(context.Background(), "short", model.Question{}, "cand-9")
	require.NoError(t, err)
	require.Nil(t, fu)
}

type failingSource struct {
	err error
}

func (f *failingSource) GetQuestions(ctx context.Context, cand engine.CandidateContext) ([]model.Question, error) {
	return nil, f.err
}

func (f *failingSource) GetFollowUp(ctx context.Context, answerText string, q model.Question, candidateRef string) (*engine.FollowUp, error) {
	return nil, f.err
}

func TestFallbackSourceDegradesToBank(t *testing.T) {
	src := NewFallbackSource(&failingSource{err: errors.New("connection refused")}, zerolog.Nop())

	questions, err := src.GetQuestions(context.Background(), testCandidate())
	require.NoError(t, err)
	require.NotEmpty(t, questions)

	// The bank must open with text questions and include timed voice ones.
	require.Equal(t, model.ModeText, questions[0].Mode)
	sawTimed := false
	for _, q := range questions {
		require.NotEmpty(t, q.ID)
		require.NotEmpty(t, q.Text)
		if q.TimeLimitSeconds > 0 {
			require.Equal(t, model.ModeVoice, q.Mode)
			sawTimed = true
		}
	}
	require.True(t, sawTimed)
}

func TestFallbackSourceRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewFallbackSource(&failingSource{err: context.Canceled}, zerolog.Nop())
	_, err := src.GetQuestions(ctx, testCandidate())
	require.Error(t, err)
}

func TestFallbackSourceFollowUpPassesThrough(t *testing.T) {
	wantErr := errors.New("service down")
	src := NewFallbackSource(&failingSource{err: wantErr}, zerolog.Nop())

	_, err := src.GetFollowUp(context.Background(), "answer", model.Question{}, "cand-9")
	require.ErrorIs(t, err, wantErr)
}
