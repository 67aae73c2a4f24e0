package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"agrotrade/internal/ai"
	"agrotrade/internal/matching"
	"agrotrade/models"

	"github.com/stretchr/testify/require"
)

func TestGenerateCompletion(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"  Strong cashew   specialist.\n","done":true}`))
	}))
	defer srv.Close()

	client := ai.NewOllamaClient(srv.URL, "test-model")
	resp, err := client.GenerateCompletion(context.Background(), "hello", false)
	require.NoError(t, err)
	require.Contains(t, resp, "cashew")
	require.Equal(t, "test-model", got["model"])
	require.Equal(t, false, got["stream"])
	_, hasFormat := got["format"]
	require.False(t, hasFormat)

	reason, err := ai.NewExplainer(client).Explain(context.Background(), matching.ExplainRequest{Crop: "CASHEWS"})
	require.NoError(t, err)
	require.Equal(t, "Strong cashew specialist.", reason)
}

func TestGenerateCompletionErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := ai.NewOllamaClient(srv.URL, "").GenerateCompletion(context.Background(), "hello", true)
	require.ErrorContains(t, err, "503")
}

type stubCompleter struct {
	resp string
}

func (s stubCompleter) GenerateCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	return s.resp, nil
}

func TestExplainerRejectsEmptyAndTruncates(t *testing.T) {
	_, err := ai.NewExplainer(stubCompleter{resp: "   "}).Explain(context.Background(), matching.ExplainRequest{})
	require.Error(t, err)

	long := strings.Repeat("word ", 200)
	reason, err := ai.NewExplainer(stubCompleter{resp: long}).Explain(context.Background(), matching.ExplainRequest{})
	require.NoError(t, err)
	require.LessOrEqual(t, len(reason), 404)
}

func TestBuildExplainPrompt(t *testing.T) {
	prompt := ai.BuildExplainPrompt(matching.ExplainRequest{
		Crop:        "CASHEWS",
		Volume:      "80 MT",
		Destination: "Hamburg, DE",
		Incoterm:    "CIF",
		Supplier: models.Supplier{
			Name:        "Abidjan Cashew Collective",
			Specialties: []string{"CASHEWS", "SHEA"},
			OnTimeRate:  0.92,
			TrustScore:  84,
			Verified:    true,
		},
		Score: 81.5,
	})
	require.Contains(t, prompt, "80 MT of CASHEWS delivered to Hamburg, DE under CIF")
	require.Contains(t, prompt, "Technical instructions: none")
	require.Contains(t, prompt, "On-time delivery rate: 92%")
	require.Contains(t, prompt, "Trust score: 84/100, verified")
	require.Contains(t, prompt, "81.50/100")
}
