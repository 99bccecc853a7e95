package summarizer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-digest/config"
	"review-digest/summarizer"
)

func TestHuggingFaceGenerate(t *testing.T) {
	t.Setenv("HF_API_TOKEN", "hf_test")

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"summary_text":" Buyers like the camera. "}]`))
	}))
	defer srv.Close()

	cfg := config.Default().Summarizer
	cfg.Provider = config.ProviderHuggingFace
	cfg.Endpoint = srv.URL
	m, err := summarizer.NewHuggingFaceModel(cfg)
	require.NoError(t, err)

	out, err := m.Generate(context.Background(), "great camera and battery", cfg.Reduce)
	require.NoError(t, err)
	assert.Equal(t, "Buyers like the camera.", out.Text)

	assert.Equal(t, "great camera and battery", got["inputs"])
	params := got["parameters"].(map[string]any)
	assert.EqualValues(t, 250, params["max_new_tokens"])
	assert.EqualValues(t, 100, params["min_length"])
	assert.EqualValues(t, 7, params["num_beams"])
	assert.EqualValues(t, 1.5, params["length_penalty"])
	assert.Equal(t, true, params["early_stopping"])
	assert.EqualValues(t, 2, params["eos_token_id"])
}

func TestHuggingFaceGenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
	}))
	defer srv.Close()

	cfg := config.Default().Summarizer
	cfg.Endpoint = srv.URL
	m, err := summarizer.NewHuggingFaceModel(cfg)
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), "text", cfg.Map)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Model is currently loading")

	_, err = m.CountTokens(context.Background(), "text")
	assert.Error(t, err, "no tokenizer configured")
}
