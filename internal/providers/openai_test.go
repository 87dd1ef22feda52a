package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqGenerateUsesCompatibleEndpoint(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"llama","choices":[{"index":0,"message":{"role":"assistant","content":"generated"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()
	t.Setenv("STUDYRAG_GROQ_BASE_URL", srv.URL)
	t.Setenv("GROQ_API_KEY", "gsk-test")

	p := NewGroqProvider("")
	resp, info, err := p.Generate(context.Background(), GenerateRequest{Prompt: "p", MaxTokens: 500, Temperature: 0.3})
	require.NoError(t, err)
	require.Equal(t, "generated", resp.Text)
	require.Equal(t, "groq", info.Name)
	require.EqualValues(t, 500, body["max_tokens"])
	require.InDelta(t, 0.3, body["temperature"], 1e-6)
}

func TestOpenAIEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,-0.5]}],"model":"text-embedding-3-small"}`))
	}))
	defer srv.Close()
	t.Setenv("STUDYRAG_OPENAI_BASE_URL", srv.URL)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	vecs, info, err := NewOpenAIProvider("").Embed(context.Background(), EmbedRequest{Inputs: []string{"x"}})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{0.5, -0.5}}, vecs)
	require.Equal(t, "openai", info.Name)
}

func TestOpenAIMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, _, err := NewOpenAIProvider("nokey").Generate(context.Background(), GenerateRequest{Prompt: "p"})
	require.ErrorContains(t, err, "key missing")
}

func TestResolveKeyAlias(t *testing.T) {
	t.Setenv("STUDYRAG_OPENAI_KEY_TEAM_A", "sk-alias")
	t.Setenv("OPENAI_API_KEY", "sk-default")
	require.Equal(t, "sk-alias", resolveKey("OPENAI", "team-a"))
	require.Equal(t, "sk-default", resolveKey("OPENAI", "other"))
}
