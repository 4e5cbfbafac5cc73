package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yegors/preflight/internal/ai"
	"github.com/yegors/preflight/pkg/logger"
	"google.golang.org/genai"
)

func TestToContents(t *testing.T) {
	contents, system := toContents([]ai.ChatMessage{
		{Role: ai.RoleSystem, Content: "You are a dispatcher"},
		{Role: ai.RoleUser, Content: "Brief KJFK to KBOS"},
		{Role: ai.RoleAssistant, Content: "VFR"},
		{Role: ai.RoleSystem, Content: "Be brief"},
	})

	assert.Equal(t, "You are a dispatcher\n\nBe brief", system)
	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, "Brief KJFK to KBOS", contents[0].Parts[0].Text)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
}

func newTestServer(t *testing.T, reply string, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent") {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": reply}},
				},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatCompletion(t *testing.T) {
	var body map[string]any
	srv := newTestServer(t, "VFR along route", &body)

	client, err := NewClient(context.Background(), "test-key", logger.NewNop(),
		WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	text, err := client.ChatCompletion(context.Background(), []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: "You are a dispatcher"},
		{Role: ai.RoleUser, Content: "Brief KJFK to KBOS"},
	}, ai.ChatConfig{Model: "gemini-test", Temperature: 0.2, MaxTokens: 256})
	require.NoError(t, err)
	assert.Equal(t, "VFR along route", text)

	assert.Contains(t, body, "systemInstruction")
	assert.Len(t, body["contents"], 1)
}

func TestChatCompletionEmptyResponse(t *testing.T) {
	srv := newTestServer(t, "  ", nil)

	client, err := NewClient(context.Background(), "test-key", logger.NewNop(),
		WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = client.ChatCompletion(context.Background(), []ai.ChatMessage{
		{Role: ai.RoleUser, Content: "Brief KJFK to KBOS"},
	}, ai.ChatConfig{Model: "gemini-test"})
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
}

func TestChatCompletionNeedsUserMessage(t *testing.T) {
	client, err := NewClient(context.Background(), "test-key", logger.NewNop())
	require.NoError(t, err)

	_, err = client.ChatCompletion(context.Background(), []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: "You are a dispatcher"},
	}, ai.ChatConfig{Model: "gemini-test"})
	assert.Error(t, err)
}
