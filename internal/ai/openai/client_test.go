package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yegors/preflight/internal/ai"
	"github.com/yegors/preflight/pkg/logger"
)

func TestChatCompletion(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		MaxTokens int `json:"max_tokens"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"Route: KJFK → KBOS\nVFR throughout"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("key", logger.NewNop(), srv.URL+"/")
	out, err := c.ChatCompletion(context.Background(), []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: "You are a dispatcher"},
		{Role: ai.RoleUser, Content: "Brief me"},
	}, ai.ChatConfig{Model: "gpt-4o-mini", MaxTokens: 100})

	require.NoError(t, err)
	assert.Equal(t, "Route: KJFK → KBOS\nVFR throughout", out)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 100, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestChatCompletionErrors(t *testing.T) {
	status := http.StatusInternalServerError
	body := `{"error":"boom"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient("key", logger.NewNop(), srv.URL)
	_, err := c.ChatCompletion(context.Background(), nil, ai.ChatConfig{})
	assert.ErrorContains(t, err, "boom")

	status, body = http.StatusOK, `{"choices":[]}`
	_, err = c.ChatCompletion(context.Background(), nil, ai.ChatConfig{})
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
}

func TestCustomChatCompletionsPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/chat/completions", r.URL.Path)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("key", logger.NewNop(), srv.URL)
	c.SetChatCompletionsPath("/openai/chat/completions")
	out, err := c.ChatCompletion(context.Background(), nil, ai.ChatConfig{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}
