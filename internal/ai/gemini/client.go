package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yegors/preflight/internal/ai"
	"github.com/yegors/preflight/pkg/logger"
	"google.golang.org/genai"
)

// Client represents a Google Gemini API client
type Client struct {
	genai  *genai.Client
	logger *logger.Logger
}

// Option customises the underlying genai client config
type Option func(cfg *genai.ClientConfig)

// WithBaseURL points the client at another endpoint
func WithBaseURL(baseURL string) Option {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = baseURL
	}
}

// WithHTTPClient replaces the HTTP client used by the SDK
func WithHTTPClient(httpClient *http.Client) Option {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPClient = httpClient
	}
}

// NewClient creates a new Gemini client backed by the Gemini Developer API
func NewClient(ctx context.Context, apiKey string, logger *logger.Logger, opts ...Option) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{
		genai:  client,
		logger: logger.Named("gemini"),
	}, nil
}

// ChatCompletion implements ai.ChatProvider
func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	contents, system := toContents(messages)
	if len(contents) == 0 {
		return "", fmt.Errorf("gemini chat needs at least one user message")
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(config.Temperature)),
		MaxOutputTokens: int32(config.MaxTokens),
	}
	if system != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	start := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, config.Model, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini chat failed: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ai.ErrEmptyResponse
	}

	c.logger.Debug("Gemini completion finished",
		logger.String("model", config.Model),
		logger.Duration("duration", time.Since(start)))
	return text, nil
}

// toContents maps chat messages onto Gemini contents.
// System messages are joined into one system instruction.
func toContents(messages []ai.ChatMessage) ([]*genai.Content, string) {
	var contents []*genai.Content
	var system []string

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			system = append(system, msg.Content)
		case ai.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(system, "\n\n")
}
