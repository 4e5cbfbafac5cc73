// Package summary produces the AI-written briefing summary and its fallback.
package summary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yegors/preflight/internal/ai"
	"github.com/yegors/preflight/internal/templating"
	"github.com/yegors/preflight/pkg/logger"
)

// ErrNoProvider is reported when no summary provider is configured
var ErrNoProvider = errors.New("no summary provider configured")

const systemPrompt = "You are an experienced flight dispatcher writing preflight weather briefings for pilots. " +
	"Be factual and concise, lead with safety-critical items and never invent data that is not in the input."

// Summary is the AI part of a briefing
type Summary struct {
	FiveLine string    `json:"summary_5line"`
	Full     string    `json:"summary_full"`
	Sections []Section `json:"summary_sections"`
	Provider string    `json:"provider"`
	Fallback bool      `json:"fallback"`
}

// Config holds the chat settings used for summaries
type Config struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	PromptPath  string
}

// Summarizer renders the prompt and asks the chat provider for a report
type Summarizer struct {
	provider ai.ChatProvider
	engine   *templating.Engine
	config   Config
	logger   *logger.Logger
}

// New creates a summarizer. A nil provider always yields the fallback summary.
func New(provider ai.ChatProvider, engine *templating.Engine, cfg Config, log *logger.Logger) *Summarizer {
	return &Summarizer{
		provider: provider,
		engine:   engine,
		config:   cfg,
		logger:   log.Named("summary"),
	}
}

// Configured reports whether summaries come from a provider
func (s *Summarizer) Configured() bool {
	return s.provider != nil
}

// Summarize never fails: provider errors turn into the deterministic fallback
func (s *Summarizer) Summarize(ctx context.Context, pc *templating.PromptContext) Summary {
	if s.provider == nil {
		return Fallback(pc.Airports, len(pc.Hazards), ErrNoProvider)
	}

	prompt, err := s.engine.RenderBriefingPrompt(s.config.PromptPath, pc, templating.BriefingFormattingOptions(len(pc.Airports)))
	if err != nil {
		s.logger.Error("Failed to render briefing prompt", logger.Error(err))
		return Fallback(pc.Airports, len(pc.Hazards), err)
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.provider.ChatCompletion(ctx, []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: systemPrompt},
		{Role: ai.RoleUser, Content: prompt},
	}, ai.ChatConfig{
		Model:       s.config.Model,
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		s.logger.Warn("Summary generation failed, using fallback",
			logger.String("provider", s.config.Provider),
			logger.Error(err))
		return Fallback(pc.Airports, len(pc.Hazards), err)
	}

	s.logger.Info("Briefing summary generated",
		logger.String("provider", s.config.Provider),
		logger.Int("length", len(text)),
		logger.Duration("duration", time.Since(start)))

	return Summary{
		FiveLine: FiveLine(text),
		Full:     text,
		Sections: ParseSections(text),
		Provider: s.config.Provider,
	}
}

// Fallback builds the summary used when no provider answer is available
func Fallback(airports []string, hazardCount int, reason error) Summary {
	five := fmt.Sprintf("Route: %s", templating.FormatRoute(airports))
	switch hazardCount {
	case 0:
		five += "\nNo hazards identified."
	case 1:
		five += "\n1 hazard identified, review the hazard list."
	default:
		five += fmt.Sprintf("\n%d hazards identified, review the hazard list.", hazardCount)
	}

	full := "Summary generation failed"
	if reason != nil {
		full = fmt.Sprintf("Summary generation failed: %s", reason.Error())
	}
	return Summary{
		FiveLine: five,
		Full:     full,
		Sections: []Section{{Title: OverviewTitle, Body: full}},
		Fallback: true,
	}
}
