package templating

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"sync"
	"text/template"

	"github.com/yegors/preflight/pkg/logger"
)

//go:embed prompts/briefing.tmpl
var defaultTemplates embed.FS

// DefaultTemplate is the cache key of the embedded briefing prompt
const DefaultTemplate = "prompts/briefing.tmpl"

// Engine handles template loading, caching, and rendering
type Engine struct {
	templateCache map[string]*template.Template
	cacheMutex    sync.RWMutex
	logger        *logger.Logger
}

// NewEngine creates a new template engine
func NewEngine(logger *logger.Logger) *Engine {
	return &Engine{
		templateCache: make(map[string]*template.Template),
		logger:        logger.Named("template-engine"),
	}
}

// RenderBriefingPrompt renders a prompt template with briefing data.
// An empty templatePath selects the embedded default.
func (e *Engine) RenderBriefingPrompt(templatePath string, ctx *PromptContext, opts FormattingOptions) (string, error) {
	if templatePath == "" {
		templatePath = DefaultTemplate
	}

	tmpl, err := e.getTemplate(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to get template: %w", err)
	}

	data := prepareTemplateData(ctx, opts)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	rendered := buf.String()
	e.logger.Debug("Template rendered successfully",
		logger.String("template_path", templatePath),
		logger.Int("rendered_length", len(rendered)))

	return rendered, nil
}

// prepareTemplateData converts raw context data to formatted template data
func prepareTemplateData(ctx *PromptContext, opts FormattingOptions) TemplateData {
	alternates := "None"
	if len(ctx.Alternates) > 0 {
		alternates = FormatRoute(ctx.Alternates)
	}
	return TemplateData{
		Route:      FormatRoute(ctx.Airports),
		METARs:     FormatMETARs(ctx.METARs),
		TAFs:       FormatTAFs(ctx.TAFs),
		NOTAMs:     FormatNOTAMs(ctx.NOTAMs, opts),
		PIREPs:     FormatPIREPs(ctx.PIREPs, opts),
		Hazards:    FormatHazards(ctx.Hazards),
		Alternates: alternates,
		Time:       ctx.Timestamp.UTC().Format(opts.TimeFormat),
		Timestamp:  ctx.Timestamp,
	}
}

// getTemplate retrieves a template from cache or loads it
func (e *Engine) getTemplate(templatePath string) (*template.Template, error) {
	e.cacheMutex.RLock()
	if tmpl, exists := e.templateCache[templatePath]; exists {
		e.cacheMutex.RUnlock()
		return tmpl, nil
	}
	e.cacheMutex.RUnlock()

	e.cacheMutex.Lock()
	defer e.cacheMutex.Unlock()

	// Double-check in case another goroutine loaded it while we were waiting
	if tmpl, exists := e.templateCache[templatePath]; exists {
		return tmpl, nil
	}

	tmpl, err := loadTemplate(templatePath)
	if err != nil {
		return nil, err
	}

	e.templateCache[templatePath] = tmpl
	e.logger.Debug("Template loaded and cached",
		logger.String("template_path", templatePath))

	return tmpl, nil
}

// loadTemplate loads a template from the embedded defaults or from disk
func loadTemplate(templatePath string) (*template.Template, error) {
	var content []byte
	var err error
	if templatePath == DefaultTemplate {
		content, err = defaultTemplates.ReadFile(templatePath)
	} else {
		content, err = os.ReadFile(templatePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template file '%s': %w", templatePath, err)
	}

	tmpl, err := template.New(templatePath).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template file '%s': %w", templatePath, err)
	}
	return tmpl, nil
}

// ReloadTemplate forces a template to be reloaded
func (e *Engine) ReloadTemplate(templatePath string) error {
	tmpl, err := loadTemplate(templatePath)
	if err != nil {
		return err
	}

	e.cacheMutex.Lock()
	e.templateCache[templatePath] = tmpl
	e.cacheMutex.Unlock()

	e.logger.Info("Template reloaded",
		logger.String("template_path", templatePath))
	return nil
}

// ClearCache clears the template cache
func (e *Engine) ClearCache() {
	e.cacheMutex.Lock()
	defer e.cacheMutex.Unlock()

	templateCount := len(e.templateCache)
	e.templateCache = make(map[string]*template.Template)

	e.logger.Info("Template cache cleared",
		logger.Int("cleared_count", templateCount))
}

// GetCacheStats returns statistics about the template cache
func (e *Engine) GetCacheStats() map[string]any {
	e.cacheMutex.RLock()
	defer e.cacheMutex.RUnlock()

	templates := make([]string, 0, len(e.templateCache))
	for path := range e.templateCache {
		templates = append(templates, path)
	}

	return map[string]any{
		"cached_template_count": len(e.templateCache),
		"cached_templates":      templates,
	}
}
