package templating

import (
	"time"

	"github.com/yegors/preflight/internal/weather"
)

// PromptContext represents the raw briefing data for template rendering
type PromptContext struct {
	Airports   []string        `json:"airports"`
	METARs     []weather.Metar `json:"metars"`
	TAFs       []weather.Taf   `json:"tafs"`
	NOTAMs     []weather.Notam `json:"notams"`
	PIREPs     []weather.Pirep `json:"pireps"`
	Hazards    []string        `json:"hazards"`
	Alternates []string        `json:"alternates"`
	Timestamp  time.Time       `json:"timestamp"`
}

// TemplateData represents the formatted data for template rendering
type TemplateData struct {
	Route      string    `json:"route"`
	METARs     string    `json:"metars"`
	TAFs       string    `json:"tafs"`
	NOTAMs     string    `json:"notams"`
	PIREPs     string    `json:"pireps"`
	Hazards    string    `json:"hazards"`
	Alternates string    `json:"alternates"`
	Time       string    `json:"time"`
	Timestamp  time.Time `json:"timestamp"`
}

// FormattingOptions controls what data is included and how it's formatted
type FormattingOptions struct {
	MaxNOTAMs          int    `json:"max_notams"`
	CriticalNOTAMsOnly bool   `json:"critical_notams_only"`
	MaxPIREPs          int    `json:"max_pireps"`
	TimeFormat         string `json:"time_format"`
}

// DefaultFormattingOptions returns sensible defaults for template formatting
func DefaultFormattingOptions() FormattingOptions {
	return FormattingOptions{
		MaxNOTAMs:  30,
		MaxPIREPs:  20,
		TimeFormat: "Monday, January 2, 2006 at 15:04 UTC",
	}
}

// BriefingFormattingOptions keeps prompts short on busy routes
func BriefingFormattingOptions(airportCount int) FormattingOptions {
	opts := DefaultFormattingOptions()
	if airportCount > 4 {
		opts.CriticalNOTAMsOnly = true
	}
	return opts
}
