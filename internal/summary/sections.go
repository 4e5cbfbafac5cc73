package summary

import (
	"regexp"
	"strings"
)

// OverviewTitle names the section holding text before the first heading
const OverviewTitle = "Overview"

// Section is one titled part of a briefing report
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

var (
	reMarkdownHeading = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*$`)
	reBoldHeading     = regexp.MustCompile(`^(?:\*\*|__)(.+?)(?:\*\*|__):?$`)
	reNumberedHeading = regexp.MustCompile(`^\d{1,2}[.)]\s+(?:\*\*)?([^*:]+?)(?:\*\*)?:?$`)
)

// ParseSections splits a report on Markdown headings, bold-only lines and
// numbered headings ("1. Weather:"). Sections keep their order; sections without a body are dropped.
func ParseSections(text string) []Section {
	var sections []Section
	current := Section{Title: OverviewTitle}
	var body []string

	flush := func() {
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		if current.Body != "" {
			sections = append(sections, current)
		}
		body = nil
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if title, ok := headingTitle(strings.TrimSpace(line)); ok {
			flush()
			current = Section{Title: title}
			continue
		}
		body = append(body, line)
	}
	flush()
	return sections
}

func headingTitle(line string) (string, bool) {
	if line == "" {
		return "", false
	}
	if m := reMarkdownHeading.FindStringSubmatch(line); m != nil {
		return cleanTitle(m[1]), true
	}
	if m := reBoldHeading.FindStringSubmatch(line); m != nil {
		return cleanTitle(m[1]), true
	}
	// a numbered line only counts as heading when it ends with a colon or is fully bold
	if strings.HasSuffix(line, ":") || strings.HasSuffix(line, "**") {
		if m := reNumberedHeading.FindStringSubmatch(line); m != nil {
			return cleanTitle(m[1]), true
		}
	}
	return "", false
}

func cleanTitle(title string) string {
	title = strings.Trim(strings.TrimSpace(title), "*_")
	return strings.TrimSpace(strings.TrimSuffix(title, ":"))
}

// FiveLine returns the first five non-empty lines of a report
func FiveLine(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimRight(line, " \r"))
		if len(lines) == 5 {
			break
		}
	}
	return strings.Join(lines, "\n")
}
