package templating

import (
	"fmt"
	"strings"

	"github.com/yegors/preflight/internal/weather"
)

// FormatRoute joins the airports with arrows
func FormatRoute(airports []string) string {
	if len(airports) == 0 {
		return "Unknown route"
	}
	return strings.Join(airports, " → ")
}

// FormatMETARs lists one raw observation per line
func FormatMETARs(metars []weather.Metar) string {
	if len(metars) == 0 {
		return "No METARs available.\n"
	}
	var builder strings.Builder
	for _, m := range metars {
		builder.WriteString(fmt.Sprintf("- %s: %s", m.Station, m.RawText))
		if m.FlightCategory != "" {
			builder.WriteString(fmt.Sprintf(" [%s]", m.FlightCategory))
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// FormatTAFs lists one raw forecast per line
func FormatTAFs(tafs []weather.Taf) string {
	if len(tafs) == 0 {
		return "No TAFs available.\n"
	}
	var builder strings.Builder
	for _, t := range tafs {
		builder.WriteString(fmt.Sprintf("- %s: %s\n", t.Station, t.RawText))
	}
	return builder.String()
}

// FormatNOTAMs lists NOTAMs, critical ones first
func FormatNOTAMs(notams []weather.Notam, opts FormattingOptions) string {
	var critical, other []weather.Notam
	for _, n := range notams {
		if n.Critical {
			critical = append(critical, n)
		} else if !opts.CriticalNOTAMsOnly {
			other = append(other, n)
		}
	}
	ordered := append(critical, other...)
	if len(ordered) == 0 {
		return "No NOTAMs.\n"
	}

	var builder strings.Builder
	for i, n := range ordered {
		if opts.MaxNOTAMs > 0 && i >= opts.MaxNOTAMs {
			builder.WriteString(fmt.Sprintf("- ... %d more\n", len(ordered)-i))
			break
		}
		marker := ""
		if n.Critical {
			marker = " (CRITICAL)"
		}
		builder.WriteString(fmt.Sprintf("- %s%s: %s\n", n.Airport, marker, n.Text))
	}
	return builder.String()
}

// FormatPIREPs lists pilot reports with their altitude
func FormatPIREPs(pireps []weather.Pirep, opts FormattingOptions) string {
	if len(pireps) == 0 {
		return "No PIREPs.\n"
	}
	var builder strings.Builder
	for i, p := range pireps {
		if opts.MaxPIREPs > 0 && i >= opts.MaxPIREPs {
			builder.WriteString(fmt.Sprintf("- ... %d more\n", len(pireps)-i))
			break
		}
		builder.WriteString("- ")
		if p.Altitude != nil {
			builder.WriteString(fmt.Sprintf("FL%03d ", *p.Altitude/100))
		}
		builder.WriteString(p.Report)
		builder.WriteString("\n")
	}
	return builder.String()
}

// FormatHazards lists hazards, one per line
func FormatHazards(hazards []string) string {
	if len(hazards) == 0 {
		return "None identified.\n"
	}
	var builder strings.Builder
	for _, h := range hazards {
		builder.WriteString("- " + h + "\n")
	}
	return builder.String()
}
