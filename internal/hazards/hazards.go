// Package hazards turns fetched weather into the hazard list and storm cells of a briefing.
package hazards

import (
	"fmt"

	"github.com/yegors/preflight/internal/geo"
	"github.com/yegors/preflight/internal/weather"
)

// Config holds the hazard thresholds
type Config struct {
	TurbulenceMinFL   int
	TurbulenceMaxFL   int
	StormCellRadiusNM float64
	StormCellSegments int
}

// DefaultConfig returns the thresholds used when none are configured
func DefaultConfig() Config {
	return Config{
		TurbulenceMinFL:   280,
		TurbulenceMaxFL:   360,
		StormCellRadiusNM: 10,
		StormCellSegments: 36,
	}
}

// StormCell is a polygon drawn around an airport reporting a thunderstorm
type StormCell struct {
	ICAO     string      `json:"icao"`
	Center   geo.Point   `json:"center"`
	RadiusNM float64     `json:"radius_nm"`
	Polygon  []geo.Point `json:"polygon"`
}

// Input is everything hazard detection looks at
type Input struct {
	Stations    []*weather.StationWeather
	PIREPs      []weather.Pirep
	Positions   map[string]geo.Point // airport positions keyed by ICAO
	Destination string
}

// Result is the de-duplicated hazard list plus storm cells
type Result struct {
	Hazards    []string    `json:"hazards"`
	StormCells []StormCell `json:"storm_cells"`
}

// Detect runs every hazard rule. Hazards keep the order they were found in:
// turbulence, thunderstorms, critical NOTAMs, destination conditions.
func Detect(cfg Config, in Input) Result {
	var hazards []string
	hazards = append(hazards, Turbulence(in.PIREPs, cfg.TurbulenceMinFL, cfg.TurbulenceMaxFL)...)

	var cells []StormCell
	celled := make(map[string]bool)
	for _, s := range in.Stations {
		if !s.METAR.Thunderstorm && !weather.HasThunderstorm(s.METAR.RawText) {
			continue
		}
		hazards = append(hazards, fmt.Sprintf("Thunderstorm reported at %s", s.ICAO))
		if pos, ok := in.Positions[s.ICAO]; ok && !celled[s.ICAO] {
			celled[s.ICAO] = true
			cells = append(cells, StormCell{
				ICAO:     s.ICAO,
				Center:   pos,
				RadiusNM: cfg.StormCellRadiusNM,
				Polygon:  geo.CirclePolygon(pos, cfg.StormCellRadiusNM, cfg.StormCellSegments),
			})
		}
	}

	for _, s := range in.Stations {
		for _, n := range s.NOTAMs {
			if n.Critical {
				hazards = append(hazards, CriticalNOTAM(n))
			}
		}
	}

	if h, ok := destinationConditions(in); ok {
		hazards = append(hazards, h)
	}

	return Result{Hazards: Dedupe(hazards), StormCells: cells}
}

// Turbulence reports PIREPs inside the [minFL, maxFL] band
func Turbulence(pireps []weather.Pirep, minFL, maxFL int) []string {
	var out []string
	for _, p := range pireps {
		if p.Altitude == nil || *p.Altitude == 0 {
			continue
		}
		alt := *p.Altitude
		if alt < minFL*100 || alt > maxFL*100 {
			continue
		}
		loc := "unknown"
		if p.Location != nil {
			loc = *p.Location
		}
		out = append(out, fmt.Sprintf("Turbulence reported at FL%d near %s", alt/100, loc))
	}
	return out
}

// CriticalNOTAM formats a critical NOTAM, truncating its text to 80 characters
func CriticalNOTAM(n weather.Notam) string {
	text := []rune(n.Text)
	if len(text) > 80 {
		text = text[:80]
	}
	return fmt.Sprintf("Critical NOTAM at %s: %s", n.Airport, string(text))
}

func destinationConditions(in Input) (string, bool) {
	for _, s := range in.Stations {
		if s.ICAO != in.Destination {
			continue
		}
		switch s.METAR.FlightCategory {
		case weather.CategoryIFR, weather.CategoryLIFR:
			return fmt.Sprintf("%s conditions at destination %s", s.METAR.FlightCategory, s.ICAO), true
		}
	}
	return "", false
}

// Dedupe removes repeated hazards, keeping the first occurrence
func Dedupe(hazards []string) []string {
	seen := make(map[string]bool, len(hazards))
	out := make([]string, 0, len(hazards))
	for _, h := range hazards {
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
