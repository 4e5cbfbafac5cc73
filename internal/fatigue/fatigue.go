// Package fatigue rates duty fatigue across a pilot's planned flights.
package fatigue

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// Risk levels, ordered low to high
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
)

// Window is the rolling duty period counted before each flight
const Window = 24 * time.Hour

const (
	highFlightCount     = 4
	moderateFlightCount = 3
	highRestBelow       = 8 * time.Hour
	moderateRestBelow   = 10 * time.Hour
)

// Flight is the part of a saved flight fatigue looks at
type Flight struct {
	ID        string
	Departure string
	Arrival   string
	PlannedAt *time.Time
}

// Entry is the assessment of one flight
type Entry struct {
	FlightID        string    `json:"flight_id"`
	Departure       string    `json:"departure"`
	Arrival         string    `json:"arrival"`
	PlannedAt       time.Time `json:"planned_at"`
	FlightsInWindow int       `json:"flights_in_window"`
	RestBefore      Duration  `json:"rest_before"`
	Risk            string    `json:"risk"`
}

// Report covers every scheduled flight, oldest first
type Report struct {
	Entries     []Entry `json:"entries"`
	OverallRisk string  `json:"overall_risk"`
}

// Duration marshals as hours rounded to one decimal
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	hours := math.Round(time.Duration(d).Hours()*10) / 10
	return strconv.AppendFloat(nil, hours, 'f', -1, 64), nil
}

// Assess rates each flight against the rolling 24 hour window ending at its planned time.
// Flights without a planned time are ignored.
func Assess(flights []Flight) Report {
	scheduled := make([]Flight, 0, len(flights))
	for _, f := range flights {
		if f.PlannedAt != nil {
			scheduled = append(scheduled, f)
		}
	}
	sort.SliceStable(scheduled, func(i, j int) bool {
		return scheduled[i].PlannedAt.Before(*scheduled[j].PlannedAt)
	})

	report := Report{Entries: make([]Entry, 0, len(scheduled)), OverallRisk: RiskLow}
	start := 0
	for i, f := range scheduled {
		at := *f.PlannedAt
		for !scheduled[start].PlannedAt.After(at.Add(-Window)) {
			start++
		}

		entry := Entry{
			FlightID:        f.ID,
			Departure:       f.Departure,
			Arrival:         f.Arrival,
			PlannedAt:       at,
			FlightsInWindow: i - start + 1,
		}
		var rest time.Duration
		if i > 0 {
			rest = at.Sub(*scheduled[i-1].PlannedAt)
			entry.RestBefore = Duration(rest)
		}
		entry.Risk = risk(entry.FlightsInWindow, rest, i == 0)

		if rank(entry.Risk) > rank(report.OverallRisk) {
			report.OverallRisk = entry.Risk
		}
		report.Entries = append(report.Entries, entry)
	}
	return report
}

func risk(flightsInWindow int, rest time.Duration, first bool) string {
	switch {
	case flightsInWindow >= highFlightCount, !first && rest < highRestBelow:
		return RiskHigh
	case flightsInWindow == moderateFlightCount, !first && rest < moderateRestBelow:
		return RiskModerate
	default:
		return RiskLow
	}
}

func rank(r string) int {
	switch r {
	case RiskHigh:
		return 2
	case RiskModerate:
		return 1
	}
	return 0
}
