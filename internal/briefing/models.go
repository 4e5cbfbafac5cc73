package briefing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yegors/preflight/internal/airports"
	"github.com/yegors/preflight/internal/geo"
	"github.com/yegors/preflight/internal/hazards"
	"github.com/yegors/preflight/internal/summary"
	"github.com/yegors/preflight/internal/weather"
)

// ErrTooFewAirports is returned when a route has less than two airports
var ErrTooFewAirports = errors.New("at least 2 airports required")

// ErrUnknownAirport matches every UnknownAirportError
var ErrUnknownAirport = errors.New("unknown airport")

// ErrWeatherUnavailable wraps failures of the weather source as a whole
var ErrWeatherUnavailable = errors.New("weather unavailable")

// UnknownAirportError lists the codes that do not resolve
type UnknownAirportError struct {
	Codes []string
}

func (e *UnknownAirportError) Error() string {
	return fmt.Sprintf("unknown airport code(s): %s", strings.Join(e.Codes, ", "))
}

func (e *UnknownAirportError) Is(target error) bool {
	return target == ErrUnknownAirport
}

// Marker kinds
const (
	MarkerDeparture = "departure"
	MarkerWaypoint  = "waypoint"
	MarkerArrival   = "arrival"
	MarkerAlternate = "alternate"
)

// Marker is a labelled point on the briefing map
type Marker struct {
	ICAO           string  `json:"icao"`
	Name           string  `json:"name"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Kind           string  `json:"kind"`
	FlightCategory string  `json:"flight_category,omitempty"`
}

// MapOverlay is everything the browser draws on top of the map
type MapOverlay struct {
	Markers  []Marker      `json:"markers"`
	Polyline []geo.Point   `json:"polyline"`
	Polygons [][]geo.Point `json:"polygons"`
}

// Leg describes one segment of the route
type Leg struct {
	From              string  `json:"from"`
	To                string  `json:"to"`
	DistanceNM        float64 `json:"distance_nm"`
	TrueCourse        float64 `json:"true_course"`
	MagneticVariation float64 `json:"magnetic_variation"`
	MagneticCourse    float64 `json:"magnetic_course"`
	HeadwindKt        *int    `json:"headwind_kt,omitempty"`  // departure surface wind along the course
	CrosswindKt       *int    `json:"crosswind_kt,omitempty"` // positive from the right
}

// Briefing is the computed, never persisted, result for one route
type Briefing struct {
	Airports            []string             `json:"airports"`
	METARs              []weather.Metar      `json:"metars"`
	TAFs                []weather.Taf        `json:"tafs"`
	NOTAMs              []weather.Notam      `json:"notams"`
	PIREPs              []weather.Pirep      `json:"pireps"`
	Route               []geo.RoutePoint     `json:"route"`
	RouteDistanceNM     float64              `json:"route_distance_nm"`
	Legs                []Leg                `json:"legs"`
	Hazards             []string             `json:"hazards"`
	StormCells          []hazards.StormCell  `json:"storm_cells"`
	Alternates          []airports.Alternate `json:"alternates"`
	AlternateCategories map[string][]string  `json:"alternate_categories"`
	Summary5Line        string               `json:"summary_5line"`
	SummaryFull         string               `json:"summary_full"`
	SummarySections     []summary.Section    `json:"summary_sections"`
	SummaryFallback     bool                 `json:"summary_fallback"`
	FlightCategories    map[string]string    `json:"flight_categories"`
	DensityAltitudes    map[string]int       `json:"density_altitudes"`
	Map                 MapOverlay           `json:"map"`
	FetchErrors         []string             `json:"fetch_errors"`
	GeneratedAt         time.Time            `json:"generated_at"`
}
