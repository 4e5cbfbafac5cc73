// Package briefing assembles a weather and route briefing for a list of airports.
package briefing

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yegors/preflight/internal/airports"
	"github.com/yegors/preflight/internal/config"
	"github.com/yegors/preflight/internal/geo"
	"github.com/yegors/preflight/internal/hazards"
	"github.com/yegors/preflight/internal/physics"
	"github.com/yegors/preflight/internal/summary"
	"github.com/yegors/preflight/internal/templating"
	"github.com/yegors/preflight/internal/weather"
	"github.com/yegors/preflight/pkg/logger"
)

// Directory resolves airports and suggests alternates
type Directory interface {
	Lookup(code string) (*airports.Airport, error)
	Validate(codes []string) []string
	FindAlternates(destICAO string, radiusNM float64, max int) []airports.Alternate
}

// WeatherSource fetches weather for a list of stations
type WeatherSource interface {
	FetchStations(ctx context.Context, codes []string) (*weather.Report, error)
}

// Summarizer writes the report text
type Summarizer interface {
	Summarize(ctx context.Context, pc *templating.PromptContext) summary.Summary
}

// RouteSource is anything with an ordered list of airports, such as a saved flight
type RouteSource interface {
	Airports() []string
}

// Config holds briefing settings
type Config struct {
	CruiseAltitudeFt  int
	RouteSpacingNM    float64
	AlternateRadiusNM float64
	MaxAlternates     int
	Timeout           time.Duration
	Hazards           hazards.Config
}

// ConfigFrom collects the briefing settings from the application config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		CruiseAltitudeFt:  cfg.Briefing.CruiseAltitudeFt,
		RouteSpacingNM:    cfg.Briefing.RouteSpacingNM,
		AlternateRadiusNM: cfg.Airports.AlternateRadiusNM,
		MaxAlternates:     cfg.Airports.MaxAlternates,
		Timeout:           time.Duration(cfg.Briefing.TimeoutSeconds) * time.Second,
		Hazards: hazards.Config{
			TurbulenceMinFL:   cfg.Briefing.TurbulenceMinFL,
			TurbulenceMaxFL:   cfg.Briefing.TurbulenceMaxFL,
			StormCellRadiusNM: cfg.Briefing.StormCellRadiusNM,
			StormCellSegments: cfg.Briefing.StormCellSegments,
		},
	}
}

// Service computes briefings
type Service struct {
	directory  Directory
	weather    WeatherSource
	summarizer Summarizer
	config     Config
	logger     *logger.Logger
	now        func() time.Time
}

// NewService creates a briefing service
func NewService(directory Directory, weather WeatherSource, summarizer Summarizer, cfg Config, log *logger.Logger) *Service {
	return &Service{
		directory:  directory,
		weather:    weather,
		summarizer: summarizer,
		config:     cfg,
		logger:     log.Named("briefing"),
		now:        time.Now,
	}
}

// NormalizeCodes trims and upper-cases airport codes, dropping empty ones
func NormalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// ForFlight briefs a saved flight: departure, waypoints, arrival
func (s *Service) ForFlight(ctx context.Context, flight RouteSource) (*Briefing, error) {
	return s.Analyze(ctx, flight.Airports())
}

// Analyze builds the briefing for the ordered airports.
// Missing weather degrades the briefing; only bad input, a failed weather source
// or a cancelled caller context fail it. The timeout bounds data gathering; the
// summarizer runs on the caller's context under its own deadline.
func (s *Service) Analyze(ctx context.Context, codes []string) (*Briefing, error) {
	codes = NormalizeCodes(codes)
	if len(codes) < 2 {
		return nil, ErrTooFewAirports
	}
	if unknown := s.directory.Validate(codes); len(unknown) > 0 {
		return nil, &UnknownAirportError{Codes: unknown}
	}

	fetchCtx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := s.now()
	s.logger.Info("Processing route request", logger.Strings("airports", codes))

	// resolve IATA input to the ICAO ident used everywhere else
	route := make([]*airports.Airport, len(codes))
	for i, code := range codes {
		a, err := s.directory.Lookup(code)
		if err != nil {
			return nil, &UnknownAirportError{Codes: []string{code}}
		}
		route[i] = a
		codes[i] = a.ICAO
	}

	report, err := s.weather.FetchStations(fetchCtx, codes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWeatherUnavailable, err)
	}

	b := &Briefing{
		Airports:         codes,
		METARs:           report.METARs(),
		TAFs:             report.TAFs(),
		NOTAMs:           report.NOTAMs(),
		PIREPs:           report.PIREPs(),
		FlightCategories: make(map[string]string),
		DensityAltitudes: make(map[string]int),
		FetchErrors:      report.FetchErrors(),
		GeneratedAt:      start.UTC(),
	}

	stops := make([]geo.Point, len(route))
	positions := make(map[string]geo.Point, len(route))
	for i, a := range route {
		stops[i] = a.Position()
		positions[a.ICAO] = a.Position()
	}
	b.Route = geo.GreatCircleRoute(stops, s.config.RouteSpacingNM, s.config.CruiseAltitudeFt)
	b.RouteDistanceNM = math.Round(geo.RouteLengthNM(stops)*10) / 10

	for _, a := range route {
		station := report.Station(a.ICAO)
		if station == nil || !station.METAR.Available() {
			continue
		}
		if station.METAR.FlightCategory != "" {
			b.FlightCategories[a.ICAO] = station.METAR.FlightCategory
		}
		if da, ok := densityAltitude(a, station.METAR); ok {
			b.DensityAltitudes[a.ICAO] = da
		}
	}

	b.Legs = s.legs(route, report)

	found := hazards.Detect(s.config.Hazards, hazards.Input{
		Stations:    report.Stations,
		PIREPs:      b.PIREPs,
		Positions:   positions,
		Destination: codes[len(codes)-1],
	})
	b.Hazards = found.Hazards
	b.StormCells = found.StormCells

	b.Alternates = s.directory.FindAlternates(codes[len(codes)-1], s.config.AlternateRadiusNM, s.config.MaxAlternates)
	b.AlternateCategories = airports.Categorize(b.Alternates)

	b.Map = buildMap(route, b)

	alternateCodes := make([]string, len(b.Alternates))
	for i, a := range b.Alternates {
		alternateCodes[i] = a.ICAO
	}
	sum := s.summarizer.Summarize(ctx, &templating.PromptContext{
		Airports:   codes,
		METARs:     b.METARs,
		TAFs:       b.TAFs,
		NOTAMs:     b.NOTAMs,
		PIREPs:     b.PIREPs,
		Hazards:    b.Hazards,
		Alternates: alternateCodes,
		Timestamp:  start,
	})
	b.Summary5Line = sum.FiveLine
	b.SummaryFull = sum.Full
	b.SummarySections = sum.Sections
	b.SummaryFallback = sum.Fallback

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Info("Briefing ready",
		logger.Strings("airports", codes),
		logger.Int("hazards", len(b.Hazards)),
		logger.Int("storm_cells", len(b.StormCells)),
		logger.Int("fetch_errors", len(b.FetchErrors)),
		logger.Bool("summary_fallback", b.SummaryFallback),
		logger.Duration("duration", s.now().Sub(start)))
	return b, nil
}

func (s *Service) legs(route []*airports.Airport, report *weather.Report) []Leg {
	legs := make([]Leg, 0, len(route)-1)
	date := s.now()
	for i := 1; i < len(route); i++ {
		from, to := route[i-1], route[i]
		trueCourse := geo.Bearing(from.Position(), to.Position())
		variation := physics.CalculateMagneticVariation(from.Lat, from.Lon, float64(from.ElevationFt), date)

		leg := Leg{
			From:              from.ICAO,
			To:                to.ICAO,
			DistanceNM:        math.Round(geo.DistanceNM(from.Position(), to.Position())*10) / 10,
			TrueCourse:        math.Round(trueCourse),
			MagneticVariation: math.Round(variation*10) / 10,
			MagneticCourse:    math.Round(physics.MagneticCourse(trueCourse, variation)),
		}

		if station := report.Station(from.ICAO); station != nil {
			m := station.METAR
			if m.WindDirection != nil && m.WindSpeedKt != nil {
				head, cross := physics.WindComponents(trueCourse, float64(*m.WindDirection), float64(*m.WindSpeedKt))
				h, c := int(math.Round(head)), int(math.Round(cross))
				leg.HeadwindKt = &h
				leg.CrosswindKt = &c
			}
		}
		legs = append(legs, leg)
	}
	return legs
}

// densityAltitude needs the observed temperature; a missing altimeter means standard pressure
func densityAltitude(a *airports.Airport, m weather.Metar) (int, bool) {
	if m.Temperature == nil {
		return 0, false
	}
	altimeter := physics.P0
	if m.AltimeterHPa != nil {
		altimeter = *m.AltimeterHPa
	}
	pa := physics.PressureAltitude(float64(a.ElevationFt), altimeter)
	return int(math.Round(physics.CalculateDensityAltitude(pa, *m.Temperature))), true
}

func buildMap(route []*airports.Airport, b *Briefing) MapOverlay {
	overlay := MapOverlay{
		Markers:  make([]Marker, 0, len(route)+len(b.Alternates)),
		Polyline: make([]geo.Point, len(b.Route)),
		Polygons: make([][]geo.Point, 0, len(b.StormCells)),
	}
	for i, a := range route {
		kind := MarkerWaypoint
		switch i {
		case 0:
			kind = MarkerDeparture
		case len(route) - 1:
			kind = MarkerArrival
		}
		overlay.Markers = append(overlay.Markers, Marker{
			ICAO:           a.ICAO,
			Name:           a.Name,
			Lat:            a.Lat,
			Lon:            a.Lon,
			Kind:           kind,
			FlightCategory: b.FlightCategories[a.ICAO],
		})
	}
	for _, alt := range b.Alternates {
		overlay.Markers = append(overlay.Markers, Marker{
			ICAO: alt.ICAO,
			Name: alt.Name,
			Lat:  alt.Lat,
			Lon:  alt.Lon,
			Kind: MarkerAlternate,
		})
	}
	for i, p := range b.Route {
		overlay.Polyline[i] = geo.Point{Lat: p.Lat, Lon: p.Lon}
	}
	for _, cell := range b.StormCells {
		overlay.Polygons = append(overlay.Polygons, cell.Polygon)
	}
	return overlay
}
