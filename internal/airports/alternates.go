package airports

import (
	"sort"
	"strings"

	"github.com/yegors/preflight/internal/geo"
	"github.com/yegors/preflight/pkg/logger"
)

// FindAlternates suggests diversion airports around the destination.
// Candidates are large or medium airports with scheduled service and a four letter ident,
// within radiusNM, closest first. Falls back to a fixed list when nothing qualifies.
func (d *Directory) FindAlternates(destICAO string, radiusNM float64, max int) []Alternate {
	if radiusNM <= 0 {
		radiusNM = 100
	}
	if max <= 0 {
		max = 3
	}

	dest, err := d.Lookup(destICAO)
	if err != nil {
		d.logger.Warn("Destination airport not found, using fallback alternates",
			logger.String("destination", destICAO))
		return fallbackAlternates(destICAO)
	}

	var alternates []Alternate
	for _, a := range d.airports {
		if a.ICAO == dest.ICAO || len(a.ICAO) != 4 || !a.ScheduledService {
			continue
		}
		if a.Type != TypeLarge && a.Type != TypeMedium {
			continue
		}
		dist := geo.DistanceNM(dest.Position(), a.Position())
		if dist > radiusNM {
			continue
		}
		alternates = append(alternates, toAlternate(a, dist))
	}

	if len(alternates) == 0 {
		d.logger.Info("No alternates within radius, using fallback alternates",
			logger.String("destination", dest.ICAO),
			logger.Float64("radius_nm", radiusNM))
		return fallbackAlternates(dest.ICAO)
	}

	sort.SliceStable(alternates, func(i, j int) bool {
		return alternates[i].DistanceNM < alternates[j].DistanceNM
	})
	if len(alternates) > max {
		alternates = alternates[:max]
	}

	d.logger.Debug("Found alternate airports",
		logger.String("destination", dest.ICAO),
		logger.Int("count", len(alternates)))
	return alternates
}

func toAlternate(a *Airport, distNM float64) Alternate {
	alt := Alternate{
		ICAO:         a.ICAO,
		Name:         a.Name,
		Lat:          a.Lat,
		Lon:          a.Lon,
		Type:         a.Type,
		DistanceNM:   float64(int(distNM*10+0.5)) / 10,
		RunwayLength: EstimateRunwayLength(a.Type),
		HasFuel:      a.ScheduledService,
		// assume customs at large airports
		HasCustoms: a.Type == TypeLarge,
	}
	if alt.HasFuel {
		alt.Services = append(alt.Services, "fuel")
	}
	if alt.HasCustoms {
		alt.Services = append(alt.Services, "customs")
	}
	return alt
}

func fallbackAlternates(destICAO string) []Alternate {
	dest := strings.ToUpper(destICAO)
	list := []Alternate{
		{ICAO: "EGKK", Name: "London Gatwick", Lat: 51.1537, Lon: -0.1821, Type: TypeLarge, RunwayLength: 3316, HasFuel: true, Services: []string{"fuel"}},
		{ICAO: "EGSS", Name: "London Stansted", Lat: 51.8850, Lon: 0.2350, Type: TypeLarge, RunwayLength: 3048, HasFuel: true, Services: []string{"fuel"}},
	}
	if strings.HasPrefix(dest, "V") {
		list = []Alternate{
			{ICAO: "VABB", Name: "Mumbai", Lat: 19.0886, Lon: 72.8679, Type: TypeLarge, RunwayLength: 3445, HasFuel: true, Services: []string{"fuel"}},
			{ICAO: "VOBL", Name: "Bangalore", Lat: 13.1979, Lon: 77.7063, Type: TypeLarge, RunwayLength: 3018, HasFuel: true, Services: []string{"fuel"}},
		}
	}

	// never offer the destination as its own alternate
	out := list[:0]
	for _, a := range list {
		if a.ICAO != dest {
			out = append(out, a)
		}
	}
	return out
}
