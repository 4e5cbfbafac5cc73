package hazards

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yegors/preflight/internal/geo"
	"github.com/yegors/preflight/internal/weather"
)

func ptr[T any](v T) *T { return &v }

func TestTurbulenceBand(t *testing.T) {
	pireps := []weather.Pirep{
		{Report: "a", Altitude: ptr(28000), Location: ptr("KJFK")},
		{Report: "b", Altitude: ptr(36000), Location: ptr("KBOS")},
		{Report: "c", Altitude: ptr(27900), Location: ptr("KJFK")},
		{Report: "d", Altitude: ptr(36100), Location: ptr("KJFK")},
		{Report: "e"},
		{Report: "f", Altitude: ptr(31000)},
	}
	got := Turbulence(pireps, 280, 360)
	assert.Equal(t, []string{
		"Turbulence reported at FL280 near KJFK",
		"Turbulence reported at FL360 near KBOS",
		"Turbulence reported at FL310 near unknown",
	}, got)
}

func TestDetect(t *testing.T) {
	jfk := geo.Point{Lat: 40.6398, Lon: -73.7789}
	mia := geo.Point{Lat: 25.7932, Lon: -80.2906}
	longText := "RWY 09/27 CLSD FOR MAINT " + strings.Repeat("X", 100)

	in := Input{
		Stations: []*weather.StationWeather{
			{ICAO: "KJFK", METAR: weather.Metar{Station: "KJFK", RawText: "KJFK 121251Z 25012KT 10SM FEW250 22/18 A2992", FlightCategory: "VFR"},
				NOTAMs: []weather.Notam{{ID: "1", Airport: "KJFK", Text: longText, Critical: true}, {ID: "2", Airport: "KJFK", Text: "TWY A CLSD"}}},
			{ICAO: "KMIA", METAR: weather.Metar{Station: "KMIA", RawText: "KMIA 121253Z 09010KT 3SM +TSRA BKN008CB 28/24 A2990", FlightCategory: "IFR", Thunderstorm: true}},
		},
		PIREPs: []weather.Pirep{
			{Report: "a", Altitude: ptr(32000), Location: ptr("KJFK")},
			{Report: "b", Altitude: ptr(32000), Location: ptr("KJFK")},
		},
		Positions:   map[string]geo.Point{"KJFK": jfk, "KMIA": mia},
		Destination: "KMIA",
	}

	res := Detect(DefaultConfig(), in)
	require.Len(t, res.Hazards, 4)
	assert.Equal(t, "Turbulence reported at FL320 near KJFK", res.Hazards[0])
	assert.Equal(t, "Thunderstorm reported at KMIA", res.Hazards[1])
	assert.Equal(t, "Critical NOTAM at KJFK: "+longText[:80], res.Hazards[2])
	assert.Equal(t, "IFR conditions at destination KMIA", res.Hazards[3])

	require.Len(t, res.StormCells, 1)
	cell := res.StormCells[0]
	assert.Equal(t, "KMIA", cell.ICAO)
	assert.Len(t, cell.Polygon, 37)
	assert.Equal(t, cell.Polygon[0], cell.Polygon[len(cell.Polygon)-1])
	for _, p := range cell.Polygon {
		assert.InDelta(t, 10, geo.DistanceNM(mia, p), 0.05)
	}
}

func TestDetectRepeatedAirportHasOneStormCell(t *testing.T) {
	mia := &weather.StationWeather{ICAO: "KMIA", METAR: weather.Metar{Station: "KMIA", RawText: "KMIA 121253Z 09010KT 3SM +TSRA BKN008CB 28/24 A2990", Thunderstorm: true}}
	jfk := &weather.StationWeather{ICAO: "KJFK", METAR: weather.Metar{Station: "KJFK", RawText: "KJFK 121251Z 25012KT 10SM FEW250 22/18 A2992"}}

	res := Detect(DefaultConfig(), Input{
		Stations: []*weather.StationWeather{mia, jfk, mia},
		Positions: map[string]geo.Point{
			"KMIA": {Lat: 25.7932, Lon: -80.2906},
			"KJFK": {Lat: 40.6398, Lon: -73.7789},
		},
		Destination: "KMIA",
	})

	assert.Equal(t, []string{"Thunderstorm reported at KMIA"}, res.Hazards)
	require.Len(t, res.StormCells, 1)
	assert.Equal(t, "KMIA", res.StormCells[0].ICAO)
}

func TestDetectNothing(t *testing.T) {
	res := Detect(DefaultConfig(), Input{})
	assert.Empty(t, res.Hazards)
	assert.Empty(t, res.StormCells)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, Dedupe([]string{"b", "a", "b", "c", "a"}))
	assert.Empty(t, Dedupe(nil))
}
