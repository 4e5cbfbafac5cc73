package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasThunderstorm(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"METAR KJFK 121251Z 25012KT 10SM TS BKN030CB 22/18 A2992", true},
		{"KJFK 121251Z 25012KT 3SM +TSRA BKN020 22/18 A2992", true},
		{"KJFK 121251Z 25012KT 6SM -TSRA BKN020 22/18 A2992", true},
		{"KJFK 121251Z 25012KT 10SM VCTS SCT040 22/18 A2992", true},
		{"KMIA 121251Z 09010KT 5SM TSGR OVC015 28/24 A2990", true},
		{"EGLL 121250Z 24010KT 9999 FEW030CB 18/12 Q1012", true},
		{"KJFK 121251Z 25012KT 10SM FEW250 22/18 A2992 RMK AO2 TSB05E30", false},
		{"KTSA 121253Z 18008KT 10SM CLR 25/15 A3001", false},
		{"KJFK 121251Z 25012KT 10SM SHRA BKN030TCU 22/18 A2992", false},
		{"TAF KJFK 121130Z 1212/1318 25012KT P6SM SCT040 TEMPO 1218/1222 3SM TSRA BKN030CB", true},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasThunderstorm(tt.raw), tt.raw)
	}
}

func TestParseTemperature(t *testing.T) {
	v, ok := ParseTemperature("KJFK 121251Z 25012KT 10SM FEW250 22/18 A2992")
	require.True(t, ok)
	assert.Equal(t, 22.0, v)

	v, ok = ParseTemperature("CYYZ 121300Z 27015KT 15SM BKN030 M02/M10 A3012")
	require.True(t, ok)
	assert.Equal(t, -2.0, v)

	v, ok = ParseTemperature("KJFK 121251Z 25012KT 10SM FEW250 06/M05 A2992 RMK AO2 T00561050")
	require.True(t, ok)
	assert.InDelta(t, 5.6, v, 0.001)

	v, ok = ParseTemperature("KJFK 121251Z 25012KT 10SM FEW250 M01/M05 A2992 RMK AO2 T10061050")
	require.True(t, ok)
	assert.InDelta(t, -0.6, v, 0.001)

	_, ok = ParseTemperature("KJFK 121251Z 25012KT 10SM FEW250 A2992")
	assert.False(t, ok)
}

func TestParseAltimeter(t *testing.T) {
	v, ok := ParseAltimeter("KJFK 121251Z 25012KT 10SM FEW250 22/18 A2992")
	require.True(t, ok)
	assert.InDelta(t, 1013.2, v, 0.1)

	v, ok = ParseAltimeter("EGLL 121250Z 24010KT 9999 FEW030 18/12 Q1008")
	require.True(t, ok)
	assert.Equal(t, 1008.0, v)

	_, ok = ParseAltimeter("EGLL 121250Z 24010KT 9999")
	assert.False(t, ok)
}

func TestParseCeiling(t *testing.T) {
	c, ok := ParseCeiling("KJFK 121251Z 25012KT 10SM FEW008 BKN012 OVC030 22/18 A2992")
	require.True(t, ok)
	assert.Equal(t, 1200, c)

	c, ok = ParseCeiling("KJFK 121251Z 00000KT 1/4SM FG VV002 12/12 A2992")
	require.True(t, ok)
	assert.Equal(t, 200, c)

	c, ok = ParseCeiling("KJFK 121251Z 25012KT 10SM FEW250 22/18 A2992")
	assert.False(t, ok)
	assert.Equal(t, NoCeiling, c)
}

func TestParseVisibility(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"KJFK 121251Z 25012KT 10SM FEW250 22/18 A2992", 10},
		{"KJFK 121251Z 25012KT P6SM FEW250 22/18 A2992", 6},
		{"KJFK 121251Z 00000KT 1/2SM FG OVC002 12/12 A2992", 0.5},
		{"KJFK 121251Z 00000KT 1 1/2SM BR OVC004 12/12 A2992", 1.5},
		{"EGLL 121250Z 24010KT 9999 FEW030 18/12 Q1012", 10},
		{"EGLL 121250Z 24010KT 0800 FG VV001 08/08 Q1012", 0.5},
		{"LFPG 121230Z 22008KT CAVOK 20/10 Q1018", 10},
	}
	for _, tt := range tests {
		v, ok := ParseVisibility(tt.raw)
		require.True(t, ok, tt.raw)
		assert.InDelta(t, tt.want, v, 0.01, tt.raw)
	}
}

func TestFlightCategory(t *testing.T) {
	assert.Equal(t, CategoryVFR, FlightCategory(10, NoCeiling))
	assert.Equal(t, CategoryVFR, FlightCategory(6, 3500))
	assert.Equal(t, CategoryMVFR, FlightCategory(5, NoCeiling))
	assert.Equal(t, CategoryMVFR, FlightCategory(10, 3000))
	assert.Equal(t, CategoryIFR, FlightCategory(2, 5000))
	assert.Equal(t, CategoryIFR, FlightCategory(10, 800))
	assert.Equal(t, CategoryLIFR, FlightCategory(0.5, NoCeiling))
	assert.Equal(t, CategoryLIFR, FlightCategory(10, 300))

	assert.Less(t, CategoryRank(CategoryMVFR), CategoryRank(CategoryIFR))
	assert.Equal(t, -1, CategoryRank("UNKNOWN"))
}

func TestIsCritical(t *testing.T) {
	assert.True(t, IsCritical("RWY 04L/22R CLSD"))
	assert.True(t, IsCritical("TFR IN EFFECT 3NM RADIUS"))
	assert.False(t, IsCritical("TWY B CLSD"))
}

func TestDecodeMETAR(t *testing.T) {
	temp := 21.0
	wspd, wgst := 12, 20
	altim := 1013.0
	base := 800

	m := DecodeMETAR("KJFK", &METARResponse{
		ICAOID:   "KJFK",
		Temp:     &temp,
		Wdir:     "250",
		Wspd:     &wspd,
		Wgst:     &wgst,
		Visib:    "2",
		Altim:    &altim,
		WxString: "+TSRA",
		RawOb:    "KJFK 121251Z 25012G20KT 2SM +TSRA OVC008CB 22/18 A2992",
		Clouds:   []CloudLayer{{Cover: "OVC", Base: &base}},
	})

	assert.Equal(t, "KJFK", m.Station)
	require.NotNil(t, m.Temperature)
	assert.Equal(t, 22.0, *m.Temperature)
	require.NotNil(t, m.Wind)
	assert.Equal(t, "250@12G20KT", *m.Wind)
	require.NotNil(t, m.Visibility)
	assert.Equal(t, "2SM", *m.Visibility)
	require.NotNil(t, m.Conditions)
	assert.Equal(t, "+TSRA", *m.Conditions)
	require.NotNil(t, m.CeilingFt)
	assert.Equal(t, 800, *m.CeilingFt)
	assert.Equal(t, CategoryIFR, m.FlightCategory)
	assert.True(t, m.Thunderstorm)
	assert.True(t, m.Available())

	assert.False(t, placeholderMETAR("KJFK").Available())
}

func TestDecodeMETARVariableWind(t *testing.T) {
	wspd := 3
	m := DecodeMETAR("KJFK", &METARResponse{
		Wdir:   "VRB",
		Wspd:   &wspd,
		FltCat: "VFR",
		RawOb:  "KJFK 121251Z VRB03KT 10SM CLR 22/18 A2992",
	})
	require.NotNil(t, m.Wind)
	assert.Equal(t, "VRB@3KT", *m.Wind)
	assert.Equal(t, CategoryVFR, m.FlightCategory)
	assert.Nil(t, m.CeilingFt)
}

func TestDecodePIREPAndNOTAM(t *testing.T) {
	p := DecodePIREP("KJFK", &PIREPResponse{RawOb: "JFK UA /OV JFK/TM 1250/FL310/TP B738/TB MOD", FltLvl: "310"})
	require.NotNil(t, p.Altitude)
	assert.Equal(t, 31000, *p.Altitude)
	require.NotNil(t, p.Location)
	assert.Equal(t, "KJFK", *p.Location)

	n := DecodeNOTAM("KJFK", NOTAMItem{Text: "RWY 13R/31L CLSD"})
	assert.Equal(t, NotAvailable, n.ID)
	assert.Equal(t, "KJFK", n.Airport)
	assert.True(t, n.Critical)
	assert.Nil(t, n.Category)
}
