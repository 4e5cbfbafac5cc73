package airports

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yegors/preflight/pkg/logger"
)

const csvHeader = `"id","ident","type","name","latitude_deg","longitude_deg","elevation_ft","continent","iso_country","iso_region","municipality","scheduled_service","gps_code","iata_code","local_code","home_link","wikipedia_link","keywords"
`

const testCSV = csvHeader + `3622,"KJFK","large_airport","John F Kennedy International Airport",40.639447,-73.779317,13,"NA","US","US-NY","New York","yes","KJFK","JFK","JFK",,,
3631,"KEWR","large_airport","Newark Liberty International Airport",40.692501,-74.168701,18,"NA","US","US-NJ","Newark","yes","KEWR","EWR","EWR",,,
3697,"KLGA","large_airport","LaGuardia Airport",40.777199,-73.872597,21,"NA","US","US-NY","New York","yes","KLGA","LGA","LGA",,,
3751,"KISP","medium_airport","Long Island MacArthur Airport",40.79520034789999,-73.10019683837891,99,"NA","US","US-NY","Islip","yes","KISP","ISP","ISP",,,
20000,"KFRG","medium_airport","Republic Airport",40.7288017273,-73.4133987427,82,"NA","US","US-NY","Farmingdale","no","KFRG","FRG","FRG",,,
20001,"NY01","small_airport","Small Strip",40.70,-73.80,50,"NA","US","US-NY","Queens","yes","NY01",,,,,
507,"EGLL","large_airport","London Heathrow Airport",51.4706,-0.461941,83,"EU","GB","GB-ENG","London","yes","EGLL","LHR",,,,
9999,"XBAD","small_airport","Broken Row",,,,"EU","GB","GB-ENG","Nowhere","no","",,,,,
`

func testDirectory(t *testing.T) *Directory {
	t.Helper()
	list, err := ParseCSV(strings.NewReader(testCSV))
	require.NoError(t, err)
	return NewDirectory(list, logger.NewNop())
}

func TestParseCSVSkipsRowsWithoutCoordinates(t *testing.T) {
	d := testDirectory(t)
	assert.Equal(t, 7, d.Count())

	_, err := d.Lookup("XBAD")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseCSVRequiresColumns(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("ident,name\nKJFK,JFK\n"))
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	d := testDirectory(t)

	a, err := d.Lookup("kjfk")
	require.NoError(t, err)
	assert.Equal(t, "KJFK", a.ICAO)
	assert.Equal(t, 13, a.ElevationFt)
	assert.True(t, a.ScheduledService)

	a, err = d.Lookup("LHR")
	require.NoError(t, err)
	assert.Equal(t, "EGLL", a.ICAO)
}

func TestValidate(t *testing.T) {
	d := testDirectory(t)
	assert.Empty(t, d.Validate([]string{"KJFK", "egll"}))
	assert.Equal(t, []string{"ZZZZ"}, d.Validate([]string{"KJFK", "zzzz"}))
}

func TestSearch(t *testing.T) {
	d := testDirectory(t)

	assert.Nil(t, d.Search("  ", 10))

	results := d.Search("K", 10)
	require.NotEmpty(t, results)
	// large airports come first
	assert.Equal(t, TypeLarge, results[0].Type)

	results = d.Search("JFK", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "KJFK", results[0].ICAO)

	results = d.Search("new york", 10)
	var codes []string
	for _, a := range results {
		codes = append(codes, a.ICAO)
	}
	assert.Contains(t, codes, "KJFK")
	assert.Contains(t, codes, "KLGA")

	assert.Len(t, d.Search("K", 2), 2)
}

func TestFindAlternates(t *testing.T) {
	d := testDirectory(t)

	alts := d.FindAlternates("KJFK", 100, 3)
	require.Len(t, alts, 3)
	for _, a := range alts {
		assert.NotEqual(t, "KJFK", a.ICAO)
		// no scheduled service / small airports
		assert.NotEqual(t, "KFRG", a.ICAO)
		assert.NotEqual(t, "NY01", a.ICAO)
	}
	assert.Equal(t, "KLGA", alts[0].ICAO)
	for i := 1; i < len(alts); i++ {
		assert.LessOrEqual(t, alts[i-1].DistanceNM, alts[i].DistanceNM)
	}
	assert.Equal(t, 3500, alts[0].RunwayLength)
	assert.True(t, alts[0].HasFuel)
}

func TestFindAlternatesRespectsRadius(t *testing.T) {
	d := testDirectory(t)
	alts := d.FindAlternates("KJFK", 15, 5)
	for _, a := range alts {
		assert.LessOrEqual(t, a.DistanceNM, 15.0)
	}
}

func TestFindAlternatesFallback(t *testing.T) {
	d := testDirectory(t)

	alts := d.FindAlternates("VIDP", 100, 3)
	require.Len(t, alts, 2)
	assert.Equal(t, "VABB", alts[0].ICAO)

	// Heathrow has no other airport in the fixture
	alts = d.FindAlternates("EGLL", 100, 3)
	require.Len(t, alts, 2)
	assert.Equal(t, "EGKK", alts[0].ICAO)
	assert.Equal(t, "EGSS", alts[1].ICAO)

	for _, dest := range []string{"VABB", "vobl", "EGKK", "EGSS"} {
		alts = d.FindAlternates(dest, 100, 3)
		require.Len(t, alts, 1, dest)
		assert.NotEqual(t, strings.ToUpper(dest), alts[0].ICAO, dest)
	}
}

func TestFindAlternatesFallbackExcludesKnownDestination(t *testing.T) {
	list, err := ParseCSV(strings.NewReader(csvHeader + `26434,"VABB","large_airport","Chhatrapati Shivaji International Airport",19.0886,72.8679,39,"AS","IN","IN-MM","Mumbai","yes","VABB","BOM",,,,
`))
	require.NoError(t, err)
	d := NewDirectory(list, logger.NewNop())

	alts := d.FindAlternates("VABB", 100, 3)
	codes := make([]string, len(alts))
	for i, a := range alts {
		codes[i] = a.ICAO
	}
	assert.Equal(t, []string{"VOBL"}, codes)
}

func TestCategorize(t *testing.T) {
	alts := []Alternate{
		{ICAO: "KEWR", Type: TypeLarge, DistanceNM: 17, RunwayLength: 3500},
		{ICAO: "KLGA", Type: TypeLarge, DistanceNM: 9, RunwayLength: 3500},
		{ICAO: "KISP", Type: TypeMedium, DistanceNM: 39, RunwayLength: 2500},
	}
	cats := Categorize(alts)
	assert.Equal(t, []string{"KLGA"}, cats[CategoryNearest])
	assert.Equal(t, []string{"KEWR", "KLGA"}, cats[CategoryMajor])
	assert.Equal(t, []string{"KISP"}, cats[CategoryRegional])
	assert.Equal(t, []string{"KEWR", "KLGA"}, cats[CategoryLongRunway])

	empty := Categorize(nil)
	assert.Empty(t, empty[CategoryNearest])
}

func TestLoadDownloadsMissingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testCSV))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "data", "airports.csv")
	d, err := Load(context.Background(), path, srv.URL, srv.Client(), logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 7, d.Count())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadWithoutFileOrURL(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), "", nil, logger.NewNop())
	assert.Error(t, err)
}
