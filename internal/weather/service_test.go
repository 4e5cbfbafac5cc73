package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yegors/preflight/internal/config"
	"github.com/yegors/preflight/pkg/logger"
)

type fakeUpstream struct {
	metarCalls atomic.Int32
	failMETAR  map[string]int // remaining failures per station, -1 = always
	server     *httptest.Server
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	f := &fakeUpstream{failMETAR: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/metar", func(w http.ResponseWriter, r *http.Request) {
		f.metarCalls.Add(1)
		id := r.URL.Query().Get("ids")
		if n, ok := f.failMETAR[id]; ok && n != 0 {
			if n > 0 {
				f.failMETAR[id] = n - 1
			}
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		raw := fmt.Sprintf("%s 121251Z 25012KT 10SM FEW250 22/18 A2992", id)
		if id == "KMIA" {
			raw = "KMIA 121253Z 09010KT 3SM +TSRA BKN015CB 28/24 A2990"
		}
		fmt.Fprintf(w, `[{"icaoId":%q,"rawOb":%q,"wdir":250,"wspd":12,"visib":"10+","fltCat":""}]`, id, raw)
	})
	mux.HandleFunc("/taf", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("ids")
		if id == "KMIA" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		fmt.Fprintf(w, `[{"icaoId":%q,"rawTAF":"TAF %s 121130Z 1212/1318 25012KT P6SM SCT040","validTimeFrom":1700000000,"validTimeTo":1700086400}]`, id, id)
	})
	mux.HandleFunc("/pirep", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		fmt.Fprintf(w, `[{"icaoId":%q,"rawOb":"UA /OV %s/FL320/TB MOD","fltLvl":320}]`, id, id)
	})
	mux.HandleFunc("/notams/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/notams/")
		fmt.Fprintf(w, `{"notams":[{"id":"A0001/24","raw":"%s RWY 04L CLSD"},{"id":"A0002/24","raw":"TWY B LIGHTS U/S"}]}`, id)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUpstream) config() config.WeatherConfig {
	return config.WeatherConfig{
		APIBaseURL:            f.server.URL,
		NOTAMsBaseURL:         f.server.URL + "/notams",
		RequestTimeoutSeconds: 5,
		MaxRetries:            1,
		FetchMETAR:            true,
		FetchTAF:              true,
		FetchNOTAMs:           true,
		FetchPIREPs:           true,
		CacheExpiryMinutes:    10,
		RequestsPerSecond:     100,
		MaxConcurrentStations: 2,
	}
}

func TestFetchStations(t *testing.T) {
	f := newFakeUpstream(t)
	s := NewService(f.config(), logger.NewNop())

	report, err := s.FetchStations(context.Background(), []string{"KJFK", "KMIA", "KBOS"})
	require.NoError(t, err)
	require.Len(t, report.Stations, 3)

	// request order is preserved
	assert.Equal(t, "KJFK", report.Stations[0].ICAO)
	assert.Equal(t, "KMIA", report.Stations[1].ICAO)
	assert.Equal(t, "KBOS", report.Stations[2].ICAO)

	metars := report.METARs()
	require.Len(t, metars, 3)
	assert.True(t, metars[1].Thunderstorm)
	assert.False(t, metars[0].Thunderstorm)
	assert.Equal(t, CategoryVFR, metars[0].FlightCategory)

	mia := report.Station("KMIA")
	require.NotNil(t, mia)
	require.NotNil(t, mia.TAF)
	assert.Equal(t, NotAvailable, mia.TAF.RawText)
	require.NotNil(t, report.Station("KJFK").TAF.Forecast)

	notams := report.NOTAMs()
	require.Len(t, notams, 6)
	assert.True(t, notams[0].Critical)
	assert.False(t, notams[1].Critical)

	pireps := report.PIREPs()
	require.Len(t, pireps, 3)
	assert.Equal(t, 32000, *pireps[0].Altitude)

	assert.Len(t, report.FetchErrors(), 1)
	assert.Contains(t, report.FetchErrors()[0], "KMIA: taf")
}

func TestFetchStationsMETARFailureYieldsPlaceholder(t *testing.T) {
	f := newFakeUpstream(t)
	f.failMETAR["KBOS"] = -1
	s := NewService(f.config(), logger.NewNop())

	report, err := s.FetchStations(context.Background(), []string{"KJFK", "KBOS"})
	require.NoError(t, err)

	bos := report.Station("KBOS")
	require.NotNil(t, bos)
	assert.Equal(t, NotAvailable, bos.METAR.RawText)
	assert.False(t, bos.METAR.Available())
	require.NotEmpty(t, bos.FetchErrors)
	assert.Contains(t, bos.FetchErrors[0], "metar")

	// placeholder is not cached
	_, cached := s.Cache().Get("KBOS")
	assert.False(t, cached)
	_, cached = s.Cache().Get("KJFK")
	assert.True(t, cached)
}

func TestFetchRetriesTransientFailure(t *testing.T) {
	f := newFakeUpstream(t)
	f.failMETAR["KJFK"] = 1
	cfg := f.config()
	cfg.FetchTAF, cfg.FetchNOTAMs, cfg.FetchPIREPs = false, false, false
	s := NewService(cfg, logger.NewNop())

	report, err := s.FetchStations(context.Background(), []string{"KJFK"})
	require.NoError(t, err)
	assert.True(t, report.Stations[0].METAR.Available())
	assert.Equal(t, int32(2), f.metarCalls.Load())
}

func TestStationUsesCache(t *testing.T) {
	f := newFakeUpstream(t)
	cfg := f.config()
	cfg.FetchTAF, cfg.FetchNOTAMs, cfg.FetchPIREPs = false, false, false
	s := NewService(cfg, logger.NewNop())

	_, err := s.Station(context.Background(), "KJFK")
	require.NoError(t, err)
	_, err = s.Station(context.Background(), "KJFK")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.metarCalls.Load())

	s.Cache().Invalidate()
	_, err = s.Station(context.Background(), "KJFK")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.metarCalls.Load())
}

func TestFetchStationsCancelled(t *testing.T) {
	f := newFakeUpstream(t)
	s := NewService(f.config(), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.FetchStations(ctx, []string{"KJFK"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Minute, logger.NewNop())
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(&StationWeather{ICAO: "KJFK"})
	_, ok := c.Get("KJFK")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("KJFK")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Prune())
	assert.Equal(t, 0, c.GetStats()["stations"])
}
