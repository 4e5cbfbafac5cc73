package airports

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/yegors/preflight/internal/geo"
	"github.com/yegors/preflight/pkg/logger"
)

// ErrNotFound is returned when an airport code does not resolve
var ErrNotFound = errors.New("airport not found")

// Directory is an in-memory airport database keyed by ICAO and IATA code
type Directory struct {
	airports []*Airport
	byICAO   map[string]*Airport
	byIATA   map[string]*Airport
	logger   *logger.Logger
}

// NewDirectory builds a directory from already parsed airports
func NewDirectory(list []Airport, log *logger.Logger) *Directory {
	d := &Directory{
		airports: make([]*Airport, 0, len(list)),
		byICAO:   make(map[string]*Airport, len(list)),
		byIATA:   make(map[string]*Airport),
		logger:   log.Named("airports"),
	}
	for i := range list {
		a := list[i]
		a.ICAO = strings.ToUpper(strings.TrimSpace(a.ICAO))
		a.IATA = strings.ToUpper(strings.TrimSpace(a.IATA))
		if a.ICAO == "" {
			continue
		}
		d.airports = append(d.airports, &a)
		d.byICAO[a.ICAO] = &a
		if a.IATA != "" {
			if _, exists := d.byIATA[a.IATA]; !exists {
				d.byIATA[a.IATA] = &a
			}
		}
	}
	return d
}

// Load reads airports.csv from path, downloading it from downloadURL first when the file is missing
func Load(ctx context.Context, path, downloadURL string, httpClient *http.Client, log *logger.Logger) (*Directory, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if downloadURL == "" {
			return nil, fmt.Errorf("airport database %s not found and no download URL configured", path)
		}
		log.Info("Downloading OurAirports data",
			logger.String("url", downloadURL),
			logger.String("path", path))
		if err := download(ctx, httpClient, downloadURL, path); err != nil {
			return nil, fmt.Errorf("failed to download airport database: %w", err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	list, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	d := NewDirectory(list, log)
	log.Info("Loaded airports", logger.Int("count", d.Count()), logger.String("path", path))
	return d, nil
}

func download(ctx context.Context, httpClient *http.Client, url, path string) error {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	// Download to a temp file, then rename into place
	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ParseCSV parses an OurAirports airports.csv stream. Columns are located by header name.
func ParseCSV(r io.Reader) ([]Airport, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"ident", "type", "name", "latitude_deg", "longitude_deg"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var list []Airport
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		lat, errLat := strconv.ParseFloat(field(record, "latitude_deg"), 64)
		lon, errLon := strconv.ParseFloat(field(record, "longitude_deg"), 64)
		if errLat != nil || errLon != nil {
			continue
		}

		a := Airport{
			ICAO:             field(record, "ident"),
			IATA:             field(record, "iata_code"),
			Name:             field(record, "name"),
			Type:             field(record, "type"),
			Lat:              lat,
			Lon:              lon,
			Municipality:     field(record, "municipality"),
			Country:          field(record, "iso_country"),
			ScheduledService: field(record, "scheduled_service") == "yes",
		}
		if elev := field(record, "elevation_ft"); elev != "" {
			if v, err := strconv.ParseFloat(elev, 64); err == nil {
				a.ElevationFt = int(v)
			}
		}
		list = append(list, a)
	}
	return list, nil
}

// Count returns the number of airports in the directory
func (d *Directory) Count() int {
	return len(d.airports)
}

// Lookup resolves an ICAO or IATA code
func (d *Directory) Lookup(code string) (*Airport, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if a, ok := d.byICAO[code]; ok {
		return a, nil
	}
	if a, ok := d.byIATA[code]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
}

// Validate returns the codes that do not resolve to an airport
func (d *Directory) Validate(codes []string) []string {
	var unknown []string
	for _, c := range codes {
		if _, err := d.Lookup(c); err != nil {
			unknown = append(unknown, strings.ToUpper(strings.TrimSpace(c)))
		}
	}
	return unknown
}

// Search implements search-as-you-type over codes and names.
// Code prefix matches rank before name/municipality substring matches, larger airports first.
func (d *Directory) Search(query string, limit int) []*Airport {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	type hit struct {
		airport *Airport
		rank    int
	}
	var hits []hit
	for _, a := range d.airports {
		switch {
		case a.ICAO == q || a.IATA == q:
			hits = append(hits, hit{a, 0})
		case strings.HasPrefix(a.ICAO, q) || (a.IATA != "" && strings.HasPrefix(a.IATA, q)):
			hits = append(hits, hit{a, 1})
		case len(q) >= 3 && (strings.Contains(strings.ToUpper(a.Name), q) || strings.Contains(strings.ToUpper(a.Municipality), q)):
			hits = append(hits, hit{a, 2})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		ti, tj := typeRank(hits[i].airport.Type), typeRank(hits[j].airport.Type)
		if ti != tj {
			return ti < tj
		}
		return hits[i].airport.ICAO < hits[j].airport.ICAO
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]*Airport, len(hits))
	for i, h := range hits {
		out[i] = h.airport
	}
	return out
}

func typeRank(t string) int {
	switch t {
	case TypeLarge:
		return 0
	case TypeMedium:
		return 1
	case TypeSmall:
		return 2
	}
	return 3
}

// Position returns the coordinates of an airport
func (a *Airport) Position() geo.Point {
	return geo.Point{Lat: a.Lat, Lon: a.Lon}
}
