package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/yegors/preflight/internal/config"
	"github.com/yegors/preflight/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Service fetches and caches weather for the stations of a briefing
type Service struct {
	config config.WeatherConfig
	client *Client
	cache  *Cache
	logger *logger.Logger
}

// NewService creates a new weather service
func NewService(cfg config.WeatherConfig, log *logger.Logger, opts ...ClientOption) *Service {
	return &Service{
		config: cfg,
		client: NewClient(cfg, log, opts...),
		cache:  NewCache(time.Duration(cfg.CacheExpiryMinutes)*time.Minute, log),
		logger: log.Named("weather-service"),
	}
}

// Cache exposes the station cache
func (s *Service) Cache() *Cache {
	return s.cache
}

// FetchStations fetches weather for all stations concurrently.
// A station whose METAR cannot be fetched gets a placeholder and a fetch error;
// only a cancelled context fails the whole call.
func (s *Service) FetchStations(ctx context.Context, codes []string) (*Report, error) {
	report := &Report{Stations: make([]*StationWeather, len(codes))}

	g, gCtx := errgroup.WithContext(ctx)
	if s.config.MaxConcurrentStations > 0 {
		g.SetLimit(s.config.MaxConcurrentStations)
	}
	for i, code := range codes {
		g.Go(func() error {
			station, err := s.Station(gCtx, code)
			if err != nil {
				return err
			}
			report.Stations[i] = station
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("Fetched station weather",
		logger.Strings("stations", codes),
		logger.Int("fetch_errors", len(report.FetchErrors())))
	return report, nil
}

// Station returns the weather of one station, from cache when fresh
func (s *Service) Station(ctx context.Context, code string) (*StationWeather, error) {
	if cached, ok := s.cache.Get(code); ok {
		s.logger.Debug("Using cached station weather", logger.String("airport", code))
		return cached, nil
	}

	results := s.client.FetchAll(ctx, code)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	station := s.assemble(code, results)
	// placeholders are not cached so the next briefing retries
	if station.METAR.Available() {
		s.cache.Set(station)
	}
	return station, nil
}

func (s *Service) assemble(code string, results []FetchResult) *StationWeather {
	station := &StationWeather{
		ICAO:        code,
		METAR:       placeholderMETAR(code),
		LastUpdated: time.Now().UTC(),
	}

	for _, result := range results {
		if result.Err != nil {
			station.FetchErrors = append(station.FetchErrors, fmt.Sprintf("%s: %s", result.Type, result.Err.Error()))
			s.logger.Warn("Failed to fetch weather data",
				logger.String("type", string(result.Type)),
				logger.String("airport", code),
				logger.Error(result.Err))
			continue
		}

		switch data := result.Data.(type) {
		case *METARResponse:
			station.METAR = DecodeMETAR(code, data)
		case *TAFResponse:
			taf := DecodeTAF(code, data)
			station.TAF = &taf
		case []NOTAMItem:
			for _, item := range data {
				station.NOTAMs = append(station.NOTAMs, DecodeNOTAM(code, item))
			}
		case []PIREPResponse:
			for i := range data {
				station.PIREPs = append(station.PIREPs, DecodePIREP(code, &data[i]))
			}
		default:
			s.logger.Error("Unexpected weather data type",
				logger.String("type", string(result.Type)),
				logger.String("airport", code))
		}
	}

	if s.config.FetchTAF && station.TAF == nil {
		station.TAF = &Taf{Station: code, RawText: NotAvailable}
	}
	return station
}
