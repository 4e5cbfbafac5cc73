package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yegors/preflight/internal/config"
	"github.com/yegors/preflight/pkg/logger"
	"golang.org/x/time/rate"
)

// errNoContent marks an upstream response that carried no data
var errNoContent = errors.New("no content")

// Client handles HTTP requests to weather APIs
type Client struct {
	config     config.WeatherConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logger.Logger
}

// ClientOption customises a Client
type ClientOption func(c *Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimiter replaces the limiter shared by all upstream requests
func WithRateLimiter(limiter *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// NewClient creates a new weather API client
func NewClient(cfg config.WeatherConfig, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		logger: log.Named("weather-client"),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMETAR fetches the latest METAR for the specified airport
func (c *Client) FetchMETAR(ctx context.Context, airportCode string) (*METARResponse, error) {
	u := fmt.Sprintf("%s/metar?ids=%s&format=json", c.config.APIBaseURL, url.QueryEscape(airportCode))

	var result []METARResponse // API returns an array
	err := c.fetchWithRetry(ctx, u, WeatherTypeMETAR, airportCode, &result)
	if err != nil && !errors.Is(err, errNoContent) {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no METAR data found for %s", airportCode)
	}

	// Return the first (latest) observation
	return &result[0], nil
}

// FetchTAF fetches the current TAF for the specified airport
func (c *Client) FetchTAF(ctx context.Context, airportCode string) (*TAFResponse, error) {
	u := fmt.Sprintf("%s/taf?ids=%s&format=json", c.config.APIBaseURL, url.QueryEscape(airportCode))

	var result []TAFResponse
	err := c.fetchWithRetry(ctx, u, WeatherTypeTAF, airportCode, &result)
	if err != nil && !errors.Is(err, errNoContent) {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no TAF data found for %s", airportCode)
	}
	return &result[0], nil
}

// FetchPIREPs fetches pilot reports within 100 NM of the specified airport
func (c *Client) FetchPIREPs(ctx context.Context, airportCode string) ([]PIREPResponse, error) {
	u := fmt.Sprintf("%s/pirep?id=%s&distance=100&format=json", c.config.APIBaseURL, url.QueryEscape(airportCode))

	var result []PIREPResponse
	err := c.fetchWithRetry(ctx, u, WeatherTypePIREPs, airportCode, &result)
	if err != nil && !errors.Is(err, errNoContent) {
		return nil, err
	}
	return result, nil
}

// FetchNOTAMs fetches NOTAMs for the specified airport.
// The endpoint returns either a bare array or an object wrapping it.
func (c *Client) FetchNOTAMs(ctx context.Context, airportCode string) ([]NOTAMItem, error) {
	u := fmt.Sprintf("%s/%s", strings.TrimRight(c.config.NOTAMsBaseURL, "/"), url.PathEscape(airportCode))

	var raw json.RawMessage
	err := c.fetchWithRetry(ctx, u, WeatherTypeNOTAMs, airportCode, &raw)
	if errors.Is(err, errNoContent) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []NOTAMItem
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var wrapped struct {
		NOTAMs []NOTAMItem `json:"notams"`
		Items  []NOTAMItem `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("error decoding NOTAM data: %w", err)
	}
	return append(wrapped.NOTAMs, wrapped.Items...), nil
}

// fetchWithRetry performs HTTP request with retry logic and exponential backoff
func (c *Client) fetchWithRetry(ctx context.Context, u string, weatherType WeatherType, airportCode string, target any) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff between retries
			backoffDuration := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			c.logger.Info("Retrying weather data fetch",
				logger.String("type", string(weatherType)),
				logger.String("airport", airportCode),
				logger.Int("attempt", attempt),
				logger.Duration("backoff", backoffDuration))

			timer := time.NewTimer(backoffDuration)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := c.fetchOnce(ctx, u, target)
		if err == nil || errors.Is(err, errNoContent) {
			if attempt > 0 {
				c.logger.Info("Successfully fetched weather data after retries",
					logger.String("type", string(weatherType)),
					logger.String("airport", airportCode),
					logger.Int("attempts_needed", attempt+1))
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		c.logger.Warn("Weather API request failed, may retry",
			logger.String("type", string(weatherType)),
			logger.String("airport", airportCode),
			logger.Error(err),
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", c.config.MaxRetries+1))

		var statusErr responseStatusErr
		if errors.As(err, &statusErr) && statusErr.StatusCode < 500 && statusErr.StatusCode != http.StatusTooManyRequests {
			break
		}
	}

	c.logger.Error("All attempts to fetch weather data failed",
		logger.String("type", string(weatherType)),
		logger.String("airport", airportCode),
		logger.Error(lastErr),
		logger.Int("max_attempts", c.config.MaxRetries+1))
	return lastErr
}

type responseStatusErr struct {
	StatusCode int
}

func (e responseStatusErr) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

func (c *Client) fetchOnce(ctx context.Context, u string, target any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request to weather API: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
		return errNoContent
	case resp.StatusCode != http.StatusOK:
		return responseStatusErr{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading weather data: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errNoContent
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("error decoding weather data: %w", err)
	}
	return nil
}

// FetchAll fetches all enabled weather data types for one airport concurrently
func (c *Client) FetchAll(ctx context.Context, airportCode string) []FetchResult {
	results := make(chan FetchResult, 4)
	var fetchCount int

	if c.config.FetchMETAR {
		fetchCount++
		go func() {
			data, err := c.FetchMETAR(ctx, airportCode)
			results <- FetchResult{Type: WeatherTypeMETAR, Data: data, Err: err}
		}()
	}

	if c.config.FetchTAF {
		fetchCount++
		go func() {
			data, err := c.FetchTAF(ctx, airportCode)
			results <- FetchResult{Type: WeatherTypeTAF, Data: data, Err: err}
		}()
	}

	if c.config.FetchNOTAMs {
		fetchCount++
		go func() {
			data, err := c.FetchNOTAMs(ctx, airportCode)
			results <- FetchResult{Type: WeatherTypeNOTAMs, Data: data, Err: err}
		}()
	}

	if c.config.FetchPIREPs {
		fetchCount++
		go func() {
			data, err := c.FetchPIREPs(ctx, airportCode)
			results <- FetchResult{Type: WeatherTypePIREPs, Data: data, Err: err}
		}()
	}

	var fetchResults []FetchResult
	for i := 0; i < fetchCount; i++ {
		fetchResults = append(fetchResults, <-results)
	}
	return fetchResults
}
