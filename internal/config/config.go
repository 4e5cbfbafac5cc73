package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server        ServerConfig        `toml:"server"`        // HTTP server settings
	Logging       LoggingConfig       `toml:"logging"`       // Application logging settings
	Storage       StorageConfig       `toml:"storage"`       // Saved flight persistence
	Airports      AirportsConfig      `toml:"airports"`      // OurAirports directory settings
	Weather       WeatherConfig       `toml:"wx"`            // Weather data fetching and caching settings
	AI            AIConfig            `toml:"ai"`            // Briefing summary provider settings
	Auth          AuthConfig          `toml:"auth"`          // Hosted auth provider (Supabase) settings
	Briefing      BriefingConfig      `toml:"briefing"`      // Briefing computation settings
	Notifications NotificationsConfig `toml:"notifications"` // Toast notification settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // Origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (briefings can take a while)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Keep-alive idle timeout
	StaticFilesDir     string   `toml:"static_files_dir"`      // Directory holding the dashboard (e.g., "www")
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type       string `toml:"type"`        // Storage backend type (currently only "sqlite" is supported)
	SQLitePath string `toml:"sqlite_path"` // Path of the SQLite database file
}

// AirportsConfig contains the airport directory configuration
type AirportsConfig struct {
	DBPath             string  `toml:"db_path"`              // Path to airports.csv (OurAirports format)
	DownloadURL        string  `toml:"download_url"`         // Where to fetch airports.csv when DBPath is missing
	AlternateRadiusNM  float64 `toml:"alternate_radius_nm"`  // Search radius for alternate airports
	MaxAlternates      int     `toml:"max_alternates"`       // Maximum number of alternates suggested
	SearchDefaultLimit int     `toml:"search_default_limit"` // Default result count for search-as-you-type
}

// WeatherConfig contains weather data fetching and caching configuration
type WeatherConfig struct {
	APIBaseURL            string  `toml:"api_base_url"`            // Base URL for the aviation weather data API
	NOTAMsBaseURL         string  `toml:"notams_api_base_url"`     // Base URL for NOTAMs, airport code is appended
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"` // HTTP request timeout in seconds
	MaxRetries            int     `toml:"max_retries"`             // Maximum number of retry attempts for failed requests
	FetchMETAR            bool    `toml:"fetch_metar"`             // Whether to fetch METAR data
	FetchTAF              bool    `toml:"fetch_taf"`               // Whether to fetch TAF data
	FetchNOTAMs           bool    `toml:"fetch_notams"`            // Whether to fetch NOTAM data
	FetchPIREPs           bool    `toml:"fetch_pireps"`            // Whether to fetch PIREPs around the route airports
	CacheExpiryMinutes    int     `toml:"cache_expiry_minutes"`    // How long fetched station data stays fresh
	RequestsPerSecond     float64 `toml:"requests_per_second"`     // Upstream rate limit shared by all fetches
	MaxConcurrentStations int     `toml:"max_concurrent_stations"` // Parallel station fetches per briefing
}

// AIConfig contains settings for the AI-written briefing summary
type AIConfig struct {
	Provider       string  `toml:"provider"`        // "gemini", "openai" or "none"
	GeminiAPIKey   string  `toml:"gemini_api_key"`  // Gemini API key (GEMINI_API_KEY env overrides)
	GeminiModel    string  `toml:"gemini_model"`    // Gemini model name
	OpenAIAPIKey   string  `toml:"openai_api_key"`  // OpenAI API key (OPENAI_API_KEY env overrides)
	OpenAIBaseURL  string  `toml:"openai_base_url"` // OpenAI-compatible base URL
	OpenAIModel    string  `toml:"openai_model"`    // Chat completions model
	Temperature    float64 `toml:"temperature"`     // Sampling temperature
	MaxTokens      int     `toml:"max_tokens"`      // Maximum tokens in the report
	TimeoutSeconds int     `toml:"timeout_seconds"` // Deadline for one summary request
	PromptPath     string  `toml:"prompt_path"`     // Optional prompt template file, embedded default when empty
}

// AuthConfig contains the hosted auth provider configuration
type AuthConfig struct {
	Disabled        bool   `toml:"disabled"`          // Treat every request as DevUserID (local development only)
	DevUserID       string `toml:"dev_user_id"`       // User ID used when auth is disabled
	SupabaseURL     string `toml:"supabase_url"`      // Project URL, exposed to the browser client
	SupabaseAnonKey string `toml:"supabase_anon_key"` // Public anon key, exposed to the browser client
	JWTSecret       string `toml:"jwt_secret"`        // HS256 secret used to verify access tokens (SUPABASE_JWT_SECRET env overrides)
	Audience        string `toml:"audience"`          // Expected aud claim
}

// BriefingConfig contains settings for briefing computation
type BriefingConfig struct {
	CruiseAltitudeFt  int     `toml:"cruise_altitude_ft"`   // Cruise altitude assigned to en-route points
	RouteSpacingNM    float64 `toml:"route_spacing_nm"`     // Maximum distance between generated route points
	StormCellRadiusNM float64 `toml:"storm_cell_radius_nm"` // Radius of the polygon drawn around thunderstorm airports
	StormCellSegments int     `toml:"storm_cell_segments"`  // Vertex count of storm polygons
	TurbulenceMinFL   int     `toml:"turbulence_min_fl"`    // Lower flight level of the PIREP turbulence band
	TurbulenceMaxFL   int     `toml:"turbulence_max_fl"`    // Upper flight level of the PIREP turbulence band
	MaxWaypoints      int     `toml:"max_waypoints"`        // Maximum intermediate airports on a saved flight
	TimeoutSeconds    int     `toml:"timeout_seconds"`      // Deadline for gathering weather; the summary has its own
}

// NotificationsConfig contains toast notification settings
type NotificationsConfig struct {
	DurationSeconds int `toml:"duration_seconds"` // Fixed display duration of a toast
	MaxPerUser      int `toml:"max_per_user"`     // Oldest toasts are dropped beyond this bound
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyEnv()
	return &config, nil
}

// Parse decodes configuration from a TOML string
func Parse(data string) (*Config, error) {
	var config Config
	if _, err := toml.Decode(data, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	config.applyEnv()
	return &config, nil
}

// applyEnv lets secrets come from the environment instead of the config file
func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.GeminiAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.OpenAIAPIKey = v
	}
	if v := os.Getenv("SUPABASE_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		c.Auth.SupabaseURL = v
	}
	if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		c.Auth.SupabaseAnonKey = v
	}
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	// Validate logging config
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid log level
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	switch c.Logging.Format {
	case "json", "console":
		// Valid log format
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	// Validate storage config
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("invalid storage type: %s (only 'sqlite' is supported)", c.Storage.Type)
	}
	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("sqlite_path is required when storage type is sqlite")
	}

	if err := c.ValidateAirports(); err != nil {
		return err
	}
	if err := c.ValidateWeather(); err != nil {
		return err
	}
	if err := c.ValidateAI(); err != nil {
		return err
	}
	if err := c.ValidateAuth(); err != nil {
		return err
	}
	if err := c.ValidateBriefing(); err != nil {
		return err
	}

	if c.Notifications.DurationSeconds <= 0 {
		c.Notifications.DurationSeconds = 4
	}
	if c.Notifications.MaxPerUser <= 0 {
		c.Notifications.MaxPerUser = 5
	}

	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 || c.Server.IdleTimeoutSecs < 0 {
		return fmt.Errorf("server timeouts must be 0 or greater")
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"http://localhost:5173"}
	}

	// Set default static files directory if not specified
	if c.Server.StaticFilesDir == "" {
		c.Server.StaticFilesDir = "www"
	}
	return nil
}

// ValidateAirports validates the airport directory configuration
func (c *Config) ValidateAirports() error {
	if c.Airports.DBPath == "" {
		return fmt.Errorf("airports db_path is required")
	}
	if c.Airports.DownloadURL == "" {
		c.Airports.DownloadURL = "https://davidmegginson.github.io/ourairports-data/airports.csv"
	}
	if c.Airports.AlternateRadiusNM == 0 {
		c.Airports.AlternateRadiusNM = 100
	}
	if c.Airports.AlternateRadiusNM < 0 {
		return fmt.Errorf("alternate_radius_nm must be positive: %f", c.Airports.AlternateRadiusNM)
	}
	if c.Airports.MaxAlternates == 0 {
		c.Airports.MaxAlternates = 3
	}
	if c.Airports.MaxAlternates < 0 {
		return fmt.Errorf("max_alternates must be positive: %d", c.Airports.MaxAlternates)
	}
	if c.Airports.SearchDefaultLimit <= 0 {
		c.Airports.SearchDefaultLimit = 10
	}
	return nil
}

// ValidateWeather validates the weather configuration
func (c *Config) ValidateWeather() error {
	if c.Weather.APIBaseURL == "" {
		c.Weather.APIBaseURL = "https://aviationweather.gov/api/data"
	}
	if c.Weather.NOTAMsBaseURL == "" {
		c.Weather.NOTAMsBaseURL = "https://node.windy.com/airports/notams"
	}
	if c.Weather.RequestTimeoutSeconds == 0 {
		c.Weather.RequestTimeoutSeconds = 10
	}
	if c.Weather.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("weather request_timeout_seconds must be greater than 0: %d", c.Weather.RequestTimeoutSeconds)
	}

	// Validate max retries
	if c.Weather.MaxRetries < 0 {
		return fmt.Errorf("weather max_retries must be 0 or greater: %d", c.Weather.MaxRetries)
	}

	if c.Weather.CacheExpiryMinutes == 0 {
		c.Weather.CacheExpiryMinutes = 10
	}
	if c.Weather.CacheExpiryMinutes < 0 {
		return fmt.Errorf("weather cache_expiry_minutes must be greater than 0: %d", c.Weather.CacheExpiryMinutes)
	}
	if c.Weather.RequestsPerSecond <= 0 {
		c.Weather.RequestsPerSecond = 5
	}
	if c.Weather.MaxConcurrentStations <= 0 {
		c.Weather.MaxConcurrentStations = 4
	}

	// METAR is the backbone of every briefing
	if !c.Weather.FetchMETAR {
		return fmt.Errorf("fetch_metar must be enabled")
	}

	return nil
}

// ValidateAI validates the summary provider configuration
func (c *Config) ValidateAI() error {
	c.AI.Provider = strings.ToLower(c.AI.Provider)
	if c.AI.Provider == "" {
		c.AI.Provider = "gemini"
	}
	switch c.AI.Provider {
	case "gemini":
		if c.AI.GeminiModel == "" {
			c.AI.GeminiModel = "gemini-2.0-flash"
		}
		if c.AI.GeminiAPIKey == "" {
			fmt.Printf("WARN: No Gemini API key provided - briefing summaries will use the built-in fallback\n")
		}
	case "openai":
		if c.AI.OpenAIBaseURL == "" {
			c.AI.OpenAIBaseURL = "https://api.openai.com"
		}
		if c.AI.OpenAIModel == "" {
			c.AI.OpenAIModel = "gpt-4o-mini"
		}
		if c.AI.OpenAIAPIKey == "" {
			fmt.Printf("WARN: No OpenAI API key provided - briefing summaries will use the built-in fallback\n")
		}
	case "none":
	default:
		return fmt.Errorf("invalid ai provider: %s (must be 'gemini', 'openai' or 'none')", c.AI.Provider)
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("ai temperature must be between 0 and 2: %f", c.AI.Temperature)
	}
	if c.AI.MaxTokens <= 0 {
		c.AI.MaxTokens = 2048
	}
	if c.AI.TimeoutSeconds <= 0 {
		c.AI.TimeoutSeconds = 45
	}
	return nil
}

// AIConfigured reports whether the selected summary provider has credentials
func (c *Config) AIConfigured() bool {
	switch c.AI.Provider {
	case "gemini":
		return c.AI.GeminiAPIKey != ""
	case "openai":
		return c.AI.OpenAIAPIKey != ""
	}
	return false
}

// ValidateAuth validates the auth provider configuration
func (c *Config) ValidateAuth() error {
	if c.Auth.Disabled {
		if c.Auth.DevUserID == "" {
			c.Auth.DevUserID = "00000000-0000-0000-0000-000000000001"
		}
		return nil
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret is required unless auth is disabled")
	}
	if c.Auth.Audience == "" {
		c.Auth.Audience = "authenticated"
	}
	c.Auth.SupabaseURL = strings.TrimRight(c.Auth.SupabaseURL, "/")
	return nil
}

// ValidateBriefing validates the briefing configuration
func (c *Config) ValidateBriefing() error {
	b := &c.Briefing
	if b.CruiseAltitudeFt == 0 {
		b.CruiseAltitudeFt = 35000
	}
	if b.CruiseAltitudeFt < 0 || b.CruiseAltitudeFt > 60000 {
		return fmt.Errorf("cruise_altitude_ft out of range: %d", b.CruiseAltitudeFt)
	}
	if b.RouteSpacingNM <= 0 {
		b.RouteSpacingNM = 100
	}
	if b.StormCellRadiusNM <= 0 {
		b.StormCellRadiusNM = 10
	}
	if b.StormCellSegments == 0 {
		b.StormCellSegments = 36
	}
	if b.StormCellSegments < 8 {
		return fmt.Errorf("storm_cell_segments must be at least 8: %d", b.StormCellSegments)
	}
	if b.TurbulenceMinFL == 0 && b.TurbulenceMaxFL == 0 {
		b.TurbulenceMinFL = 280
		b.TurbulenceMaxFL = 360
	}
	if b.TurbulenceMinFL > b.TurbulenceMaxFL {
		return fmt.Errorf("turbulence_min_fl (%d) must not exceed turbulence_max_fl (%d)", b.TurbulenceMinFL, b.TurbulenceMaxFL)
	}
	if b.MaxWaypoints <= 0 {
		b.MaxWaypoints = 8
	}
	if b.TimeoutSeconds <= 0 {
		b.TimeoutSeconds = 60
	}
	return nil
}
