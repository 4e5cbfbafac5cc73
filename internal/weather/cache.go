package weather

import (
	"sync"
	"time"

	"github.com/yegors/preflight/pkg/logger"
)

type cacheEntry struct {
	data      *StationWeather
	expiresAt time.Time
}

// Cache keeps fetched station weather until it expires
type Cache struct {
	entries map[string]cacheEntry
	expiry  time.Duration
	now     func() time.Time
	logger  *logger.Logger
	mu      sync.RWMutex
}

// NewCache creates a station weather cache with the given expiry
func NewCache(expiry time.Duration, log *logger.Logger) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		expiry:  expiry,
		now:     time.Now,
		logger:  log.Named("weather-cache"),
	}
}

// Get returns the cached weather of a station.
// Expired entries are never returned.
func (c *Cache) Get(icao string) (*StationWeather, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[icao]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// Set stores the weather of a station
func (c *Cache) Set(data *StationWeather) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.expiry)
	c.entries[data.ICAO] = cacheEntry{data: data, expiresAt: expiresAt}

	c.logger.Debug("Station weather cached",
		logger.String("airport", data.ICAO),
		logger.Time("last_updated", data.LastUpdated),
		logger.Time("expires_at", expiresAt),
		logger.Int("error_count", len(data.FetchErrors)))
}

// Prune drops expired entries and returns how many were removed
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for icao, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, icao)
			removed++
		}
	}
	return removed
}

// Invalidate clears the cache
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
	c.logger.Info("Weather cache invalidated")
}

// GetStats returns cache statistics
func (c *Cache) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	fresh := 0
	for _, entry := range c.entries {
		if !now.After(entry.expiresAt) {
			fresh++
		}
	}
	return map[string]interface{}{
		"stations":        len(c.entries),
		"fresh_stations":  fresh,
		"expiry_duration": c.expiry.String(),
	}
}
