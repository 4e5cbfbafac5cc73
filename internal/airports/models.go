package airports

// Airport types as published by OurAirports
const (
	TypeLarge  = "large_airport"
	TypeMedium = "medium_airport"
	TypeSmall  = "small_airport"
)

// Airport is one row of the airport directory
type Airport struct {
	ICAO             string  `json:"icao"`
	IATA             string  `json:"iata,omitempty"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	ElevationFt      int     `json:"elevation_ft"`
	Municipality     string  `json:"municipality,omitempty"`
	Country          string  `json:"country,omitempty"`
	ScheduledService bool    `json:"scheduled_service"`
}

// Alternate is an airport suggested as a diversion option
type Alternate struct {
	ICAO         string   `json:"icao"`
	Name         string   `json:"name"`
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	Type         string   `json:"type,omitempty"`
	DistanceNM   float64  `json:"distance_nm"`
	RunwayLength int      `json:"runway_length"` // estimated, meters
	HasFuel      bool     `json:"has_fuel"`
	HasCustoms   bool     `json:"has_customs"`
	Services     []string `json:"services,omitempty"`
}

// Alternate categories
const (
	CategoryNearest    = "nearest"
	CategoryMajor      = "major"
	CategoryRegional   = "regional"
	CategoryLongRunway = "long_runway"
)

// LongRunwayMeters is the estimated runway length at which an alternate counts as long
const LongRunwayMeters = 3000

// EstimateRunwayLength estimates the longest runway (meters) from the airport type
func EstimateRunwayLength(airportType string) int {
	switch airportType {
	case TypeLarge:
		return 3500
	case TypeMedium:
		return 2500
	default:
		return 1800
	}
}
