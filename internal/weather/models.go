package weather

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Metar is the decoded current observation for one station
type Metar struct {
	Station        string   `json:"station"`
	RawText        string   `json:"raw_text"`
	Temperature    *float64 `json:"temperature,omitempty"`
	Wind           *string  `json:"wind,omitempty"`
	WindDirection  *int     `json:"wind_direction,omitempty"` // degrees true, nil when variable
	WindSpeedKt    *int     `json:"wind_speed_kt,omitempty"`
	Visibility     *string  `json:"visibility,omitempty"`
	Conditions     *string  `json:"conditions,omitempty"`
	AltimeterHPa   *float64 `json:"altimeter_hpa,omitempty"`
	CeilingFt      *int     `json:"ceiling_ft,omitempty"`
	FlightCategory string   `json:"flight_category,omitempty"`
	Thunderstorm   bool     `json:"thunderstorm"`
}

// Available reports whether the observation was actually fetched
func (m Metar) Available() bool {
	return m.RawText != "" && m.RawText != NotAvailable
}

// Taf is the terminal forecast for one station
type Taf struct {
	Station  string  `json:"station"`
	RawText  string  `json:"raw_text"`
	Forecast *string `json:"forecast,omitempty"`
}

// Pirep is a pilot report near one of the route airports
type Pirep struct {
	Report   string  `json:"report"`
	Altitude *int    `json:"altitude,omitempty"` // feet
	Location *string `json:"location,omitempty"`
}

// Notam is a notice to airmen for one airport
type Notam struct {
	ID       string  `json:"id"`
	Airport  string  `json:"airport"`
	Text     string  `json:"text"`
	Critical bool    `json:"critical"`
	Category *string `json:"category,omitempty"`
}

// NotAvailable is the raw text of a METAR or TAF that could not be fetched
const NotAvailable = "N/A"

// StationWeather is everything fetched for a single airport
type StationWeather struct {
	ICAO        string    `json:"icao"`
	METAR       Metar     `json:"metar"`
	TAF         *Taf      `json:"taf,omitempty"`
	NOTAMs      []Notam   `json:"notams,omitempty"`
	PIREPs      []Pirep   `json:"pireps,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
	FetchErrors []string  `json:"fetch_errors,omitempty"`
}

// Report holds station weather in the order the stations were requested
type Report struct {
	Stations []*StationWeather `json:"stations"`
}

// METARs returns one METAR per station, placeholders included
func (r *Report) METARs() []Metar {
	out := make([]Metar, 0, len(r.Stations))
	for _, s := range r.Stations {
		out = append(out, s.METAR)
	}
	return out
}

// TAFs returns the forecasts that were fetched
func (r *Report) TAFs() []Taf {
	var out []Taf
	for _, s := range r.Stations {
		if s.TAF != nil {
			out = append(out, *s.TAF)
		}
	}
	return out
}

// NOTAMs returns the NOTAMs of all stations
func (r *Report) NOTAMs() []Notam {
	var out []Notam
	for _, s := range r.Stations {
		out = append(out, s.NOTAMs...)
	}
	return out
}

// PIREPs returns the pilot reports of all stations
func (r *Report) PIREPs() []Pirep {
	var out []Pirep
	for _, s := range r.Stations {
		out = append(out, s.PIREPs...)
	}
	return out
}

// FetchErrors returns every fetch error prefixed with its station
func (r *Report) FetchErrors() []string {
	var out []string
	for _, s := range r.Stations {
		for _, e := range s.FetchErrors {
			out = append(out, s.ICAO+": "+e)
		}
	}
	return out
}

// Station returns the weather of one station, nil when it was not requested
func (r *Report) Station(icao string) *StationWeather {
	for _, s := range r.Stations {
		if s.ICAO == icao {
			return s
		}
	}
	return nil
}

// WeatherType represents the type of weather data
type WeatherType string

const (
	WeatherTypeMETAR  WeatherType = "metar"
	WeatherTypeTAF    WeatherType = "taf"
	WeatherTypeNOTAMs WeatherType = "notams"
	WeatherTypePIREPs WeatherType = "pireps"
)

// FetchResult represents the result of fetching weather data
type FetchResult struct {
	Type WeatherType
	Data any
	Err  error
}

// METARResponse is one observation from the aviationweather.gov data API
type METARResponse struct {
	ICAOID    string       `json:"icaoId"`
	ObsTime   int64        `json:"obsTime"`
	Temp      *float64     `json:"temp"`
	Dewp      *float64     `json:"dewp"`
	Wdir      FlexString   `json:"wdir"`
	Wspd      *int         `json:"wspd"`
	Wgst      *int         `json:"wgst"`
	Visib     FlexString   `json:"visib"`
	Altim     *float64     `json:"altim"`
	WxString  string       `json:"wxString"`
	RawOb     string       `json:"rawOb"`
	FltCat    string       `json:"fltCat"`
	Clouds    []CloudLayer `json:"clouds"`
	Name      string       `json:"name"`
	Lat       float64      `json:"lat"`
	Lon       float64      `json:"lon"`
	Elevation float64      `json:"elev"`
}

// CloudLayer is a reported cloud layer
type CloudLayer struct {
	Cover string `json:"cover"`
	Base  *int   `json:"base"`
}

// TAFResponse is one forecast from the aviationweather.gov data API
type TAFResponse struct {
	ICAOID        string `json:"icaoId"`
	RawTAF        string `json:"rawTAF"`
	IssueTime     string `json:"issueTime"`
	ValidTimeFrom int64  `json:"validTimeFrom"`
	ValidTimeTo   int64  `json:"validTimeTo"`
}

// PIREPResponse is one pilot report from the aviationweather.gov data API
type PIREPResponse struct {
	ICAOID  string     `json:"icaoId"`
	ObsTime int64      `json:"obsTime"`
	AcType  string     `json:"acType"`
	Lat     float64    `json:"lat"`
	Lon     float64    `json:"lon"`
	FltLvl  FlexString `json:"fltLvl"` // hundreds of feet
	RawOb   string     `json:"rawOb"`
	TbInt1  string     `json:"tbInt1"`
}

// NOTAMItem is one entry of the NOTAM endpoint
type NOTAMItem struct {
	ID       string `json:"id"`
	Raw      string `json:"raw"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// FlexString accepts JSON strings and numbers ("VRB" or 250, "10+" or 6.0)
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Int parses the value as an integer
func (f FlexString) Int() (int, bool) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(string(f), "+"), 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// Float parses the value as a float, ignoring a trailing "+"
func (f FlexString) Float() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(string(f), "+"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
