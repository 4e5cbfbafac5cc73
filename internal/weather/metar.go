package weather

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yegors/preflight/internal/physics"
)

// Flight categories
const (
	CategoryVFR  = "VFR"
	CategoryMVFR = "MVFR"
	CategoryIFR  = "IFR"
	CategoryLIFR = "LIFR"
)

// NoCeiling is used as ceiling when no broken, overcast or obscured layer is reported
const NoCeiling = math.MaxInt32

var (
	reTGroup      = regexp.MustCompile(`\bT([01])(\d{3})(?:[01]\d{3})?\b`)
	reTempDew     = regexp.MustCompile(`(?:^|\s)(M)?(\d{2})/(?:M?\d{2})?(?:\s|$)`)
	reAltimeterA  = regexp.MustCompile(`(?:^|\s)A(\d{4})(?:\s|$)`)
	reAltimeterQ  = regexp.MustCompile(`(?:^|\s)Q(\d{4})(?:\s|$)`)
	reCeiling     = regexp.MustCompile(`^(BKN|OVC|VV)(\d{3})`)
	reVisSM       = regexp.MustCompile(`^(P|M)?(\d+)?(?:(\d)/(\d+))?SM$`)
	reVisMeters   = regexp.MustCompile(`^(\d{4})(NDV)?$`)
	reCloudLayer  = regexp.MustCompile(`^(FEW|SCT|BKN|OVC|VV)(\d{3}|///)(CB|TCU)?$`)
	reWeatherCode = regexp.MustCompile(`^(\+|-|VC)?(MI|PR|BC|DR|BL|SH|TS|FZ)?((?:DZ|RA|SN|SG|IC|PL|GR|GS|UP|BR|FG|FU|VA|DU|SA|HZ|PY|PO|SQ|FC|SS|DS)*)$`)
)

// HasThunderstorm reports a thunderstorm in the body of a METAR or TAF.
// A weather group with the TS descriptor or a CB cloud layer counts; remarks are ignored.
func HasThunderstorm(raw string) bool {
	tokens := strings.Fields(strings.ToUpper(raw))
	station := -1
	for i, token := range tokens {
		if !reportTypes[token] {
			station = i
			break
		}
	}
	for i, token := range tokens {
		if token == "RMK" {
			break
		}
		if i == station {
			continue
		}
		if strings.HasSuffix(token, "CB") && reCloudLayer.MatchString(token) {
			return true
		}
		if m := reWeatherCode.FindStringSubmatch(token); m != nil && m[2] == "TS" {
			return true
		}
	}
	return false
}

var reportTypes = map[string]bool{"METAR": true, "SPECI": true, "TAF": true, "AMD": true, "COR": true}

// ParseTemperature extracts the temperature in Celsius from the raw METAR string.
// The RMK T-group (T00561050 = 5.6°C) is preferred over the standard "22/M05" group.
func ParseTemperature(raw string) (float64, bool) {
	if idx := strings.Index(raw, " RMK "); idx >= 0 {
		if matches := reTGroup.FindStringSubmatch(raw[idx:]); len(matches) == 3 {
			val, err := strconv.ParseFloat(matches[2], 64)
			if err == nil {
				val = val / 10.0
				if matches[1] == "1" {
					val = -val
				}
				return val, true
			}
		}
		raw = raw[:idx]
	}

	matches := reTempDew.FindStringSubmatch(raw)
	if len(matches) == 3 {
		val, err := strconv.ParseFloat(matches[2], 64)
		if err == nil {
			if matches[1] == "M" {
				val = -val
			}
			return val, true
		}
	}
	return 0, false
}

// ParseAltimeter returns the altimeter setting in hPa from an A (inHg) or Q (hPa) group
func ParseAltimeter(raw string) (float64, bool) {
	body := raw
	if idx := strings.Index(body, " RMK "); idx >= 0 {
		body = body[:idx]
	}
	if m := reAltimeterQ.FindStringSubmatch(body); m != nil {
		v, _ := strconv.Atoi(m[1])
		return float64(v), true
	}
	if m := reAltimeterA.FindStringSubmatch(body); m != nil {
		v, _ := strconv.Atoi(m[1])
		inHg := float64(v) / 100
		return math.Round(inHg*physics.InHgToHPa*10) / 10, true
	}
	return 0, false
}

// ParseCeiling returns the lowest broken, overcast or vertical visibility layer in feet
func ParseCeiling(raw string) (int, bool) {
	ceiling := NoCeiling
	for _, token := range strings.Fields(raw) {
		if token == "RMK" {
			break
		}
		if m := reCeiling.FindStringSubmatch(token); m != nil {
			v, _ := strconv.Atoi(m[2])
			if v*100 < ceiling {
				ceiling = v * 100
			}
		}
	}
	return ceiling, ceiling != NoCeiling
}

// ParseVisibility returns the prevailing visibility in statute miles.
// Handles "10SM", "1/2SM", "1 1/2SM", "P6SM", metric "9999" and CAVOK.
func ParseVisibility(raw string) (float64, bool) {
	tokens := strings.Fields(raw)
	for i, token := range tokens {
		if token == "RMK" {
			break
		}
		if token == "CAVOK" {
			return 10, true
		}
		if m := reVisSM.FindStringSubmatch(token); m != nil {
			var v float64
			if m[2] != "" {
				whole, _ := strconv.Atoi(m[2])
				v = float64(whole)
			}
			if m[3] != "" {
				num, _ := strconv.Atoi(m[3])
				den, _ := strconv.Atoi(m[4])
				if den > 0 {
					v += float64(num) / float64(den)
				}
				// "1 1/2SM" carries the whole part in the previous token
				if m[2] == "" && i > 0 {
					if whole, err := strconv.Atoi(tokens[i-1]); err == nil && whole < 10 {
						v += float64(whole)
					}
				}
			}
			return v, true
		}
		// skip the station and time groups, the first bare 4-digit group after them is metric visibility
		if i >= 2 {
			if m := reVisMeters.FindStringSubmatch(token); m != nil {
				meters, _ := strconv.Atoi(m[1])
				if meters == 9999 {
					return 10, true
				}
				return math.Round(float64(meters)/1609.344*100) / 100, true
			}
		}
	}
	return 0, false
}

// FlightCategory classifies conditions with the FAA ceiling/visibility thresholds.
// Use NoCeiling when no ceiling is reported.
func FlightCategory(visibilitySM float64, ceilingFt int) string {
	switch {
	case ceilingFt < 500 || visibilitySM < 1:
		return CategoryLIFR
	case ceilingFt < 1000 || visibilitySM < 3:
		return CategoryIFR
	case ceilingFt <= 3000 || visibilitySM <= 5:
		return CategoryMVFR
	default:
		return CategoryVFR
	}
}

// CategoryRank orders flight categories from best (0) to worst (3); unknown is -1
func CategoryRank(category string) int {
	switch category {
	case CategoryVFR:
		return 0
	case CategoryMVFR:
		return 1
	case CategoryIFR:
		return 2
	case CategoryLIFR:
		return 3
	}
	return -1
}

// IsCritical reports whether a NOTAM text concerns runways or temporary flight restrictions
func IsCritical(text string) bool {
	return strings.Contains(text, "RWY") || strings.Contains(text, "TFR")
}

// DecodeMETAR turns an upstream observation into a briefing METAR.
// Raw text is authoritative; decoded API fields fill the gaps.
func DecodeMETAR(station string, resp *METARResponse) Metar {
	m := Metar{Station: station, RawText: resp.RawOb}

	if t, ok := ParseTemperature(resp.RawOb); ok {
		m.Temperature = &t
	} else if resp.Temp != nil {
		t := *resp.Temp
		m.Temperature = &t
	}

	if resp.Wspd != nil {
		dir := string(resp.Wdir)
		if dir == "" {
			dir = "VRB"
		} else if d, ok := resp.Wdir.Int(); ok {
			dir = fmt.Sprintf("%03d", d)
			m.WindDirection = &d
		}
		speed := *resp.Wspd
		m.WindSpeedKt = &speed
		wind := fmt.Sprintf("%s@%dKT", dir, *resp.Wspd)
		if resp.Wgst != nil && *resp.Wgst > 0 {
			wind = fmt.Sprintf("%s@%dG%dKT", dir, *resp.Wspd, *resp.Wgst)
		}
		m.Wind = &wind
	}

	visSM, hasVis := ParseVisibility(resp.RawOb)
	if !hasVis {
		visSM, hasVis = resp.Visib.Float()
	}
	if hasVis {
		vis := strconv.FormatFloat(visSM, 'f', -1, 64) + "SM"
		if resp.Visib != "" {
			vis = string(resp.Visib) + "SM"
		}
		m.Visibility = &vis
	}

	if resp.WxString != "" {
		wx := resp.WxString
		m.Conditions = &wx
	}

	if alt, ok := ParseAltimeter(resp.RawOb); ok {
		m.AltimeterHPa = &alt
	} else if resp.Altim != nil {
		alt := *resp.Altim
		m.AltimeterHPa = &alt
	}

	ceiling, hasCeiling := ParseCeiling(resp.RawOb)
	if !hasCeiling {
		for _, layer := range resp.Clouds {
			if layer.Base == nil {
				continue
			}
			switch layer.Cover {
			case "BKN", "OVC", "OVX", "VV":
				if *layer.Base < ceiling {
					ceiling = *layer.Base
					hasCeiling = true
				}
			}
		}
	}
	if hasCeiling {
		c := ceiling
		m.CeilingFt = &c
	}

	switch {
	case resp.FltCat != "":
		m.FlightCategory = resp.FltCat
	case hasVis:
		m.FlightCategory = FlightCategory(visSM, ceiling)
	}

	m.Thunderstorm = HasThunderstorm(resp.RawOb)
	return m
}

// DecodeTAF turns an upstream forecast into a briefing TAF
func DecodeTAF(station string, resp *TAFResponse) Taf {
	t := Taf{Station: station, RawText: resp.RawTAF}
	if resp.ValidTimeFrom > 0 && resp.ValidTimeTo > 0 {
		from := time.Unix(resp.ValidTimeFrom, 0).UTC()
		to := time.Unix(resp.ValidTimeTo, 0).UTC()
		summary := fmt.Sprintf("Valid %s to %s", from.Format("021504Z"), to.Format("021504Z"))
		if HasThunderstorm(resp.RawTAF) {
			summary += ", thunderstorms forecast"
		}
		t.Forecast = &summary
	}
	return t
}

// DecodePIREP turns an upstream pilot report into a briefing PIREP located at station
func DecodePIREP(station string, resp *PIREPResponse) Pirep {
	p := Pirep{Report: resp.RawOb}
	if p.Report == "" {
		p.Report = NotAvailable
	}
	if fl, ok := resp.FltLvl.Int(); ok {
		alt := fl * 100
		p.Altitude = &alt
	}
	loc := station
	p.Location = &loc
	return p
}

// DecodeNOTAM turns an upstream NOTAM into a briefing NOTAM
func DecodeNOTAM(station string, item NOTAMItem) Notam {
	text := item.Raw
	if text == "" {
		text = item.Text
	}
	n := Notam{
		ID:       item.ID,
		Airport:  station,
		Text:     text,
		Critical: IsCritical(text),
	}
	if n.ID == "" {
		n.ID = NotAvailable
	}
	if item.Category != "" {
		c := item.Category
		n.Category = &c
	}
	return n
}

// placeholderMETAR stands in for an observation that could not be fetched
func placeholderMETAR(station string) Metar {
	return Metar{Station: station, RawText: NotAvailable}
}
