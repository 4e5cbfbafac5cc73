package physics

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// Constants
const (
	T0          = 288.15  // Standard Sea Level Temperature (K)
	P0          = 1013.25 // Standard Sea Level Pressure (hPa)
	L           = 0.0065  // Temperature Lapse Rate (K/m) in Troposphere
	ZeroCelsius = 273.15  // 0°C in Kelvin
	FeetToM     = 0.3048
	InHgToHPa   = 33.8639

	TropopauseAltFt   = 36089.2 // ISA tropopause
	StratosphereTempK = 216.65  // Constant temperature above the tropopause
)

// ISATemperature returns the standard atmosphere temperature (Celsius) at a pressure altitude
func ISATemperature(pressureAltFt float64) float64 {
	isaTempK := T0 - (L * (pressureAltFt * FeetToM))
	if pressureAltFt > TropopauseAltFt {
		isaTempK = StratosphereTempK
	}
	return isaTempK - ZeroCelsius
}

// PressureAltitude returns pressure altitude in feet from field elevation and altimeter setting (hPa)
func PressureAltitude(elevationFt float64, altimeterHPa float64) float64 {
	if altimeterHPa <= 0 {
		return elevationFt
	}
	// ~27 ft per hPa near sea level
	return elevationFt + (P0-altimeterHPa)*27
}

// CalculateDensityAltitude returns density altitude in feet
func CalculateDensityAltitude(pressureAltFt float64, tempCelsius float64) float64 {
	// DA = PA + 120 * (OAT - ISA_Temp)
	return pressureAltFt + 120*(tempCelsius-ISATemperature(pressureAltFt))
}

// WindComponents splits a wind (direction it blows FROM, speed) into the headwind and
// crosswind felt on a course. Positive headwind opposes the aircraft, negative is a tailwind.
// Positive crosswind comes from the right.
func WindComponents(courseDeg, windFromDeg, windSpeed float64) (headwind, crosswind float64) {
	angle := (windFromDeg - courseDeg) * math.Pi / 180
	return windSpeed * math.Cos(angle), windSpeed * math.Sin(angle)
}

// CalculateMagneticVariation calculates the magnetic declination for a given position and time
// Returns declination in degrees (+East, -West)
func CalculateMagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	altM := altFt * FeetToM

	loc := egm96.NewLocationGeodetic(lat, lon, altM)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		// Return 0 for safety if calculation fails
		return 0.0
	}

	return mag.D() // Declination
}

// MagneticCourse converts a true course to magnetic using the local variation
func MagneticCourse(trueCourse, variation float64) float64 {
	mc := math.Mod(trueCourse-variation, 360)
	if mc < 0 {
		mc += 360
	}
	return mc
}
