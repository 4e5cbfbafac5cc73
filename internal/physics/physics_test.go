package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestISATemperature(t *testing.T) {
	assert.InDelta(t, 15, ISATemperature(0), 0.01)
	assert.InDelta(t, -56.5, ISATemperature(40000), 0.01)
}

func TestDensityAltitude(t *testing.T) {
	// Standard day at sea level
	assert.InDelta(t, 0, CalculateDensityAltitude(0, 15), 0.5)
	// Hot day raises density altitude
	assert.InDelta(t, 1800, CalculateDensityAltitude(0, 30), 1)
	// Denver on a hot day
	assert.Greater(t, CalculateDensityAltitude(5434, 35), 8000.0)
}

func TestPressureAltitude(t *testing.T) {
	assert.InDelta(t, 1000, PressureAltitude(1000, 1013.25), 0.01)
	assert.InDelta(t, 1270, PressureAltitude(1000, 1003.25), 0.01)
	assert.InDelta(t, 500, PressureAltitude(500, 0), 0.01)
}

func TestWindComponents(t *testing.T) {
	head, cross := WindComponents(90, 90, 20)
	assert.InDelta(t, 20, head, 1e-9)
	assert.InDelta(t, 0, cross, 1e-9)

	head, cross = WindComponents(90, 270, 20)
	assert.InDelta(t, -20, head, 1e-9)
	assert.InDelta(t, 0, cross, 1e-9)

	head, cross = WindComponents(0, 90, 10)
	assert.InDelta(t, 0, head, 1e-9)
	assert.InDelta(t, 10, cross, 1e-9)
}

func TestMagneticCourse(t *testing.T) {
	assert.InDelta(t, 100, MagneticCourse(90, -10), 1e-9)
	assert.InDelta(t, 355, MagneticCourse(5, 10), 1e-9)
}
