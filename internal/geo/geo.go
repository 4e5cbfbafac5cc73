package geo

import (
	"math"
)

const (
	EarthRadiusM  = 6371000.0
	EarthRadiusNM = 3440.065 // 6371 km / 1.852 km/nm
	MetersPerNM   = 1852.0
	FeetPerMeter  = 3.28084
)

// Point is a geographic position in decimal degrees
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RoutePoint is a position along a route with an altitude in feet
type RoutePoint struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Altitude int     `json:"altitude"`
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// Haversine returns the great-circle distance between two points in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// MetersToNM converts meters to nautical miles
func MetersToNM(m float64) float64 {
	return m / MetersPerNM
}

// DistanceNM returns the great-circle distance between two points in nautical miles
func DistanceNM(a, b Point) float64 {
	return MetersToNM(Haversine(a.Lat, a.Lon, b.Lat, b.Lon))
}

// Bearing calculates the initial true bearing from a to b, normalised to 0-360
func Bearing(a, b Point) float64 {
	lat1, lon1 := toRad(a.Lat), toRad(a.Lon)
	lat2, lon2 := toRad(b.Lat), toRad(b.Lon)

	y := math.Sin(lon2-lon1) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1)
	bearing := toDeg(math.Atan2(y, x))

	return math.Mod(math.Mod(bearing, 360)+360, 360)
}

// DestinationPoint returns the point reached from p after distanceNM on the given true bearing
func DestinationPoint(p Point, bearing, distanceNM float64) Point {
	lat := toRad(p.Lat)
	lon := toRad(p.Lon)
	brg := toRad(bearing)

	distRatio := distanceNM / EarthRadiusNM
	lat2 := math.Asin(math.Sin(lat)*math.Cos(distRatio) + math.Cos(lat)*math.Sin(distRatio)*math.Cos(brg))
	lon2 := lon + math.Atan2(
		math.Sin(brg)*math.Sin(distRatio)*math.Cos(lat),
		math.Cos(distRatio)-math.Sin(lat)*math.Sin(lat2),
	)

	return Point{Lat: toDeg(lat2), Lon: normalizeLon(toDeg(lon2))}
}

func normalizeLon(lon float64) float64 {
	lon = math.Mod(lon+540, 360) - 180
	if lon == -180 {
		return 180
	}
	return lon
}

// Intermediate returns the point at fraction f (0..1) along the great circle from a to b
func Intermediate(a, b Point, f float64) Point {
	lat1, lon1 := toRad(a.Lat), toRad(a.Lon)
	lat2, lon2 := toRad(b.Lat), toRad(b.Lon)

	d := Haversine(a.Lat, a.Lon, b.Lat, b.Lon) / EarthRadiusM
	if d == 0 {
		return a
	}

	sinD := math.Sin(d)
	ca := math.Sin((1-f)*d) / sinD
	cb := math.Sin(f*d) / sinD

	x := ca*math.Cos(lat1)*math.Cos(lon1) + cb*math.Cos(lat2)*math.Cos(lon2)
	y := ca*math.Cos(lat1)*math.Sin(lon1) + cb*math.Cos(lat2)*math.Sin(lon2)
	z := ca*math.Sin(lat1) + cb*math.Sin(lat2)

	return Point{
		Lat: toDeg(math.Atan2(z, math.Sqrt(x*x+y*y))),
		Lon: toDeg(math.Atan2(y, x)),
	}
}

// GreatCircleRoute builds a polyline through the given airports following great circles.
// Each leg is split so consecutive points are at most spacingNM apart. The first and last
// points sit on the ground, everything in between is at cruiseFt.
func GreatCircleRoute(stops []Point, spacingNM float64, cruiseFt int) []RoutePoint {
	if len(stops) == 0 {
		return nil
	}
	if spacingNM <= 0 {
		spacingNM = 100
	}

	route := []RoutePoint{{Lat: stops[0].Lat, Lon: stops[0].Lon}}
	for i := 1; i < len(stops); i++ {
		a, b := stops[i-1], stops[i]
		segments := int(math.Ceil(DistanceNM(a, b) / spacingNM))
		if segments < 1 {
			segments = 1
		}
		for s := 1; s <= segments; s++ {
			p := b
			if s < segments {
				p = Intermediate(a, b, float64(s)/float64(segments))
			}
			route = append(route, RoutePoint{Lat: p.Lat, Lon: p.Lon, Altitude: cruiseFt})
		}
	}
	route[len(route)-1].Altitude = 0
	return route
}

// CirclePolygon returns a closed ring approximating a circle of radiusNM around the centre.
// The ring has segments vertices plus the first vertex repeated at the end.
// Zero values fall back to a 10 NM radius and 36 segments.
func CirclePolygon(center Point, radiusNM float64, segments int) []Point {
	if radiusNM <= 0 {
		radiusNM = 10
	}
	if segments <= 0 {
		segments = 36
	} else if segments < 8 {
		segments = 8
	}
	ring := make([]Point, 0, segments+1)
	for i := 0; i < segments; i++ {
		bearing := float64(i) * 360 / float64(segments)
		ring = append(ring, DestinationPoint(center, bearing, radiusNM))
	}
	return append(ring, ring[0])
}

// RouteLengthNM sums the great-circle distance along the stops
func RouteLengthNM(stops []Point) float64 {
	var total float64
	for i := 1; i < len(stops); i++ {
		total += DistanceNM(stops[i-1], stops[i])
	}
	return total
}
