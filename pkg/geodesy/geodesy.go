// Package geodesy provides the small set of spherical and planar geometry
// helpers used by the intercept engine.
//
// Two models coexist on purpose:
//
//   - Great-circle (haversine) distances on a spherical Earth, used for all
//     range-admissibility checks.
//   - A flat local east/north frame anchored at an origin, used for pursuit
//     geometry and constant-velocity propagation. The planar frame is only a
//     short-range approximation: accuracy degrades at long range and near
//     the poles.
package geodesy

import "math"

// Constants for coordinate calculations
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi

	// EarthRadiusM is the Earth's mean radius in metres (WGS84 mean radius)
	EarthRadiusM = 6371000.0

	// MetersPerDegreeLat is the planar-frame latitude scale. Treated as
	// constant everywhere on the sphere.
	MetersPerDegreeLat = 111320.0
)

// GreatCircleDistance calculates the great-circle distance between two
// points given in decimal degrees. Uses the haversine formula for accuracy
// over short and long distances. Returns distance in metres.
func GreatCircleDistance(latA, lonA, latB, lonB float64) float64 {
	lat1Rad := latA * DegreesToRadians
	lat2Rad := latB * DegreesToRadians

	dLat := (latB - latA) * DegreesToRadians
	dLon := (lonB - lonA) * DegreesToRadians

	// Haversine formula
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return EarthRadiusM * c
}

// Bearing calculates the initial bearing (forward azimuth) from one point to
// another along a great circle. Returns degrees in [0, 360), where 0 = North,
// 90 = East.
func Bearing(latA, lonA, latB, lonB float64) float64 {
	lat1 := latA * DegreesToRadians
	lat2 := latB * DegreesToRadians
	dLon := (lonB - lonA) * DegreesToRadians

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearing := math.Atan2(y, x) * RadiansToDegrees

	if bearing < 0 {
		bearing += 360
	}
	return bearing
}

// LocalFrame is a planar east/north approximation of the Earth's surface
// anchored at an origin point. Latitude/longitude deltas from the origin map
// linearly to north/east metres.
type LocalFrame struct {
	// OriginLat and OriginLon anchor the frame (decimal degrees).
	OriginLat float64
	OriginLon float64

	metersPerDegLat float64
	metersPerDegLon float64
}

// NewLocalFrame creates a planar frame centered at the given origin. The
// longitude scale is evaluated at the origin latitude and clamped to 1.0
// metres/degree if it would be zero (origin at a pole), to avoid division
// by zero when converting back to degrees.
func NewLocalFrame(originLat, originLon float64) LocalFrame {
	mPerDegLon := MetersPerDegreeLat * math.Cos(originLat*DegreesToRadians)
	if mPerDegLon == 0 {
		mPerDegLon = 1.0
	}
	return LocalFrame{
		OriginLat:       originLat,
		OriginLon:       originLon,
		metersPerDegLat: MetersPerDegreeLat,
		metersPerDegLon: mPerDegLon,
	}
}

// ToLocal projects a geographic position into the frame.
// Returns (east, north) in metres relative to the origin.
func (f LocalFrame) ToLocal(lat, lon float64) (east, north float64) {
	east = (lon - f.OriginLon) * f.metersPerDegLon
	north = (lat - f.OriginLat) * f.metersPerDegLat
	return east, north
}

// ToGeographic converts (east, north) metres back to latitude/longitude.
// Inverse of ToLocal.
func (f LocalFrame) ToGeographic(east, north float64) (lat, lon float64) {
	lat = f.OriginLat + north/f.metersPerDegLat
	lon = f.OriginLon + east/f.metersPerDegLon
	return lat, lon
}

// PropagatePosition advances a point dt seconds under a constant heading and
// speed using the planar frame anchored at the point itself. Heading is in
// degrees clockwise from north, speed in m/s. Returns the new position.
func PropagatePosition(lat, lon, headingDeg, speedMS, dtS float64) (newLat, newLon float64) {
	headingRad := headingDeg * DegreesToRadians
	vEast := speedMS * math.Sin(headingRad)
	vNorth := speedMS * math.Cos(headingRad)

	frame := NewLocalFrame(lat, lon)
	return frame.ToGeographic(vEast*dtS, vNorth*dtS)
}
