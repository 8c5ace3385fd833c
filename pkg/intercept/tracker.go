package intercept

import (
	"math"

	"github.com/mkalvans/skyfence/pkg/geodesy"
)

// CurrentPosition reports where the interceptor of an assigned decision is
// after elapsedS seconds of flight, along the straight leg from its site to
// the fixed intercept point.
//
// Stateless and idempotent: identical elapsed times always yield identical
// positions; advancing the clock is entirely the caller's responsibility.
// Before launch (elapsedS <= 0) the interceptor sits at the site; once the
// travelled distance covers the whole leg it stays pinned at the intercept
// point. ok is false when the decision carries no assignment.
func CurrentPosition(d Decision, elapsedS float64) (lat, lon float64, ok bool) {
	a := d.Assignment
	if a == nil {
		return 0, 0, false
	}

	if elapsedS <= 0 {
		return a.SiteLat, a.SiteLon, true
	}

	totalLegM := geodesy.GreatCircleDistance(a.SiteLat, a.SiteLon, a.InterceptLat, a.InterceptLon)
	traveledM := a.InterceptorSpeedMS * elapsedS

	if traveledM >= totalLegM {
		return a.InterceptLat, a.InterceptLon, true
	}

	// Bearing from site to intercept point in the site-local frame, then
	// advance the travelled distance along it.
	frame := geodesy.NewLocalFrame(a.SiteLat, a.SiteLon)
	east, north := frame.ToLocal(a.InterceptLat, a.InterceptLon)
	bearingRad := math.Atan2(east, north)

	lat, lon = frame.ToGeographic(
		math.Sin(bearingRad)*traveledM,
		math.Cos(bearingRad)*traveledM,
	)
	return lat, lon, true
}

// PropagateTrack advances a track dt seconds under its constant heading and
// speed, and accrues the elapsed-since-launch clock by the same amount.
// The input track is unchanged.
func PropagateTrack(track Track, dtS float64) Track {
	track.Latitude, track.Longitude = geodesy.PropagatePosition(
		track.Latitude, track.Longitude, track.HeadingDeg, track.SpeedMS, dtS,
	)
	track.SecondsSinceLaunch += dtS
	return track
}
