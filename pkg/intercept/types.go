// Package intercept contains the air-defence decision core: given a
// classified track and a snapshot of (site, interceptor) offerings it solves
// constant-velocity pursuit geometry, prices every feasible option and picks
// the cheapest, then reports the interceptor's position along its fixed path.
//
// Everything here is pure and stateless. Decisions are recomputed from
// scratch on every call, so any number of evaluations may run in parallel.
package intercept

import "github.com/mkalvans/skyfence/pkg/threat"

// Track is a snapshot of the moving entity under evaluation. It is immutable
// during one evaluation; callers advance it tick-by-tick with PropagateTrack.
type Track struct {
	// SpeedMS is the track's ground speed in m/s (>= 0).
	SpeedMS float64

	// AltitudeM is the track's altitude in metres.
	AltitudeM float64

	// HeadingDeg is the track's heading in degrees clockwise from north.
	HeadingDeg float64

	// Latitude and Longitude are the current position in decimal degrees.
	Latitude  float64
	Longitude float64

	// SecondsSinceLaunch is the time elapsed since the interceptor was
	// launched (>= 0). It only affects the reported interceptor position,
	// never the intercept point.
	SecondsSinceLaunch float64
}

// PriceModel selects how an offering is billed.
type PriceModel string

// Supported pricing models.
const (
	// PriceFlat bills the listed price once, regardless of engagement time.
	PriceFlat PriceModel = "flat"

	// PricePerMinute bills the listed rate per started minute of flight
	// time to the intercept point. Any fractional minute bills as a full
	// minute.
	PricePerMinute PriceModel = "per_minute"

	// PricePerShot bills the listed price per engagement.
	PricePerShot PriceModel = "per_shot"
)

// Offering is one (site, interceptor type) pair from the reference catalog.
// The catalog is externally owned and read-only from the core's perspective;
// Solve receives a flattened snapshot per call.
type Offering struct {
	SiteID   int
	SiteName string
	SiteLat  float64
	SiteLon  float64

	InterceptorID   int
	InterceptorName string

	// SpeedMS is the interceptor's scalar speed in m/s (> 0; non-positive
	// values are silently skipped).
	SpeedMS float64

	// RangeM is the interceptor's maximum engagement range in metres,
	// measured great-circle from the site.
	RangeM float64

	// MaxAltitudeM is the highest track altitude the interceptor can engage.
	MaxAltitudeM float64

	PriceModel PriceModel
	PriceValue float64
}

// Solution is the per-offering evaluation result: where and when one
// interceptor would meet the track, and at what cost. Ephemeral; only the
// winning solution survives into the Decision.
type Solution struct {
	Feasible         bool
	InterceptLat     float64
	InterceptLon     float64
	TimeToInterceptS float64
	Cost             float64
}

// Assignment carries the chosen offering and its engagement geometry. It is
// present on a Decision only when the track classified as THREAT and at
// least one offering was feasible.
type Assignment struct {
	SiteName        string
	InterceptorName string

	SiteLat float64
	SiteLon float64

	// InterceptLat/InterceptLon locate the fixed intercept point. Once
	// computed for a track snapshot the point never moves; only the
	// reported interceptor position advances toward it.
	InterceptLat float64
	InterceptLon float64

	TimeToInterceptS float64

	// InterceptorSpeedMS is retained so the position tracker can place the
	// interceptor along the site -> intercept leg.
	InterceptorSpeedMS float64

	// Cost in EUR, rounded to 2 decimals.
	Cost float64

	// MapURL references a map visualization spanning
	// site -> track position -> intercept point.
	MapURL string
}

// Decision is the final, fully stateless output of one Solve call. Either
// Assignment is nil (track below THREAT, or no feasible offering) and Note
// says why, or Assignment holds the chosen engagement.
type Decision struct {
	Level      threat.Level
	Note       string
	Assignment *Assignment
}

// Assigned reports whether the decision carries an engagement.
func (d Decision) Assigned() bool {
	return d.Assignment != nil
}
