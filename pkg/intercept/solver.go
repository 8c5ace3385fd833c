package intercept

import (
	"fmt"
	"math"

	"github.com/mkalvans/skyfence/pkg/geodesy"
	"github.com/mkalvans/skyfence/pkg/threat"
)

// speedEpsilon bounds the degenerate pursuit case where target and
// interceptor speeds are effectively equal and the quadratic collapses to a
// linear equation.
const speedEpsilon = 1e-10

// Notes attached to non-assignment decisions and to assignments.
const (
	noteNoInterceptor = "No interceptor found from available bases"
	noteAssigned      = "Chosen cheapest feasible option; intercept point predicted from target heading and speeds"
)

// Solve evaluates every offering against the track and returns the decision.
//
// The solver only engages when the track classifies as THREAT; every other
// level returns a no-assignment decision naming the classification,
// independent of catalog contents. Offerings are evaluated in catalog order
// and the cheapest feasible one wins; exact cost ties keep the first-seen
// offering. Infeasible offerings are silently skipped — the only non-success
// outcome is "no interceptor found", which is a normal decision, not an
// error.
func Solve(track Track, offerings []Offering) Decision {
	level := threat.Classify(track.SpeedMS, track.AltitudeM)
	if level != threat.Threat {
		return Decision{
			Level: level,
			Note:  fmt.Sprintf("No interception: threat level %s", level),
		}
	}

	var (
		best     *Offering
		bestSol  Solution
		haveBest bool
	)

	for i := range offerings {
		off := offerings[i]

		sol := Evaluate(track, off)
		if !sol.Feasible {
			continue
		}

		// Strict less-than keeps the first-seen offering on exact ties.
		if !haveBest || sol.Cost < bestSol.Cost {
			best = &offerings[i]
			bestSol = sol
			haveBest = true
		}
	}

	if !haveBest {
		return Decision{Level: level, Note: noteNoInterceptor}
	}

	return Decision{
		Level: level,
		Note:  noteAssigned,
		Assignment: &Assignment{
			SiteName:           best.SiteName,
			InterceptorName:    best.InterceptorName,
			SiteLat:            best.SiteLat,
			SiteLon:            best.SiteLon,
			InterceptLat:       bestSol.InterceptLat,
			InterceptLon:       bestSol.InterceptLon,
			TimeToInterceptS:   bestSol.TimeToInterceptS,
			InterceptorSpeedMS: best.SpeedMS,
			Cost:               math.Round(bestSol.Cost*100) / 100,
			MapURL:             mapURL(best.SiteLat, best.SiteLon, track, bestSol),
		},
	}
}

// Evaluate checks one offering against the track: admission by altitude and
// range, constant-velocity pursuit geometry, a range re-check at the computed
// intercept point, and pricing. A non-feasible result means the offering is
// skipped, never that the call failed.
func Evaluate(track Track, off Offering) Solution {
	if track.AltitudeM > off.MaxAltitudeM {
		return Solution{}
	}

	distanceM := geodesy.GreatCircleDistance(off.SiteLat, off.SiteLon, track.Latitude, track.Longitude)
	if distanceM > off.RangeM {
		return Solution{}
	}

	if off.SpeedMS <= 0 {
		return Solution{}
	}

	t, ok := pursuitTime(track, off)
	if !ok {
		return Solution{}
	}

	// Project the target's motion forward by t to get the fixed intercept
	// point, then convert back to lat/lon through the inverse projection.
	frame := geodesy.NewLocalFrame(off.SiteLat, off.SiteLon)
	x0, y0 := frame.ToLocal(track.Latitude, track.Longitude)
	vtx, vty := velocityEastNorth(track)

	interceptLat, interceptLon := frame.ToGeographic(x0+vtx*t, y0+vty*t)

	// Re-check range at the intercept point: the planar pursuit solve drifts
	// from the spherical distance at longer legs, and the interceptor must
	// be able to reach the point, not just the track's current position.
	distanceM = geodesy.GreatCircleDistance(off.SiteLat, off.SiteLon, interceptLat, interceptLon)
	if distanceM > off.RangeM {
		return Solution{}
	}

	return Solution{
		Feasible:         true,
		InterceptLat:     interceptLat,
		InterceptLon:     interceptLon,
		TimeToInterceptS: t,
		Cost:             price(off, t),
	}
}

// pursuitTime solves the constant-velocity intercept for the time at which
// an interceptor launched from the site, free to choose any heading at fixed
// scalar speed s, meets the target:
//
//	A*t^2 + B*t + C = 0
//	A = |v_target|^2 - s^2
//	B = 2 * (r0 . v_target)
//	C = |r0|^2
//
// with r0 the target position relative to the site in the local planar
// frame. Returns the smallest strictly-positive root, or ok=false when no
// catch is possible under any heading.
func pursuitTime(track Track, off Offering) (t float64, ok bool) {
	frame := geodesy.NewLocalFrame(off.SiteLat, off.SiteLon)
	x0, y0 := frame.ToLocal(track.Latitude, track.Longitude)
	vtx, vty := velocityEastNorth(track)

	a := vtx*vtx + vty*vty - off.SpeedMS*off.SpeedMS
	b := 2 * (x0*vtx + y0*vty)
	c := x0*x0 + y0*y0

	discriminant := b*b - 4*a*c
	if discriminant < 0 {
		return 0, false
	}

	if math.Abs(a) < speedEpsilon {
		// Speeds effectively equal: the quadratic degenerates to B*t + C = 0.
		if math.Abs(b) < speedEpsilon {
			return 0, false
		}
		t = -c / b
		if t <= 0 {
			return 0, false
		}
		return t, true
	}

	sqrtD := math.Sqrt(discriminant)
	t1 := (-b - sqrtD) / (2 * a)
	t2 := (-b + sqrtD) / (2 * a)

	switch {
	case t1 > 0 && t2 > 0:
		return math.Min(t1, t2), true
	case t1 > 0:
		return t1, true
	case t2 > 0:
		return t2, true
	default:
		return 0, false
	}
}

// velocityEastNorth resolves the track's heading and speed into east/north
// components. Heading is degrees clockwise from north.
func velocityEastNorth(track Track) (vEast, vNorth float64) {
	headingRad := track.HeadingDeg * geodesy.DegreesToRadians
	vEast = track.SpeedMS * math.Sin(headingRad)
	vNorth = track.SpeedMS * math.Cos(headingRad)
	return vEast, vNorth
}

// price computes the engagement cost for an offering given the time to
// intercept. Flat and per-shot pricing use the listed price verbatim;
// per-minute pricing bills every started minute in full.
func price(off Offering, timeToInterceptS float64) float64 {
	switch off.PriceModel {
	case PricePerMinute:
		return math.Ceil(timeToInterceptS/60.0) * off.PriceValue
	default:
		// PriceFlat and PricePerShot both bill the listed value once.
		return off.PriceValue
	}
}

// mapURL builds a directions link spanning site -> track position ->
// intercept point, for map visualization of the engagement triangle.
func mapURL(siteLat, siteLon float64, track Track, sol Solution) string {
	return fmt.Sprintf(
		"https://www.google.com/maps/dir/?api=1&origin=%v,%v&waypoints=%v,%v&destination=%v,%v",
		siteLat, siteLon,
		track.Latitude, track.Longitude,
		sol.InterceptLat, sol.InterceptLon,
	)
}
