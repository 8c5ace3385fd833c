// Package threat classifies aerial tracks by danger level from their speed
// and altitude alone. Classification is a pure function with no state; the
// level is derived on every call and never stored.
package threat

// Level is the danger classification of a track.
type Level string

// Threat levels, least to most severe.
const (
	NotThreat       Level = "NOT_THREAT"
	Caution         Level = "CAUTION"
	PotentialThreat Level = "POTENTIAL_THREAT"
	Threat          Level = "THREAT"
)

// Classify maps a track's speed (m/s) and altitude (m) to a Level.
//
// Rule order (first match wins):
//  1. speed < 15 OR altitude < 200  -> NOT_THREAT
//  2. speed > 50                    -> THREAT
//  3. speed > 15                    -> CAUTION
//  4. otherwise                     -> POTENTIAL_THREAT
//
// Boundaries are exact: speed 15 at acceptable altitude is POTENTIAL_THREAT
// (rules 2 and 3 need strict inequality), speed 50 is CAUTION, and altitude
// exactly 200 does not trigger rule 1.
func Classify(speedMS, altitudeM float64) Level {
	if speedMS < 15 || altitudeM < 200 {
		return NotThreat
	}
	if speedMS > 50 {
		return Threat
	}
	if speedMS > 15 {
		return Caution
	}
	return PotentialThreat
}
