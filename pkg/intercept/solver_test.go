package intercept

import (
	"math"
	"strings"
	"testing"

	"github.com/mkalvans/skyfence/pkg/geodesy"
	"github.com/mkalvans/skyfence/pkg/threat"
)

const (
	testSiteLat = 56.5046
	testSiteLon = 21.0135
)

// trackAt places a track at (east, north) metres from the test site.
func trackAt(east, north, speedMS, altitudeM, headingDeg float64) Track {
	frame := geodesy.NewLocalFrame(testSiteLat, testSiteLon)
	lat, lon := frame.ToGeographic(east, north)
	return Track{
		SpeedMS:    speedMS,
		AltitudeM:  altitudeM,
		HeadingDeg: headingDeg,
		Latitude:   lat,
		Longitude:  lon,
	}
}

func droneOffering() Offering {
	return Offering{
		SiteID:          1,
		SiteName:        "Liepaja AFB",
		SiteLat:         testSiteLat,
		SiteLon:         testSiteLon,
		InterceptorID:   1,
		InterceptorName: "Interceptor drone",
		SpeedMS:         50,
		RangeM:          30000,
		MaxAltitudeM:    2000,
		PriceModel:      PriceFlat,
		PriceValue:      100,
	}
}

// TestSolveClassificationGate tests that only THREAT tracks engage the solver.
func TestSolveClassificationGate(t *testing.T) {
	offerings := []Offering{droneOffering()}

	tests := []struct {
		name     string
		track    Track
		level    threat.Level
		wantNote string
	}{
		{
			"Caution track is never engaged",
			trackAt(2500, 0, 30, 500, 270),
			threat.Caution,
			"No interception: threat level CAUTION",
		},
		{
			"Slow track is not a threat",
			trackAt(2500, 0, 10, 500, 270),
			threat.NotThreat,
			"No interception: threat level NOT_THREAT",
		},
		{
			"Low track is not a threat",
			trackAt(2500, 0, 100, 150, 270),
			threat.NotThreat,
			"No interception: threat level NOT_THREAT",
		},
		{
			"Borderline speed is potential",
			trackAt(2500, 0, 15, 500, 270),
			threat.PotentialThreat,
			"No interception: threat level POTENTIAL_THREAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Solve(tt.track, offerings)
			if d.Level != tt.level {
				t.Errorf("Expected level %s, got %s", tt.level, d.Level)
			}
			if d.Assigned() {
				t.Error("Expected no assignment for non-THREAT track")
			}
			if d.Note != tt.wantNote {
				t.Errorf("Expected note %q, got %q", tt.wantNote, d.Note)
			}
		})
	}
}

// TestSolveHeadOnPursuit tests the canonical head-on engagement geometry.
func TestSolveHeadOnPursuit(t *testing.T) {
	// Track 2.5 km due east of the site, flying west toward it at 60 m/s.
	// Quadratic: A = 60^2 - 50^2 = 1100, B = -300000, C = 6.25e6.
	// Discriminant 6.25e10, roots 250/11 and 250; the earlier catch wins.
	track := trackAt(2500, 0, 60, 500, 270)
	expectedT := 250.0 / 11.0

	d := Solve(track, []Offering{droneOffering()})

	if d.Level != threat.Threat {
		t.Fatalf("Expected THREAT, got %s", d.Level)
	}
	if !d.Assigned() {
		t.Fatal("Expected an assignment")
	}

	a := d.Assignment
	if a.SiteName != "Liepaja AFB" {
		t.Errorf("Expected site Liepaja AFB, got %s", a.SiteName)
	}
	if a.InterceptorName != "Interceptor drone" {
		t.Errorf("Expected Interceptor drone, got %s", a.InterceptorName)
	}
	if math.Abs(a.TimeToInterceptS-expectedT) > 1e-6 {
		t.Errorf("Expected time to intercept %f, got %f", expectedT, a.TimeToInterceptS)
	}
	if a.Cost != 100 {
		t.Errorf("Expected flat cost 100, got %f", a.Cost)
	}
	if a.InterceptorSpeedMS != 50 {
		t.Errorf("Expected interceptor speed 50, got %f", a.InterceptorSpeedMS)
	}

	// The target covers 60 * 250/11 m westward, meeting the interceptor
	// 12500/11 m east of the site.
	frame := geodesy.NewLocalFrame(testSiteLat, testSiteLon)
	wantLat, wantLon := frame.ToGeographic(12500.0/11.0, 0)
	if math.Abs(a.InterceptLat-wantLat) > 1e-6 || math.Abs(a.InterceptLon-wantLon) > 1e-6 {
		t.Errorf("Expected intercept point (%f, %f), got (%f, %f)",
			wantLat, wantLon, a.InterceptLat, a.InterceptLon)
	}

	if !strings.HasPrefix(a.MapURL, "https://www.google.com/maps/dir/") {
		t.Errorf("Expected a maps directions URL, got %s", a.MapURL)
	}
	if d.Note != "Chosen cheapest feasible option; intercept point predicted from target heading and speeds" {
		t.Errorf("Unexpected note: %q", d.Note)
	}
}

// TestSolveAdmissionChecks tests altitude and range gating.
func TestSolveAdmissionChecks(t *testing.T) {
	t.Run("Track above interceptor ceiling is skipped", func(t *testing.T) {
		track := trackAt(2500, 0, 60, 3000, 270)
		d := Solve(track, []Offering{droneOffering()})
		if d.Assigned() {
			t.Error("Expected no assignment above the ceiling")
		}
		if d.Note != "No interceptor found from available bases" {
			t.Errorf("Unexpected note: %q", d.Note)
		}
	})

	t.Run("Track outside range is skipped", func(t *testing.T) {
		track := trackAt(40000, 0, 60, 500, 270)
		d := Solve(track, []Offering{droneOffering()})
		if d.Assigned() {
			t.Error("Expected no assignment out of range")
		}
		if d.Level != threat.Threat {
			t.Errorf("Expected level THREAT even without options, got %s", d.Level)
		}
	})

	t.Run("Non-positive interceptor speed is skipped", func(t *testing.T) {
		off := droneOffering()
		off.SpeedMS = 0
		d := Solve(trackAt(2500, 0, 60, 500, 270), []Offering{off})
		if d.Assigned() {
			t.Error("Expected no assignment for zero-speed interceptor")
		}
	})

	t.Run("Empty catalog finds nothing", func(t *testing.T) {
		d := Solve(trackAt(2500, 0, 60, 500, 270), nil)
		if d.Assigned() {
			t.Error("Expected no assignment with empty catalog")
		}
		if d.Note != "No interceptor found from available bases" {
			t.Errorf("Unexpected note: %q", d.Note)
		}
	})
}

// TestSolvePursuitGeometry tests the quadratic's edge cases.
func TestSolvePursuitGeometry(t *testing.T) {
	t.Run("Faster target crossing abeam escapes", func(t *testing.T) {
		// Target north of the site flying due east, faster than the
		// interceptor: no heading can close the distance.
		track := trackAt(0, 2500, 60, 500, 90)
		d := Solve(track, []Offering{droneOffering()})
		if d.Assigned() {
			t.Error("Expected no catch for a faster crossing target")
		}
	})

	t.Run("Faster target flying directly away escapes", func(t *testing.T) {
		// Both roots of the quadratic are negative.
		track := trackAt(2500, 0, 60, 500, 90)
		d := Solve(track, []Offering{droneOffering()})
		if d.Assigned() {
			t.Error("Expected no catch for a receding faster target")
		}
	})

	t.Run("Equal speeds head-on still catch", func(t *testing.T) {
		// Speeds match so the quadratic degenerates toward linear:
		// closure at 2 * 50 m/s over 2500 m meets after 25 s at the midpoint.
		track := trackAt(2500, 0, 50, 500, 270)
		d := Solve(track, []Offering{droneOffering()})
		if !d.Assigned() {
			t.Fatal("Expected an assignment for head-on equal speeds")
		}
		if math.Abs(d.Assignment.TimeToInterceptS-25) > 1e-3 {
			t.Errorf("Expected ~25 s, got %f", d.Assignment.TimeToInterceptS)
		}
	})

	t.Run("Equal speeds crossing abeam escape", func(t *testing.T) {
		// Degenerate linear case with B ~ 0: no positive solution.
		track := trackAt(0, 2500, 50, 500, 90)
		d := Solve(track, []Offering{droneOffering()})
		if d.Assigned() {
			t.Error("Expected no catch for equal-speed crossing target")
		}
	})

	t.Run("Stationary target is met at its position", func(t *testing.T) {
		track := trackAt(2500, 0, 60, 500, 270)
		// Make the target hover by zeroing speed... a zero-speed track is
		// NOT_THREAT, so exercise Evaluate directly.
		still := track
		still.SpeedMS = 0

		sol := Evaluate(still, droneOffering())
		if !sol.Feasible {
			t.Fatal("Expected a feasible solution for a stationary target")
		}
		if math.Abs(sol.TimeToInterceptS-50) > 1e-6 {
			t.Errorf("Expected 2500/50 = 50 s, got %f", sol.TimeToInterceptS)
		}
	})
}

// TestSolveCostSelection tests cheapest-wins and tie-breaking.
func TestSolveCostSelection(t *testing.T) {
	track := trackAt(2500, 0, 60, 500, 270)

	t.Run("Cheapest feasible offering wins", func(t *testing.T) {
		expensive := droneOffering()
		expensive.SiteName = "Expensive"
		expensive.PriceValue = 1000

		cheap := droneOffering()
		cheap.SiteName = "Cheap"
		cheap.PriceValue = 100

		d := Solve(track, []Offering{expensive, cheap})
		if !d.Assigned() {
			t.Fatal("Expected an assignment")
		}
		if d.Assignment.SiteName != "Cheap" {
			t.Errorf("Expected Cheap to win, got %s", d.Assignment.SiteName)
		}
		if d.Assignment.Cost != 100 {
			t.Errorf("Expected cost 100, got %f", d.Assignment.Cost)
		}
	})

	t.Run("Exact cost tie keeps the first-seen offering", func(t *testing.T) {
		first := droneOffering()
		first.SiteName = "First"
		second := droneOffering()
		second.SiteName = "Second"

		d := Solve(track, []Offering{first, second})
		if !d.Assigned() {
			t.Fatal("Expected an assignment")
		}
		if d.Assignment.SiteName != "First" {
			t.Errorf("Expected First to win the tie, got %s", d.Assignment.SiteName)
		}
	})

	t.Run("Infeasible cheap offering loses to feasible expensive one", func(t *testing.T) {
		cheapButHigh := droneOffering()
		cheapButHigh.SiteName = "Cheap"
		cheapButHigh.MaxAltitudeM = 100
		cheapButHigh.PriceValue = 1

		feasible := droneOffering()
		feasible.SiteName = "Feasible"
		feasible.PriceValue = 500

		d := Solve(track, []Offering{cheapButHigh, feasible})
		if !d.Assigned() {
			t.Fatal("Expected an assignment")
		}
		if d.Assignment.SiteName != "Feasible" {
			t.Errorf("Expected Feasible to win, got %s", d.Assignment.SiteName)
		}
	})
}

// TestPerMinutePricing tests that started minutes bill in full.
func TestPerMinutePricing(t *testing.T) {
	jet := func() Offering {
		return Offering{
			SiteName:        "Riga AFB",
			SiteLat:         testSiteLat,
			SiteLon:         testSiteLon,
			InterceptorName: "Fighter jet",
			SpeedMS:         100,
			RangeM:          15000,
			MaxAltitudeM:    20000,
			PriceModel:      PricePerMinute,
			PriceValue:      200,
		}
	}

	t.Run("Sub-minute intercept bills one minute", func(t *testing.T) {
		// A = 3600 - 10000 = -6400, B = -300000, C = 6.25e6: t = 15.625 s.
		track := trackAt(2500, 0, 60, 500, 270)
		d := Solve(track, []Offering{jet()})
		if !d.Assigned() {
			t.Fatal("Expected an assignment")
		}
		if math.Abs(d.Assignment.TimeToInterceptS-15.625) > 1e-6 {
			t.Errorf("Expected 15.625 s, got %f", d.Assignment.TimeToInterceptS)
		}
		if d.Assignment.Cost != 200 {
			t.Errorf("Expected one started minute = 200, got %f", d.Assignment.Cost)
		}
	})

	t.Run("Just over a minute bills two minutes", func(t *testing.T) {
		// From 10 km out the same geometry gives t = 62.5 s.
		track := trackAt(10000, 0, 60, 500, 270)
		d := Solve(track, []Offering{jet()})
		if !d.Assigned() {
			t.Fatal("Expected an assignment")
		}
		if math.Abs(d.Assignment.TimeToInterceptS-62.5) > 1e-6 {
			t.Errorf("Expected 62.5 s, got %f", d.Assignment.TimeToInterceptS)
		}
		if d.Assignment.Cost != 400 {
			t.Errorf("Expected two started minutes = 400, got %f", d.Assignment.Cost)
		}
	})

	t.Run("Per-shot bills the listed value once", func(t *testing.T) {
		off := droneOffering()
		off.PriceModel = PricePerShot
		off.PriceValue = 10

		d := Solve(trackAt(2500, 0, 60, 500, 270), []Offering{off})
		if !d.Assigned() {
			t.Fatal("Expected an assignment")
		}
		if d.Assignment.Cost != 10 {
			t.Errorf("Expected per-shot cost 10, got %f", d.Assignment.Cost)
		}
	})
}

// TestEvaluateInterceptRangeRecheck tests that the intercept point itself must
// be within range, not just the track's current position.
func TestEvaluateInterceptRangeRecheck(t *testing.T) {
	// Target inside range but fleeing: the tail chase catches it well
	// outside the interceptor's reach.
	off := droneOffering()
	off.SpeedMS = 55
	off.RangeM = 3000

	// t = 2500 / (55 - 50) = 500 s, catch point 27.5 km out.
	track := trackAt(2500, 0, 50, 500, 90)

	sol := Evaluate(track, off)
	if sol.Feasible {
		t.Error("Expected tail chase ending out of range to be infeasible")
	}
}
