package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/mkalvans/skyfence/pkg/geodesy"
	"github.com/mkalvans/skyfence/pkg/intercept"
	"github.com/mkalvans/skyfence/pkg/threat"
)

const (
	siteLat = 56.5046
	siteLon = 21.0135
)

func testOfferings(ctx context.Context) ([]intercept.Offering, error) {
	return []intercept.Offering{{
		SiteID:          1,
		SiteName:        "Liepaja AFB",
		SiteLat:         siteLat,
		SiteLon:         siteLon,
		InterceptorID:   1,
		InterceptorName: "Interceptor drone",
		SpeedMS:         50,
		RangeM:          30000,
		MaxAltitudeM:    2000,
		PriceModel:      intercept.PriceFlat,
		PriceValue:      100,
	}}, nil
}

// threatTrack is 2.5 km east of the site, inbound at 60 m/s.
func threatTrack() intercept.Track {
	frame := geodesy.NewLocalFrame(siteLat, siteLon)
	lat, lon := frame.ToGeographic(2500, 0)
	return intercept.Track{
		SpeedMS:    60,
		AltitudeM:  500,
		HeadingDeg: 270,
		Latitude:   lat,
		Longitude:  lon,
	}
}

// TestRunnerBatch tests an unpaced run from start to finish.
func TestRunnerBatch(t *testing.T) {
	runner := &Runner{Offerings: testOfferings}

	var steps []Step
	err := runner.Run(context.Background(), threatTrack(), 5, func(s Step) error {
		steps = append(steps, s)
		return nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(steps) != 5 {
		t.Fatalf("Expected 5 steps, got %d", len(steps))
	}

	for i, s := range steps {
		if s.Second != i {
			t.Errorf("Expected step %d to have second %d, got %d", i, i, s.Second)
		}
		if s.Decision.Level != threat.Threat {
			t.Errorf("Expected THREAT at step %d, got %s", i, s.Decision.Level)
		}
		if !s.Decision.Assigned() {
			t.Errorf("Expected an assignment at step %d", i)
		}
		if !s.HasInterceptor {
			t.Errorf("Expected an interceptor position at step %d", i)
		}
	}

	// The threat flies west, so its longitude must shrink tick by tick.
	for i := 1; i < len(steps); i++ {
		if steps[i].Track.Longitude >= steps[i-1].Track.Longitude {
			t.Errorf("Expected track to move west between steps %d and %d", i-1, i)
		}
	}

	// The elapsed clock accrues one second per tick.
	if steps[0].Track.SecondsSinceLaunch != 0 {
		t.Errorf("Expected clock 0 at step 0, got %f", steps[0].Track.SecondsSinceLaunch)
	}
	if steps[4].Track.SecondsSinceLaunch != 4 {
		t.Errorf("Expected clock 4 at step 4, got %f", steps[4].Track.SecondsSinceLaunch)
	}

	// The first tick has no elapsed flight time, so the interceptor is
	// still at its site.
	if steps[0].InterceptorLat != siteLat || steps[0].InterceptorLon != siteLon {
		t.Errorf("Expected interceptor at site on step 0, got (%f, %f)",
			steps[0].InterceptorLat, steps[0].InterceptorLon)
	}
}

// TestRunnerErrors tests early termination paths.
func TestRunnerErrors(t *testing.T) {
	t.Run("Missing offerings source", func(t *testing.T) {
		runner := &Runner{}
		err := runner.Run(context.Background(), threatTrack(), 3, func(Step) error { return nil })
		if err == nil {
			t.Error("Expected an error without an offerings source")
		}
	})

	t.Run("Offerings error propagates", func(t *testing.T) {
		wantErr := errors.New("catalog down")
		runner := &Runner{
			Offerings: func(ctx context.Context) ([]intercept.Offering, error) {
				return nil, wantErr
			},
		}

		err := runner.Run(context.Background(), threatTrack(), 3, func(Step) error { return nil })
		if !errors.Is(err, wantErr) {
			t.Errorf("Expected wrapped catalog error, got %v", err)
		}
	})

	t.Run("Callback error stops the run", func(t *testing.T) {
		wantErr := errors.New("consumer gone")
		runner := &Runner{Offerings: testOfferings}

		calls := 0
		err := runner.Run(context.Background(), threatTrack(), 10, func(Step) error {
			calls++
			if calls == 2 {
				return wantErr
			}
			return nil
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("Expected the callback error, got %v", err)
		}
		if calls != 2 {
			t.Errorf("Expected 2 callback calls, got %d", calls)
		}
	})

	t.Run("Cancelled context stops the run", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		runner := &Runner{Offerings: testOfferings}
		err := runner.Run(ctx, threatTrack(), 3, func(Step) error { return nil })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})

	t.Run("Zero duration runs no ticks", func(t *testing.T) {
		runner := &Runner{Offerings: testOfferings}
		calls := 0
		err := runner.Run(context.Background(), threatTrack(), 0, func(Step) error {
			calls++
			return nil
		})
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
		if calls != 0 {
			t.Errorf("Expected no callback calls, got %d", calls)
		}
	})
}
