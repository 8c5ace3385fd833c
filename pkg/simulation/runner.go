// Package simulation drives the intercept core the way a radar feed would:
// once per tick it re-evaluates the track against a fresh catalog snapshot,
// then moves the track forward. The core itself has no timer or cancellation
// concept — all scheduling lives here, and stopping early is the caller's
// context.
package simulation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/mkalvans/skyfence/pkg/intercept"
)

// OfferingsFunc supplies one read-only catalog snapshot per solve call.
type OfferingsFunc func(ctx context.Context) ([]intercept.Offering, error)

// Step is one tick of a simulation: the track as evaluated, the decision it
// produced, and (when assigned) the interceptor's position at that instant.
type Step struct {
	Second   int
	Track    intercept.Track
	Decision intercept.Decision

	// InterceptorLat/InterceptorLon are valid only when the decision
	// carries an assignment.
	InterceptorLat float64
	InterceptorLon float64
	HasInterceptor bool
}

// StepFunc consumes simulation steps. Returning an error stops the run.
type StepFunc func(Step) error

// Runner repeatedly evaluates a simulated track against the catalog.
type Runner struct {
	// Offerings supplies the catalog snapshot for each tick. Required.
	Offerings OfferingsFunc

	// Interval is the real-time pacing between ticks. Zero runs all ticks
	// back-to-back (batch mode, used by the request/response transport).
	Interval time.Duration
}

// Run advances the track one second per tick for the given duration, calling
// fn with every step. Each tick performs classify -> solve -> propagate
// against a fresh catalog snapshot; the decision is recomputed from scratch
// so the intercept point may drift between ticks as the track moves.
func (r *Runner) Run(ctx context.Context, track intercept.Track, durationS int, fn StepFunc) error {
	if r.Offerings == nil {
		return fmt.Errorf("simulation: no offerings source configured")
	}

	var limiter *rate.Limiter
	if r.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(r.Interval), 1)
	}

	for second := 0; second < durationS; second++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("simulation cancelled: %w", err)
			}
		} else if err := ctx.Err(); err != nil {
			return fmt.Errorf("simulation cancelled: %w", err)
		}

		offerings, err := r.Offerings(ctx)
		if err != nil {
			return fmt.Errorf("load offerings: %w", err)
		}

		decision := intercept.Solve(track, offerings)

		step := Step{
			Second:   second,
			Track:    track,
			Decision: decision,
		}
		if lat, lon, ok := intercept.CurrentPosition(decision, track.SecondsSinceLaunch); ok {
			step.InterceptorLat = lat
			step.InterceptorLon = lon
			step.HasInterceptor = true
		}

		if err := fn(step); err != nil {
			return err
		}

		track = intercept.PropagateTrack(track, 1.0)
	}

	return nil
}
