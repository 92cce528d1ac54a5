package commute

import (
	"context"
	"log/slog"
	"time"
)

// Solver defaults. The offset seeds the first guess below the arrival
// target; iteration stops once successive guesses agree within the
// tolerance, or unconditionally after the iteration cap.
const (
	DefaultInitialOffset = 10 * time.Minute
	DefaultTolerance     = time.Minute
	DefaultMaxIterations = 8
)

// Estimator turns a commute plan into a departure-time recommendation.
type Estimator struct {
	routes        RouteClient
	logger        *slog.Logger
	initialOffset time.Duration
	tolerance     time.Duration
	maxIterations int
}

// EstimatorOption configures the estimator.
type EstimatorOption func(*Estimator)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EstimatorOption {
	return func(e *Estimator) {
		e.logger = logger
	}
}

// WithSolverBounds overrides the fixed-point solver parameters.
func WithSolverBounds(offset, tolerance time.Duration, maxIterations int) EstimatorOption {
	return func(e *Estimator) {
		e.initialOffset = offset
		e.tolerance = tolerance
		e.maxIterations = maxIterations
	}
}

// NewEstimator creates an estimator backed by the given routing client.
func NewEstimator(routes RouteClient, opts ...EstimatorOption) *Estimator {
	e := &Estimator{
		routes:        routes,
		logger:        slog.Default(),
		initialOffset: DefaultInitialOffset,
		tolerance:     DefaultTolerance,
		maxIterations: DefaultMaxIterations,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Estimate computes a CommuteEstimate for the plan. Departure plans and
// transit arrival plans need a single routing call; all other arrival
// plans are solved iteratively because their duration depends on the
// departure time under search.
func (e *Estimator) Estimate(ctx context.Context, plan Plan) (*Estimate, error) {
	switch {
	case plan.TimeType == TimeTypeDeparture:
		return e.estimateDeparture(ctx, plan)
	case plan.Mode == ModeTransit:
		return e.estimateTransitArrival(ctx, plan)
	default:
		return e.solveArrival(ctx, plan)
	}
}

// estimateDeparture answers a fixed-departure plan with one call.
func (e *Estimator) estimateDeparture(ctx context.Context, plan Plan) (*Estimate, error) {
	route, err := e.routes.Route(ctx, RouteQuery{
		Origin:        plan.Origin,
		Destination:   plan.Destination,
		Mode:          plan.Mode,
		DepartureTime: plan.Target,
	})
	if err != nil {
		return nil, err
	}

	duration, text := pickDuration(plan.Mode, route)

	return &Estimate{
		Duration:     duration,
		DurationText: text,
		DistanceText: route.DistanceText,
		Departure:    plan.Target,
		Arrival:      plan.Target.Add(duration),
	}, nil
}

// estimateTransitArrival leans on the routing service's native arrival-time
// support: it resolves the implied departure itself.
func (e *Estimator) estimateTransitArrival(ctx context.Context, plan Plan) (*Estimate, error) {
	route, err := e.routes.Route(ctx, RouteQuery{
		Origin:      plan.Origin,
		Destination: plan.Destination,
		Mode:        plan.Mode,
		ArrivalTime: plan.Target,
	})
	if err != nil {
		return nil, err
	}

	return &Estimate{
		Duration:     route.Duration,
		DurationText: route.DurationText,
		DistanceText: route.DistanceText,
		Departure:    plan.Target.Add(-route.Duration),
		Arrival:      plan.Target,
	}, nil
}

// solveArrival searches for a departure time consistent with the arrival
// target when the duration itself varies with departure time. The search is
// a damped fixed-point iteration: guess a departure, ask for the duration at
// that departure, and move the guess to arrival minus that duration until
// two successive guesses agree within the tolerance. If the cap is reached
// first, the last guess is reported as a best-effort answer rather than an
// error.
func (e *Estimator) solveArrival(ctx context.Context, plan Plan) (*Estimate, error) {
	guess := plan.Target.Add(-e.initialOffset)

	var (
		duration time.Duration
		text     string
		distance string
	)

	for i := 0; i < e.maxIterations; i++ {
		route, err := e.routes.Route(ctx, RouteQuery{
			Origin:        plan.Origin,
			Destination:   plan.Destination,
			Mode:          plan.Mode,
			DepartureTime: guess,
		})
		if err != nil {
			return nil, err
		}

		duration, text = pickDuration(plan.Mode, route)
		distance = route.DistanceText

		next := plan.Target.Add(-duration)
		delta := next.Sub(guess)
		if delta < 0 {
			delta = -delta
		}

		guess = next
		if delta < e.tolerance {
			break
		}

		if i == e.maxIterations-1 {
			e.logger.DebugContext(ctx, "departure search did not converge, keeping last value",
				slog.String("origin", plan.Origin),
				slog.String("destination", plan.Destination),
				slog.Duration("last_delta", delta))
		}
	}

	return &Estimate{
		Duration:     duration,
		DurationText: text,
		DistanceText: distance,
		Departure:    guess,
		Arrival:      plan.Target,
	}, nil
}

// pickDuration selects the traffic-aware duration for driving when the
// routing service supplied one, and the baseline duration otherwise.
func pickDuration(mode Mode, route *Route) (time.Duration, string) {
	if mode == ModeDriving && route.TrafficDuration > 0 {
		return route.TrafficDuration, route.TrafficDurationText
	}
	return route.Duration, route.DurationText
}
