package commute

import (
	"context"
	"time"
)

// Route is a single routing answer for one origin/destination pair at one
// point in time.
type Route struct {
	// Duration is the baseline travel duration.
	Duration time.Duration
	// DurationText is the service's human-readable duration.
	DurationText string
	// TrafficDuration is the traffic-aware duration when the service
	// supplied one (driving with a departure time); zero otherwise.
	TrafficDuration time.Duration
	// TrafficDurationText accompanies TrafficDuration.
	TrafficDurationText string
	// DistanceText is the service's human-readable distance.
	DistanceText string
}

// RouteQuery is one request to the routing service. Exactly one of
// DepartureTime and ArrivalTime is set.
type RouteQuery struct {
	Origin        string
	Destination   string
	Mode          Mode
	DepartureTime time.Time
	ArrivalTime   time.Time
}

// RouteClient is the routing boundary. Implementations issue a single
// attempt bounded by a timeout; retries are the caller's decision.
type RouteClient interface {
	Route(ctx context.Context, q RouteQuery) (*Route, error)
}
