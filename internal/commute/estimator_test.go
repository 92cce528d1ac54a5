package commute_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiyuhsu/commutebot/internal/commute"
)

// fakeRouteClient answers queries from a duration function so tests can
// shape how travel time varies with departure time.
type fakeRouteClient struct {
	calls    []commute.RouteQuery
	duration func(q commute.RouteQuery) time.Duration
	traffic  func(q commute.RouteQuery) time.Duration
	err      error
}

func (f *fakeRouteClient) Route(_ context.Context, q commute.RouteQuery) (*commute.Route, error) {
	f.calls = append(f.calls, q)
	if f.err != nil {
		return nil, f.err
	}

	route := &commute.Route{
		Duration:     f.duration(q),
		DurationText: "some time",
		DistanceText: "42 km",
	}
	if f.traffic != nil {
		route.TrafficDuration = f.traffic(q)
		route.TrafficDurationText = "some time in traffic"
	}
	return route, nil
}

func constantDuration(d time.Duration) func(commute.RouteQuery) time.Duration {
	return func(commute.RouteQuery) time.Duration { return d }
}

func TestEstimate_DepartureSingleCall(t *testing.T) {
	depart := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	client := &fakeRouteClient{duration: constantDuration(45 * time.Minute)}
	est := commute.NewEstimator(client)

	result, err := est.Estimate(context.Background(), commute.Plan{
		Origin:      "Taipei Station",
		Destination: "Hsinchu Station",
		Mode:        commute.ModeTransit,
		TimeType:    commute.TimeTypeDeparture,
		Target:      depart,
	})
	require.NoError(t, err)

	require.Len(t, client.calls, 1)
	assert.Equal(t, depart, client.calls[0].DepartureTime)
	assert.True(t, client.calls[0].ArrivalTime.IsZero())
	assert.Equal(t, depart, result.Departure)
	assert.Equal(t, depart.Add(45*time.Minute), result.Arrival)
	assert.Equal(t, 45*time.Minute, result.Duration)
}

func TestEstimate_DrivingDeparturePrefersTrafficDuration(t *testing.T) {
	depart := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	client := &fakeRouteClient{
		duration: constantDuration(40 * time.Minute),
		traffic:  constantDuration(55 * time.Minute),
	}
	est := commute.NewEstimator(client)

	result, err := est.Estimate(context.Background(), commute.Plan{
		Origin:      "a",
		Destination: "b",
		Mode:        commute.ModeDriving,
		TimeType:    commute.TimeTypeDeparture,
		Target:      depart,
	})
	require.NoError(t, err)

	assert.Equal(t, 55*time.Minute, result.Duration)
	assert.Equal(t, "some time in traffic", result.DurationText)
	assert.Equal(t, depart.Add(55*time.Minute), result.Arrival)
}

func TestEstimate_WalkingIgnoresTrafficDuration(t *testing.T) {
	depart := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	client := &fakeRouteClient{
		duration: constantDuration(40 * time.Minute),
		traffic:  constantDuration(55 * time.Minute),
	}
	est := commute.NewEstimator(client)

	result, err := est.Estimate(context.Background(), commute.Plan{
		Origin:      "a",
		Destination: "b",
		Mode:        commute.ModeWalking,
		TimeType:    commute.TimeTypeDeparture,
		Target:      depart,
	})
	require.NoError(t, err)

	assert.Equal(t, 40*time.Minute, result.Duration)
}

func TestEstimate_TransitArrivalSingleCall(t *testing.T) {
	arrive := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	client := &fakeRouteClient{duration: constantDuration(50 * time.Minute)}
	est := commute.NewEstimator(client)

	result, err := est.Estimate(context.Background(), commute.Plan{
		Origin:      "Taipei Station",
		Destination: "Hsinchu Station",
		Mode:        commute.ModeTransit,
		TimeType:    commute.TimeTypeArrival,
		Target:      arrive,
	})
	require.NoError(t, err)

	require.Len(t, client.calls, 1)
	assert.Equal(t, arrive, client.calls[0].ArrivalTime)
	assert.True(t, client.calls[0].DepartureTime.IsZero())
	assert.Equal(t, arrive.Add(-50*time.Minute), result.Departure)
	assert.Equal(t, arrive, result.Arrival)
}

func TestSolveArrival_ConstantDurationConvergesAfterOneCorrection(t *testing.T) {
	arrive := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	client := &fakeRouteClient{duration: constantDuration(30 * time.Minute)}
	est := commute.NewEstimator(client)

	result, err := est.Estimate(context.Background(), commute.Plan{
		Origin:      "a",
		Destination: "b",
		Mode:        commute.ModeWalking,
		TimeType:    commute.TimeTypeArrival,
		Target:      arrive,
	})
	require.NoError(t, err)

	// The initial probe lands at arrival minus the seed offset; the first
	// correction moves it to arrival minus the constant duration, where the
	// next probe confirms it.
	require.Len(t, client.calls, 2)
	assert.Equal(t, arrive.Add(-30*time.Minute), result.Departure)
	assert.Equal(t, arrive, result.Arrival)
	assert.Equal(t, 30*time.Minute, result.Duration)
}

func TestSolveArrival_DrivingUsesTrafficAwareDurations(t *testing.T) {
	arrive := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	client := &fakeRouteClient{
		duration: constantDuration(20 * time.Minute),
		traffic:  constantDuration(35 * time.Minute),
	}
	est := commute.NewEstimator(client)

	result, err := est.Estimate(context.Background(), commute.Plan{
		Origin:      "a",
		Destination: "b",
		Mode:        commute.ModeDriving,
		TimeType:    commute.TimeTypeArrival,
		Target:      arrive,
	})
	require.NoError(t, err)

	// Every probe carries a departure time, never an arrival constraint.
	for _, call := range client.calls {
		assert.True(t, call.ArrivalTime.IsZero())
		assert.False(t, call.DepartureTime.IsZero())
	}
	assert.Equal(t, arrive.Add(-35*time.Minute), result.Departure)
	assert.Equal(t, 35*time.Minute, result.Duration)
}

func TestSolveArrival_NonConvergentReturnsLastValue(t *testing.T) {
	arrive := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// Duration flips between 30 and 45 minutes depending on which half of
	// the hour the probe lands in, so the guesses bounce between 8:15 and
	// 8:30 and never settle.
	client := &fakeRouteClient{
		duration: func(q commute.RouteQuery) time.Duration {
			if q.DepartureTime.Minute() < 30 {
				return 30 * time.Minute
			}
			return 45 * time.Minute
		},
	}
	est := commute.NewEstimator(client, commute.WithSolverBounds(7*time.Minute, time.Minute, 5))

	result, err := est.Estimate(context.Background(), commute.Plan{
		Origin:      "a",
		Destination: "b",
		Mode:        commute.ModeBicycling,
		TimeType:    commute.TimeTypeArrival,
		Target:      arrive,
	})
	require.NoError(t, err)

	// Bounded iteration: exactly the cap, then the last guess wins.
	assert.Len(t, client.calls, 5)
	assert.Equal(t, arrive, result.Arrival)
	assert.Equal(t, arrive.Add(-result.Duration), result.Departure)
}

func TestEstimate_PropagatesRouteErrors(t *testing.T) {
	apiErr := &commute.ExternalAPIError{Status: "OVER_QUERY_LIMIT"}
	client := &fakeRouteClient{err: apiErr}
	est := commute.NewEstimator(client)

	_, err := est.Estimate(context.Background(), commute.Plan{
		Origin:      "a",
		Destination: "b",
		Mode:        commute.ModeDriving,
		TimeType:    commute.TimeTypeArrival,
		Target:      time.Now().Add(time.Hour),
	})

	var got *commute.ExternalAPIError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, "OVER_QUERY_LIMIT", got.Status)
	assert.Len(t, client.calls, 1)
}
