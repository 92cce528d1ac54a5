// Package commute defines the commute plan vocabulary and the departure-time
// estimator, including the fixed-point solver used when travel time depends
// on the departure time being solved for.
package commute

import (
	"fmt"
	"time"
)

// Mode is the travel mode for a commute plan. The set is closed; anything a
// user types that does not map to one of these is rejected at the dialogue
// layer.
type Mode int

// Travel modes, in menu order.
const (
	ModeTransit Mode = iota + 1
	ModeDriving
	ModeWalking
	ModeBicycling
)

// String returns the canonical mode name used in outbound messages and in
// routing API requests (lowercased there).
func (m Mode) String() string {
	switch m {
	case ModeTransit:
		return "Transit"
	case ModeDriving:
		return "Driving"
	case ModeWalking:
		return "Walking"
	case ModeBicycling:
		return "Bicycling"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// APIValue returns the mode value the routing API expects.
func (m Mode) APIValue() string {
	switch m {
	case ModeTransit:
		return "transit"
	case ModeDriving:
		return "driving"
	case ModeWalking:
		return "walking"
	case ModeBicycling:
		return "bicycling"
	default:
		return ""
	}
}

// ParseMode maps a numeric menu code ("1".."4") to a Mode.
func ParseMode(code string) (Mode, error) {
	switch code {
	case "1":
		return ModeTransit, nil
	case "2":
		return ModeDriving, nil
	case "3":
		return ModeWalking, nil
	case "4":
		return ModeBicycling, nil
	default:
		return 0, &InputFormatError{Field: "mode", Value: code}
	}
}

// TimeType says whether the plan's target timestamp is a desired departure
// or a desired arrival.
type TimeType int

// Time constraint kinds.
const (
	TimeTypeDeparture TimeType = iota + 1
	TimeTypeArrival
)

// String implements fmt.Stringer.
func (t TimeType) String() string {
	switch t {
	case TimeTypeDeparture:
		return "Departure"
	case TimeTypeArrival:
		return "Arrival"
	default:
		return fmt.Sprintf("TimeType(%d)", int(t))
	}
}

// Plan is the set of fields the dialogue collects for one commute estimate.
type Plan struct {
	Origin      string
	Destination string
	Mode        Mode
	TimeType    TimeType
	Target      time.Time
}

// Estimate is the result of one estimator run. It is a value object; nothing
// holds a reference to it after the notification is formatted.
type Estimate struct {
	Duration     time.Duration
	DurationText string
	DistanceText string
	Departure    time.Time
	Arrival      time.Time
}
