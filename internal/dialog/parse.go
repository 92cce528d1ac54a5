package dialog

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kaiyuhsu/commutebot/internal/commute"
)

// Postback payloads carried by the channel's selection buttons and
// datetime picker.
const (
	postbackActionKey = "action"

	// PostbackActionTimeType selects departure vs arrival.
	PostbackActionTimeType = "timetype"
	// PostbackActionDateTime carries a datetime-picker result.
	PostbackActionDateTime = "datetime"

	postbackValueKey       = "value"
	postbackValueDeparture = "departure"
	postbackValueArrival   = "arrival"
)

// datetimePickerLayout is the wire format of datetime-picker results.
const datetimePickerLayout = "2006-01-02T15:04"

// ParseReminderTime parses "HH:MM" with 0<=HH<24, 0<=MM<60. Anything else
// is an InputFormatError.
func ParseReminderTime(input string) (int, int, error) {
	invalid := &commute.InputFormatError{Field: "reminder time", Value: input}

	parts := strings.Split(strings.TrimSpace(input), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, 0, invalid
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, invalid
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, invalid
	}

	// strconv accepts leading +/-; those are not clock digits.
	if strings.ContainsAny(input, "+-") {
		return 0, 0, invalid
	}

	return hour, minute, nil
}

// parsePostbackAction extracts the action name from a postback payload.
func parsePostbackAction(data string) string {
	values, err := url.ParseQuery(data)
	if err != nil {
		return ""
	}
	return values.Get(postbackActionKey)
}

// parseTimeTypeSelection maps a time-type postback payload onto the enum.
func parseTimeTypeSelection(data string) (commute.TimeType, error) {
	values, err := url.ParseQuery(data)
	if err != nil {
		return 0, &commute.InputFormatError{Field: "time type", Value: data}
	}

	switch values.Get(postbackValueKey) {
	case postbackValueDeparture:
		return commute.TimeTypeDeparture, nil
	case postbackValueArrival:
		return commute.TimeTypeArrival, nil
	default:
		return 0, &commute.InputFormatError{Field: "time type", Value: data}
	}
}

// parseDateTimeSelection parses a datetime-picker result in the given
// location and requires it to be strictly after now.
func parseDateTimeSelection(value string, now time.Time, loc *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation(datetimePickerLayout, value, loc)
	if err != nil {
		return time.Time{}, &commute.InputFormatError{Field: "date-time", Value: value}
	}
	if !parsed.After(now) {
		return time.Time{}, &commute.PastTimeError{Value: value}
	}
	return parsed, nil
}

// isStartKeyword reports whether the text begins a commute dialogue.
func isStartKeyword(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "start", "設定通勤":
		return true
	default:
		return false
	}
}

// isWeatherKeyword reports whether the text begins a weather query.
func isWeatherKeyword(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "weather", "天氣":
		return true
	default:
		return false
	}
}
