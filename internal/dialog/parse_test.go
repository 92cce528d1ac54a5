package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiyuhsu/commutebot/internal/commute"
)

func TestParseReminderTime(t *testing.T) {
	valid := []struct {
		input  string
		hour   int
		minute int
	}{
		{"00:00", 0, 0},
		{"07:00", 7, 0},
		{"7:05", 7, 5},
		{"23:59", 23, 59},
		{" 08:30 ", 8, 30},
	}
	for _, tc := range valid {
		hour, minute, err := ParseReminderTime(tc.input)
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.hour, hour, "input %q", tc.input)
		assert.Equal(t, tc.minute, minute, "input %q", tc.input)
	}

	invalid := []string{
		"24:00", "25:00", "07:60", "12:99",
		"7", "0700", "07:0", "07:000", "007:00",
		"", ":", "::", "07:00:00",
		"ab:cd", "07:0a", "a7:00",
		"-1:30", "07:-5", "+7:00",
		"七:00",
	}
	for _, input := range invalid {
		_, _, err := ParseReminderTime(input)
		require.Error(t, err, "input %q", input)
		var formatErr *commute.InputFormatError
		assert.ErrorAs(t, err, &formatErr, "input %q", input)
	}
}

func TestParseTimeTypeSelection(t *testing.T) {
	timeType, err := parseTimeTypeSelection("action=timetype&value=departure")
	require.NoError(t, err)
	assert.Equal(t, commute.TimeTypeDeparture, timeType)

	timeType, err = parseTimeTypeSelection("action=timetype&value=arrival")
	require.NoError(t, err)
	assert.Equal(t, commute.TimeTypeArrival, timeType)

	for _, bad := range []string{"action=timetype", "action=timetype&value=now", "action=timetype&value=Arrival", "%zz"} {
		_, err := parseTimeTypeSelection(bad)
		assert.Error(t, err, "payload %q", bad)
	}
}

func TestParsePostbackAction(t *testing.T) {
	assert.Equal(t, PostbackActionTimeType, parsePostbackAction("action=timetype&value=arrival"))
	assert.Equal(t, PostbackActionDateTime, parsePostbackAction("action=datetime"))
	assert.Empty(t, parsePostbackAction("value=arrival"))
	assert.Empty(t, parsePostbackAction("%zz"))
}

func TestParseDateTimeSelection(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)

	parsed, err := parseDateTimeSelection("2026-03-02T09:00", now, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, loc), parsed)
	assert.Equal(t, loc, parsed.Location())

	// Not strictly future: equal to now, and in the past.
	for _, bad := range []string{"2026-03-01T12:00", "2026-03-01T08:00", "2025-12-31T23:59"} {
		_, err := parseDateTimeSelection(bad, now, loc)
		var pastErr *commute.PastTimeError
		assert.ErrorAs(t, err, &pastErr, "value %q", bad)
	}

	// Malformed values are format errors, not past-time errors.
	for _, bad := range []string{"", "tomorrow", "2026-03-02 09:00", "2026-03-02T09:00:00"} {
		_, err := parseDateTimeSelection(bad, now, loc)
		var formatErr *commute.InputFormatError
		assert.ErrorAs(t, err, &formatErr, "value %q", bad)
	}
}

func TestKeywords(t *testing.T) {
	for _, s := range []string{"start", "Start", "START", " start ", "設定通勤"} {
		assert.True(t, isStartKeyword(s), "input %q", s)
	}
	for _, s := range []string{"restart", "go", "", "start now"} {
		assert.False(t, isStartKeyword(s), "input %q", s)
	}

	for _, s := range []string{"weather", "Weather", "天氣"} {
		assert.True(t, isWeatherKeyword(s), "input %q", s)
	}
	assert.False(t, isWeatherKeyword("weather today"))
}
