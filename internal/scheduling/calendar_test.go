package scheduling_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

func TestParseDate(t *testing.T) {
	d, err := scheduling.ParseDate("2025-07-21")
	require.NoError(t, err)
	assert.Equal(t, monday, d)
	assert.Equal(t, scheduling.Monday, d.Weekday())
	assert.Equal(t, "2025-07-21", d.String())

	for _, bad := range []string{"", "21/07/2025", "2025-13-01", "2025-07-21T09:00:00Z"} {
		_, err := scheduling.ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestDate_Arithmetic(t *testing.T) {
	sunday := monday.AddDays(6)
	assert.Equal(t, scheduling.Sunday, sunday.Weekday())
	assert.Equal(t, 6, monday.DaysUntil(sunday))
	assert.Equal(t, -1, tuesday.DaysUntil(monday))
	assert.True(t, monday.Before(tuesday))
	assert.True(t, tuesday.After(monday))
	assert.Equal(t, "2026-01-01", scheduling.NewDate(2025, time.December, 31).AddDays(1).String())
}

func TestParseTimeOfDay(t *testing.T) {
	cases := map[string]string{
		"09:00:00": "09:00:00",
		"09:00":    "09:00:00",
		" 23:59 ":  "23:59:00",
		"00:00:30": "00:00:30",
	}
	for in, want := range cases {
		got, err := scheduling.ParseTimeOfDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}

	for _, bad := range []string{"", "9", "24:00:00", "09:60", "nine"} {
		_, err := scheduling.ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeOfDay_Add(t *testing.T) {
	assert.Equal(t, "09:30:00", tod("09:00:00").Add(30*time.Minute).String())
	assert.False(t, tod("23:30:00").Add(time.Hour).Valid())
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]scheduling.Weekday{
		"monday": scheduling.Monday,
		"Mon":    scheduling.Monday,
		"SUNDAY": scheduling.Sunday,
		"wed":    scheduling.Wednesday,
	} {
		got, err := scheduling.ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := scheduling.ParseWeekday("funday")
	assert.Error(t, err)
}

func TestScheduleTemplate_JSONUsesWireFormats(t *testing.T) {
	tpl := scheduling.ScheduleTemplate{
		Weekday:             scheduling.Friday,
		StartTime:           tod("08:15:00"),
		EndTime:             tod("12:00:00"),
		SlotDurationMinutes: 15,
	}
	data, err := json.Marshal(tpl)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"weekday":"friday"`)
	assert.Contains(t, string(data), `"start_time":"08:15:00"`)

	var back scheduling.ScheduleTemplate
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, tpl.Weekday, back.Weekday)
	assert.Equal(t, tpl.StartTime, back.StartTime)
	assert.Equal(t, tpl.EndTime, back.EndTime)
}
