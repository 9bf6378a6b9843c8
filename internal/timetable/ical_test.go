package timetable

import (
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/require"
)

func TestToICal(t *testing.T) {
	schedule := NewSchedule(
		Day{Name: "Wednesday", Classes: []ClassEntry{
			{Code: "CSE1001", Type: KindLab, StartTime: "14:00", EndTime: "15:40", Venue: "AB1-305"},
		}},
		Day{Name: "Monday", Classes: []ClassEntry{
			{Code: "MAT1011", Type: KindTheory, StartTime: "08:00", EndTime: "08:50", Venue: "AB2-104"},
			{Code: "PHY1001", Type: KindTheory, StartTime: "08:00"},
		}},
		Day{Name: "HOL", Classes: []ClassEntry{
			{Code: "HUM1001", Type: KindTheory, StartTime: "09:00", EndTime: "09:50"},
		}},
	)

	// a Wednesday, so Monday's first occurrence lands in the following week
	weekStart := time.Date(2024, time.July, 17, 13, 30, 0, 0, time.UTC)
	result := ToICal(schedule, weekStart, time.UTC)
	require.Equal(t, 2, result.Events)
	require.Equal(t, 2, result.Skipped)

	cal, err := ics.ParseCalendar(strings.NewReader(result.Calendar))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	lab := events[0]
	require.Equal(t, "CSE1001 (Lab)", lab.GetProperty(ics.ComponentPropertySummary).Value)
	require.Equal(t, "AB1-305", lab.GetProperty(ics.ComponentPropertyLocation).Value)
	require.Equal(t, "20240717T140000Z", lab.GetProperty(ics.ComponentPropertyDtStart).Value)
	require.Equal(t, "20240717T154000Z", lab.GetProperty(ics.ComponentPropertyDtEnd).Value)
	require.Equal(t, "FREQ=WEEKLY", lab.GetProperty(ics.ComponentPropertyRrule).Value)

	theory := events[1]
	require.Equal(t, "MAT1011 (Theory)", theory.GetProperty(ics.ComponentPropertySummary).Value)
	require.Equal(t, "20240722T080000Z", theory.GetProperty(ics.ComponentPropertyDtStart).Value)
}

func TestToICalEmpty(t *testing.T) {
	result := ToICal(Schedule{}, time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC), time.UTC)
	require.Zero(t, result.Events)
	require.Zero(t, result.Skipped)
	require.Contains(t, result.Calendar, "BEGIN:VCALENDAR")
}

func TestParseClock(t *testing.T) {
	for _, value := range []string{"14:05", "2:05 PM", "2:05PM", "02:05 PM"} {
		parsed, err := parseClock(value)
		require.NoError(t, err, value)
		require.Equal(t, 14, parsed.Hour(), value)
		require.Equal(t, 5, parsed.Minute(), value)
	}
	_, err := parseClock("Lunch")
	require.Error(t, err)
}
