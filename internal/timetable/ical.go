package timetable

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

var weekdays = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
}

var clockLayouts = []string{"15:04", "3:04 PM", "3:04PM", "03:04 PM"}

func parseClock(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}

// ICalResult is the rendered calendar plus the number of entries that could
// not be placed on it.
type ICalResult struct {
	Calendar string
	Events   int
	Skipped  int
}

// ToICal renders every class as a weekly recurring event, the first
// occurrence falls in the week starting at weekStart. Classes on unknown days
// or with unparsable times are skipped.
func ToICal(schedule Schedule, weekStart time.Time, loc *time.Location) ICalResult {
	weekStart = time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, loc)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//vtop-timetable//timetable export//EN")

	result := ICalResult{}
	for _, day := range schedule.days {
		weekday, ok := weekdays[day.Name]
		if !ok {
			result.Skipped += len(day.Classes)
			continue
		}
		offset := (int(weekday) - int(weekStart.Weekday()) + 7) % 7
		date := weekStart.AddDate(0, 0, offset)

		for i, class := range day.Classes {
			start, err := parseClock(class.StartTime)
			if err != nil {
				result.Skipped++
				continue
			}
			end, err := parseClock(class.EndTime)
			if err != nil {
				result.Skipped++
				continue
			}

			startAt := time.Date(date.Year(), date.Month(), date.Day(), start.Hour(), start.Minute(), 0, 0, loc)
			endAt := time.Date(date.Year(), date.Month(), date.Day(), end.Hour(), end.Minute(), 0, 0, loc)

			event := cal.AddEvent(fmt.Sprintf(
				"%s-%s-%d-%s@vtop-timetable",
				strings.ToLower(day.Name), class.Code, i, start.Format("1504"),
			))
			event.SetDtStampTime(weekStart)
			event.SetStartAt(startAt)
			event.SetEndAt(endAt)
			event.SetSummary(fmt.Sprintf("%s (%s)", class.Code, class.Type))
			if class.Venue != "" {
				event.SetLocation(class.Venue)
			}
			event.AddProperty(ics.ComponentPropertyRrule, "FREQ=WEEKLY")
			result.Events++
		}
	}

	result.Calendar = cal.Serialize()
	return result
}
