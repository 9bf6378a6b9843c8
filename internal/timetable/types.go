package timetable

import "encoding/json"

// Slot kinds, every ClassEntry records which header row its time came from.
const (
	KindTheory = "Theory"
	KindLab    = "Lab"
)

// ClassEntry is one class occurrence within a day.
type ClassEntry struct {
	Code      string `json:"code"`
	Type      string `json:"type"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Venue     string `json:"venue"`
}

// Day is the list of classes on one weekday, in table column order.
type Day struct {
	Name    string       `json:"day"`
	Classes []ClassEntry `json:"classes"`
}

// Schedule keeps days in the order the portal's table lists them, which is
// not necessarily calendar order.
type Schedule struct {
	days []Day
}

// NewSchedule builds a schedule from already ordered days, days sharing a
// name are merged.
func NewSchedule(days ...Day) Schedule {
	var s Schedule
	for _, d := range days {
		s.add(d.Name, d.Classes...)
	}
	return s
}

func (s *Schedule) index(name string) int {
	for i, d := range s.days {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// add appends entries to a day, creating the day at the end of the order if
// it has not been seen yet.
func (s *Schedule) add(name string, entries ...ClassEntry) {
	idx := s.index(name)
	if idx < 0 {
		s.days = append(s.days, Day{Name: name, Classes: []ClassEntry{}})
		idx = len(s.days) - 1
	}
	s.days[idx].Classes = append(s.days[idx].Classes, entries...)
}

// Day returns the classes of a day and whether the day exists.
func (s Schedule) Day(name string) ([]ClassEntry, bool) {
	idx := s.index(name)
	if idx < 0 {
		return nil, false
	}
	return s.days[idx].Classes, true
}

// Days returns a copy of every day in table order.
func (s Schedule) Days() []Day {
	out := make([]Day, len(s.days))
	for i, d := range s.days {
		classes := make([]ClassEntry, len(d.Classes))
		copy(classes, d.Classes)
		out[i] = Day{Name: d.Name, Classes: classes}
	}
	return out
}

// Names returns the day names in table order.
func (s Schedule) Names() []string {
	out := make([]string, len(s.days))
	for i, d := range s.days {
		out[i] = d.Name
	}
	return out
}

// Len is the number of days.
func (s Schedule) Len() int {
	return len(s.days)
}

// Entries is the total number of classes across all days.
func (s Schedule) Entries() int {
	n := 0
	for _, d := range s.days {
		n += len(d.Classes)
	}
	return n
}

func (s Schedule) Empty() bool {
	return len(s.days) == 0
}

// MarshalJSON encodes the schedule as an ordered list of days.
func (s Schedule) MarshalJSON() ([]byte, error) {
	days := s.days
	if days == nil {
		days = []Day{}
	}
	return json.Marshal(days)
}

func (s *Schedule) UnmarshalJSON(data []byte) error {
	var days []Day
	err := json.Unmarshal(data, &days)
	if err != nil {
		return err
	}
	*s = NewSchedule(days...)
	return nil
}

// Semester is one option of the portal's semester selector.
type Semester struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
