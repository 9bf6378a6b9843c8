package commands

import (
	"io"
	"vtop-timetable/internal/timetable"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

// renderSchedule prints one table per day in the order the portal listed
// them.
func renderSchedule(out io.Writer, schedule timetable.Schedule) {
	for _, day := range schedule.Days() {
		t := newTable(out)
		t.SetTitle(day.Name)
		t.AppendHeader(table.Row{"Start", "End", "Course", "Type", "Venue"})
		for _, class := range day.Classes {
			t.AppendRow(table.Row{class.StartTime, class.EndTime, class.Code, class.Type, class.Venue})
		}
		if len(day.Classes) == 0 {
			t.AppendRow(table.Row{"", "", "no classes", "", ""})
		}
		t.Render()
	}
}

func renderSemesters(out io.Writer, semesters []timetable.Semester) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Semester"})
	for _, semester := range semesters {
		t.AppendRow(table.Row{semester.ID, semester.Name})
	}
	t.Render()
}
