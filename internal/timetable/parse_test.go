package timetable

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func row(cells ...string) string {
	var out strings.Builder
	out.WriteString("<tr>")
	for _, c := range cells {
		fmt.Fprintf(&out, "<td>%s</td>", c)
	}
	out.WriteString("</tr>")
	return out.String()
}

func grid(rows ...string) string {
	return fmt.Sprintf(
		`<html><body><div class="table-responsive"><table id="timeTableStyle" class="table">%s</table></div></body></html>`,
		strings.Join(rows, "\n"),
	)
}

var header = []string{
	row("THEORY", "Start", "08:00", "08:50", "Lunch", "14:00"),
	row("End", "08:50", "09:40", "Lunch", "14:50", "15:40"),
	row("LAB", "Start", "08:00", "08:51", "Lunch", "14:00"),
	row("End", "08:50", "09:40", "Lunch", "15:40"),
}

func withHeader(days ...string) string {
	return grid(append(append([]string{}, header...), days...)...)
}

func TestParseMissingTable(t *testing.T) {
	require.True(t, Parse("").Empty())
	require.True(t, Parse(`<html><body><table id="other">`+strings.Join(header, "")+`</table></body></html>`).Empty())
	require.True(t, Parse("<<<not html").Empty())
}

func TestParseTooFewHeaderRows(t *testing.T) {
	schedule := Parse(grid(header[0], header[1], header[2]))
	require.True(t, schedule.Empty())
	require.Equal(t, 0, schedule.Len())
}

func TestParseSpacedCell(t *testing.T) {
	html := grid(
		row("THEORY", "Start", "08:00", "08:50"),
		row("End", "08:50", "09:40"),
		row("LAB", "Start", "08:00", "08:50"),
		row("End", "08:50", "09:40"),
		row("MON", "THEORY", "MATH101-CS1 - MATH101 - Dr.X - AB1-101", "-"),
		row("LAB", "-", "-"),
	)

	schedule := Parse(html)
	monday, ok := schedule.Day("Monday")
	require.True(t, ok)
	diff := cmp.Diff([]ClassEntry{{
		Code:      "MATH101",
		Type:      KindTheory,
		StartTime: "08:00",
		EndTime:   "08:50",
		Venue:     "AB1-101",
	}}, monday)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestParseTheoryAndLab(t *testing.T) {
	html := withHeader(
		row("MON", "THEORY", "TA1-CSE1001-ETH-AB1-201-ALL", "-", "Lunch", "TB1-MAT1011-TH-AB2-104-ALL"),
		row("LAB", "-", "L3-CSE1001-ELA-AB1-305-ALL", "LUNCH", "-"),
	)

	expected := []Day{{
		Name: "Monday",
		Classes: []ClassEntry{
			{Code: "CSE1001", Type: KindTheory, StartTime: "08:00", EndTime: "08:50", Venue: "AB1-201"},
			{Code: "MAT1011", Type: KindTheory, StartTime: "14:00", EndTime: "14:50", Venue: "AB2-104"},
			{Code: "CSE1001", Type: KindLab, StartTime: "08:51", EndTime: "09:40", Venue: "AB1-305"},
		},
	}}

	diff := cmp.Diff(expected, Parse(html).Days())
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestParseSkipMarkers(t *testing.T) {
	for _, marker := range []string{"-", "Lunch", "lunch", "CLUBS/ECS", "ECS/CLUBS"} {
		html := withHeader(
			row("TUE", "THEORY", marker, marker, "-", marker),
			row("LAB", marker, marker, "-", marker),
		)
		schedule := Parse(html)
		tuesday, ok := schedule.Day("Tuesday")
		require.True(t, ok, marker)
		require.Empty(t, tuesday, marker)
	}
}

func TestParseExtraSkipMarkers(t *testing.T) {
	html := withHeader(
		row("WED", "THEORY", "NILL", "TA2-PHY1001-ETH-AB1-110-ALL"),
		row("LAB", "-"),
	)

	entries, _ := Parse(html).Day("Wednesday")
	require.Len(t, entries, 2)

	parser := NewParser(WithSkipMarkers("NILL"))
	entries, _ = parser.Parse(html).Day("Wednesday")
	require.Len(t, entries, 1)
	require.Equal(t, "PHY1001", entries[0].Code)
}

func TestParseLunchColumnSkipsAlignedCell(t *testing.T) {
	html := withHeader(
		row("THU", "THEORY", "-", "-", "TC1-ENG1001-ETH-AB1-001-ALL"),
		row("LAB", "-", "-", "-"),
	)
	entries, ok := Parse(html).Day("Thursday")
	require.True(t, ok)
	require.Empty(t, entries)
}

func TestParseDayNames(t *testing.T) {
	html := withHeader(
		row("FRI", "THEORY", "TA1-CSE1001-ETH-AB1-201-ALL"),
		row("LAB", "-"),
		row("MON", "THEORY", "-", "TA1-CSE1001-ETH-AB1-201-ALL"),
		row("LAB", "-"),
		row("HOL", "THEORY", "TD1-HUM1001-ETH-AB3-002-ALL"),
		row("LAB", "-"),
		row("FRI", "THEORY", "-", "TE1-CHY1001-ETH-AB1-401-ALL"),
		row("LAB", "-"),
	)

	schedule := Parse(html)
	require.Equal(t, []string{"Friday", "Monday", "HOL"}, schedule.Names())

	friday, _ := schedule.Day("Friday")
	require.Len(t, friday, 2)
	require.Equal(t, "CSE1001", friday[0].Code)
	require.Equal(t, "CHY1001", friday[1].Code)
	require.Equal(t, "08:50", friday[1].StartTime)

	hol, ok := schedule.Day("HOL")
	require.True(t, ok)
	require.Equal(t, "HUM1001", hol[0].Code)
	require.Equal(t, 4, schedule.Entries())
}

func TestParseTrailingTheoryRowWithoutLab(t *testing.T) {
	html := withHeader(
		row("SAT", "THEORY", "TA1-CSE1001-ETH-AB1-201-ALL"),
	)
	saturday, ok := Parse(html).Day("Saturday")
	require.True(t, ok)
	require.Len(t, saturday, 1)
}

func TestPairTimes(t *testing.T) {
	require.Equal(t,
		[]string{"08:00 - 08:50", "Lunch", "14:00 - 14:50"},
		pairTimes([]string{"08:00", "Lunch", "14:00"}, []string{"08:50", "Lunch", "14:50", "15:40"}),
	)
	require.Equal(t,
		[]string{"08:00 - 08:50", "Lunch - 13:00"},
		pairTimes([]string{"08:00", "Lunch", "14:00"}, []string{"08:50", "13:00"}),
	)
	require.Empty(t, pairTimes(nil, []string{"08:50"}))
}

func TestBuildEntry(t *testing.T) {
	cases := []struct {
		info     string
		slot     string
		expected ClassEntry
	}{
		{
			info:     "TA1-CSE1001-ETH-AB1-201-ALL",
			slot:     "08:00 - 08:50",
			expected: ClassEntry{Code: "CSE1001", Type: KindTheory, StartTime: "08:00", EndTime: "08:50", Venue: "AB1-201"},
		},
		{
			info:     "CSE1001",
			slot:     "08:00 - 08:50",
			expected: ClassEntry{Code: "CSE1001", Type: KindTheory, StartTime: "08:00", EndTime: "08:50"},
		},
		{
			info:     "TA1-CSE1001-ETH",
			slot:     "08:00",
			expected: ClassEntry{Code: "CSE1001", Type: KindTheory, StartTime: "08:00"},
		},
		{
			info:     "TA1-CSE1001-ETH-AB1",
			slot:     "14:00 - 14:50",
			expected: ClassEntry{Code: "CSE1001", Type: KindTheory, StartTime: "14:00", EndTime: "14:50", Venue: "AB1"},
		},
		{
			info:     "CSE1001--ETH-AB1",
			slot:     "08:00 - 08:50",
			expected: ClassEntry{Code: "CSE1001", Type: KindTheory, StartTime: "08:00", EndTime: "08:50", Venue: "AB1"},
		},
	}

	for _, test := range cases {
		diff := cmp.Diff(test.expected, buildEntry(test.info, test.slot, KindTheory))
		if diff != "" {
			t.Fatal(test.info, diff)
		}
	}
}

func TestParseSemesters(t *testing.T) {
	html := `<form><select id="semesterSubId" name="semesterSubId">
		<option value="">-- Choose Semester --</option>
		<option value="AP2024252">Fall Semester 2024-25</option>
		<option value=" AP2024254 ">Winter  Semester 2024-25</option>
	</select></form>`

	require.Equal(t, []Semester{
		{ID: "AP2024252", Name: "Fall Semester 2024-25"},
		{ID: "AP2024254", Name: "Winter Semester 2024-25"},
	}, ParseSemesters(html))
	require.Empty(t, ParseSemesters("<html></html>"))
}

func TestScheduleJSONKeepsOrder(t *testing.T) {
	schedule := NewSchedule(
		Day{Name: "Wednesday", Classes: []ClassEntry{{Code: "CSE1001"}}},
		Day{Name: "Monday"},
	)
	encoded, err := schedule.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t,
		`[{"day":"Wednesday","classes":[{"code":"CSE1001","type":"","start_time":"","end_time":"","venue":""}]},{"day":"Monday","classes":[]}]`,
		string(encoded),
	)

	encoded, err = Schedule{}.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, "[]", string(encoded))
}
