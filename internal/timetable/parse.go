package timetable

import (
	"fmt"
	"strings"
	"vtop-timetable/internal/components/telemetry"
	"vtop-timetable/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_parser_parse     = "parser.parse"
	report_parser_semesters = "parser.semesters"
)

// TableID is the id of the timetable grid in the portal's response.
const TableID = "timeTableStyle"

const lunch = "Lunch"

// DefaultSkipMarkers are cell texts that never name a class. "Lunch" is
// always skipped regardless of case and is not part of this list.
var DefaultSkipMarkers = []string{"-", "CLUBS/ECS", "ECS/CLUBS"}

var dayNames = map[string]string{
	"MON": "Monday",
	"TUE": "Tuesday",
	"WED": "Wednesday",
	"THU": "Thursday",
	"FRI": "Friday",
	"SAT": "Saturday",
	"SUN": "Sunday",
}

// DayName expands a three letter day code, unknown codes are returned as is.
func DayName(code string) string {
	name, ok := dayNames[code]
	if !ok {
		return code
	}
	return name
}

// Parser turns the portal's timetable grid into a Schedule. The zero value
// is not usable, construct one with NewParser.
type Parser struct {
	skip []string
	tel  telemetry.API
}

type Option func(*Parser)

// WithSkipMarkers adds cell texts that should be treated as empty slots on
// top of DefaultSkipMarkers.
func WithSkipMarkers(markers ...string) Option {
	return func(p *Parser) {
		p.skip = append(p.skip, markers...)
	}
}

func WithTelemetry(tel telemetry.API) Option {
	return func(p *Parser) {
		p.tel = telemetry.NewScopedAPI("timetable", tel)
	}
}

func NewParser(opts ...Option) Parser {
	p := Parser{
		skip: append([]string{}, DefaultSkipMarkers...),
		tel:  telemetry.NewScopedAPI("timetable", telemetry.SlogAPI{}),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

var defaultParser = NewParser()

// Parse parses with the default skip markers.
func Parse(html string) Schedule {
	return defaultParser.Parse(html)
}

// Parse never fails, html without a usable timetable grid gives an empty
// Schedule.
//
// The grid starts with four header rows: theory start times (from column 2),
// theory end times (from column 1), then the same pair for labs. Every
// following pair of rows is one day, a theory row whose first cell is the
// day code and a lab row without it.
func (p Parser) Parse(html string) Schedule {
	var schedule Schedule

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.tel.ReportWarning(report_parser_parse, fmt.Errorf("parse html: %w", err))
		return schedule
	}

	table := doc.Find(fmt.Sprintf("table#%s", TableID)).First()
	if table.Length() == 0 {
		p.tel.ReportDebug(report_parser_parse, "no timetable table")
		return schedule
	}
	rows := table.Find("tr")
	if rows.Length() < 4 {
		p.tel.ReportWarning(report_parser_parse, fmt.Errorf("timetable has %d rows, expected at least 4 header rows", rows.Length()))
		return schedule
	}

	theoryTimes := pairTimes(
		cellsFrom(rows.Eq(0), 2),
		cellsFrom(rows.Eq(1), 1),
	)
	labTimes := pairTimes(
		cellsFrom(rows.Eq(2), 2),
		cellsFrom(rows.Eq(3), 1),
	)

	for i := 4; i < rows.Length(); i += 2 {
		theoryCells := cellsFrom(rows.Eq(i), 0)
		if len(theoryCells) == 0 {
			continue
		}
		day := DayName(theoryCells[0])
		schedule.add(day)

		p.appendSlots(&schedule, day, KindTheory, after(theoryCells, 2), theoryTimes)
		if i+1 < rows.Length() {
			p.appendSlots(&schedule, day, KindLab, cellsFrom(rows.Eq(i+1), 1), labTimes)
		}
	}

	p.tel.ReportCount(report_parser_parse, int64(schedule.Entries()))
	return schedule
}

func (p Parser) appendSlots(schedule *Schedule, day, kind string, cells, times []string) {
	for slot, info := range cells {
		if slot >= len(times) {
			break
		}
		if times[slot] == lunch || p.skipped(info) {
			continue
		}
		schedule.add(day, buildEntry(info, times[slot], kind))
	}
}

func (p Parser) skipped(info string) bool {
	if strings.EqualFold(info, lunch) {
		return true
	}
	for _, marker := range p.skip {
		if info == marker {
			return true
		}
	}
	return false
}

// cellsFrom returns the text of the row's cells starting at column `from`.
func cellsFrom(row *goquery.Selection, from int) []string {
	return after(htmlutil.Texts(row.ChildrenFiltered("td")), from)
}

func after(cells []string, from int) []string {
	if from >= len(cells) {
		return nil
	}
	return cells[from:]
}

// pairTimes joins start and end times into "<start> - <end>", a column that
// reads Lunch in both rows becomes a single "Lunch".
func pairTimes(starts, ends []string) []string {
	if len(ends) > len(starts) {
		ends = ends[:len(starts)]
	}
	n := min(len(starts), len(ends))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		if starts[i] == lunch && ends[i] == lunch {
			out[i] = lunch
			continue
		}
		out[i] = fmt.Sprintf("%s - %s", starts[i], ends[i])
	}
	return out
}

// splitFields splits a slot cell into its hyphen separated fields. Cells
// rendered with spaced separators (" - ") keep hyphens inside a field, like
// venue numbers, intact.
func splitFields(info string) []string {
	sep := "-"
	if strings.Contains(info, " - ") {
		sep = " - "
	}
	fields := strings.Split(info, sep)
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// splitTime splits "<start> - <end>", a missing end is left empty.
func splitTime(slot string) (start, end string) {
	parts := strings.SplitN(slot, "-", 2)
	start = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		end = strings.TrimSpace(parts[1])
	}
	return start, end
}

// buildEntry reads a slot cell like "TA1-CSE1001-ETH-AB1-201-ALL": the
// second field is the course code and the fourth and fifth make the venue.
// A cell with only the fourth field keeps it as the venue.
func buildEntry(info, slotTime, kind string) ClassEntry {
	fields := splitFields(info)

	code := fields[0]
	if len(fields) > 1 && fields[1] != "" {
		code = fields[1]
	}

	var venue []string
	for i := 3; i < 5 && i < len(fields); i++ {
		if fields[i] != "" {
			venue = append(venue, fields[i])
		}
	}

	start, end := splitTime(slotTime)
	return ClassEntry{
		Code:      code,
		Type:      kind,
		StartTime: start,
		EndTime:   end,
		Venue:     strings.Join(venue, "-"),
	}
}

// ParseSemesters reads the options of the semester selector on the
// timetable view page, placeholder options without a value are skipped.
func (p Parser) ParseSemesters(html string) []Semester {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.tel.ReportWarning(report_parser_semesters, fmt.Errorf("parse html: %w", err))
		return nil
	}

	var semesters []Semester
	doc.Find("select#semesterSubId option").Each(func(_ int, option *goquery.Selection) {
		id := strings.TrimSpace(option.AttrOr("value", ""))
		if id == "" {
			return
		}
		semesters = append(semesters, Semester{
			ID:   id,
			Name: htmlutil.Text(option),
		})
	})
	if len(semesters) == 0 {
		p.tel.ReportWarning(report_parser_semesters, fmt.Errorf("no semester options found"))
	}
	return semesters
}

// ParseSemesters parses with the default parser.
func ParseSemesters(html string) []Semester {
	return defaultParser.ParseSemesters(html)
}
