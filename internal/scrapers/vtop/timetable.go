package vtop

import (
	"context"
	"strconv"
	"vtop-timetable/internal/components/telemetry"
	"vtop-timetable/internal/timetable"
)

const (
	report_fetcher_fetch_timetable = "fetcher.fetch-timetable"
	report_fetcher_semesters       = "fetcher.semesters"
)

// timestampLayout is the RFC 1123 variant the portal's own scripts send as
// `x`, the day of month is not zero padded.
const timestampLayout = "Mon, 2 Jan 2006 15:04:05 -0700"

// TimetableFetcher runs the two step timetable request over an authenticated
// session.
type TimetableFetcher struct {
	session *Session
	parser  timetable.Parser
	tel     telemetry.API
}

func NewTimetableFetcher(session *Session, parser timetable.Parser) TimetableFetcher {
	return TimetableFetcher{
		session: session,
		parser:  parser,
		tel:     telemetry.NewScopedAPI("fetcher", session.tel),
	}
}

// initView primes the portal's timetable view and returns its page, which
// holds the semester selector.
func (f TimetableFetcher) initView(ctx context.Context, op string) ([]byte, error) {
	s := f.session
	err := s.expect(op, StateAuthenticated)
	if err != nil {
		return nil, err
	}
	return s.transport.PostForm(ctx, op, pathTimetableView, map[string]string{
		"verifyMenu":   "true",
		"authorizedID": s.username,
		"_csrf":        s.csrf,
		"nocache":      strconv.FormatInt(s.clock.Now().UnixMilli(), 10),
	})
}

// FetchTimetableHTML returns the raw timetable page for a semester.
func (f TimetableFetcher) FetchTimetableHTML(ctx context.Context, semesterSubId string) (string, error) {
	_, err := f.initView(ctx, "fetch timetable")
	if err != nil {
		f.tel.ReportWarning(report_fetcher_fetch_timetable, err)
		return "", err
	}

	s := f.session
	body, err := s.transport.PostForm(ctx, "fetch timetable", pathProcessTimetable, map[string]string{
		"_csrf":         s.csrf,
		"semesterSubId": semesterSubId,
		"authorizedID":  s.username,
		"x":             s.clock.Now().Format(timestampLayout),
	})
	if err != nil {
		f.tel.ReportWarning(report_fetcher_fetch_timetable, err)
		return "", err
	}
	return string(body), nil
}

// FetchTimetable fetches and parses a semester's timetable. A page the
// parser cannot read gives an empty schedule, not an error.
func (f TimetableFetcher) FetchTimetable(ctx context.Context, semesterSubId string) (timetable.Schedule, error) {
	html, err := f.FetchTimetableHTML(ctx, semesterSubId)
	if err != nil {
		return timetable.Schedule{}, err
	}
	schedule := f.parser.Parse(html)
	if schedule.Empty() {
		f.tel.ReportWarning(report_fetcher_fetch_timetable, "empty timetable", semesterSubId)
	}
	return schedule, nil
}

// Semesters lists the semesters offered by the timetable view.
func (f TimetableFetcher) Semesters(ctx context.Context) ([]timetable.Semester, error) {
	body, err := f.initView(ctx, "list semesters")
	if err != nil {
		f.tel.ReportWarning(report_fetcher_semesters, err)
		return nil, err
	}
	return f.parser.ParseSemesters(string(body)), nil
}
