package timetable

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// minSemesterSimilarity is the lowest Jaro-Winkler score accepted as a
// name match.
const minSemesterSimilarity = 0.8

// MatchSemester resolves `query` against the portal's semester options. An
// exact id wins, otherwise the most similar name (case-insensitive) is
// returned if it scores at least minSemesterSimilarity.
func MatchSemester(semesters []Semester, query string) (Semester, bool) {
	query = strings.TrimSpace(query)
	for _, s := range semesters {
		if s.ID == query {
			return s, true
		}
	}

	var best Semester
	var bestSimilarity float64
	for _, s := range semesters {
		similarity := matchr.JaroWinkler(strings.ToLower(query), strings.ToLower(s.Name), false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = s
		}
	}
	if bestSimilarity < minSemesterSimilarity {
		return Semester{}, false
	}
	return best, true
}
