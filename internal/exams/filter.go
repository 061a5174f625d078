package exams

import (
	"strings"

	"github.com/pavelanni/gradetrack/internal/model"
)

// Filter returns the exams matching f, in their original order.
//
// An exam matches the query when "<title> <course> <year>" contains it,
// ignoring case, and matches the subject when its course is equal to it.
// Empty criteria match everything. f.DateRange is not applied.
func Filter(exams []model.Exam, f model.Filters) []model.Exam {
	q := strings.ToLower(f.Query)
	out := make([]model.Exam, 0, len(exams))
	for _, e := range exams {
		if q != "" && !strings.Contains(strings.ToLower(e.Title+" "+e.Course+" "+e.Year), q) {
			continue
		}
		if f.Subject != "" && e.Course != f.Subject {
			continue
		}
		out = append(out, e)
	}
	return out
}
