package model

import "encoding/json"

// StatusNotAttempted is the status given to exams that have not been sat yet.
const StatusNotAttempted = "Not Attempted"

// DateLayout renders dates in long form, e.g. "November 21, 2025".
const DateLayout = "January 02, 2006"

// Exam is a single tracked assessment.
type Exam struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Year             string  `json:"year"`
	DateCreated      string  `json:"dateCreated"`
	DateDue          string  `json:"dateDue"`
	Weight           string  `json:"weight"`
	MaxPoints        float64 `json:"maxPoints"`
	PassingThreshold float64 `json:"passingThreshold"`
	Status           string  `json:"status"`
	Course           string  `json:"course"`
	Description      string  `json:"description"`
	Visible          bool    `json:"visible"`
}

// Draft is the input shape for creating or updating an exam.
// ID and DateCreated are accepted but ignored; the record store owns them.
type Draft struct {
	ID               string  `json:"id,omitempty"`
	Title            string  `json:"title" validate:"required"`
	Year             string  `json:"year"`
	DateCreated      string  `json:"dateCreated,omitempty"`
	DateDue          string  `json:"dateDue" validate:"required"`
	Weight           string  `json:"weight" validate:"percent"`
	MaxPoints        float64 `json:"maxPoints" validate:"finite,gt=0"`
	PassingThreshold float64 `json:"passingThreshold" validate:"finite,gte=0,lte=100"`
	Status           string  `json:"status"`
	Course           string  `json:"course" validate:"required"`
	Description      string  `json:"description"`
	Visible          bool    `json:"visible"`
}

// DraftFrom returns a draft carrying every field of e.
func DraftFrom(e Exam) Draft {
	return Draft{
		ID:               e.ID,
		Title:            e.Title,
		Year:             e.Year,
		DateCreated:      e.DateCreated,
		DateDue:          e.DateDue,
		Weight:           e.Weight,
		MaxPoints:        e.MaxPoints,
		PassingThreshold: e.PassingThreshold,
		Status:           e.Status,
		Course:           e.Course,
		Description:      e.Description,
		Visible:          e.Visible,
	}
}

// Filters holds the criteria for the filtered view.
// Empty Subject and DateRange mean "all".
type Filters struct {
	Query     string `json:"query"`
	Subject   string `json:"subject"`
	DateRange string `json:"dateRange"`
}

// FilterPatch is a partial update of Filters. Nil fields are left unchanged;
// a pointer to an empty string clears the criterion.
type FilterPatch struct {
	Query     *string
	Subject   *string
	DateRange *string
}

// Apply returns f with the patch applied.
func (p FilterPatch) Apply(f Filters) Filters {
	if p.Query != nil {
		f.Query = *p.Query
	}
	if p.Subject != nil {
		f.Subject = *p.Subject
	}
	if p.DateRange != nil {
		f.DateRange = *p.DateRange
	}
	return f
}

// MarshalJSON renders empty Subject and DateRange as null.
func (f Filters) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Query     string  `json:"query"`
		Subject   *string `json:"subject"`
		DateRange *string `json:"dateRange"`
	}{f.Query, nullable(f.Subject), nullable(f.DateRange)})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
