// Package grade scores a raw mark against an exam's maximum points and
// passing threshold.
package grade

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pavelanni/gradetrack/internal/model"
)

var (
	// ErrInvalidScore is returned for scores that are not finite numbers.
	ErrInvalidScore = errors.New("score is not a valid number")
	// ErrOutOfRange is wrapped by *RangeError.
	ErrOutOfRange = errors.New("score out of range")
	// ErrInvalidExam is returned when the exam has no usable maximum points.
	ErrInvalidExam = errors.New("exam max points must be a positive number")
)

// RangeError reports a score outside [Min, Max].
type RangeError struct {
	Score float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("score %g must be between %g and %g", e.Score, e.Min, e.Max)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// Result is a graded score.
type Result struct {
	Score      float64 `json:"score"`
	MaxPoints  float64 `json:"maxPoints"`
	Percentage float64 `json:"percentage"`
	Threshold  float64 `json:"passingThreshold"`
	Passed     bool    `json:"passed"`
}

// Rounded returns the percentage rounded to one decimal place.
func (r Result) Rounded() float64 {
	return math.Round(r.Percentage*10) / 10
}

// Display formats the rounded percentage with one decimal, e.g. "49.0".
// Ties round away from zero, matching Rounded.
func (r Result) Display() string {
	return strconv.FormatFloat(r.Rounded(), 'f', 1, 64)
}

// Evaluate grades score against exam. Passing is inclusive of the threshold.
// The exam is not modified.
func Evaluate(score float64, exam model.Exam) (Result, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return Result{}, ErrInvalidScore
	}
	if math.IsNaN(exam.MaxPoints) || math.IsInf(exam.MaxPoints, 0) || exam.MaxPoints <= 0 {
		return Result{}, ErrInvalidExam
	}
	if score < 0 || score > exam.MaxPoints {
		return Result{}, &RangeError{Score: score, Min: 0, Max: exam.MaxPoints}
	}

	pct := score / exam.MaxPoints * 100
	return Result{
		Score:      score,
		MaxPoints:  exam.MaxPoints,
		Percentage: pct,
		Threshold:  exam.PassingThreshold,
		Passed:     pct >= exam.PassingThreshold,
	}, nil
}

// ParseScore parses user input as a score. Anything that is not a finite
// number yields ErrInvalidScore.
func ParseScore(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidScore
	}
	return v, nil
}
