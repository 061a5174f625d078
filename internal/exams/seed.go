package exams

import "github.com/pavelanni/gradetrack/internal/model"

const seedDescription = "Lorem ipsum dolor sit amet consectetur..."

// Seed returns the demo collection used on first run.
func Seed() []model.Exam {
	return []model.Exam{
		{ID: "1", Title: "Mat 202 | Actuarial Vector Analysis", Year: "YR 2", DateCreated: "November 21, 2025", DateDue: "November 25, 2025", Weight: "35%", MaxPoints: 100, PassingThreshold: 50, Status: model.StatusNotAttempted, Course: "Mathematics", Description: seedDescription, Visible: true},
		{ID: "2", Title: "Mat 202 | Actuarial Vector Analysis", Year: "YR 2", DateCreated: "November 21, 2025", DateDue: "November 24, 2025", Weight: "35%", MaxPoints: 100, PassingThreshold: 50, Status: model.StatusNotAttempted, Course: "Mathematics", Description: seedDescription, Visible: true},
		{ID: "3", Title: "THE 301 | Contemporary Performance", Year: "YR 3", DateCreated: "November 20, 2025", DateDue: "November 23, 2025", Weight: "40%", MaxPoints: 100, PassingThreshold: 60, Status: model.StatusNotAttempted, Course: "Theatre Art", Description: seedDescription, Visible: true},
		{ID: "4", Title: "Mat 301 | Advanced Calculus", Year: "YR 3", DateCreated: "November 19, 2025", DateDue: "November 22, 2025", Weight: "45%", MaxPoints: 100, PassingThreshold: 50, Status: model.StatusNotAttempted, Course: "Mathematics", Description: seedDescription, Visible: true},
		{ID: "5", Title: "THE 201 | Stage Design & Production", Year: "YR 2", DateCreated: "November 18, 2025", DateDue: "November 23, 2025", Weight: "35%", MaxPoints: 100, PassingThreshold: 55, Status: model.StatusNotAttempted, Course: "Theatre Art", Description: seedDescription, Visible: true},
		{ID: "6", Title: "Mat 101 | Linear Algebra", Year: "YR 1", DateCreated: "November 17, 2025", DateDue: "November 21, 2025", Weight: "30%", MaxPoints: 100, PassingThreshold: 50, Status: model.StatusNotAttempted, Course: "Mathematics", Description: seedDescription, Visible: true},
		{ID: "7", Title: "THE 401 | Theatre History", Year: "YR 4", DateCreated: "November 21, 2025", DateDue: "November 24, 2025", Weight: "35%", MaxPoints: 100, PassingThreshold: 60, Status: model.StatusNotAttempted, Course: "Theatre Art", Description: seedDescription, Visible: true},
		{ID: "8", Title: "Mat 202 | Differential Equations", Year: "YR 2", DateCreated: "November 22, 2025", DateDue: "November 25, 2025", Weight: "40%", MaxPoints: 100, PassingThreshold: 50, Status: model.StatusNotAttempted, Course: "Mathematics", Description: seedDescription, Visible: true},
		{ID: "9", Title: "THE 101 | Introduction to Drama", Year: "YR 1", DateCreated: "November 23, 2025", DateDue: "November 24, 2025", Weight: "30%", MaxPoints: 100, PassingThreshold: 55, Status: model.StatusNotAttempted, Course: "Theatre Art", Description: seedDescription, Visible: true},
	}
}
