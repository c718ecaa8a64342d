package model

import "time"

// HomeworkStatus is the review state of a submission.
type HomeworkStatus string

const (
	// HomeworkSubmitted means the student turned in a file and is waiting
	// for review.
	HomeworkSubmitted HomeworkStatus = "submitted"
	// HomeworkChecked means the admin attached feedback.
	HomeworkChecked HomeworkStatus = "checked"
)

// Homework is a student's submission for a lesson. Feedback is nil until
// the admin reviews it; setting feedback moves the status to checked.
type Homework struct {
	ID            int            `json:"id"`
	StudentID     string         `json:"studentId"`
	LessonID      int            `json:"lessonId"`
	SubmittedFile string         `json:"submittedFile"`
	SubmittedDate time.Time      `json:"submittedDate"`
	Feedback      *string        `json:"feedback"`
	Status        HomeworkStatus `json:"status"`
}
