package model

import "time"

// LessonStatus is the publication state of a lesson.
type LessonStatus string

const (
	// LessonDraft is visible to admins only.
	LessonDraft LessonStatus = "draft"
	// LessonPublished is visible to all students.
	LessonPublished LessonStatus = "published"
	// LessonScheduled becomes visible once PublishDate has passed.
	LessonScheduled LessonStatus = "scheduled"
)

// Lesson is a course lesson with video and homework material links.
type Lesson struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	VideoURL    string       `json:"videoUrl"`
	HomeworkURL string       `json:"homeworkUrl"`
	Status      LessonStatus `json:"status"`
	PublishDate time.Time    `json:"publishDate"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// VisibleAt reports whether students can see the lesson at the given time.
// Published lessons are always visible; scheduled lessons become visible
// once their publish date has passed.
func (l *Lesson) VisibleAt(now time.Time) bool {
	switch l.Status {
	case LessonPublished:
		return true
	case LessonScheduled:
		return !l.PublishDate.After(now)
	default:
		return false
	}
}
