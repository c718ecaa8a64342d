// Package notify sends homework event notifications. The production
// implementation talks to the Telegram Bot API; everything is best-effort
// and a failed notification never fails the request that triggered it.
package notify

import "context"

// Notifier receives homework lifecycle events.
type Notifier interface {
	// HomeworkSubmitted tells the admin a student turned in a file.
	HomeworkSubmitted(ctx context.Context, studentName, lessonTitle, fileName string) error
	// FeedbackSent tells the student their submission was reviewed.
	// studentTelegram may carry a leading @.
	FeedbackSent(ctx context.Context, studentTelegram, lessonTitle, feedback string) error
}

// Noop discards all notifications. Used when Telegram is not configured.
type Noop struct{}

func (Noop) HomeworkSubmitted(context.Context, string, string, string) error { return nil }
func (Noop) FeedbackSent(context.Context, string, string, string) error      { return nil }
