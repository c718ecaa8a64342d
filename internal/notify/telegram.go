package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram sends notifications through the Telegram Bot API with HTML
// formatting.
type Telegram struct {
	token       string
	adminChatID string
	apiBase     string
	client      *http.Client
	logger      *slog.Logger
}

// NewTelegram creates a Telegram notifier. adminChatID receives the
// submission notifications.
func NewTelegram(token, adminChatID string, logger *slog.Logger) *Telegram {
	return &Telegram{
		token:       token,
		adminChatID: adminChatID,
		apiBase:     defaultAPIBase,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger.With("component", "telegram"),
	}
}

// WithAPIBase overrides the Bot API base URL. Tests point it at a local
// server.
func (t *Telegram) WithAPIBase(base string) *Telegram {
	t.apiBase = base
	return t
}

func (t *Telegram) HomeworkSubmitted(ctx context.Context, studentName, lessonTitle, fileName string) error {
	msg := fmt.Sprintf(
		"<b>📚 Новое домашнее задание!</b>\n\n<b>Ученица:</b> %s\n<b>Урок:</b> %s\n<b>Файл:</b> %s\n\n<i>Проверьте задание в административной панели</i>",
		html.EscapeString(studentName), html.EscapeString(lessonTitle), html.EscapeString(fileName),
	)
	return t.send(ctx, t.adminChatID, msg)
}

func (t *Telegram) FeedbackSent(ctx context.Context, studentTelegram, lessonTitle, feedback string) error {
	msg := fmt.Sprintf(
		"<b>✅ Ваше домашнее задание проверено!</b>\n\n<b>Урок:</b> %s\n<b>Отзыв преподавателя:</b>\n%s\n\n<i>Войдите в личный кабинет, чтобы увидеть подробности</i>",
		html.EscapeString(lessonTitle), html.EscapeString(feedback),
	)
	return t.send(ctx, strings.TrimPrefix(studentTelegram, "@"), msg)
}

func (t *Telegram) send(ctx context.Context, chatID, text string) error {
	if chatID == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Warn("telegram send failed", "error", err)
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.logger.Warn("telegram response unreadable", "error", err)
		return fmt.Errorf("decode telegram response: %w", err)
	}
	if !result.OK {
		t.logger.Warn("telegram rejected message", "status", resp.StatusCode)
		return fmt.Errorf("telegram rejected message: status %d", resp.StatusCode)
	}
	return nil
}
