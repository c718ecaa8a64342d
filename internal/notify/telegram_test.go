package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type sentMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func botAPIStub(t *testing.T, got *[]sentMessage) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var msg sentMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode: %v", err)
		}
		*got = append(*got, msg)
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
}

func TestHomeworkSubmitted(t *testing.T) {
	var got []sentMessage
	srv := botAPIStub(t, &got)
	defer srv.Close()

	tg := NewTelegram("test-token", "12345", testLogger()).WithAPIBase(srv.URL)
	err := tg.HomeworkSubmitted(context.Background(), "Тестовая Ученица", "Урок 3", "hw.pdf")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("messages = %d, want 1", len(got))
	}
	msg := got[0]
	if msg.ChatID != "12345" {
		t.Errorf("chat_id = %q, want admin chat", msg.ChatID)
	}
	if msg.ParseMode != "HTML" {
		t.Errorf("parse_mode = %q, want HTML", msg.ParseMode)
	}
	for _, part := range []string{"Тестовая Ученица", "Урок 3", "hw.pdf"} {
		if !strings.Contains(msg.Text, part) {
			t.Errorf("message missing %q: %s", part, msg.Text)
		}
	}
}

func TestFeedbackSent_StripsAtPrefix(t *testing.T) {
	var got []sentMessage
	srv := botAPIStub(t, &got)
	defer srv.Close()

	tg := NewTelegram("test-token", "12345", testLogger()).WithAPIBase(srv.URL)
	err := tg.FeedbackSent(context.Background(), "@student_chat", "Урок 3", "Good job")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("messages = %d, want 1", len(got))
	}
	if got[0].ChatID != "student_chat" {
		t.Errorf("chat_id = %q, want @ stripped", got[0].ChatID)
	}
	if !strings.Contains(got[0].Text, "Good job") {
		t.Errorf("message missing feedback: %s", got[0].Text)
	}
}

func TestFeedbackSent_EscapesHTML(t *testing.T) {
	var got []sentMessage
	srv := botAPIStub(t, &got)
	defer srv.Close()

	tg := NewTelegram("test-token", "12345", testLogger()).WithAPIBase(srv.URL)
	if err := tg.FeedbackSent(context.Background(), "chat", "<b>Урок</b>", "a < b"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if strings.Contains(got[0].Text, "<b>Урок</b>") {
		t.Errorf("lesson title not escaped: %s", got[0].Text)
	}
}

func TestSend_RejectedByAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]bool{"ok": false})
	}))
	defer srv.Close()

	tg := NewTelegram("test-token", "12345", testLogger()).WithAPIBase(srv.URL)
	if err := tg.HomeworkSubmitted(context.Background(), "x", "y", "z"); err == nil {
		t.Error("expected error when the API rejects the message")
	}
}

func TestSend_NoChatConfigured(t *testing.T) {
	tg := NewTelegram("test-token", "", testLogger())
	// No chat ID means nothing to send and no error.
	if err := tg.HomeworkSubmitted(context.Background(), "x", "y", "z"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
