package auth

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func issuedToken(t *testing.T, g *CSRFGuard) (string, *http.Cookie) {
	t.Helper()
	w := httptest.NewRecorder()
	token, err := g.Issue(w)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	return token, cookies[0]
}

func TestCSRFIssue(t *testing.T) {
	g := NewCSRFGuard(false)
	token, cookie := issuedToken(t, g)

	if cookie.Name != CSRFCookieName || cookie.Value != token {
		t.Errorf("cookie = %+v, token = %q", cookie, token)
	}
	if cookie.HttpOnly {
		t.Error("csrf cookie must be readable by page scripts")
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}

	// Two issues never collide.
	other, _ := issuedToken(t, g)
	if other == token {
		t.Error("tokens must be unique")
	}
}

func TestCSRFValidate_Header(t *testing.T) {
	g := NewCSRFGuard(false)
	token, cookie := issuedToken(t, g)

	r := httptest.NewRequest("POST", "/api/lessons", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-CSRF-Token", token)
	r.AddCookie(cookie)
	if !g.Validate(r) {
		t.Error("header token should validate")
	}
}

func TestCSRFValidate_JSONBody(t *testing.T) {
	g := NewCSRFGuard(false)
	token, cookie := issuedToken(t, g)

	body := `{"csrfToken":"` + token + `","title":"Урок 1"}`
	r := httptest.NewRequest("POST", "/api/lessons", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.AddCookie(cookie)
	if !g.Validate(r) {
		t.Fatal("json body token should validate")
	}

	// The body must survive validation so the handler can decode it.
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var payload struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal restored body: %v", err)
	}
	if payload.Title != "Урок 1" {
		t.Errorf("title = %q after validation", payload.Title)
	}
}

func TestCSRFValidate_MultipartForm(t *testing.T) {
	g := NewCSRFGuard(false)
	token, cookie := issuedToken(t, g)

	var buf strings.Builder
	mw := multipart.NewWriter(&buf)
	mw.WriteField("csrfToken", token)
	mw.WriteField("lessonId", "3")
	mw.Close()

	r := httptest.NewRequest("POST", "/api/homework/submit", strings.NewReader(buf.String()))
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.AddCookie(cookie)
	if !g.Validate(r) {
		t.Fatal("multipart token should validate")
	}
	if r.FormValue("lessonId") != "3" {
		t.Error("form fields should stay readable after validation")
	}
}

func TestCSRFValidate_FailsClosed(t *testing.T) {
	g := NewCSRFGuard(false)
	token, cookie := issuedToken(t, g)

	t.Run("no cookie", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/lessons", nil)
		r.Header.Set("X-CSRF-Token", token)
		if g.Validate(r) {
			t.Error("missing cookie must fail")
		}
	})

	t.Run("no token", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/lessons", nil)
		r.AddCookie(cookie)
		if g.Validate(r) {
			t.Error("missing token must fail")
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/lessons", nil)
		r.Header.Set("X-CSRF-Token", strings.Repeat("0", 64))
		r.AddCookie(cookie)
		if g.Validate(r) {
			t.Error("mismatched token must fail")
		}
	})

	t.Run("empty cookie value", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/lessons", nil)
		r.Header.Set("X-CSRF-Token", "")
		r.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: ""})
		if g.Validate(r) {
			t.Error("empty values must fail")
		}
	})
}
