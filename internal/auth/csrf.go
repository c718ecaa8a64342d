package auth

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// CSRFCookieName is the double-submit cookie. It must be readable by
	// page scripts, so it is deliberately not httpOnly.
	CSRFCookieName = "csrf_token"
	// CSRFTokenMaxAge is the token lifetime, independent of the session.
	CSRFTokenMaxAge = 24 * time.Hour

	maxJSONBody = 1 << 20 // cap on bodies buffered for token extraction
)

// CSRFGuard implements the double-submit pattern: a random token lives in a
// readable cookie and state-changing requests must echo it back in a header
// or body field.
type CSRFGuard struct {
	secure bool
}

// NewCSRFGuard creates a guard. secure controls the Secure cookie attribute.
func NewCSRFGuard(secure bool) *CSRFGuard {
	return &CSRFGuard{secure: secure}
}

// Issue generates a fresh token and sets the cookie.
func (g *CSRFGuard) Issue(w http.ResponseWriter) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(CSRFTokenMaxAge.Seconds()),
	})
	return token, nil
}

// Validate compares the cookie token against the one supplied by the
// request. Absence on either side fails closed.
func (g *CSRFGuard) Validate(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	supplied := tokenFromRequest(r)
	if supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(supplied)) == 1
}

// tokenFromRequest pulls the client-supplied token from the X-CSRF-Token
// header, a csrfToken JSON/form field, or a csrfToken query parameter.
// JSON bodies are buffered and restored so the handler can still decode
// them.
func tokenFromRequest(r *http.Request) string {
	if tok := r.Header.Get("X-CSRF-Token"); tok != "" {
		return tok
	}

	ct := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(ct, "application/json"):
		body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
		if err != nil {
			return ""
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		var payload struct {
			CSRFToken string `json:"csrfToken"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return ""
		}
		return payload.CSRFToken

	case strings.Contains(ct, "multipart/form-data"), strings.Contains(ct, "application/x-www-form-urlencoded"):
		// Parsed form data stays cached on the request for the handler.
		if err := r.ParseMultipartForm(32 << 20); err != nil && err != http.ErrNotMultipart {
			return ""
		}
		return r.FormValue("csrfToken")

	default:
		return r.URL.Query().Get("csrfToken")
	}
}
