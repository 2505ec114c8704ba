package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	cookieName = "sensei_sid"
	contextKey = "session"
)

// Middleware binds a Session to every request via a signed session cookie.
// A missing or tampered cookie yields a fresh session.
func Middleware(m *Manager, secret string, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ""
			if cookie, err := c.Cookie(cookieName); err == nil {
				id = verify(cookie.Value, secret)
			}
			if id == "" {
				id = m.NewID()
				c.SetCookie(&http.Cookie{
					Name:     cookieName,
					Value:    sign(id, secret),
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c.Set(contextKey, m.Get(id))
			return next(c)
		}
	}
}

// FromContext returns the request's session. Middleware guarantees presence.
func FromContext(c echo.Context) *Session {
	s, _ := c.Get(contextKey).(*Session)
	return s
}

func sign(id, secret string) string {
	if secret == "" {
		return id
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

func verify(value, secret string) string {
	if secret == "" {
		return value
	}
	id, sig, ok := strings.Cut(value, ".")
	if !ok {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(id))
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return ""
	}
	return id
}
