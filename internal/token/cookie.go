// AngelaMos | 2026
// cookie.go

package token

import (
	"net/http"
	"strings"
	"time"
)

const DefaultCookieName = "jwt"

type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

func SetCookie(w http.ResponseWriter, cfg CookieConfig, raw string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.name(),
		Value:    raw,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest returns the raw token, preferring the Authorization header over
// the cookie so a fresh header is never shadowed by a stale cookie.
func FromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if v := strings.TrimSpace(value); v != "" {
				return v
			}
		}
	}

	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}

	return ""
}
