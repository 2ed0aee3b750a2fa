package http

import (
	"net/http"
	"time"

	"github.com/harbourlane/foyer/internal/service"
	"github.com/harbourlane/foyer/pkg/httpx"
)

// setSessionCookie installs the signed session token. HttpOnly keeps scripts
// out; SameSite=Lax survives top-level navigation from mail links.
func setSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(service.DefaultSessionTTL / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
