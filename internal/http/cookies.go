package httpx

import (
	"net/http"
	"time"
)

const (
	sessionCookieName = "user_token"
	stateCookieName   = "oauth_state"
	stateCookieTTL    = 10 * time.Minute
)

func (r *Router) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(r.cfg.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   r.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (r *Router) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (r *Router) setStateCookie(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/github",
		MaxAge:   int(stateCookieTTL / time.Second),
		HttpOnly: true,
		Secure:   r.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (r *Router) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/auth/github",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
