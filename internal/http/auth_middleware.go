package httpx

import (
	"context"
	"net/http"
)

type authContextKey string

type authInfo struct {
	UserID string
}

const contextKeyAuth authContextKey = "tasky-auth-info"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request carries a valid session cookie before
// invoking the handler. The user row is not looked up here.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, bool) {
	cookie, err := req.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return req.Context(), false
	}
	userID, err := r.auth.VerifyToken(cookie.Value)
	if err != nil {
		r.logger.Warn("session token rejected", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return req.Context(), false
	}
	return withAuthInfo(req.Context(), userID), true
}

func withAuthInfo(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyAuth, authInfo{UserID: userID})
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	info, ok := ctx.Value(contextKeyAuth).(authInfo)
	return info, ok
}
