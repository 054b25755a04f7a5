package httpx

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/ksmcod/tasky-api/internal/domain"
	"github.com/ksmcod/tasky-api/internal/service/account"
	"github.com/ksmcod/tasky-api/internal/service/auth"
	"github.com/ksmcod/tasky-api/pkg/apperr"
)

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	var payload account.RegisterInput
	if !decodeJSON(w, req, &payload) {
		return
	}
	user, err := r.accounts.Register(req.Context(), payload)
	if err != nil {
		// Registration conflicts are reported as bad requests.
		if apperr.KindOf(err) == apperr.KindConflict {
			writeError(w, http.StatusBadRequest, apperr.Message(err))
			return
		}
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var payload auth.LoginInput
	if !decodeJSON(w, req, &payload) {
		return
	}
	user, token, err := r.auth.Login(req.Context(), payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	r.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    newUserResponse(user),
	})
}

func (r *Router) handleLogout(w http.ResponseWriter, _ *http.Request) {
	r.clearSessionCookie(w)
	writeMessage(w, http.StatusOK, "Logged out")
}

func (r *Router) handleGitHubLogin(w http.ResponseWriter, req *http.Request) {
	state, err := auth.NewState()
	if err != nil {
		r.writeServiceError(w, req, apperr.Internal("generate oauth state", err))
		return
	}
	target, err := r.auth.GitHubAuthURL(state)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	r.setStateCookie(w, state)
	http.Redirect(w, req, target, http.StatusFound)
}

// handleGitHubCallback always sends the browser back to the client app.
func (r *Router) handleGitHubCallback(w http.ResponseWriter, req *http.Request) {
	defer http.Redirect(w, req, r.cfg.ClientURL, http.StatusFound)

	expected, cookieErr := req.Cookie(stateCookieName)
	r.clearStateCookie(w)
	state := req.URL.Query().Get("state")
	if cookieErr != nil || state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected.Value)) != 1 {
		r.logger.Warn("github callback state mismatch", "ip", clientIP(req))
		return
	}
	if reason := req.URL.Query().Get("error"); reason != "" {
		r.logger.Warn("github authorization denied", "reason", reason)
		return
	}
	user, token, err := r.auth.GitHubLogin(req.Context(), req.URL.Query().Get("code"))
	if err != nil {
		level := r.logger.Warn
		if apperr.KindOf(err) == apperr.KindInternal {
			level = r.logger.Error
		}
		level("github login failed", "error", err)
		return
	}
	r.setSessionCookie(w, token)
	if setter, ok := w.(contextSetter); ok {
		setter.SetContext(withAuthInfo(req.Context(), user.ID))
	}
}

func (r *Router) handleGetUser(w http.ResponseWriter, req *http.Request) {
	info, ok := r.requireAuthInfo(w, req)
	if !ok {
		return
	}
	user, err := r.accounts.FindByID(req.Context(), info.UserID)
	if err != nil {
		if errors.Is(err, apperr.NotFound("")) {
			writeError(w, http.StatusUnauthorized, "User non-existent")
			return
		}
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"name":  user.Name,
		"email": user.Email,
		"image": user.Image,
	})
}

// requireAuthInfo reads the identity stored by requireAuth.
func (r *Router) requireAuthInfo(w http.ResponseWriter, req *http.Request) (authInfo, bool) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
	return info, ok
}
