package httpx

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ksmcod/tasky-api/internal/service/team"
)

func (r *Router) handleCreateTeam(w http.ResponseWriter, req *http.Request) {
	info, ok := r.requireAuthInfo(w, req)
	if !ok {
		return
	}
	var payload team.CreateInput
	if !decodeJSON(w, req, &payload) {
		return
	}
	created, err := r.teams.Create(req.Context(), info.UserID, payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleJoinTeam(w http.ResponseWriter, req *http.Request) {
	info, ok := r.requireAuthInfo(w, req)
	if !ok {
		return
	}
	var payload struct {
		TeamCode any `json:"teamCode"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	var code string
	switch v := payload.TeamCode.(type) {
	case nil:
	case string:
		code = v
	default:
		writeError(w, http.StatusBadRequest, "Please send a valid team code")
		return
	}
	joined, err := r.teams.Join(req.Context(), info.UserID, code)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Welcome to "+joined.Name)
}

func (r *Router) handleListTeams(w http.ResponseWriter, req *http.Request) {
	info, ok := r.requireAuthInfo(w, req)
	if !ok {
		return
	}
	teams, err := r.teams.ListUserTeams(req.Context(), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (r *Router) handleListMembers(w http.ResponseWriter, req *http.Request) {
	info, ok := r.requireAuthInfo(w, req)
	if !ok {
		return
	}
	members, err := r.teams.ListMembers(req.Context(), info.UserID, mux.Vars(req)["teamCode"])
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (r *Router) handleDeleteTeam(w http.ResponseWriter, req *http.Request) {
	info, ok := r.requireAuthInfo(w, req)
	if !ok {
		return
	}
	if err := r.teams.Delete(req.Context(), info.UserID, mux.Vars(req)["teamCode"]); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeMessage(w, http.StatusOK, "Team deleted")
}

func (r *Router) handleLeaveTeam(w http.ResponseWriter, req *http.Request) {
	info, ok := r.requireAuthInfo(w, req)
	if !ok {
		return
	}
	if err := r.teams.Leave(req.Context(), info.UserID, mux.Vars(req)["teamCode"]); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeMessage(w, http.StatusOK, "You have left the team")
}

func (r *Router) handleRemoveMember(w http.ResponseWriter, req *http.Request) {
	info, ok := r.requireAuthInfo(w, req)
	if !ok {
		return
	}
	vars := mux.Vars(req)
	if err := r.teams.RemoveMember(req.Context(), info.UserID, vars["teamCode"], vars["email"]); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeMessage(w, http.StatusOK, "Member removed")
}
