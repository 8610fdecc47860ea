package api

import (
	"errors"
	"net/http"

	"github.com/tahcohcat/starpath-web/internal/models"
	"github.com/tahcohcat/starpath-web/internal/services"
)

var errNotSignedIn = services.ErrNotAuthenticated

// POST /register creates an account and signs it in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.CreateUser(&req)
	switch {
	case errors.Is(err, services.ErrUsernameTaken):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, services.ErrInvalidUser):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeServiceError(w, err)
		return
	}

	h.auth.Login(r.Context(), h.auth.Store(r), user)
	writeJSON(w, http.StatusCreated, profileOf(user))
}

// POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.AuthenticateUser(&req)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	case errors.Is(err, services.ErrAccountDisabled):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		writeServiceError(w, err)
		return
	}

	h.auth.Login(r.Context(), h.auth.Store(r), user)
	writeJSON(w, http.StatusOK, profileOf(user))
}

// POST /logout keeps the activity history in the client store.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(r.Context(), h.auth.Store(r))
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.auth.Session(r).Profile(r.Context())
	if !ok {
		writeServiceError(w, errNotSignedIn)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func profileOf(u *models.User) models.Profile {
	return models.Profile{
		StudentID:   u.StudentID(),
		DisplayName: u.DisplayName,
		GradeLevel:  u.GradeLevel,
	}
}
