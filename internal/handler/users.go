package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSuraphong/library-testing/internal/auth"
	"github.com/MrSuraphong/library-testing/internal/lending"
	"github.com/MrSuraphong/library-testing/internal/model"
)

// Register handles POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, lending.ErrConflict) {
			writeError(w, http.StatusConflict, "username is already taken")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateProfile handles PUT /users/{id}
// Users may only edit their own profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil || claims.Subject != id {
		writeError(w, http.StatusForbidden, "cannot edit another user's profile")
		return
	}

	var req struct {
		ProfilePicture string `json:"profile_picture"`
		Bio            string `json:"bio"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), id, req.ProfilePicture, req.Bio)
	if err != nil {
		if errors.Is(err, lending.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
