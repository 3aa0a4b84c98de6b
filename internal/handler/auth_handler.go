package handler

import (
	"net/http"

	"training-app/internal/middleware"
)

// AuthHandler serves login and user registration.
type AuthHandler struct {
	auth AuthServicer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(a AuthServicer) *AuthHandler {
	return &AuthHandler{auth: a}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// login exchanges a username and password for a bearer token.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) error {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}
	token, err := h.auth.Authenticate(r.Context(), in.Username, in.Password)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
	return nil
}

// register creates a non-admin user. Admin only.
func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}
	user, err := h.auth.Register(r.Context(), id, in.Username, in.Password)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusCreated, user)
	return nil
}
