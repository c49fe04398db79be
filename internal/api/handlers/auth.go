package handlers

import (
	"net/http"

	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/identity"
)

type AuthHandler struct {
	identity *identity.Service
}

func NewAuthHandler(svc *identity.Service) *AuthHandler {
	return &AuthHandler{identity: svc}
}

// Callback completes the OAuth code exchange and returns a bearer token.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code  string `json:"code" validate:"required"`
		State string `json:"state"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.identity.Login(r.Context(), req.Code, req.State)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.Me(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
