package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/avolkov/storefront/internal/identity"
)

// IdentityService is the slice of the identity provider the handlers use.
type IdentityService interface {
	Register(ctx context.Context, email, password string) (*identity.Grant, error)
	Login(ctx context.Context, email, password string) (*identity.Grant, error)
	Logout(userID string)
}

type AuthHandler struct {
	identity IdentityService
}

func NewAuthHandler(identity IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

type CredentialsDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validate returns the normalized email so callers never re-derive it.
func (d CredentialsDTO) validate() (email, code, msg string) {
	email = normalizeEmail(d.Email)
	if email == "" || !strings.Contains(email, "@") {
		return "", "invalid_email", "a valid email is required"
	}
	if len(d.Password) < 8 {
		return "", "weak_password", "password must be at least 8 characters"
	}
	return email, "", ""
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	email, code, msg := req.validate()
	if code != "" {
		respondError(w, http.StatusBadRequest, code, msg)
		return
	}

	grant, err := h.identity.Register(r.Context(), email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, grant)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	grant, err := h.identity.Login(r.Context(), normalizeEmail(req.Email), req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, grant)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "not_authenticated", "sign in first")
		return
	}

	h.identity.Logout(userID)
	w.WriteHeader(http.StatusNoContent)
}
