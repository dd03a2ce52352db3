package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avolkov/storefront/internal/enhance"
	"github.com/avolkov/storefront/internal/identity"
	"github.com/avolkov/storefront/internal/repository"
	"github.com/avolkov/storefront/internal/session"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// handleServiceError translates service failures into HTTP replies. Every
// failure is reported to the caller; nothing is swallowed.
func handleServiceError(w http.ResponseWriter, err error) {
	var statusErr *enhance.StatusError

	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		respondError(w, http.StatusUnauthorized, "not_authenticated", "sign in to use the cart")
	case errors.Is(err, identity.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, identity.ErrEmailTaken):
		respondError(w, http.StatusConflict, "email_taken", "that email is already registered")
	case errors.Is(err, repository.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.As(err, &statusErr):
		respondError(w, http.StatusBadGateway, "enhancement_failed", statusErr.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}
