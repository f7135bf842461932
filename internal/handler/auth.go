package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/social-network/internal/service"
)

// AuthHandler exposes the session endpoints: login and refresh.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// HandleLogin authenticates a username/password pair and returns the token
// pair.
//
// HTTP: POST /auth/login
// REQUEST BODY: {"username": "...", "password": "..."}
// RESPONSE: 200 {"access_token": "...", "refresh_token": "..."} or 401.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid login JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	pair, err := h.auth.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// HandleRefresh exchanges a refresh token for a new access token.
//
// HTTP: POST /auth/refresh
// REQUEST BODY: {"refresh_token": "..."}
// RESPONSE: 200 {"access_token": "..."} or 401.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid refresh JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	access, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: access})
}
