package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/jobpilot/internal/apperror"
	"github.com/sakif/jobpilot/internal/auth"
	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/service"
)

// AuthHandler serves registration, login and the "who am I" profile.
//
//	POST /auth/register → {"token": "...", "user": {...}}   201
//	POST /auth/login    → {"token": "...", "user": {...}}   200
//	GET  /auth/me       → {"id": 7, "email": "...", ...}   200 (bearer required)
//
// There is no logout endpoint: tokens are stateless, and a client logs out by
// discarding its copy.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, logger: logger}
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleMe returns the profile of the token's owner. A valid token for a
// user that no longer exists is answered with 401, so the client drops it.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Auth(nil, "Authentication required"))
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Warn("token for unknown user",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, apperror.Auth(nil, "User no longer exists"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}
