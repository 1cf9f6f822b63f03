package handler

import (
	"log/slog"
	"net/http"

	"github.com/fanvault/fanvault/internal/ctxkeys"
	"github.com/fanvault/fanvault/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Requisição inválida")
		return
	}

	user, err := h.authService.Signup(r.Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, expiresAt, err := h.authService.GenerateJWT(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.authService.SetJWTCookie(w, token, expiresAt)

	created(w, sessionResponse{Token: token, ExpiresAt: expiresAt.Unix(), UserID: user.ID, Email: user.Email})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Requisição inválida")
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, expiresAt, err := h.authService.GenerateJWT(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.authService.SetJWTCookie(w, token, expiresAt)

	slog.Info("user logged in", "user_id", user.ID)
	ok(w, sessionResponse{Token: token, ExpiresAt: expiresAt.Unix(), UserID: user.ID, Email: user.Email})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	ok(w, nil)
}

// Me returns the authenticated user with their profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]any{
		"user":    ctxkeys.User(r.Context()),
		"profile": ctxkeys.Profile(r.Context()),
	})
}
