package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fanvault/fanvault/internal/ctxkeys"
	"github.com/fanvault/fanvault/internal/service"
)

// AuthMiddleware checks for a JWT (cookie or bearer) and adds user + profile
// to the context if valid. Requests without a valid token continue anonymous.
func AuthMiddleware(authService *service.AuthService, userService *service.UserService, profileService *service.ProfileService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := service.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := authService.VerifyJWT(token)
			if err != nil {
				// Invalid token, clear cookie and continue
				authService.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			user, err := userService.ByID(r.Context(), userID)
			if err != nil {
				authService.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			// Security: Remove password hash from context
			user.PasswordHash = nil

			profile, err := profileService.ByUserID(r.Context(), userID)
			if err != nil {
				authService.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			ctxkeys.AddLog(r.Context(), slog.String("user_id", user.ID), slog.String("role", profile.Role))

			ctx := ctxkeys.WithUser(r.Context(), user)
			ctx = ctxkeys.WithProfile(ctx, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) == nil || ctxkeys.Profile(r.Context()) == nil {
			deny(w, http.StatusUnauthorized, "Autenticação necessária")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// RequireCreator only lets creator profiles through.
func RequireCreator(next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !ctxkeys.Profile(r.Context()).IsCreator() {
			deny(w, http.StatusForbidden, "Disponível apenas para criadores")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin only lets accounts listed in ADMIN_EMAILS through. The Config
// middleware must run first.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		cfg := ctxkeys.Config(r.Context())
		if cfg == nil || !cfg.IsAdmin(ctxkeys.User(r.Context()).Email) {
			deny(w, http.StatusForbidden, "Acesso negado")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// deny writes the same envelope the handlers use.
func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}
