package routes

import (
	"net/http"
	"strings"

	"github.com/fanvault/fanvault/internal/app"
	"github.com/fanvault/fanvault/internal/handler"
	"github.com/fanvault/fanvault/internal/middleware"
	"github.com/fanvault/fanvault/internal/storage"
)

func SetupRoutes(app *app.App) http.Handler {
	maxUpload := app.Cfg.MaxUploadBytes

	// Handlers
	health := handler.NewHealthHandler(app.DB)
	auth := handler.NewAuthHandler(app.AuthService)
	profile := handler.NewProfileHandler(app.ProfileService, maxUpload)
	media := handler.NewMediaHandler(app.MediaService, maxUpload)
	kyc := handler.NewKYCHandler(app.KYCService, maxUpload)
	account := handler.NewAccountHandler(app.UserService, app.AuthService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Healthz)

	// Stored objects (local driver only)
	if local, ok := app.Storage.(*storage.LocalBackend); ok {
		mux.Handle("GET /files/", http.StripPrefix("/files/", fileServer(local.BasePath(), app.Cfg.BucketKYC)))
	}

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth()

	mux.HandleFunc("POST /auth/signup", rateLimiter(auth.Signup))
	mux.HandleFunc("POST /auth/login", rateLimiter(auth.Login))
	mux.HandleFunc("POST /auth/logout", auth.Logout)

	// ============================================================================
	// PROTECTED ROUTES (/app/*)
	// ============================================================================

	mux.HandleFunc("GET /app/me", middleware.RequireAuth(auth.Me))

	// Profile
	mux.HandleFunc("GET /app/profile", middleware.RequireAuth(profile.Show))
	mux.HandleFunc("PATCH /app/profile/name", middleware.RequireAuth(profile.UpdateName))
	mux.HandleFunc("POST /app/profile/avatar", middleware.RequireAuth(profile.UploadAvatar))
	mux.HandleFunc("DELETE /app/profile/avatar", middleware.RequireAuth(profile.DeleteAvatar))

	// Media
	mux.HandleFunc("GET /app/media", middleware.RequireAuth(media.List))
	mux.HandleFunc("POST /app/media/{class}", middleware.RequireCreator(media.Upload))
	mux.HandleFunc("DELETE /app/media/{id}", middleware.RequireAuth(media.Delete))

	// KYC
	mux.HandleFunc("GET /app/kyc", middleware.RequireCreator(kyc.List))
	mux.HandleFunc("POST /app/kyc", middleware.RequireCreator(kyc.Submit))

	// Account
	mux.HandleFunc("DELETE /app/account", middleware.RequireAuth(account.Delete))

	// ============================================================================
	// ADMIN ROUTES
	// ============================================================================

	mux.HandleFunc("PATCH /admin/kyc/{id}", middleware.RequireAdmin(kyc.Review))

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.Recover,
		middleware.Config(app.Cfg), // Config must run before RequireAdmin
		middleware.SecurityHeaders,
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.AuthService, app.UserService, app.ProfileService),
	)

	return handler
}

// fileServer serves public buckets from disk. The private bucket and
// directory listings are not exposed.
func fileServer(root, privateBucket string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket, _, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
		if bucket == "" || bucket == privateBucket || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
