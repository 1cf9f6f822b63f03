package app

import (
	"fmt"
	"log/slog"

	"github.com/fanvault/fanvault/internal/config"
	"github.com/fanvault/fanvault/internal/db"
	"github.com/fanvault/fanvault/internal/repository"
	"github.com/fanvault/fanvault/internal/service"
	"github.com/fanvault/fanvault/internal/storage"
	"github.com/fanvault/fanvault/internal/thumbnail"
	"github.com/fanvault/fanvault/internal/upload"
	"github.com/fanvault/fanvault/internal/validation"
	"github.com/jmoiron/sqlx"
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	Storage        storage.Backend
	Gateway        *upload.Gateway
	AuthService    *service.AuthService
	UserService    *service.UserService
	ProfileService *service.ProfileService
	EmailService   *service.EmailService
	MediaService   *service.MediaService
	KYCService     *service.KYCService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	profileRepository := repository.NewProfileRepository(database)
	mediaRepository := repository.NewMediaRepository(database)
	kycRepository := repository.NewKYCRepository(database)

	// Storage
	backend, err := storage.New(cfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	gateway := upload.NewGateway(backend, upload.Buckets{
		validation.MediaImage:       cfg.BucketImages,
		validation.MediaVideo:       cfg.BucketVideos,
		validation.MediaDocument:    cfg.BucketDocuments,
		validation.MediaKYCDocument: cfg.BucketKYC,
		validation.MediaAvatar:      cfg.BucketAvatars,
	})

	// Private KYC objects are listed with temporary links when the backend
	// can sign them.
	presigner, _ := backend.(storage.Presigner)

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(
		userRepository,
		profileRepository,
		emailService,
		cfg.JWTSecret,
		cfg.JWTExpiry,
		cfg.IsProduction(),
	)
	userService := service.NewUserService(userRepository, profileRepository, mediaRepository, kycRepository, gateway, emailService)
	profileService := service.NewProfileService(profileRepository, gateway)
	mediaService := service.NewMediaService(mediaRepository, gateway, newExtractor(cfg))
	kycService := service.NewKYCService(
		kycRepository,
		profileRepository,
		userRepository,
		gateway,
		emailService,
		presigner,
		cfg.KYCLinkExpiry,
	)

	return &App{
		Cfg:            cfg,
		DB:             database,
		Storage:        backend,
		Gateway:        gateway,
		AuthService:    authService,
		UserService:    userService,
		ProfileService: profileService,
		EmailService:   emailService,
		MediaService:   mediaService,
		KYCService:     kycService,
	}, nil
}

// newExtractor returns nil when posters are disabled or ffmpeg is missing;
// video uploads then skip the poster.
func newExtractor(cfg *config.Config) *thumbnail.Extractor {
	if !cfg.ThumbnailEnabled {
		return nil
	}
	decoder := thumbnail.NewFFmpegDecoder(cfg.FFmpegPath, cfg.FFprobePath)
	if !decoder.Available() {
		slog.Warn("ffmpeg not found, video posters disabled", "ffmpeg", cfg.FFmpegPath, "ffprobe", cfg.FFprobePath)
		return nil
	}
	return thumbnail.NewExtractor(decoder, thumbnail.WithMaxWidth(cfg.ThumbnailMaxWidth))
}

func (a *App) Close() error {
	return db.Close(a.DB)
}
