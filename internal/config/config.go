package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName      string
	AppEnv       string
	AppURL       string
	Port         string
	SupportEmail string
	AdminEmails  []string // Accounts allowed to review KYC submissions

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret string
	JWTExpiry time.Duration

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Observability (optional)
	SentryDSN string

	// Storage
	StorageDriver    string // "s3", "minio" or "local"
	StoragePublicURL string // Base URL objects are served from
	StorageLocalPath string
	S3Region         string
	S3AccessKey      string
	S3SecretKey      string
	S3Endpoint       string // Optional: for S3-compatible services (R2, DO Spaces, etc.)
	MinioEndpoint    string
	MinioUseSSL      bool
	KYCLinkExpiry    time.Duration // Presigned link lifetime for KYC reviewers

	// Buckets
	BucketImages    string
	BucketVideos    string
	BucketDocuments string
	BucketKYC       string
	BucketAvatars   string

	// Uploads
	MaxUploadBytes    int64 // Multipart form ceiling, above the largest class policy
	ThumbnailEnabled  bool
	ThumbnailMaxWidth int
	FFmpegPath        string
	FFprobePath       string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	appURL := envRequired("APP_URL")

	cfg := &Config{
		// Application
		AppName:      envString("APP_NAME", "Fanvault"),
		AppEnv:       envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:       appURL,
		Port:         envString("PORT", "8090"),
		SupportEmail: envString("SUPPORT_EMAIL", "suporte@example.com"),
		AdminEmails:  envList("ADMIN_EMAILS"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/fanvault.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),

		// Security
		JWTSecret: envRequired("JWT_SECRET"),
		JWTExpiry: envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		StorageDriver:    envString("STORAGE_DRIVER", "local"),
		StoragePublicURL: envString("STORAGE_PUBLIC_URL", strings.TrimSuffix(appURL, "/")+"/files"),
		StorageLocalPath: envString("STORAGE_LOCAL_PATH", "./data/objects"),
		S3Region:         envString("S3_REGION", "us-east-1"),
		S3AccessKey:      envString("S3_ACCESS_KEY", ""),
		S3SecretKey:      envString("S3_SECRET_KEY", ""),
		S3Endpoint:       envString("S3_ENDPOINT", ""),
		MinioEndpoint:    envString("MINIO_ENDPOINT", "localhost:9000"),
		MinioUseSSL:      envBool("MINIO_USE_SSL", false),
		KYCLinkExpiry:    envDuration("KYC_LINK_EXPIRY", 15*time.Minute),

		// Buckets
		BucketImages:    envString("BUCKET_IMAGES", "content-images"),
		BucketVideos:    envString("BUCKET_VIDEOS", "content-videos"),
		BucketDocuments: envString("BUCKET_DOCUMENTS", "content-documents"),
		BucketKYC:       envString("BUCKET_KYC", "kyc-documents"),
		BucketAvatars:   envString("BUCKET_AVATARS", "avatars"),

		// Uploads
		MaxUploadBytes:    envInt64("MAX_UPLOAD_BYTES", 64<<20), // 64MB
		ThumbnailEnabled:  envBool("THUMBNAIL_ENABLED", true),
		ThumbnailMaxWidth: int(envInt64("THUMBNAIL_MAX_WIDTH", 0)), // 0 keeps the native resolution
		FFmpegPath:        envString("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:       envString("FFPROBE_PATH", "ffprobe"),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production deployments.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
	if cfg.StorageDriver == "local" {
		slog.Error("production deployment requires an object store",
			"hint", "set STORAGE_DRIVER to s3 or minio")
		os.Exit(1)
	}
}

// Sanitized returns a copy without secrets, safe to hand to request handlers.
func (c *Config) Sanitized() *Config {
	cp := *c
	cp.DBConnection = ""
	cp.JWTSecret = ""
	cp.ResendAPIKey = ""
	cp.SentryDSN = ""
	cp.S3AccessKey = ""
	cp.S3SecretKey = ""
	cp.AdminEmails = append([]string(nil), c.AdminEmails...)
	return &cp
}

// Buckets returns every configured bucket name.
func (c *Config) Buckets() []string {
	return []string{c.BucketImages, c.BucketVideos, c.BucketDocuments, c.BucketKYC, c.BucketAvatars}
}

// IsAdmin reports whether email belongs to a KYC reviewer.
func (c *Config) IsAdmin(email string) bool {
	for _, admin := range c.AdminEmails {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("config invalid integer, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// envList splits a comma separated variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
