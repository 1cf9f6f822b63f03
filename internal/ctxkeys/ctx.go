package ctxkeys

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fanvault/fanvault/internal/config"
	"github.com/fanvault/fanvault/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	UserKey    contextKey = "user"
	ProfileKey contextKey = "profile"
	ConfigKey  contextKey = "config"
	LogKey     contextKey = "log"
)

func User(ctx context.Context) *model.User {
	user, _ := ctx.Value(UserKey).(*model.User)
	return user
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

func Profile(ctx context.Context) *model.Profile {
	profile, _ := ctx.Value(ProfileKey).(*model.Profile)
	return profile
}

func WithProfile(ctx context.Context, profile *model.Profile) context.Context {
	return context.WithValue(ctx, ProfileKey, profile)
}

func Config(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(ConfigKey).(*config.Config)
	return cfg
}

func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, ConfigKey, cfg)
}

// LogFields collects attributes that end up on the request's access log line.
type LogFields struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

func (f *LogFields) Add(attrs ...slog.Attr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attrs = append(f.attrs, attrs...)
}

func (f *LogFields) Attrs() []slog.Attr {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]slog.Attr, len(f.attrs))
	copy(out, f.attrs)
	return out
}

func WithLogFields(ctx context.Context) (context.Context, *LogFields) {
	fields := &LogFields{}
	return context.WithValue(ctx, LogKey, fields), fields
}

// AddLog attaches attrs to the access log line of the request, if it is logged.
func AddLog(ctx context.Context, attrs ...slog.Attr) {
	if fields, ok := ctx.Value(LogKey).(*LogFields); ok {
		fields.Add(attrs...)
	}
}
