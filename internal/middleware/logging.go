package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fanvault/fanvault/internal/ctxkeys"
)

// responseWriter records the status and body size of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	bytes      int64
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// Public object downloads and health probes are not logged.
var skipLoggingPaths = []string{
	"/files/",
	"/healthz",
}

// RequestLogging writes one line per request. Handlers and inner middleware
// add fields to it with ctxkeys.AddLog (user, upload class and size, rate
// limiting). Server errors log at error level; rejected uploads and throttled
// requests at warn.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range skipLoggingPaths {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		start := time.Now()
		ctx, fields := ctxkeys.WithLogFields(r.Context())
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r.WithContext(ctx))

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.statusCode),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("client_ip", getClientIP(r)),
			slog.Int64("request_bytes", r.ContentLength),
			slog.Int64("response_bytes", rw.bytes),
		}
		attrs = append(attrs, fields.Attrs()...)
		slog.LogAttrs(ctx, logLevel(rw.statusCode), "http request", attrs...)
	})
}

func logLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status == http.StatusRequestEntityTooLarge,
		status == http.StatusUnsupportedMediaType,
		status == http.StatusTooManyRequests:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
