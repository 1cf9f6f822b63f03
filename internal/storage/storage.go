// Package storage is the object-store capability the upload gateway writes
// through. Implementations exist for S3 (AWS, R2, DigitalOcean Spaces), MinIO
// and the local filesystem; the concrete type is chosen at startup from
// STORAGE_DRIVER.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	cfg "github.com/fanvault/fanvault/internal/config"
)

const (
	DriverS3    = "s3"
	DriverMinio = "minio"
	DriverLocal = "local"
)

var (
	// ErrObjectExists is returned by Put when Upsert is false and the key is taken.
	ErrObjectExists = errors.New("object already exists")
	ErrInvalidKey   = errors.New("invalid storage key")
)

// PutObject describes a single write. Size may be -1 when unknown.
type PutObject struct {
	Bucket      string
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
	// Upsert allows replacing an existing object. When false the write fails
	// with ErrObjectExists instead of overwriting.
	Upsert bool
}

// Backend stores objects and derives their public URLs.
type Backend interface {
	Put(ctx context.Context, obj *PutObject) error
	Delete(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}

// Presigner is implemented by backends that can hand out temporary links for
// objects in private buckets.
type Presigner interface {
	PresignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// New creates the backend selected by the config and makes sure every bucket
// exists. Private buckets never get a public-read policy.
func New(c *cfg.Config) (Backend, error) {
	slog.Info("initializing storage", "driver", c.StorageDriver)

	buckets := c.Buckets()

	switch c.StorageDriver {
	case DriverS3:
		backend, err := NewS3Backend(S3Config{
			Region:    c.S3Region,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Endpoint:  c.S3Endpoint,
			PublicURL: c.StoragePublicURL,
		})
		if err != nil {
			return nil, err
		}
		for _, bucket := range buckets {
			err = backend.EnsureBucket(context.Background(), bucket)
			if err != nil {
				return nil, err
			}
		}
		return backend, nil

	case DriverMinio:
		backend, err := NewMinioBackend(MinioConfig{
			Endpoint:  c.MinioEndpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			UseSSL:    c.MinioUseSSL,
			PublicURL: c.StoragePublicURL,
		})
		if err != nil {
			return nil, err
		}
		for _, bucket := range buckets {
			err = backend.EnsureBucket(context.Background(), bucket, bucket != c.BucketKYC)
			if err != nil {
				return nil, err
			}
		}
		return backend, nil

	case DriverLocal:
		return NewLocalBackend(c.StorageLocalPath, c.StoragePublicURL), nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %s (supported: s3, minio, local)", c.StorageDriver)
	}
}

// joinURL builds <base>/<bucket>/<key> without doubling slashes.
func joinURL(base, bucket, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + bucket + "/" + strings.TrimPrefix(key, "/")
}

// checkKey rejects keys that could escape the bucket when mapped to a path.
func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
