package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBackend implements Backend on a MinIO server.
type MinioBackend struct {
	client    *minio.Client
	publicURL string
}

type MinioConfig struct {
	Endpoint  string // host:port, no scheme
	AccessKey string
	SecretKey string
	UseSSL    bool
	PublicURL string
}

func NewMinioBackend(cfg MinioConfig) (*MinioBackend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}

	return &MinioBackend{client: client, publicURL: publicURL}, nil
}

// EnsureBucket creates the bucket when missing. Public buckets get an
// anonymous read policy so PublicURL resolves without signing.
func (s *MinioBackend) EnsureBucket(ctx context.Context, bucket string, public bool) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		err = s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		slog.Info("created minio bucket", "bucket", bucket)
	}

	if !public {
		return nil
	}

	err = s.client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket))
	if err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

// Put streams the object to MinIO. Without Upsert an existing key is
// detected with StatObject first; the check and the write are not atomic.
func (s *MinioBackend) Put(ctx context.Context, obj *PutObject) error {
	if err := checkKey(obj.Key); err != nil {
		return err
	}

	if !obj.Upsert {
		_, err := s.client.StatObject(ctx, obj.Bucket, obj.Key, minio.StatObjectOptions{})
		if err == nil {
			return fmt.Errorf("%w: %s/%s", ErrObjectExists, obj.Bucket, obj.Key)
		}
		if minio.ToErrorResponse(err).Code != "NoSuchKey" {
			return fmt.Errorf("stat object %q: %w", obj.Key, err)
		}
	}

	_, err := s.client.PutObject(ctx, obj.Bucket, obj.Key, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", obj.Key, err)
	}
	return nil
}

func (s *MinioBackend) Delete(ctx context.Context, bucket, key string) error {
	return s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

// PublicURL returns <publicURL>/<bucket>/<key>, e.g.
// "http://localhost:9000/avatars/user-id/avatar.png".
func (s *MinioBackend) PublicURL(bucket, key string) string {
	return joinURL(s.publicURL, bucket, key)
}

func (s *MinioBackend) PresignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object %q: %w", key, err)
	}
	return u.String(), nil
}

// publicReadPolicy returns a bucket policy allowing anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
