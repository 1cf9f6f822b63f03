package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Backend implements Backend for S3-compatible storage
// Works with AWS S3, DigitalOcean Spaces, Cloudflare R2, etc.
type S3Backend struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	region        string
	endpoint      string // Optional: for custom endpoints
	publicURL     string // Optional: CDN or public base, overrides the derived URL
}

// S3Config holds configuration for S3 storage
type S3Config struct {
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // Optional: for S3-compatible services
	PublicURL string // Optional: base URL objects are served from
}

// NewS3Backend creates a new S3 backend. Buckets are passed per call so one
// client serves all media classes.
func NewS3Backend(cfg S3Config) (*S3Backend, error) {
	ctx := context.Background()

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	// Static credentials if provided, otherwise the default chain
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for most S3-compatible services
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Backend{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		region:        cfg.Region,
		endpoint:      cfg.Endpoint,
		publicURL:     cfg.PublicURL,
	}, nil
}

// EnsureBucket checks if bucket exists, creates it if not
func (s *S3Backend) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %q does not exist and could not be created: %w", bucket, err)
	}

	slog.Info("created S3 bucket", "bucket", bucket)
	return nil
}

// Put uploads an object. Non-upsert writes are sent with If-None-Match: *
// so the service itself refuses to replace an existing key.
func (s *S3Backend) Put(ctx context.Context, obj *PutObject) error {
	if err := checkKey(obj.Key); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(obj.Bucket),
		Key:         aws.String(obj.Key),
		Body:        obj.Body,
		ContentType: aws.String(obj.ContentType),
	}
	if obj.Size >= 0 {
		input.ContentLength = aws.Int64(obj.Size)
	}
	if !obj.Upsert {
		input.IfNoneMatch = aws.String("*")
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return fmt.Errorf("%w: %s/%s", ErrObjectExists, obj.Bucket, obj.Key)
		}
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

// Delete removes an object from S3
func (s *S3Backend) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// PublicURL returns the unauthenticated URL of an object.
func (s *S3Backend) PublicURL(bucket, key string) string {
	if s.publicURL != "" {
		return joinURL(s.publicURL, bucket, key)
	}
	if s.endpoint != "" {
		return joinURL(s.endpoint, bucket, key)
	}
	// Standard AWS virtual-hosted URL
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, key)
}

// PresignedURL generates a temporary link for objects in private buckets.
func (s *S3Backend) PresignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	presignedReq, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign URL: %w", err)
	}

	return presignedReq.URL, nil
}
