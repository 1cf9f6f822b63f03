package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalBackend stores objects on the local filesystem under
// <basePath>/<bucket>/<key>. Intended for development; the HTTP server
// exposes basePath under /files/.
type LocalBackend struct {
	basePath  string
	publicURL string
}

func NewLocalBackend(basePath, publicURL string) *LocalBackend {
	return &LocalBackend{basePath: basePath, publicURL: publicURL}
}

// BasePath is the directory objects are written under.
func (s *LocalBackend) BasePath() string {
	return s.basePath
}

func (s *LocalBackend) path(bucket, key string) string {
	return filepath.Join(s.basePath, bucket, filepath.FromSlash(key))
}

// Put writes the object. Non-upsert writes use O_EXCL so an existing file is
// never replaced; upserts go through a temp file and rename.
func (s *LocalBackend) Put(_ context.Context, obj *PutObject) error {
	if err := checkKey(obj.Key); err != nil {
		return err
	}
	if err := checkKey(obj.Bucket); err != nil {
		return err
	}

	dest := s.path(obj.Bucket, obj.Key)
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	if !obj.Upsert {
		f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s/%s", ErrObjectExists, obj.Bucket, obj.Key)
		}
		if err != nil {
			return fmt.Errorf("create file: %w", err)
		}
		_, err = io.Copy(f, obj.Body)
		closeErr := f.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(dest)
			return fmt.Errorf("write file: %w", err)
		}
		return nil
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	_, err = io.Copy(tmp, obj.Body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	err = os.Rename(tmp.Name(), dest)
	if err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

func (s *LocalBackend) Delete(_ context.Context, bucket, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := os.Remove(s.path(bucket, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (s *LocalBackend) PublicURL(bucket, key string) string {
	return joinURL(s.publicURL, bucket, key)
}
