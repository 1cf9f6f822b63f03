package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fanvault/fanvault/internal/model"
	"github.com/fanvault/fanvault/internal/repository"
	"github.com/fanvault/fanvault/internal/thumbnail"
	"github.com/fanvault/fanvault/internal/upload"
	"github.com/fanvault/fanvault/internal/validation"
	"github.com/google/uuid"
)

const thumbnailFolder = "thumbnails"

// MediaService stores creator content and records it. Videos get a poster
// image when an extractor is configured.
type MediaService struct {
	mediaRepo repository.MediaRepository
	gateway   *upload.Gateway
	extractor *thumbnail.Extractor
}

// NewMediaService creates the service. extractor may be nil to disable posters.
func NewMediaService(mediaRepo repository.MediaRepository, gateway *upload.Gateway, extractor *thumbnail.Extractor) *MediaService {
	return &MediaService{
		mediaRepo: mediaRepo,
		gateway:   gateway,
		extractor: extractor,
	}
}

// Upload stores a content file of class image, video or document. A poster
// failure is logged and leaves the video without a thumbnail.
func (s *MediaService) Upload(ctx context.Context, userID string, class validation.MediaClass, in upload.File, folder string) (*model.Media, error) {
	switch class {
	case validation.MediaImage, validation.MediaVideo, validation.MediaDocument:
	default:
		return nil, &upload.ValidationError{Class: class, Message: "Tipo de mídia não suportado"}
	}

	var opts []upload.Option
	if folder != "" {
		opts = append(opts, upload.WithSubfolder(folder))
	}

	res, err := s.gateway.Upload(ctx, in, userID, class, opts...)
	if err != nil {
		return nil, err
	}

	media := &model.Media{
		ID:           uuid.New().String(),
		UserID:       userID,
		Class:        class.String(),
		Bucket:       s.gateway.Bucket(class),
		Path:         res.Path,
		URL:          res.URL,
		MimeType:     in.ContentType,
		Size:         in.Size,
		OriginalName: in.Name,
		CreatedAt:    time.Now(),
	}

	if class == validation.MediaVideo {
		poster, err := s.poster(ctx, userID, in.Body)
		if err != nil {
			slog.Warn("failed to create video thumbnail", "error", err, "user_id", userID, "path", res.Path)
		} else if poster != nil {
			media.ThumbnailURL = &poster.URL
			media.ThumbnailPath = &poster.Path
		}
	}

	err = s.mediaRepo.Create(ctx, media)
	if err != nil {
		s.removeObjects(ctx, media)
		return nil, fmt.Errorf("failed to create media record: %w", err)
	}

	slog.Info("media uploaded", "user_id", userID, "class", media.Class, "path", media.Path, "size", media.Size)
	return media, nil
}

// poster rewinds the already uploaded video and stores its thumbnail in the
// images bucket. It returns nil without error when posters are disabled or
// the body cannot be rewound.
func (s *MediaService) poster(ctx context.Context, userID string, body io.Reader) (*upload.Result, error) {
	if s.extractor == nil {
		return nil, nil
	}
	seeker, ok := body.(io.Seeker)
	if !ok {
		return nil, nil
	}
	_, err := seeker.Seek(0, io.SeekStart)
	if err != nil {
		return nil, fmt.Errorf("rewind video: %w", err)
	}

	thumb, err := s.extractor.Extract(ctx, body)
	if err != nil {
		return nil, err
	}

	return s.gateway.Upload(ctx, upload.File{
		Name:        "poster.jpg",
		ContentType: thumb.ContentType,
		Size:        thumb.Size(),
		Body:        thumb.Reader(),
	}, userID, validation.MediaImage, upload.WithSubfolder(thumbnailFolder))
}

func (s *MediaService) List(ctx context.Context, userID string) ([]*model.Media, error) {
	return s.mediaRepo.ByUserID(ctx, userID)
}

// Delete removes a media item owned by userID. Other users' items are
// reported as not found.
func (s *MediaService) Delete(ctx context.Context, userID, id string) error {
	media, err := s.mediaRepo.ByID(ctx, id)
	if err != nil {
		return err
	}
	if media.UserID != userID {
		return repository.ErrMediaNotFound
	}

	s.removeObjects(ctx, media)

	err = s.mediaRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete media record: %w", err)
	}
	return nil
}

// removeObjects deletes the stored file and its poster, best effort.
func (s *MediaService) removeObjects(ctx context.Context, media *model.Media) {
	class, ok := validation.ParseMediaClass(media.Class)
	if !ok {
		slog.Error("media with unknown class", "id", media.ID, "class", media.Class)
		return
	}

	err := s.gateway.Delete(ctx, class, media.Path)
	if err != nil {
		slog.Warn("failed to delete media from storage", "error", err, "path", media.Path)
	}

	if media.ThumbnailPath != nil {
		err = s.gateway.Delete(ctx, validation.MediaImage, *media.ThumbnailPath)
		if err != nil {
			slog.Warn("failed to delete thumbnail from storage", "error", err, "path", *media.ThumbnailPath)
		}
	}
}
