package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fanvault/fanvault/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrMediaNotFound = errors.New("media not found")
)

type MediaRepository interface {
	Create(ctx context.Context, media *model.Media) error
	ByID(ctx context.Context, id string) (*model.Media, error)
	ByUserID(ctx context.Context, userID string) ([]*model.Media, error)
	Delete(ctx context.Context, id string) error
}

type mediaRepository struct {
	db *sqlx.DB
}

func NewMediaRepository(db *sqlx.DB) MediaRepository {
	return &mediaRepository{db: db}
}

const mediaColumns = `id, user_id, class, bucket, path, url, mime_type, size, original_name, thumbnail_url, thumbnail_path, created_at`

func (r *mediaRepository) Create(ctx context.Context, media *model.Media) error {
	query := `INSERT INTO media (` + mediaColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		media.ID,
		media.UserID,
		media.Class,
		media.Bucket,
		media.Path,
		media.URL,
		media.MimeType,
		media.Size,
		media.OriginalName,
		media.ThumbnailURL,
		media.ThumbnailPath,
		media.CreatedAt,
	)

	return err
}

func (r *mediaRepository) ByID(ctx context.Context, id string) (*model.Media, error) {
	media := &model.Media{}
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`

	err := r.db.GetContext(ctx, media, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMediaNotFound
	}
	if err != nil {
		return nil, err
	}

	return media, nil
}

func (r *mediaRepository) ByUserID(ctx context.Context, userID string) ([]*model.Media, error) {
	var media []*model.Media
	query := `SELECT ` + mediaColumns + ` FROM media WHERE user_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &media, query, userID)
	if err != nil {
		return nil, err
	}

	return media, nil
}

func (r *mediaRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = $1`, id)
	return err
}
