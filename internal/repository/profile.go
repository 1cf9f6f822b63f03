package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fanvault/fanvault/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrAvatarChanged is returned when the stored avatar is no longer the one the
// caller expected to replace.
var ErrAvatarChanged = errors.New("avatar changed by another request")

type ProfileRepository interface {
	ByUserID(ctx context.Context, userID string) (*model.Profile, error)
	Create(ctx context.Context, profile *model.Profile) error
	UpdateName(ctx context.Context, userID, name string) error
	UpdateAvatar(ctx context.Context, userID string, expected, url, path *string) error
	UpdateKYCStatus(ctx context.Context, userID string, status model.KYCStatus) error
}

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `id, user_id, name, role, avatar_url, avatar_path, kyc_status, created_at, updated_at`

func (r *profileRepository) ByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.GetContext(ctx, &profile, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	if profile.KYCStatus == "" {
		profile.KYCStatus = model.KYCStatusNotSubmitted
	}
	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, user_id, name, role, kyc_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, profile.ID, profile.UserID, profile.Name, profile.Role, profile.KYCStatus, profile.CreatedAt, profile.UpdatedAt)

	return err
}

func (r *profileRepository) UpdateName(ctx context.Context, userID, name string) error {
	return r.update(ctx, `
		UPDATE profiles
		SET name = $1, updated_at = $2
		WHERE user_id = $3
	`, name, time.Now(), userID)
}

// UpdateAvatar stores the avatar location if the current path still equals
// expected (nil meaning no avatar). Nil values clear it.
func (r *profileRepository) UpdateAvatar(ctx context.Context, userID string, expected, url, path *string) error {
	err := r.update(ctx, `
		UPDATE profiles
		SET avatar_url = $1, avatar_path = $2, updated_at = $3
		WHERE user_id = $4 AND avatar_path IS NOT DISTINCT FROM $5
	`, url, path, time.Now(), userID, expected)
	if !errors.Is(err, ErrProfileNotFound) {
		return err
	}

	var count int
	err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrAvatarChanged
	}
	return ErrProfileNotFound
}

func (r *profileRepository) UpdateKYCStatus(ctx context.Context, userID string, status model.KYCStatus) error {
	return r.update(ctx, `
		UPDATE profiles
		SET kyc_status = $1, updated_at = $2
		WHERE user_id = $3
	`, status, time.Now(), userID)
}

func (r *profileRepository) update(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrProfileNotFound
	}

	return nil
}
