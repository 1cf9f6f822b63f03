package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fanvault/fanvault/internal/model"
	"github.com/fanvault/fanvault/internal/repository"
	"github.com/fanvault/fanvault/internal/upload"
	"github.com/fanvault/fanvault/internal/validation"
)

// ErrAvatarConflict is returned when another request replaced the avatar
// while this one was storing its own.
var ErrAvatarConflict = errors.New("avatar was changed by another request")

type ProfileService struct {
	profileRepo repository.ProfileRepository
	gateway     *upload.Gateway
	locks       userLocks
}

func NewProfileService(profileRepo repository.ProfileRepository, gateway *upload.Gateway) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		gateway:     gateway,
	}
}

func (s *ProfileService) ByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	return s.profileRepo.ByUserID(ctx, userID)
}

func (s *ProfileService) UpdateName(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)

	err := validation.ValidateName(name)
	if err != nil {
		return err
	}

	return s.profileRepo.UpdateName(ctx, userID, name)
}

// UploadAvatar replaces the user's avatar. The key is fixed per extension, so
// an avatar stored under another extension is removed afterwards. The row is
// only moved off the avatar this request read; an object is never deleted
// while the row points at it.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, in upload.File) (*model.Profile, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	profile, err := s.profileRepo.ByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	res, err := s.gateway.UploadAvatar(ctx, in, userID)
	if err != nil {
		return nil, err
	}

	previous := profile.AvatarPath
	err = s.profileRepo.UpdateAvatar(ctx, userID, previous, &res.URL, &res.Path)
	if errors.Is(err, repository.ErrAvatarChanged) {
		current, err := s.profileRepo.ByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		// Same key: our bytes are what the row now resolves to.
		if current.AvatarPath != nil && *current.AvatarPath == res.Path {
			return current, nil
		}
		s.removeUnreferenced(ctx, userID, res.Path)
		slog.Warn("avatar replaced concurrently", "user_id", userID, "path", res.Path)
		return nil, ErrAvatarConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}

	if previous != nil && *previous != res.Path {
		s.removeUnreferenced(ctx, userID, *previous)
	}

	profile.AvatarURL = &res.URL
	profile.AvatarPath = &res.Path
	return profile, nil
}

// DeleteAvatar clears the avatar reference first and then removes the object.
func (s *ProfileService) DeleteAvatar(ctx context.Context, userID string) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	profile, err := s.profileRepo.ByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if profile.AvatarPath == nil {
		return nil // No avatar to delete
	}

	path := *profile.AvatarPath
	err = s.profileRepo.UpdateAvatar(ctx, userID, &path, nil, nil)
	if errors.Is(err, repository.ErrAvatarChanged) {
		return ErrAvatarConflict
	}
	if err != nil {
		return err
	}

	s.removeUnreferenced(ctx, userID, path)
	return nil
}

// removeUnreferenced deletes an avatar object unless the profile points at it
// again, best effort.
func (s *ProfileService) removeUnreferenced(ctx context.Context, userID, path string) {
	current, err := s.profileRepo.ByUserID(ctx, userID)
	if err != nil {
		slog.Warn("failed to reload profile before avatar cleanup", "error", err, "user_id", userID)
		return
	}
	if current.AvatarPath != nil && *current.AvatarPath == path {
		return
	}

	err = s.gateway.Delete(ctx, validation.MediaAvatar, path)
	if err != nil {
		slog.Warn("failed to delete avatar from storage", "error", err, "user_id", userID, "path", path)
	}
}
