package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fanvault/fanvault/internal/model"
	"github.com/fanvault/fanvault/internal/repository"
	"github.com/fanvault/fanvault/internal/upload"
	"github.com/fanvault/fanvault/internal/validation"
)

type UserService struct {
	userRepository    repository.UserRepository
	profileRepository repository.ProfileRepository
	mediaRepository   repository.MediaRepository
	kycRepository     repository.KYCRepository
	gateway           *upload.Gateway
	emailService      *EmailService
}

func NewUserService(
	userRepository repository.UserRepository,
	profileRepository repository.ProfileRepository,
	mediaRepository repository.MediaRepository,
	kycRepository repository.KYCRepository,
	gateway *upload.Gateway,
	emailService *EmailService,
) *UserService {
	return &UserService{
		userRepository:    userRepository,
		profileRepository: profileRepository,
		mediaRepository:   mediaRepository,
		kycRepository:     kycRepository,
		gateway:           gateway,
		emailService:      emailService,
	}
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	return s.userRepository.ByID(ctx, id)
}

// DeleteAccount removes the user's stored objects (best effort) and then the
// user row; profile, media and KYC rows cascade.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.userRepository.ByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	profile, err := s.profileRepository.ByUserID(ctx, userID)
	if err != nil {
		// Continue without profile name if not found
		slog.Warn("failed to get profile for deletion email", "user_id", userID, "error", err)
	}

	name := "usuário"
	if profile != nil {
		name = profile.Name
		if profile.AvatarPath != nil {
			s.deleteObject(ctx, validation.MediaAvatar, *profile.AvatarPath)
		}
	}

	media, err := s.mediaRepository.ByUserID(ctx, userID)
	if err != nil {
		slog.Warn("failed to list media for deletion", "user_id", userID, "error", err)
	}
	for _, m := range media {
		class, ok := validation.ParseMediaClass(m.Class)
		if ok {
			s.deleteObject(ctx, class, m.Path)
		}
		if m.ThumbnailPath != nil {
			s.deleteObject(ctx, validation.MediaImage, *m.ThumbnailPath)
		}
	}

	docs, err := s.kycRepository.ByUserID(ctx, userID)
	if err != nil {
		slog.Warn("failed to list kyc documents for deletion", "user_id", userID, "error", err)
	}
	for _, doc := range docs {
		s.deleteObject(ctx, validation.MediaKYCDocument, doc.FilePath)
	}

	err = s.userRepository.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	err = s.emailService.SendAccountDeletedEmail(ctx, user.Email, name)
	if err != nil {
		slog.Warn("failed to send account deleted email", "user_id", userID, "error", err)
	}

	slog.Info("account deleted", "user_id", userID)
	return nil
}

// deleteObject logs and continues; an orphaned object is better than a
// failed deletion.
func (s *UserService) deleteObject(ctx context.Context, class validation.MediaClass, key string) {
	err := s.gateway.Delete(ctx, class, key)
	if err != nil {
		slog.Warn("failed to delete object from storage", "class", class.String(), "path", key, "error", err)
	}
}
