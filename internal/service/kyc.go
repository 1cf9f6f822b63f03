package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fanvault/fanvault/internal/model"
	"github.com/fanvault/fanvault/internal/repository"
	"github.com/fanvault/fanvault/internal/storage"
	"github.com/fanvault/fanvault/internal/upload"
	"github.com/fanvault/fanvault/internal/validation"
	"github.com/google/uuid"
)

var (
	ErrNotCreator          = errors.New("only creators can submit KYC documents")
	ErrKYCIncomplete       = errors.New("all four KYC documents are required")
	ErrKYCAlreadySubmitted = errors.New("KYC documents are already under review or approved")
	ErrInvalidReviewStatus = errors.New("review status must be approved or rejected")
)

type KYCService struct {
	kycRepo      repository.KYCRepository
	profileRepo  repository.ProfileRepository
	userRepo     repository.UserRepository
	gateway      *upload.Gateway
	emailService *EmailService
	presigner    storage.Presigner
	linkExpiry   time.Duration
	locks        userLocks
}

// NewKYCService creates the service. presigner may be nil, in which case
// documents are listed with their stored URL.
func NewKYCService(
	kycRepo repository.KYCRepository,
	profileRepo repository.ProfileRepository,
	userRepo repository.UserRepository,
	gateway *upload.Gateway,
	emailService *EmailService,
	presigner storage.Presigner,
	linkExpiry time.Duration,
) *KYCService {
	return &KYCService{
		kycRepo:      kycRepo,
		profileRepo:  profileRepo,
		userRepo:     userRepo,
		gateway:      gateway,
		emailService: emailService,
		presigner:    presigner,
		linkExpiry:   linkExpiry,
	}
}

// Submit uploads the four identity documents of a creator concurrently.
// Rows are written only when every upload succeeded; after a partial failure
// the stored keys are logged for reconciliation. The profile moves to pending
// in the same transaction as the rows, so a submission racing another one
// fails with ErrKYCAlreadySubmitted.
func (s *KYCService) Submit(ctx context.Context, userID string, files map[model.KYCDocumentType]upload.File) ([]*model.KYCDocument, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	profile, err := s.profileRepo.ByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !profile.IsCreator() {
		return nil, ErrNotCreator
	}
	if profile.KYCStatus == model.KYCStatusPending || profile.KYCStatus == model.KYCStatusApproved {
		return nil, ErrKYCAlreadySubmitted
	}
	for _, docType := range model.KYCDocumentTypes {
		if _, ok := files[docType]; !ok {
			return nil, ErrKYCIncomplete
		}
	}

	results, err := s.gateway.UploadKYCBatch(ctx, userID, files)
	if err != nil {
		var bErr *upload.BatchError
		if errors.As(err, &bErr) && len(bErr.Succeeded) > 0 {
			slog.Error("kyc batch partially stored", "user_id", userID, "stored", bErr.SucceededPaths(), "error", err)
		}
		return nil, err
	}

	now := time.Now()
	docs := make([]*model.KYCDocument, 0, len(model.KYCDocumentTypes))
	for _, docType := range model.KYCDocumentTypes {
		res := results[docType]
		docs = append(docs, &model.KYCDocument{
			ID:           uuid.New().String(),
			UserID:       userID,
			DocumentType: docType,
			FileURL:      res.URL,
			FilePath:     res.Path,
			Status:       model.KYCStatusPending,
			CreatedAt:    now,
		})
	}

	err = s.kycRepo.CreateSubmission(ctx, userID, docs)
	if errors.Is(err, repository.ErrKYCSubmissionOpen) {
		s.removeDocuments(ctx, userID, docs)
		return nil, ErrKYCAlreadySubmitted
	}
	if err != nil {
		stored := make([]string, 0, len(docs))
		for _, doc := range docs {
			stored = append(stored, doc.FilePath)
		}
		slog.Error("kyc documents stored without records", "user_id", userID, "stored", stored, "error", err)
		return nil, fmt.Errorf("failed to record kyc submission: %w", err)
	}

	user, err := s.userRepo.ByID(ctx, userID)
	if err == nil {
		err = s.emailService.SendKYCSubmittedEmail(ctx, user.Email, profile.Name)
	}
	if err != nil {
		slog.Warn("failed to send kyc submitted email", "error", err, "user_id", userID)
	}

	slog.Info("kyc submitted", "user_id", userID)
	return docs, nil
}

// List returns the user's documents, newest first. File URLs are replaced by
// short lived links when the backend can sign them.
func (s *KYCService) List(ctx context.Context, userID string) ([]*model.KYCDocument, error) {
	docs, err := s.kycRepo.ByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.signURLs(ctx, docs)
	return docs, nil
}

// Review sets the status of one document and derives the owner's profile
// status from the latest document of each type.
func (s *KYCService) Review(ctx context.Context, id string, status model.KYCStatus, note string) (*model.KYCDocument, error) {
	if status != model.KYCStatusApproved && status != model.KYCStatusRejected {
		return nil, ErrInvalidReviewStatus
	}

	doc, err := s.kycRepo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	reviewedAt := time.Now()

	err = s.kycRepo.UpdateStatus(ctx, id, status, notePtr, reviewedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update kyc document: %w", err)
	}
	doc.Status = status
	doc.ReviewNote = notePtr
	doc.ReviewedAt = &reviewedAt

	docs, err := s.kycRepo.ByUserID(ctx, doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load kyc documents: %w", err)
	}
	profileStatus := SubmissionStatus(docs)

	err = s.profileRepo.UpdateKYCStatus(ctx, doc.UserID, profileStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile kyc status: %w", err)
	}

	s.notifyReview(ctx, doc)

	slog.Info("kyc document reviewed", "id", id, "user_id", doc.UserID, "status", status, "profile_status", profileStatus)
	return doc, nil
}

// SubmissionStatus folds documents (newest first) into a profile status:
// rejected if any current document is rejected, approved when all four are
// approved, pending otherwise.
func SubmissionStatus(docs []*model.KYCDocument) model.KYCStatus {
	latest := make(map[model.KYCDocumentType]*model.KYCDocument, len(model.KYCDocumentTypes))
	for _, doc := range docs {
		if _, seen := latest[doc.DocumentType]; !seen {
			latest[doc.DocumentType] = doc
		}
	}
	if len(latest) == 0 {
		return model.KYCStatusNotSubmitted
	}

	approved := 0
	for _, doc := range latest {
		switch doc.Status {
		case model.KYCStatusRejected:
			return model.KYCStatusRejected
		case model.KYCStatusApproved:
			approved++
		}
	}
	if approved == len(model.KYCDocumentTypes) {
		return model.KYCStatusApproved
	}
	return model.KYCStatusPending
}

// removeDocuments deletes stored objects that will never get a row, best effort.
func (s *KYCService) removeDocuments(ctx context.Context, userID string, docs []*model.KYCDocument) {
	for _, doc := range docs {
		err := s.gateway.Delete(ctx, validation.MediaKYCDocument, doc.FilePath)
		if err != nil {
			slog.Warn("failed to delete unrecorded kyc document", "error", err, "user_id", userID, "path", doc.FilePath)
		}
	}
}

func (s *KYCService) notifyReview(ctx context.Context, doc *model.KYCDocument) {
	user, err := s.userRepo.ByID(ctx, doc.UserID)
	if err != nil {
		slog.Warn("failed to load user for kyc review email", "error", err, "user_id", doc.UserID)
		return
	}

	name := ""
	profile, err := s.profileRepo.ByUserID(ctx, doc.UserID)
	if err == nil {
		name = profile.Name
	}

	err = s.emailService.SendKYCReviewedEmail(ctx, user.Email, name, doc)
	if err != nil {
		slog.Warn("failed to send kyc reviewed email", "error", err, "user_id", doc.UserID)
	}
}

func (s *KYCService) signURLs(ctx context.Context, docs []*model.KYCDocument) {
	if s.presigner == nil {
		return
	}
	bucket := s.gateway.Bucket(validation.MediaKYCDocument)
	for _, doc := range docs {
		url, err := s.presigner.PresignedURL(ctx, bucket, doc.FilePath, s.linkExpiry)
		if err != nil {
			slog.Warn("failed to presign kyc document", "error", err, "id", doc.ID)
			continue
		}
		doc.FileURL = url
	}
}
