package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fanvault/fanvault/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrKYCDocumentNotFound = errors.New("kyc document not found")
	// ErrKYCSubmissionOpen is returned when the profile already has a
	// submission under review or approved.
	ErrKYCSubmissionOpen = errors.New("kyc submission already open")
)

type KYCRepository interface {
	// CreateSubmission moves the owner's profile from not_submitted or
	// rejected to pending and inserts the documents in one transaction.
	CreateSubmission(ctx context.Context, userID string, docs []*model.KYCDocument) error
	ByID(ctx context.Context, id string) (*model.KYCDocument, error)
	ByUserID(ctx context.Context, userID string) ([]*model.KYCDocument, error)
	UpdateStatus(ctx context.Context, id string, status model.KYCStatus, note *string, reviewedAt time.Time) error
}

type kycRepository struct {
	db *sqlx.DB
}

func NewKYCRepository(db *sqlx.DB) KYCRepository {
	return &kycRepository{db: db}
}

const kycColumns = `id, user_id, document_type, file_url, file_path, status, review_note, reviewed_at, created_at`

func (r *kycRepository) CreateSubmission(ctx context.Context, userID string, docs []*model.KYCDocument) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE profiles
		SET kyc_status = $1, updated_at = $2
		WHERE user_id = $3 AND kyc_status IN ($4, $5)
	`, model.KYCStatusPending, time.Now(), userID, model.KYCStatusNotSubmitted, model.KYCStatusRejected)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var status string
		err = tx.GetContext(ctx, &status, `SELECT kyc_status FROM profiles WHERE user_id = $1`, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProfileNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: status %s", ErrKYCSubmissionOpen, status)
	}

	for _, doc := range docs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO kyc_documents (id, user_id, document_type, file_url, file_path, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, doc.ID, doc.UserID, doc.DocumentType, doc.FileURL, doc.FilePath, doc.Status, doc.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert %s: %w", doc.DocumentType, err)
		}
	}

	return tx.Commit()
}

func (r *kycRepository) ByID(ctx context.Context, id string) (*model.KYCDocument, error) {
	doc := &model.KYCDocument{}
	err := r.db.GetContext(ctx, doc, `SELECT `+kycColumns+` FROM kyc_documents WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKYCDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ByUserID returns every document the user ever submitted, newest first.
func (r *kycRepository) ByUserID(ctx context.Context, userID string) ([]*model.KYCDocument, error) {
	var docs []*model.KYCDocument
	err := r.db.SelectContext(ctx, &docs,
		`SELECT `+kycColumns+` FROM kyc_documents WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *kycRepository) UpdateStatus(ctx context.Context, id string, status model.KYCStatus, note *string, reviewedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE kyc_documents
		SET status = $1, review_note = $2, reviewed_at = $3
		WHERE id = $4
	`, status, note, reviewedAt, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrKYCDocumentNotFound
	}
	return nil
}
