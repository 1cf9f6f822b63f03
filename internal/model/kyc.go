package model

import "time"

// KYCDocumentType is the kind of identity document in a KYC submission. The
// value doubles as the storage subfolder and the document_type column.
type KYCDocumentType string

const (
	KYCDocumentFront  KYCDocumentType = "document_front"
	KYCDocumentBack   KYCDocumentType = "document_back"
	KYCProofOfAddress KYCDocumentType = "proof_of_address"
	KYCSelfie         KYCDocumentType = "selfie"
)

// KYCDocumentTypes lists every document a complete submission carries, in
// display order.
var KYCDocumentTypes = []KYCDocumentType{
	KYCDocumentFront,
	KYCDocumentBack,
	KYCProofOfAddress,
	KYCSelfie,
}

func (t KYCDocumentType) Valid() bool {
	for _, known := range KYCDocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

type KYCStatus string

const (
	KYCStatusNotSubmitted KYCStatus = "not_submitted"
	KYCStatusPending      KYCStatus = "pending"
	KYCStatusApproved     KYCStatus = "approved"
	KYCStatusRejected     KYCStatus = "rejected"
)

type KYCDocument struct {
	ID           string          `db:"id" json:"id"`
	UserID       string          `db:"user_id" json:"user_id"`
	DocumentType KYCDocumentType `db:"document_type" json:"document_type"`
	FileURL      string          `db:"file_url" json:"file_url"`
	FilePath     string          `db:"file_path" json:"file_path"`
	Status       KYCStatus       `db:"status" json:"status"`
	ReviewNote   *string         `db:"review_note" json:"review_note,omitempty"`
	ReviewedAt   *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
