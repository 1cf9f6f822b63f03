package model

import "time"

// Media is a content upload (image, video or document) owned by a creator.
type Media struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Class         string    `db:"class" json:"class"` // "image", "video", "document"
	Bucket        string    `db:"bucket" json:"-"`
	Path          string    `db:"path" json:"path"`
	URL           string    `db:"url" json:"url"`
	MimeType      string    `db:"mime_type" json:"mime_type"`
	Size          int64     `db:"size" json:"size"`
	OriginalName  string    `db:"original_name" json:"original_name"`
	ThumbnailURL  *string   `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	ThumbnailPath *string   `db:"thumbnail_path" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
