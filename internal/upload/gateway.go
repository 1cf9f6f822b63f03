// Package upload validates files against their media class policy and stores
// them in the bucket of that class under a deterministic key.
//
// Content and KYC files get unique keys
//
//	<ownerID>/<subfolder>/<unixMillis>-<suffix>.<ext>
//
// and are written without overwrite. Avatars use the fixed key
// <ownerID>/avatar.<ext> and replace the previous avatar.
//
// The gateway keeps no state between calls.
package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fanvault/fanvault/internal/model"
	"github.com/fanvault/fanvault/internal/storage"
	"github.com/fanvault/fanvault/internal/validation"
	"github.com/google/uuid"
)

// File is a candidate upload. Name is only used for its extension.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Result locates a stored object: the public URL and the exact key used.
type Result struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// Buckets overrides the bucket of a class. Classes not present use the
// bucket of their validation policy.
type Buckets map[validation.MediaClass]string

type Gateway struct {
	backend storage.Backend
	buckets Buckets
	now     func() time.Time
	suffix  func() string
}

func NewGateway(backend storage.Backend, buckets Buckets) *Gateway {
	return &Gateway{
		backend: backend,
		buckets: buckets,
		now:     time.Now,
		suffix:  randomSuffix,
	}
}

type uploadOptions struct {
	subfolder    string
	documentType model.KYCDocumentType
}

type Option func(*uploadOptions)

// WithSubfolder groups content uploads under a purpose-specific folder.
func WithSubfolder(name string) Option {
	return func(o *uploadOptions) {
		o.subfolder = name
	}
}

// WithDocumentType routes a KYC upload into the subfolder of its document type.
func WithDocumentType(docType model.KYCDocumentType) Option {
	return func(o *uploadOptions) {
		o.documentType = docType
	}
}

var defaultSubfolders = map[validation.MediaClass]string{
	validation.MediaImage:    "images",
	validation.MediaVideo:    "videos",
	validation.MediaDocument: "documents",
}

var subfolderPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Upload validates and stores a file of the given class. Avatars are
// delegated to UploadAvatar; KYC documents require WithDocumentType.
func (g *Gateway) Upload(ctx context.Context, in File, ownerID string, class validation.MediaClass, opts ...Option) (*Result, error) {
	if class == validation.MediaAvatar {
		return g.UploadAvatar(ctx, in, ownerID)
	}

	o := uploadOptions{subfolder: defaultSubfolders[class]}
	for _, opt := range opts {
		opt(&o)
	}

	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}

	if class == validation.MediaKYCDocument {
		if !o.documentType.Valid() {
			return nil, &ValidationError{Class: class, Message: "Tipo de documento inválido"}
		}
		o.subfolder = string(o.documentType)
	}

	if !subfolderPattern.MatchString(o.subfolder) {
		return nil, &ValidationError{Class: class, Message: "Pasta de destino inválida"}
	}

	if err := validate(class, in); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s/%d-%s%s", ownerID, o.subfolder, g.now().UnixMilli(), g.suffix(), extension(in))
	return g.put(ctx, class, key, in, false)
}

// UploadKYC stores one identity document under <owner>/<document type>/.
func (g *Gateway) UploadKYC(ctx context.Context, in File, ownerID string, docType model.KYCDocumentType) (*Result, error) {
	return g.Upload(ctx, in, ownerID, validation.MediaKYCDocument, WithDocumentType(docType))
}

// UploadAvatar stores the avatar under the fixed key <owner>/avatar.<ext>,
// replacing whatever avatar with the same extension was there.
func (g *Gateway) UploadAvatar(ctx context.Context, in File, ownerID string) (*Result, error) {
	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}
	if err := validate(validation.MediaAvatar, in); err != nil {
		return nil, err
	}

	key := AvatarKey(ownerID, extension(in))
	return g.put(ctx, validation.MediaAvatar, key, in, true)
}

// Delete removes a stored object of the given class.
func (g *Gateway) Delete(ctx context.Context, class validation.MediaClass, key string) error {
	bucket := g.Bucket(class)
	err := g.backend.Delete(ctx, bucket, key)
	if err != nil {
		return &TransportError{Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

// Bucket resolves the bucket name of a class.
func (g *Gateway) Bucket(class validation.MediaClass) string {
	if bucket, ok := g.buckets[class]; ok && bucket != "" {
		return bucket
	}
	policy, _ := validation.PolicyFor(class)
	return policy.Bucket
}

// AvatarKey is the fixed key of an owner's avatar. ext includes the dot.
func AvatarKey(ownerID, ext string) string {
	return ownerID + "/avatar" + ext
}

func (g *Gateway) put(ctx context.Context, class validation.MediaClass, key string, in File, upsert bool) (*Result, error) {
	bucket := g.Bucket(class)

	err := g.backend.Put(ctx, &storage.PutObject{
		Bucket:      bucket,
		Key:         key,
		Body:        in.Body,
		Size:        in.Size,
		ContentType: in.ContentType,
		Upsert:      upsert,
	})
	if err != nil {
		return nil, &TransportError{Bucket: bucket, Key: key, Err: err}
	}

	return &Result{
		URL:  g.backend.PublicURL(bucket, key),
		Path: key,
	}, nil
}

func validate(class validation.MediaClass, in File) error {
	result := validation.Validate(class, in.ContentType, in.Size)
	if !result.Valid {
		return &ValidationError{Class: class, Message: result.Error}
	}
	return nil
}

func checkOwner(ownerID string) error {
	if ownerID == "" || strings.ContainsAny(ownerID, `/\`) || ownerID == "." || ownerID == ".." {
		return ErrInvalidOwner
	}
	return nil
}

var mimeExtensions = map[string]string{
	"image/jpeg":         ".jpg",
	"image/png":          ".png",
	"image/webp":         ".webp",
	"video/mp4":          ".mp4",
	"video/quicktime":    ".mov",
	"video/x-msvideo":    ".avi",
	"video/webm":         ".webm",
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   ".docx",
	"application/vnd.ms-excel":                                                  ".xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         ".xlsx",
	"application/vnd.ms-powerpoint":                                             ".ppt",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"text/plain":                   ".txt",
	"application/zip":              ".zip",
	"application/x-rar-compressed": ".rar",
	"application/vnd.rar":          ".rar",
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// sniffedTypes are recognised from the file's bytes before upload, so their
// extension wins over the one in the client's file name.
var sniffedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// extension derives the key extension. Sniffed types use the extension of
// their content type; others take the file name's extension and fall back to
// the content type. The result is lowercase and includes the dot.
func extension(in File) string {
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(in.ContentType, ";", 2)[0]))
	if sniffedTypes[contentType] {
		return mimeExtensions[contentType]
	}

	ext := strings.ToLower(filepath.Ext(in.Name))
	if extPattern.MatchString(ext) {
		return ext
	}
	if ext, ok := mimeExtensions[contentType]; ok {
		return ext
	}
	return ".bin"
}

// randomSuffix is unique enough for keys that already carry a millisecond
// timestamp; it is not meant to be unguessable.
func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
