package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// MediaClass identifies the kind of file being uploaded. Each class maps to a
// fixed policy (allowed types, size ceiling and destination bucket).
type MediaClass int

const (
	MediaImage MediaClass = iota
	MediaVideo
	MediaDocument
	MediaKYCDocument
	MediaAvatar
)

// Policy describes what a media class accepts and where it is stored.
type Policy struct {
	AllowedMimeTypes map[string]bool
	// TypeLabels lists the human readable formats used in error messages
	TypeLabels []string
	MaxSize    int64
	Bucket     string
}

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var policies = map[MediaClass]Policy{
	MediaImage: {
		AllowedMimeTypes: imageTypes,
		TypeLabels:       []string{"JPEG", "PNG", "WebP"},
		MaxSize:          2 << 20, // 2MB
		Bucket:           "content-images",
	},
	MediaVideo: {
		AllowedMimeTypes: map[string]bool{
			"video/mp4":       true,
			"video/quicktime": true,
			"video/x-msvideo": true,
			"video/webm":      true,
		},
		TypeLabels: []string{"MP4", "MOV", "AVI", "WebM"},
		MaxSize:    50 << 20, // 50MB
		Bucket:     "content-videos",
	},
	MediaDocument: {
		AllowedMimeTypes: map[string]bool{
			"application/pdf":    true,
			"application/msword": true,
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
			"application/vnd.ms-excel":                                                  true,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
			"application/vnd.ms-powerpoint":                                             true,
			"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
			"text/plain":                   true,
			"application/zip":              true,
			"application/x-rar-compressed": true,
			"application/vnd.rar":          true,
		},
		TypeLabels: []string{"PDF", "DOC", "DOCX", "XLS", "XLSX", "PPT", "PPTX", "TXT", "ZIP", "RAR"},
		MaxSize:    10 << 20, // 10MB
		Bucket:     "content-documents",
	},
	MediaKYCDocument: {
		AllowedMimeTypes: map[string]bool{
			"image/jpeg":      true,
			"image/png":       true,
			"image/webp":      true,
			"application/pdf": true,
		},
		TypeLabels: []string{"JPEG", "PNG", "WebP", "PDF"},
		MaxSize:    10 << 20, // 10MB
		Bucket:     "kyc-documents",
	},
	MediaAvatar: {
		AllowedMimeTypes: imageTypes,
		TypeLabels:       []string{"JPEG", "PNG", "WebP"},
		MaxSize:          2 << 20, // 2MB
		Bucket:           "avatars",
	},
}

var classNames = map[MediaClass]string{
	MediaImage:       "image",
	MediaVideo:       "video",
	MediaDocument:    "document",
	MediaKYCDocument: "kyc-document",
	MediaAvatar:      "avatar",
}

func (c MediaClass) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("MediaClass(%d)", int(c))
}

// ParseMediaClass maps the wire name of a class ("image", "video", ...) back
// to its constant.
func ParseMediaClass(name string) (MediaClass, bool) {
	for class, n := range classNames {
		if n == name {
			return class, true
		}
	}
	return 0, false
}

// PolicyFor returns the policy of a class. ok is false for values outside the
// declared constants.
func PolicyFor(class MediaClass) (Policy, bool) {
	p, ok := policies[class]
	return p, ok
}

// ValidationResult is the outcome of Validate. Error carries a localized
// message suitable for showing next to the form field.
type ValidationResult struct {
	Valid bool
	Error string
}

// Validate checks a declared MIME type and byte size against the policy of
// class. The type is checked before the size.
func Validate(class MediaClass, mimeType string, size int64) ValidationResult {
	policy, ok := policies[class]
	if !ok {
		return ValidationResult{Error: "Tipo de mídia não suportado"}
	}

	mimeType = normalizeMimeType(mimeType)
	if !policy.AllowedMimeTypes[mimeType] {
		return ValidationResult{
			Error: "Tipo de arquivo não permitido. Formatos aceitos: " + strings.Join(policy.TypeLabels, ", "),
		}
	}

	if size > policy.MaxSize {
		return ValidationResult{
			Error: "Arquivo muito grande. Máximo " + FormatFileSize(policy.MaxSize),
		}
	}

	return ValidationResult{Valid: true}
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatFileSize renders a byte count in the largest fitting unit with two
// decimals: 0 -> "0 Bytes", 1536 -> "1.50 KB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	value := float64(bytes)
	i := 0
	for value >= 1024 && i < len(sizeUnits)-1 {
		value /= 1024
		i++
	}

	return fmt.Sprintf("%.2f %s", value, sizeUnits[i])
}

// sniffAuthoritative lists the types whose magic numbers http.DetectContentType
// recognizes reliably. For everything else the declared type is kept.
var sniffAuthoritative = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// SniffContentType reads the first 512 bytes to detect the real content type
// and rewinds the reader afterwards.
func SniffContentType(r io.ReadSeeker) (string, error) {
	buffer := make([]byte, 512)
	n, err := r.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	_, err = r.Seek(0, io.SeekStart)
	if err != nil {
		return "", fmt.Errorf("failed to reset file pointer: %w", err)
	}

	return normalizeMimeType(http.DetectContentType(buffer[:n])), nil
}

// EffectiveContentType reconciles the type a client declared with the type
// sniffed from the content. A mismatch is only trusted when the sniffer is
// authoritative for either side.
func EffectiveContentType(declared, sniffed string) string {
	declared = normalizeMimeType(declared)
	if sniffAuthoritative[sniffed] {
		return sniffed
	}
	if sniffAuthoritative[declared] {
		// Declared as an image/PDF but the bytes say otherwise.
		return sniffed
	}
	if declared == "" {
		return sniffed
	}
	return declared
}

// ValidateHeader validates a multipart upload: the content type comes from
// EffectiveContentType so a renamed file cannot pass as an image.
// It returns the content type that should be stored with the object.
func ValidateHeader(class MediaClass, header *multipart.FileHeader) (string, ValidationResult) {
	file, err := header.Open()
	if err != nil {
		return "", ValidationResult{Error: "Falha ao ler o arquivo"}
	}
	defer func() { _ = file.Close() }()

	sniffed, err := SniffContentType(file)
	if err != nil {
		return "", ValidationResult{Error: "Falha ao ler o arquivo"}
	}

	contentType := EffectiveContentType(header.Header.Get("Content-Type"), sniffed)
	return contentType, Validate(class, contentType, header.Size)
}

func normalizeMimeType(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i != -1 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
