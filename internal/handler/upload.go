package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/fanvault/fanvault/internal/ctxkeys"
	"github.com/fanvault/fanvault/internal/upload"
	"github.com/fanvault/fanvault/internal/validation"
)

var (
	errMissingFile = errors.New("missing file")
	errBadRequest  = errors.New("bad request")
)

// parseMultipart bounds the request body before parsing the form. Oversized
// bodies surface as *http.MaxBytesError.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	err := r.ParseMultipartForm(32 << 20)
	if err != nil {
		var mErr *http.MaxBytesError
		if errors.As(err, &mErr) {
			return mErr
		}
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

// formFile opens a multipart file and resolves its content type from the
// declared header and the sniffed bytes. The caller closes the file. Each
// file is described on the request log line under upload_<field>.
func formFile(r *http.Request, field string, class validation.MediaClass) (upload.File, multipart.File, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return upload.File{}, nil, errMissingFile
	}

	contentType, result := validation.ValidateHeader(class, header)
	ctxkeys.AddLog(r.Context(), slog.Group("upload_"+field,
		slog.String("class", class.String()),
		slog.String("type", contentType),
		slog.Int64("bytes", header.Size),
		slog.Bool("accepted", result.Valid),
	))
	if !result.Valid {
		file.Close()
		return upload.File{}, nil, &upload.ValidationError{Class: class, Message: result.Error}
	}

	return upload.File{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}, file, nil
}
