package handler

import (
	"net/http"
	"strings"

	"github.com/fanvault/fanvault/internal/ctxkeys"
	"github.com/fanvault/fanvault/internal/service"
	"github.com/fanvault/fanvault/internal/upload"
	"github.com/fanvault/fanvault/internal/validation"
)

type MediaHandler struct {
	mediaService   *service.MediaService
	maxUploadBytes int64
}

func NewMediaHandler(mediaService *service.MediaService, maxUploadBytes int64) *MediaHandler {
	return &MediaHandler{
		mediaService:   mediaService,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload handles POST /app/media/{class} with a multipart "file" and an
// optional "folder" field.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	class, known := validation.ParseMediaClass(r.PathValue("class"))
	if !known || (class != validation.MediaImage && class != validation.MediaVideo && class != validation.MediaDocument) {
		writeError(w, r, &upload.ValidationError{Class: class, Message: "Tipo de mídia não suportado"})
		return
	}

	err := parseMultipart(w, r, h.maxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	in, file, err := formFile(r, "file", class)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	folder := strings.TrimSpace(r.FormValue("folder"))

	media, err := h.mediaService.Upload(r.Context(), user.ID, class, in, folder)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, media)
}

func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	media, err := h.mediaService.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, media)
}

func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.mediaService.Delete(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}
