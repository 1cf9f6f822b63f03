package handler

import (
	"net/http"

	"github.com/fanvault/fanvault/internal/ctxkeys"
	"github.com/fanvault/fanvault/internal/service"
	"github.com/fanvault/fanvault/internal/validation"
)

type ProfileHandler struct {
	profileService *service.ProfileService
	maxUploadBytes int64
}

func NewProfileHandler(profileService *service.ProfileService, maxUploadBytes int64) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	profile, err := h.profileService.ByUserID(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, profile)
}

func (h *ProfileHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Requisição inválida")
		return
	}

	err := h.profileService.UpdateName(r.Context(), user.ID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.Show(w, r)
}

// UploadAvatar expects a multipart form with an "avatar" file.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := parseMultipart(w, r, h.maxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	in, file, err := formFile(r, "avatar", validation.MediaAvatar)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	profile, err := h.profileService.UploadAvatar(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, profile)
}

func (h *ProfileHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.profileService.DeleteAvatar(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}
