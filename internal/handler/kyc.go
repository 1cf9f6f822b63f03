package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/fanvault/fanvault/internal/ctxkeys"
	"github.com/fanvault/fanvault/internal/model"
	"github.com/fanvault/fanvault/internal/service"
	"github.com/fanvault/fanvault/internal/upload"
	"github.com/fanvault/fanvault/internal/validation"
)

type KYCHandler struct {
	kycService     *service.KYCService
	maxUploadBytes int64
}

func NewKYCHandler(kycService *service.KYCService, maxUploadBytes int64) *KYCHandler {
	return &KYCHandler{
		kycService:     kycService,
		maxUploadBytes: maxUploadBytes,
	}
}

// Submit expects one multipart file per document type, named after the type
// (document_front, document_back, proof_of_address, selfie).
func (h *KYCHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := parseMultipart(w, r, h.maxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	files := make(map[model.KYCDocumentType]upload.File, len(model.KYCDocumentTypes))
	invalid := make(map[string]string)
	var open []multipart.File
	defer func() {
		for _, f := range open {
			f.Close()
		}
	}()

	for _, docType := range model.KYCDocumentTypes {
		in, file, err := formFile(r, string(docType), validation.MediaKYCDocument)
		if err != nil {
			var vErr *upload.ValidationError
			switch {
			case errors.As(err, &vErr):
				invalid[string(docType)] = vErr.Message
			case errors.Is(err, errMissingFile):
				invalid[string(docType)] = "Arquivo não enviado"
			default:
				writeError(w, r, err)
				return
			}
			continue
		}
		open = append(open, file)
		files[docType] = in
	}

	if len(invalid) > 0 {
		writeJSON(w, http.StatusBadRequest, Envelope{Error: "Documentos inválidos", Fields: invalid})
		return
	}

	docs, err := h.kycService.Submit(r.Context(), user.ID, files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, docs)
}

func (h *KYCHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	docs, err := h.kycService.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, docs)
}

type reviewRequest struct {
	Status model.KYCStatus `json:"status"`
	Note   string          `json:"note"`
}

// Review handles PATCH /admin/kyc/{id}.
func (h *KYCHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Requisição inválida")
		return
	}

	doc, err := h.kycService.Review(r.Context(), r.PathValue("id"), req.Status, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("kyc review recorded", "reviewer", ctxkeys.User(r.Context()).Email, "id", doc.ID, "status", doc.Status)
	ok(w, doc)
}
