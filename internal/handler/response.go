package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fanvault/fanvault/internal/repository"
	"github.com/fanvault/fanvault/internal/service"
	"github.com/fanvault/fanvault/internal/thumbnail"
	"github.com/fanvault/fanvault/internal/upload"
	"github.com/fanvault/fanvault/internal/validation"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	// Fields carries per-field messages, e.g. one per KYC document.
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Error: message})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeError maps service errors to a status and a message that is safe to
// show. Unknown errors are logged and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr *upload.ValidationError
		bErr *upload.BatchError
		tErr *upload.TransportError
		dErr *thumbnail.DecodeError
		mErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &bErr):
		fields := make(map[string]string, len(bErr.Failed))
		for docType, msg := range bErr.Messages() {
			fields[string(docType)] = msg
		}
		status := http.StatusBadGateway
		message := "Falha no envio de um ou mais documentos"
		if len(bErr.Succeeded) == 0 && errors.As(err, &vErr) {
			status = http.StatusBadRequest
			message = "Documentos inválidos"
		}
		writeJSON(w, status, Envelope{Error: message, Fields: fields})
	case errors.As(err, &vErr):
		fail(w, http.StatusBadRequest, vErr.Message)
	case errors.As(err, &tErr):
		slog.Error("storage transport failed", "error", err, "path", r.URL.Path)
		fail(w, http.StatusBadGateway, "Falha no envio do arquivo")
	case errors.As(err, &dErr):
		fail(w, http.StatusUnprocessableEntity, "Não foi possível processar o vídeo")
	case errors.As(err, &mErr):
		fail(w, http.StatusRequestEntityTooLarge, "Requisição muito grande")
	case errors.Is(err, errMissingFile):
		fail(w, http.StatusBadRequest, "Arquivo não enviado")
	case errors.Is(err, errBadRequest):
		fail(w, http.StatusBadRequest, "Requisição inválida")
	case validation.IsInputError(err):
		fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, upload.ErrInvalidOwner),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrKYCIncomplete),
		errors.Is(err, service.ErrInvalidReviewStatus):
		fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		fail(w, http.StatusUnauthorized, "E-mail ou senha inválidos")
	case errors.Is(err, service.ErrNotCreator):
		fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrEmailAlreadyExists),
		errors.Is(err, service.ErrKYCAlreadySubmitted):
		fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAvatarConflict):
		fail(w, http.StatusConflict, "O avatar foi alterado por outra requisição")
	case errors.Is(err, repository.ErrMediaNotFound),
		errors.Is(err, repository.ErrKYCDocumentNotFound),
		errors.Is(err, repository.ErrProfileNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		fail(w, http.StatusNotFound, "Não encontrado")
	default:
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		fail(w, http.StatusInternalServerError, "Erro interno do servidor")
	}
}
