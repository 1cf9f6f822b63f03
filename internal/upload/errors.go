package upload

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/fanvault/fanvault/internal/model"
	"github.com/fanvault/fanvault/internal/validation"
	"go.uber.org/multierr"
)

var ErrInvalidOwner = errors.New("invalid owner id")

// ValidationError reports a file rejected by the policy of its class. No
// storage I/O happens when it is returned.
type ValidationError struct {
	Class   validation.MediaClass
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TransportError wraps a failure reported by the storage backend. The
// operation was attempted once and not retried.
type TransportError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upload to %s/%s failed: %v", e.Bucket, e.Key, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BatchError is returned when one or more uploads of a batch failed. Objects
// in Succeeded stay stored; nothing is rolled back.
type BatchError struct {
	Succeeded map[model.KYCDocumentType]*Result
	Failed    map[model.KYCDocumentType]error
	err       error
}

func newBatchError(succeeded map[model.KYCDocumentType]*Result, failed map[model.KYCDocumentType]error) *BatchError {
	var combined error
	for _, docType := range documentOrder(failed) {
		combined = multierr.Append(combined, fmt.Errorf("%s: %w", docType, failed[docType]))
	}
	return &BatchError{Succeeded: succeeded, Failed: failed, err: combined}
}

// documentOrder returns the keys of m in submission order, followed by
// unknown types sorted by name.
func documentOrder[V any](m map[model.KYCDocumentType]V) []model.KYCDocumentType {
	keys := make([]model.KYCDocumentType, 0, len(m))
	for _, docType := range model.KYCDocumentTypes {
		if _, ok := m[docType]; ok {
			keys = append(keys, docType)
		}
	}
	var unknown []model.KYCDocumentType
	for docType := range m {
		if !slices.Contains(model.KYCDocumentTypes, docType) {
			unknown = append(unknown, docType)
		}
	}
	slices.Sort(unknown)
	return append(keys, unknown...)
}

func (e *BatchError) Error() string {
	total := len(e.Succeeded) + len(e.Failed)
	return fmt.Sprintf("%d of %d uploads failed: %v", len(e.Failed), total, e.err)
}

func (e *BatchError) Unwrap() []error {
	return multierr.Errors(e.err)
}

// Messages returns the per-document messages, suitable for field level display.
func (e *BatchError) Messages() map[model.KYCDocumentType]string {
	out := make(map[model.KYCDocumentType]string, len(e.Failed))
	for docType, err := range e.Failed {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			out[docType] = vErr.Message
			continue
		}
		out[docType] = "Falha no envio do arquivo"
	}
	return out
}

// SucceededPaths lists the keys that were stored before the batch failed.
func (e *BatchError) SucceededPaths() string {
	paths := make([]string, 0, len(e.Succeeded))
	for _, docType := range documentOrder(e.Succeeded) {
		paths = append(paths, e.Succeeded[docType].Path)
	}
	return strings.Join(paths, ",")
}
