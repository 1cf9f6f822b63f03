package upload

import (
	"context"
	"sync"

	"github.com/fanvault/fanvault/internal/model"
	"github.com/fanvault/fanvault/internal/validation"
	"golang.org/x/sync/errgroup"
)

// UploadKYCBatch validates every document first and, when all pass, uploads
// them concurrently and waits for all of them. If any upload fails the
// returned *BatchError lists both sides; stored objects are left in place
// for the caller to reconcile.
func (g *Gateway) UploadKYCBatch(ctx context.Context, ownerID string, files map[model.KYCDocumentType]File) (map[model.KYCDocumentType]*Result, error) {
	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}

	invalid := make(map[model.KYCDocumentType]error)
	for docType, f := range files {
		if !docType.Valid() {
			invalid[docType] = &ValidationError{Class: validation.MediaKYCDocument, Message: "Tipo de documento inválido"}
			continue
		}
		if err := validate(validation.MediaKYCDocument, f); err != nil {
			invalid[docType] = err
		}
	}
	if len(invalid) > 0 {
		return nil, newBatchError(map[model.KYCDocumentType]*Result{}, invalid)
	}

	var (
		mu        sync.Mutex
		succeeded = make(map[model.KYCDocumentType]*Result, len(files))
		failed    = make(map[model.KYCDocumentType]error)
	)

	var group errgroup.Group
	for docType, f := range files {
		group.Go(func() error {
			res, err := g.UploadKYC(ctx, f, ownerID, docType)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[docType] = err
				return err
			}
			succeeded[docType] = res
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, newBatchError(succeeded, failed)
	}
	return succeeded, nil
}
