package gcs

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
)

// classify tags Cloud Storage errors with the matching sentinel.
// notFound is used for a bare HTTP 404, whose meaning depends on the call.
func classify(err error, notFound error) error {
	if err == nil {
		return nil
	}

	switch {
	case stderrors.Is(err, storage.ErrObjectNotExist):
		return fmt.Errorf("%w: %w", errors.ErrObjectNotFound, err)
	case stderrors.Is(err, storage.ErrBucketNotExist):
		return fmt.Errorf("%w: %w", errors.ErrBucketNotFound, err)
	}

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", notFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", errors.ErrAccessDenied, err)
		}
	}

	return err
}
