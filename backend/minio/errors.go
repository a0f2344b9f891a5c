package minio

import (
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
)

// translateError tags minio errors with the matching sentinel. notFound is
// used for a 404 without a recognized code.
func translateError(err error, notFound error) error {
	if err == nil {
		return nil
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %w", errors.ErrObjectNotFound, err)
	case "NoSuchBucket":
		return fmt.Errorf("%w: %w", errors.ErrBucketNotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %w", errors.ErrAccessDenied, err)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", notFound, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", errors.ErrAccessDenied, err)
	}

	return err
}
