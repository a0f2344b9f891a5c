package s3

import (
	stderrors "errors"
	"fmt"

	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
)

// S3 error codes
const (
	codeNoSuchKey    = "NoSuchKey"
	codeNotFound     = "NotFound"
	codeNoSuchBucket = "NoSuchBucket"
	codeAccessDenied = "AccessDenied"
	codeForbidden    = "Forbidden"
	codeInvalidToken = "InvalidAccessKeyId"
	codeBadSignature = "SignatureDoesNotMatch"
)

// classify tags SDK errors with the matching sentinel. The SDK error stays
// in the chain so errors.As still finds it.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var noSuchKey *awstypes.NoSuchKey
	if stderrors.As(err, &noSuchKey) {
		return fmt.Errorf("%w: %w", errors.ErrObjectNotFound, err)
	}

	var noSuchBucket *awstypes.NoSuchBucket
	if stderrors.As(err, &noSuchBucket) {
		return fmt.Errorf("%w: %w", errors.ErrBucketNotFound, err)
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case codeNoSuchKey, codeNotFound:
			return fmt.Errorf("%w: %w", errors.ErrObjectNotFound, err)
		case codeNoSuchBucket:
			return fmt.Errorf("%w: %w", errors.ErrBucketNotFound, err)
		case codeAccessDenied, codeForbidden, codeInvalidToken, codeBadSignature:
			return fmt.Errorf("%w: %w", errors.ErrAccessDenied, err)
		}
	}

	return err
}
