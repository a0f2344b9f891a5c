package errors

import "errors"

// ErrorCode classifies a failure for reporting and metrics labels.
// Codes are strings so they read well in logs and JSON run reports.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates the source object or a bucket does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// Permission errors.

	// CodeForbidden indicates the credentials lack permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Validation errors.

	// CodeInvalidInput indicates a malformed key, bucket or file name token.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the run.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Execution errors.

	// CodeListFailed indicates enumerating the source prefix failed.
	CodeListFailed ErrorCode = "LIST_FAILED"

	// CodeCopyFailed indicates the backend rejected or failed a copy.
	CodeCopyFailed ErrorCode = "COPY_FAILED"

	// CodeCanceled indicates the run was canceled before the task finished.
	CodeCanceled ErrorCode = "CANCELED"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// CodeOf maps an error to its ErrorCode. Sentinels are checked before the
// operation that produced the error, so a copy that failed because the
// source vanished reports CodeNotFound rather than CodeCopyFailed.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return CodeInvalidConfig
	case errors.Is(err, ErrKeyParse), errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidObjectKey), errors.Is(err, ErrInvalidBucketName):
		return CodeInvalidInput
	case errors.Is(err, ErrObjectNotFound), errors.Is(err, ErrBucketNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAccessDenied):
		return CodeForbidden
	case errors.Is(err, ErrCanceled):
		return CodeCanceled
	}

	var opErr *Error
	if errors.As(err, &opErr) {
		switch opErr.Op {
		case OpList:
			return CodeListFailed
		case OpCopy:
			return CodeCopyFailed
		}
	}

	return CodeUnknown
}
