// Package errors provides error types and classification for slice copy runs.
package errors

import (
	"errors"
	"fmt"
)

// Operation names used in Error.Op.
const (
	OpList     = "list"
	OpCopy     = "copy"
	OpSlice    = "slice"
	OpValidate = "validate"
	OpConfig   = "config"
)

// Error represents a failed operation with context about where it failed.
// It wraps the underlying backend error so errors.Is and errors.As keep working.
type Error struct {
	// Op is the operation that failed (e.g., "list", "copy", "slice")
	Op string

	// Bucket is the bucket name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Err is the underlying error from the storage SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("slicecopy.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("slicecopy.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("slicecopy.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("slicecopy.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for common failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("slicecopy: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("slicecopy: bucket not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("slicecopy: access denied")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("slicecopy: invalid input")

	// ErrInvalidConfig indicates an invalid run configuration (slices, workers, policies)
	ErrInvalidConfig = errors.New("slicecopy: invalid configuration")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("slicecopy: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("slicecopy: invalid object key")

	// ErrKeyParse indicates the leading file name token is not a base-10 integer
	ErrKeyParse = errors.New("slicecopy: file name has no numeric slice token")

	// ErrCanceled indicates the run was canceled before the task could finish
	ErrCanceled = errors.New("slicecopy: canceled")
)

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsBucketNotFound checks if an error indicates that a bucket was not found.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsKeyParse checks if an error comes from deriving a slice from a file name.
func IsKeyParse(err error) bool {
	return errors.Is(err, ErrKeyParse)
}

// IsInvalidConfig checks if an error indicates a rejected configuration.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
