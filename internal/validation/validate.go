// Package validation checks jobs and copier configuration before any
// backend call is made.
package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

const (
	// maxBucketLength covers GCS dotted names; S3 and MinIO stop at 63.
	maxBucketLength = 222
	minBucketLength = 3

	maxKeyLength = 1024
)

// ValidateJob checks every field of job.
func ValidateJob(job slicetypes.Job) error {
	if job.Slices <= 0 {
		return errors.NewError(errors.OpValidate, errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("slice count must be positive, got %d", job.Slices))
	}

	if err := ValidateBucketName(job.SourceBucket); err != nil {
		return err
	}
	if err := ValidateBucketName(job.DestinationBucket); err != nil {
		return err
	}

	if err := ValidatePath(job.SourcePrefix); err != nil {
		return err
	}
	return ValidatePath(job.DestinationDir)
}

// ValidateConfig checks the copier configuration.
func ValidateConfig(cfg *slicetypes.Config) error {
	if cfg.MaxWorkers <= 0 {
		return errors.NewError(errors.OpValidate, errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("worker count must be positive, got %d", cfg.MaxWorkers))
	}

	if cfg.QueueSize < 0 {
		return errors.NewError(errors.OpValidate, errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("queue size cannot be negative, got %d", cfg.QueueSize))
	}

	switch cfg.FailurePolicy {
	case slicetypes.FailurePolicyWaitAll, slicetypes.FailurePolicyFailFast, slicetypes.FailurePolicyCollect:
	default:
		return errors.NewError(errors.OpValidate, errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("unknown failure policy %q", cfg.FailurePolicy))
	}

	switch cfg.ParseErrorPolicy {
	case slicetypes.ParseErrorAbort, slicetypes.ParseErrorSkip:
	default:
		return errors.NewError(errors.OpValidate, errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("unknown parse error policy %q", cfg.ParseErrorPolicy))
	}

	return nil
}

// ValidateBucketName accepts names valid on S3, GCS and MinIO alike:
// lowercase letters, digits, dots, hyphens and underscores, starting and
// ending with a letter or digit.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return errors.NewError(errors.OpValidate, errors.ErrInvalidConfig).
			WithMessage("bucket name cannot be empty")
	}

	if len(bucket) < minBucketLength || len(bucket) > maxBucketLength {
		return errors.NewError(errors.OpValidate, errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage(fmt.Sprintf("bucket name must be between %d and %d characters long", minBucketLength, maxBucketLength))
	}

	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return errors.NewError(errors.OpValidate, errors.ErrInvalidBucketName).
				WithBucket(bucket).
				WithMessage("bucket name can only contain lowercase letters, numbers, dots, hyphens and underscores")
		}
	}

	if !isAlnum(bucket[0]) || !isAlnum(bucket[len(bucket)-1]) {
		return errors.NewError(errors.OpValidate, errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name must start and end with a letter or number")
	}

	if strings.Contains(bucket, "..") {
		return errors.NewError(errors.OpValidate, errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot contain two adjacent periods")
	}

	return nil
}

// ValidatePath checks a source prefix or destination directory.
// Empty is allowed and means the bucket root.
func ValidatePath(p string) error {
	if p == "" {
		return nil
	}

	if len(p) > maxKeyLength {
		return errors.NewError(errors.OpValidate, errors.ErrInvalidObjectKey).
			WithKey(p).
			WithMessage(fmt.Sprintf("path cannot exceed %d characters", maxKeyLength))
	}

	if hasPathTraversal(p) {
		return errors.NewError(errors.OpValidate, errors.ErrInvalidObjectKey).
			WithKey(p).
			WithMessage("path cannot contain path traversal sequences")
	}

	if hasControlCharacters(p) {
		return errors.NewError(errors.OpValidate, errors.ErrInvalidObjectKey).
			WithKey(p).
			WithMessage("path cannot contain control characters")
	}

	return nil
}

func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') ||
		char == '.' || char == '-' || char == '_'
}

func isAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')
}

// hasPathTraversal reports a ".." path segment.
func hasPathTraversal(p string) bool {
	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

func hasControlCharacters(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
