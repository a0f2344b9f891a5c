package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// MockBuilder provides a fluent interface for building MockS3Client instances.
type MockBuilder struct {
	client *MockS3Client
}

// NewMockBuilder creates a new MockBuilder.
func NewMockBuilder() *MockBuilder {
	return &MockBuilder{
		client: &MockS3Client{},
	}
}

// Build returns the configured MockS3Client.
func (b *MockBuilder) Build() *MockS3Client {
	return b.client
}

// WithListObjectsV2 configures the ListObjectsV2 behavior.
func (b *MockBuilder) WithListObjectsV2(
	fn func(context.Context, *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error),
) *MockBuilder {
	b.client.ListObjectsV2Func = func(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
		return fn(ctx, params)
	}
	return b
}

// WithHeadObject configures the HeadObject behavior.
func (b *MockBuilder) WithHeadObject(
	fn func(context.Context, *s3.HeadObjectInput) (*s3.HeadObjectOutput, error),
) *MockBuilder {
	b.client.HeadObjectFunc = func(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return fn(ctx, params)
	}
	return b
}

// WithCopyObject configures the CopyObject behavior.
func (b *MockBuilder) WithCopyObject(
	fn func(context.Context, *s3.CopyObjectInput) (*s3.CopyObjectOutput, error),
) *MockBuilder {
	b.client.CopyObjectFunc = func(ctx context.Context, params *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
		return fn(ctx, params)
	}
	return b
}

// WithPages configures ListObjectsV2 to return one page per element of pages.
// Continuation tokens are the page index.
func (b *MockBuilder) WithPages(pages ...[]string) *MockBuilder {
	b.client.ListObjectsV2Func = func(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
		idx := 0
		if token := aws.ToString(params.ContinuationToken); token != "" {
			n, err := strconv.Atoi(token)
			if err != nil {
				return nil, err
			}
			idx = n
		}

		out := &s3.ListObjectsV2Output{
			Name:        params.Bucket,
			Prefix:      params.Prefix,
			IsTruncated: aws.Bool(false),
		}
		if idx >= len(pages) {
			out.KeyCount = aws.Int32(0)
			return out, nil
		}

		for _, key := range pages[idx] {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		}
		out.KeyCount = aws.Int32(int32(len(pages[idx])))
		if idx+1 < len(pages) {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(strconv.Itoa(idx + 1))
		}
		return out, nil
	}
	return b
}

// WithObjectSize configures HeadObject to report size for every key.
func (b *MockBuilder) WithObjectSize(size int64) *MockBuilder {
	b.client.HeadObjectFunc = func(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return &s3.HeadObjectOutput{
			ContentLength: aws.Int64(size),
			ETag:          aws.String(`"source-etag"`),
		}, nil
	}
	return b
}

// WithObjectNotFound configures the mock to return object not found errors.
func (b *MockBuilder) WithObjectNotFound() *MockBuilder {
	notFoundErr := &types.NoSuchKey{
		Message: aws.String("The specified key does not exist."),
	}

	b.client.HeadObjectFunc = func(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return nil, notFoundErr
	}
	b.client.CopyObjectFunc = func(ctx context.Context, params *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
		return nil, notFoundErr
	}
	return b
}

// WithAccessDenied configures the mock to return access denied API errors.
func (b *MockBuilder) WithAccessDenied() *MockBuilder {
	accessDeniedErr := &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}

	b.client.ListObjectsV2Func = func(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
		return nil, accessDeniedErr
	}
	b.client.HeadObjectFunc = func(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return nil, accessDeniedErr
	}
	b.client.CopyObjectFunc = func(ctx context.Context, params *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
		return nil, accessDeniedErr
	}
	return b
}

// MultipartRecorder captures the calls of a multipart copy.
type MultipartRecorder struct {
	mu sync.Mutex

	Ranges    []string
	Completed bool
	Aborted   bool
	Parts     []types.CompletedPart
}

// CopiedRanges returns the recorded CopySourceRange values.
func (r *MultipartRecorder) CopiedRanges() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Ranges...)
}

// WithMultipartCopy configures the multipart copy operations and records them.
// A non-nil partErr makes every UploadPartCopy call fail.
func (b *MockBuilder) WithMultipartCopy(rec *MultipartRecorder, partErr error) *MockBuilder {
	uploadID := "test-upload-id"

	b.client.CreateMultipartUploadFunc = func(ctx context.Context, params *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
		return &s3.CreateMultipartUploadOutput{
			UploadId: aws.String(uploadID),
			Bucket:   params.Bucket,
			Key:      params.Key,
		}, nil
	}

	b.client.UploadPartCopyFunc = func(ctx context.Context, params *s3.UploadPartCopyInput, _ ...func(*s3.Options)) (*s3.UploadPartCopyOutput, error) {
		rec.mu.Lock()
		rec.Ranges = append(rec.Ranges, aws.ToString(params.CopySourceRange))
		rec.mu.Unlock()

		if partErr != nil {
			return nil, partErr
		}
		return &s3.UploadPartCopyOutput{
			CopyPartResult: &types.CopyPartResult{
				ETag: aws.String(`"part-` + strconv.Itoa(int(aws.ToInt32(params.PartNumber))) + `"`),
			},
		}, nil
	}

	b.client.CompleteMultipartUploadFunc = func(ctx context.Context, params *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
		rec.mu.Lock()
		rec.Completed = true
		if params.MultipartUpload != nil {
			rec.Parts = append(rec.Parts, params.MultipartUpload.Parts...)
		}
		rec.mu.Unlock()

		return &s3.CompleteMultipartUploadOutput{
			ETag:   aws.String(`"multipart-etag"`),
			Bucket: params.Bucket,
			Key:    params.Key,
		}, nil
	}

	b.client.AbortMultipartUploadFunc = func(ctx context.Context, params *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
		rec.mu.Lock()
		rec.Aborted = true
		rec.mu.Unlock()
		return &s3.AbortMultipartUploadOutput{}, nil
	}

	return b
}
