// Package s3 implements the slicecopy storage backend on Amazon S3 and
// S3-compatible services.
//
// Listing uses the ListObjectsV2 paginator. Copies are server-side:
// CopyObject for small objects and UploadPartCopy for objects above the
// multipart threshold (and always above 5GB, the CopyObject limit).
package s3

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
)

// Scheme is the URI scheme used in logs.
const Scheme = "s3"

// S3API defines the S3 operations the backend uses.
// *s3.Client satisfies it; tests use a mock.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPartCopy(ctx context.Context, params *s3.UploadPartCopyInput, optFns ...func(*s3.Options)) (*s3.UploadPartCopyOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// Backend is a slicetypes.Backend over S3.
// It is safe for concurrent use; AWS SDK v2 clients are.
type Backend struct {
	api    S3API
	config *Config
	logger *slog.Logger
}

// New creates a backend using the default AWS credential chain unless
// static credentials or a custom aws.Config are given.
//
// Example:
//
//	backend, err := s3.New(ctx,
//	    s3.WithRegion("eu-west-1"),
//	    s3.WithPartConcurrency(8),
//	)
func New(ctx context.Context, opts ...Option) (*Backend, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var awsCfg aws.Config
	if cfg.CustomAWSConfig != nil {
		awsCfg = *cfg.CustomAWSConfig
	} else {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AccessKeyID != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
			))
		}

		var err error
		awsCfg, err = config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.NewError(errors.OpConfig, err).WithMessage("load AWS configuration")
		}
	}

	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	} else if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}

	if cfg.MaxRetries > 0 {
		awsCfg.RetryMaxAttempts = cfg.MaxRetries
	}

	var s3Opts []func(*s3.Options)
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	return newBackend(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// NewWithClient creates a backend over a custom S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(api S3API, opts ...Option) *Backend {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return newBackend(api, cfg)
}

func newBackend(api S3API, cfg *Config) *Backend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{
		api:    api,
		config: cfg,
		logger: logger,
	}
}

// Scheme implements slicetypes.Backend.
func (b *Backend) Scheme() string {
	return Scheme
}
