// Package minio implements the slicecopy storage backend on MinIO and other
// S3-compatible servers through minio-go.
package minio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
)

// Scheme is the URI scheme used in logs.
const Scheme = "minio"

// DefaultComposeThreshold is the largest object a single server-side copy
// accepts. Larger objects are composed in parts.
const DefaultComposeThreshold = 5 * 1024 * 1024 * 1024

// API is the subset of *minio.Client the backend uses.
type API interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error)
	ComposeObject(ctx context.Context, dst minio.CopyDestOptions, srcs ...minio.CopySrcOptions) (minio.UploadInfo, error)
}

// Config holds configuration for the MinIO backend.
type Config struct {
	Endpoint        string
	Region          string
	Secure          bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Logger          *slog.Logger

	// ComposeThreshold is the size above which ComposeObject is used
	ComposeThreshold int64
}

// Option is a functional option for configuring the MinIO backend.
type Option func(*Config)

// WithRegion sets the bucket region.
func WithRegion(region string) Option {
	return func(c *Config) {
		c.Region = region
	}
}

// WithSecure toggles TLS.
func WithSecure(secure bool) Option {
	return func(c *Config) {
		c.Secure = secure
	}
}

// WithCredentials sets static credentials. Without them the backend reads
// MINIO_* and then AWS_* environment variables.
func WithCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(c *Config) {
		c.AccessKeyID = accessKeyID
		c.SecretAccessKey = secretAccessKey
		c.SessionToken = sessionToken
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithComposeThreshold sets the object size above which copies go through
// ComposeObject. Values above 5 GiB are lowered to 5 GiB.
func WithComposeThreshold(size int64) Option {
	return func(c *Config) {
		if size > 0 {
			c.ComposeThreshold = min(size, DefaultComposeThreshold)
		}
	}
}

// Backend is a slicetypes.Backend over a MinIO client.
type Backend struct {
	api              API
	logger           *slog.Logger
	composeThreshold int64
}

func defaultConfig() *Config {
	return &Config{Secure: true, ComposeThreshold: DefaultComposeThreshold}
}

// New creates a backend connected to endpoint (host:port, no scheme).
func New(endpoint string, opts ...Option) (*Backend, error) {
	cfg := defaultConfig()
	cfg.Endpoint = endpoint
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Endpoint == "" {
		return nil, errors.NewError(errors.OpConfig, errors.ErrInvalidConfig).WithMessage("minio endpoint is required")
	}

	var creds *credentials.Credentials
	if cfg.AccessKeyID != "" {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvMinio{},
			&credentials.EnvAWS{},
		})
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.NewError(errors.OpConfig, err).WithMessage("create minio client")
	}

	return newBackend(client, cfg), nil
}

// NewWithAPI creates a backend over a custom API implementation.
// This is primarily used for testing.
func NewWithAPI(api API, opts ...Option) *Backend {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return newBackend(api, cfg)
}

func newBackend(api API, cfg *Config) *Backend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{api: api, logger: logger, composeThreshold: cfg.ComposeThreshold}
}

// Scheme implements slicetypes.Backend.
func (b *Backend) Scheme() string {
	return Scheme
}

// ListObjects implements slicetypes.Backend. Listing is recursive so keys
// under nested prefixes are returned as-is.
func (b *Backend) ListObjects(ctx context.Context, bucket, prefix string, fn func(key string) error) error {
	// canceling stops the listing goroutine when fn bails out early
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := b.api.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return translateError(obj.Err, errors.ErrBucketNotFound)
		}
		if err := fn(obj.Key); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// CopyObject implements slicetypes.Backend. Objects over the compose
// threshold (5 GiB by default) go through ComposeObject, which copies them
// in parts.
func (b *Backend) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	info, err := b.api.StatObject(ctx, srcBucket, srcKey, minio.StatObjectOptions{})
	if err != nil {
		return fmt.Errorf("stat source object: %w", translateError(err, errors.ErrObjectNotFound))
	}

	dst := minio.CopyDestOptions{Bucket: dstBucket, Object: dstKey}
	src := minio.CopySrcOptions{Bucket: srcBucket, Object: srcKey}

	if info.Size > b.composeThreshold {
		b.logger.DebugContext(ctx, "compose copy",
			"source", srcBucket+"/"+srcKey,
			"destination", dstBucket+"/"+dstKey,
			"size", info.Size)
		_, err = b.api.ComposeObject(ctx, dst, src)
	} else {
		_, err = b.api.CopyObject(ctx, dst, src)
	}
	if err != nil {
		return translateError(err, errors.ErrObjectNotFound)
	}
	return nil
}
