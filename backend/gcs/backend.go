// Package gcs implements the slicecopy storage backend on Google Cloud Storage.
//
// Copies use the Rewrite API through ObjectHandle.CopierFrom, which the
// client library repeats until the server reports the copy as done, so
// large and cross-location copies need no special handling here.
package gcs

import (
	"context"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
)

// Scheme is the URI scheme used in logs.
const Scheme = "gs"

// ObjectIterator yields object attributes until it returns iterator.Done.
// *storage.ObjectIterator satisfies it.
type ObjectIterator interface {
	Next() (*storage.ObjectAttrs, error)
}

// API is the narrow Cloud Storage surface the backend uses.
type API interface {
	// Objects iterates the objects of bucket whose names start with prefix
	Objects(ctx context.Context, bucket, prefix string) ObjectIterator

	// Copy rewrites srcBucket/srcKey into dstBucket/dstKey
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
}

// Config holds configuration for the Cloud Storage backend.
type Config struct {
	CredentialsFile string
	Endpoint        string
	Anonymous       bool
	Logger          *slog.Logger
	ClientOptions   []option.ClientOption
}

// Option is a functional option for configuring the Cloud Storage backend.
type Option func(*Config)

// WithCredentialsFile authenticates with a service account key file
// instead of Application Default Credentials.
func WithCredentialsFile(path string) Option {
	return func(c *Config) {
		c.CredentialsFile = path
	}
}

// WithEndpoint sets a custom endpoint, e.g. a local emulator.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// WithAnonymous disables authentication. Only useful against emulators
// and public buckets.
func WithAnonymous(anonymous bool) Option {
	return func(c *Config) {
		c.Anonymous = anonymous
	}
}

// WithLogger sets the logger used for rewrite progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithClientOptions passes extra options to storage.NewClient.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *Config) {
		c.ClientOptions = append(c.ClientOptions, opts...)
	}
}

// Backend is a slicetypes.Backend over Cloud Storage.
type Backend struct {
	api    API
	client *storage.Client
}

// New creates a backend with a new storage client. Call Close when done.
func New(ctx context.Context, opts ...Option) (*Backend, error) {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}

	clientOpts := append([]option.ClientOption(nil), cfg.ClientOptions...)
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Anonymous {
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.NewError(errors.OpConfig, err).WithMessage("create storage client")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Backend{
		api:    &clientAPI{client: client, logger: logger},
		client: client,
	}, nil
}

// NewWithAPI creates a backend over a custom API implementation.
// This is primarily used for testing.
func NewWithAPI(api API) *Backend {
	return &Backend{api: api}
}

// Close releases the storage client, if the backend owns one.
func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// Scheme implements slicetypes.Backend.
func (b *Backend) Scheme() string {
	return Scheme
}

// ListObjects implements slicetypes.Backend.
func (b *Backend) ListObjects(ctx context.Context, bucket, prefix string, fn func(key string) error) error {
	it := b.api.Objects(ctx, bucket, prefix)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return classify(err, errors.ErrBucketNotFound)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

// CopyObject implements slicetypes.Backend.
func (b *Backend) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if err := b.api.Copy(ctx, srcBucket, srcKey, dstBucket, dstKey); err != nil {
		return classify(err, errors.ErrObjectNotFound)
	}
	return nil
}

// clientAPI implements API with a *storage.Client.
type clientAPI struct {
	client *storage.Client
	logger *slog.Logger
}

func (c *clientAPI) Objects(ctx context.Context, bucket, prefix string) ObjectIterator {
	query := &storage.Query{Prefix: prefix}
	// names are all the lister needs
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		query = &storage.Query{Prefix: prefix}
	}
	return c.client.Bucket(bucket).Objects(ctx, query)
}

func (c *clientAPI) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	src := c.client.Bucket(srcBucket).Object(srcKey)
	dst := c.client.Bucket(dstBucket).Object(dstKey)

	copier := dst.CopierFrom(src)
	copier.ProgressFunc = func(copiedBytes, totalBytes uint64) {
		c.logger.DebugContext(ctx, "rewrite progress",
			"destination", dstBucket+"/"+dstKey,
			"copied_bytes", copiedBytes,
			"total_bytes", totalBytes)
	}

	_, err := copier.Run(ctx)
	return err
}
