package s3

import (
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
)

const (
	// DefaultMultipartThreshold is the object size above which copies are split into parts.
	DefaultMultipartThreshold = 100 * 1024 * 1024

	// DefaultPartSize is the size of each part of a multipart copy.
	DefaultPartSize = 64 * 1024 * 1024

	// DefaultPartConcurrency is how many parts of one object are copied at once.
	DefaultPartConcurrency = 5

	// DefaultMaxRetries is the SDK retry attempt count.
	DefaultMaxRetries = 3

	// minPartSize is the smallest part S3 accepts except for the last one.
	minPartSize = 5 * 1024 * 1024

	// maxSimpleCopySize is the largest object CopyObject can copy in one request.
	maxSimpleCopySize = 5 * 1024 * 1024 * 1024

	// maxParts is the largest part count of a multipart upload.
	maxParts = 10000
)

// Config holds configuration for the S3 backend.
type Config struct {
	Region          string
	Endpoint        string
	ForcePathStyle  bool
	MaxRetries      int
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	CustomAWSConfig *aws.Config
	Logger          *slog.Logger

	// MultipartThreshold is the size above which UploadPartCopy is used
	MultipartThreshold int64

	// PartSize is the requested part size; it grows if the object would need more than 10000 parts
	PartSize int64

	// PartConcurrency bounds parallel UploadPartCopy calls per object
	PartConcurrency int
}

// Option is a functional option for configuring the S3 backend.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		MaxRetries:         DefaultMaxRetries,
		MultipartThreshold: DefaultMultipartThreshold,
		PartSize:           DefaultPartSize,
		PartConcurrency:    DefaultPartConcurrency,
	}
}

// WithRegion sets the AWS region.
// If not specified, uses the default AWS region from the credential chain.
func WithRegion(region string) Option {
	return func(c *Config) {
		c.Region = region
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
func WithForcePathStyle(forcePathStyle bool) Option {
	return func(c *Config) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithMaxRetries sets the maximum number of SDK attempts for failed requests.
// Default is 3.
func WithMaxRetries(maxRetries int) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
	}
}

// WithCredentials sets static credentials instead of the default credential chain.
func WithCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(c *Config) {
		c.AccessKeyID = accessKeyID
		c.SecretAccessKey = secretAccessKey
		c.SessionToken = sessionToken
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) Option {
	return func(c *Config) {
		c.CustomAWSConfig = config
	}
}

// WithLogger sets the logger used for multipart copy diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMultipartThreshold sets the object size above which multipart copy is used.
// Objects larger than 5GB always use multipart copy.
func WithMultipartThreshold(size int64) Option {
	return func(c *Config) {
		if size > 0 {
			c.MultipartThreshold = size
		}
	}
}

// WithPartSize sets the multipart copy part size. Values below 5MB are raised to 5MB.
func WithPartSize(size int64) Option {
	return func(c *Config) {
		if size > 0 {
			c.PartSize = max(size, minPartSize)
		}
	}
}

// WithPartConcurrency sets how many parts of one object are copied concurrently.
func WithPartConcurrency(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.PartConcurrency = n
		}
	}
}
