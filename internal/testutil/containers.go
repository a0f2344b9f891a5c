//go:build integration

package testutil

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	miniogo "github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	localStackImage = "localstack/localstack:latest"
	minioImage      = "minio/minio:RELEASE.2024-01-16T16-07-38Z"

	// LocalStackRegion is the region LocalStack buckets are created in.
	LocalStackRegion = "us-east-1"

	// ContainerAccessKey and ContainerSecretKey are the static credentials
	// accepted by the test containers.
	ContainerAccessKey = "slicecopy"
	ContainerSecretKey = "slicecopy-secret"
)

// LocalStack is a running LocalStack container serving S3.
type LocalStack struct {
	// Endpoint is the http URL of the S3 service
	Endpoint string

	// Client is an S3 client bound to Endpoint
	Client *s3.Client
}

// StartLocalStack starts LocalStack and terminates it when the test ends.
func StartLocalStack(t *testing.T) *LocalStack {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := localstack.Run(ctx, localStackImage,
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort("4566").
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start LocalStack container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate LocalStack container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4566")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}
	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(LocalStackRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ContainerAccessKey, ContainerSecretKey, "")),
	)
	if err != nil {
		t.Fatalf("Failed to load AWS config: %v", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &LocalStack{Endpoint: endpoint, Client: client}
}

// CreateBucket creates bucket in LocalStack.
func (l *LocalStack) CreateBucket(ctx context.Context, t *testing.T, bucket string) {
	t.Helper()

	if _, err := l.Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Fatalf("Failed to create bucket %s: %v", bucket, err)
	}
}

// Put uploads data to bucket/key.
func (l *LocalStack) Put(ctx context.Context, t *testing.T, bucket, key string, data []byte) {
	t.Helper()

	_, err := l.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		t.Fatalf("Failed to put %s/%s: %v", bucket, key, err)
	}
}

// Get downloads bucket/key.
func (l *LocalStack) Get(ctx context.Context, t *testing.T, bucket, key string) []byte {
	t.Helper()

	out, err := l.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		t.Fatalf("Failed to get %s/%s: %v", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		t.Fatalf("Failed to read %s/%s: %v", bucket, key, err)
	}
	return data
}

// Minio is a running MinIO server container.
type Minio struct {
	// Endpoint is host:port without a scheme
	Endpoint string

	// Client is a minio-go client bound to Endpoint
	Client *miniogo.Client
}

// StartMinio starts a MinIO server and terminates it when the test ends.
func StartMinio(t *testing.T) *Minio {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcminio.Run(ctx, minioImage,
		tcminio.WithUsername(ContainerAccessKey),
		tcminio.WithPassword(ContainerSecretKey),
	)
	if err != nil {
		t.Fatalf("Failed to start MinIO container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate MinIO container: %v", err)
		}
	})

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get MinIO endpoint: %v", err)
	}

	client, err := miniogo.New(endpoint, &miniogo.Options{
		Creds:  miniocreds.NewStaticV4(ContainerAccessKey, ContainerSecretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Fatalf("Failed to create MinIO client: %v", err)
	}

	return &Minio{Endpoint: endpoint, Client: client}
}

// CreateBucket creates bucket on the MinIO server.
func (m *Minio) CreateBucket(ctx context.Context, t *testing.T, bucket string) {
	t.Helper()

	if err := m.Client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
		t.Fatalf("Failed to create bucket %s: %v", bucket, err)
	}
}

// Put uploads data to bucket/key.
func (m *Minio) Put(ctx context.Context, t *testing.T, bucket, key string, data []byte) {
	t.Helper()

	_, err := m.Client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), miniogo.PutObjectOptions{})
	if err != nil {
		t.Fatalf("Failed to put %s/%s: %v", bucket, key, err)
	}
}

// Get downloads bucket/key.
func (m *Minio) Get(ctx context.Context, t *testing.T, bucket, key string) []byte {
	t.Helper()

	obj, err := m.Client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		t.Fatalf("Failed to get %s/%s: %v", bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		t.Fatalf("Failed to read %s/%s: %v", bucket, key, err)
	}
	return data
}

// RandomData returns n random bytes.
func RandomData(t *testing.T, n int) []byte {
	t.Helper()

	data := make([]byte, n)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("Failed to generate random data: %v", err)
	}
	return data
}

// BucketName returns a bucket name unique to this test run.
func BucketName(prefix string) string {
	return strings.ToLower(fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano()))
}
