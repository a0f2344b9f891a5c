package minio

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

var (
	_ API                = (*minio.Client)(nil)
	_ slicetypes.Backend = (*Backend)(nil)
)

// fakeAPI is an in-memory API. Objects map bucket to key to size.
type fakeAPI struct {
	objects  map[string]map[string]int64
	keys     map[string][]string
	listErr  error
	copyErr  error
	copies   []string
	composed []string
	listOpts []minio.ListObjectsOptions
}

func (f *fakeAPI) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	f.listOpts = append(f.listOpts, opts)
	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		for _, key := range f.keys[bucket] {
			if !strings.HasPrefix(key, opts.Prefix) {
				continue
			}
			select {
			case ch <- minio.ObjectInfo{Key: key}:
			case <-ctx.Done():
				return
			}
		}
		if f.listErr != nil {
			select {
			case ch <- minio.ObjectInfo{Err: f.listErr}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

func (f *fakeAPI) StatObject(_ context.Context, bucket, object string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	size, ok := f.objects[bucket][object]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
	}
	return minio.ObjectInfo{Key: object, Size: size}, nil
}

func (f *fakeAPI) CopyObject(_ context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error) {
	if f.copyErr != nil {
		return minio.UploadInfo{}, f.copyErr
	}
	f.copies = append(f.copies, src.Bucket+"/"+src.Object+"->"+dst.Bucket+"/"+dst.Object)
	return minio.UploadInfo{Bucket: dst.Bucket, Key: dst.Object}, nil
}

func (f *fakeAPI) ComposeObject(_ context.Context, dst minio.CopyDestOptions, srcs ...minio.CopySrcOptions) (minio.UploadInfo, error) {
	for _, src := range srcs {
		f.composed = append(f.composed, src.Bucket+"/"+src.Object+"->"+dst.Bucket+"/"+dst.Object)
	}
	return minio.UploadInfo{Bucket: dst.Bucket, Key: dst.Object}, nil
}

func TestBackend_ListObjects(t *testing.T) {
	api := &fakeAPI{keys: map[string][]string{
		"src": {"in/", "in/1-a", "in/deep/2-b", "other/3-c"},
	}}
	backend := NewWithAPI(api)

	var keys []string
	err := backend.ListObjects(context.Background(), "src", "in/", func(key string) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"in/", "in/1-a", "in/deep/2-b"}, keys)
	require.Len(t, api.listOpts, 1)
	assert.True(t, api.listOpts[0].Recursive)
	assert.Equal(t, "in/", api.listOpts[0].Prefix)
	assert.Equal(t, "minio", backend.Scheme())
}

func TestBackend_ListObjects_Errors(t *testing.T) {
	t.Run("no such bucket", func(t *testing.T) {
		api := &fakeAPI{listErr: minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound}}
		err := NewWithAPI(api).ListObjects(context.Background(), "src", "", func(string) error { return nil })
		assert.True(t, errors.IsBucketNotFound(err))
	})

	t.Run("access denied", func(t *testing.T) {
		api := &fakeAPI{listErr: minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}}
		err := NewWithAPI(api).ListObjects(context.Background(), "src", "", func(string) error { return nil })
		assert.True(t, errors.IsAccessDenied(err))
	})

	t.Run("callback error stops listing", func(t *testing.T) {
		stop := stderrors.New("stop")
		api := &fakeAPI{keys: map[string][]string{"src": {"a", "b", "c"}}}

		var seen int
		err := NewWithAPI(api).ListObjects(context.Background(), "src", "", func(string) error {
			seen++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, seen)
	})

	t.Run("canceled", func(t *testing.T) {
		api := &fakeAPI{keys: map[string][]string{"src": {"a", "b"}}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewWithAPI(api).ListObjects(ctx, "src", "", func(string) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBackend_CopyObject(t *testing.T) {
	api := &fakeAPI{objects: map[string]map[string]int64{
		"src": {"in/1-a": 10, "in/2-big": DefaultComposeThreshold + 1},
	}}
	backend := NewWithAPI(api)

	require.NoError(t, backend.CopyObject(context.Background(), "src", "in/1-a", "dst", "out/1/1-a"))
	require.NoError(t, backend.CopyObject(context.Background(), "src", "in/2-big", "dst", "out/0/2-big"))

	assert.Equal(t, []string{"src/in/1-a->dst/out/1/1-a"}, api.copies)
	assert.Equal(t, []string{"src/in/2-big->dst/out/0/2-big"}, api.composed)
}

func TestBackend_CopyObject_ComposeThreshold(t *testing.T) {
	api := &fakeAPI{objects: map[string]map[string]int64{
		"src": {"in/1-a": 10, "in/2-b": 11},
	}}
	backend := NewWithAPI(api, WithComposeThreshold(10))

	require.NoError(t, backend.CopyObject(context.Background(), "src", "in/1-a", "dst", "out/1/1-a"))
	require.NoError(t, backend.CopyObject(context.Background(), "src", "in/2-b", "dst", "out/0/2-b"))

	assert.Equal(t, []string{"src/in/1-a->dst/out/1/1-a"}, api.copies)
	assert.Equal(t, []string{"src/in/2-b->dst/out/0/2-b"}, api.composed)

	t.Run("capped at single copy limit", func(t *testing.T) {
		cfg := defaultConfig()
		WithComposeThreshold(DefaultComposeThreshold * 2)(cfg)
		assert.Equal(t, int64(DefaultComposeThreshold), cfg.ComposeThreshold)

		WithComposeThreshold(0)(cfg)
		assert.Equal(t, int64(DefaultComposeThreshold), cfg.ComposeThreshold)
	})
}

func TestBackend_CopyObject_Errors(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		api := &fakeAPI{objects: map[string]map[string]int64{}}
		err := NewWithAPI(api).CopyObject(context.Background(), "src", "1-a", "dst", "x")
		assert.True(t, errors.IsObjectNotFound(err))
	})

	t.Run("forbidden status", func(t *testing.T) {
		api := &fakeAPI{
			objects: map[string]map[string]int64{"src": {"1-a": 1}},
			copyErr: minio.ErrorResponse{StatusCode: http.StatusForbidden},
		}
		err := NewWithAPI(api).CopyObject(context.Background(), "src", "1-a", "dst", "x")
		assert.True(t, errors.IsAccessDenied(err))
	})

	t.Run("unclassified", func(t *testing.T) {
		boom := stderrors.New("connection reset")
		api := &fakeAPI{
			objects: map[string]map[string]int64{"src": {"1-a": 1}},
			copyErr: boom,
		}
		err := NewWithAPI(api).CopyObject(context.Background(), "src", "1-a", "dst", "x")
		assert.ErrorIs(t, err, boom)
		assert.False(t, errors.IsObjectNotFound(err))
	})
}

func TestNew(t *testing.T) {
	t.Run("static credentials", func(t *testing.T) {
		backend, err := New("localhost:9000",
			WithCredentials("minioadmin", "minioadmin", ""),
			WithSecure(false),
			WithRegion("us-east-1"))
		require.NoError(t, err)
		assert.NotNil(t, backend.api)
	})

	t.Run("missing endpoint", func(t *testing.T) {
		_, err := New("")
		assert.True(t, errors.IsInvalidConfig(err))
	})
}
