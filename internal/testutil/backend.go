// Package testutil provides test utilities and fakes for slicecopy.
// This package is internal and should only be used for testing within the module.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
)

// FakeBackend is an in-memory slicetypes.Backend.
// It records every copy and the highest number of copies ever in flight.
type FakeBackend struct {
	mu sync.Mutex

	scheme string

	// buckets maps bucket -> keys in insertion order
	buckets map[string][]string

	// objects maps bucket -> key -> the source "bucket/key" it was copied from
	objects map[string]map[string]string

	listErr      error
	listErrAfter int
	copyErrs     map[string]error
	latency      time.Duration
	copyHook     func(ctx context.Context, srcKey string)

	inFlight      int
	maxInFlight   int
	copyCalls     int
	copiedSources []string
}

// NewFakeBackend creates an empty FakeBackend reporting the given scheme.
func NewFakeBackend(scheme string) *FakeBackend {
	if scheme == "" {
		scheme = "mem"
	}
	return &FakeBackend{
		scheme:  scheme,
		buckets: make(map[string][]string),
		objects: make(map[string]map[string]string),
	}
}

// Put adds keys to bucket. Listing returns them in the order they were put.
func (f *FakeBackend) Put(bucket string, keys ...string) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.objects[bucket] == nil {
		f.objects[bucket] = make(map[string]string)
	}
	if _, ok := f.buckets[bucket]; !ok {
		f.buckets[bucket] = nil
	}
	for _, key := range keys {
		if _, ok := f.objects[bucket][key]; !ok {
			f.buckets[bucket] = append(f.buckets[bucket], key)
		}
		f.objects[bucket][key] = ""
	}
	return f
}

// WithListError makes ListObjects fail with err after emitting after keys.
func (f *FakeBackend) WithListError(err error, after int) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
	f.listErrAfter = after
	return f
}

// WithCopyError makes copies of srcKey fail with err.
func (f *FakeBackend) WithCopyError(srcKey string, err error) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErrs == nil {
		f.copyErrs = make(map[string]error)
	}
	f.copyErrs[srcKey] = err
	return f
}

// WithLatency makes every copy take at least d, or until ctx is done.
func (f *FakeBackend) WithLatency(d time.Duration) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
	return f
}

// WithCopyHook runs fn at the start of every copy, outside the backend lock.
func (f *FakeBackend) WithCopyHook(fn func(ctx context.Context, srcKey string)) *FakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copyHook = fn
	return f
}

// Scheme implements slicetypes.Backend.
func (f *FakeBackend) Scheme() string {
	return f.scheme
}

// ListObjects implements slicetypes.Backend.
func (f *FakeBackend) ListObjects(ctx context.Context, bucket, prefix string, fn func(key string) error) error {
	f.mu.Lock()
	keys, ok := f.buckets[bucket]
	keys = append([]string(nil), keys...)
	listErr, after := f.listErr, f.listErrAfter
	f.mu.Unlock()

	if !ok && listErr == nil {
		return errors.ErrBucketNotFound
	}

	emitted := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if listErr != nil && emitted >= after {
			return listErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(key); err != nil {
			return err
		}
		emitted++
	}

	return listErr
}

// CopyObject implements slicetypes.Backend.
func (f *FakeBackend) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	f.mu.Lock()
	f.copyCalls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	latency, hook := f.latency, f.copyHook
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if hook != nil {
		hook(ctx, srcKey)
	}

	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.copyErrs[srcKey]; err != nil {
		return err
	}
	if _, ok := f.objects[srcBucket][srcKey]; !ok {
		return errors.ErrObjectNotFound
	}
	if f.objects[dstBucket] == nil {
		f.objects[dstBucket] = make(map[string]string)
	}
	if _, ok := f.objects[dstBucket][dstKey]; !ok {
		f.buckets[dstBucket] = append(f.buckets[dstBucket], dstKey)
	}
	f.objects[dstBucket][dstKey] = srcBucket + "/" + srcKey
	f.copiedSources = append(f.copiedSources, srcKey)
	return nil
}

// Keys returns the keys of bucket, sorted.
func (f *FakeBackend) Keys(bucket string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := append([]string(nil), f.buckets[bucket]...)
	sort.Strings(keys)
	return keys
}

// CopiedFrom returns the "bucket/key" that bucket/key was copied from.
func (f *FakeBackend) CopiedFrom(bucket, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	src, ok := f.objects[bucket][key]
	return src, ok && src != ""
}

// CopiedSources returns source keys of successful copies, sorted.
func (f *FakeBackend) CopiedSources() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := append([]string(nil), f.copiedSources...)
	sort.Strings(out)
	return out
}

// CopyCalls returns how many times CopyObject was invoked.
func (f *FakeBackend) CopyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.copyCalls
}

// MaxInFlight returns the highest number of concurrent CopyObject calls observed.
func (f *FakeBackend) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}
