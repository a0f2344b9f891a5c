// Package lister enumerates object keys under a source prefix.
package lister

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/internal/slicing"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

// DefaultBuffer is the channel capacity Stream uses when none is given.
const DefaultBuffer = 100

// Lister lists object keys through a backend, dropping folder markers.
type Lister struct {
	backend slicetypes.Backend
	logger  *slog.Logger
}

// New creates a new Lister. A nil logger discards output.
func New(backend slicetypes.Backend, logger *slog.Logger) *Lister {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Lister{
		backend: backend,
		logger:  logger,
	}
}

// Result is one element of a streamed listing.
// Exactly one of Key and Err is meaningful.
type Result struct {
	Key string
	Err error
}

// IsFolderMarker reports whether key is a zero-byte directory placeholder.
func IsFolderMarker(key string) bool {
	return strings.HasSuffix(key, slicing.Separator)
}

// URI formats bucket and prefix for log output.
func URI(scheme, bucket, prefix string) string {
	return scheme + "://" + bucket + "/" + prefix
}

// List returns every key under prefix in discovery order.
// Either the full key set or an error is returned, never a partial result.
func (l *Lister) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	uri := URI(l.backend.Scheme(), bucket, prefix)
	l.logger.InfoContext(ctx, "listing objects", "uri", uri)

	start := time.Now()
	var keys []string
	err := l.backend.ListObjects(ctx, bucket, prefix, func(key string) error {
		if IsFolderMarker(key) {
			return nil
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		l.logger.ErrorContext(ctx, "listing failed", "uri", uri, "error", err)
		return nil, wrap(err, bucket, prefix)
	}

	l.logger.InfoContext(ctx, "listed objects",
		"uri", uri,
		"count", len(keys),
		"elapsed", time.Since(start))

	return keys, nil
}

// Stream lists keys under prefix into a channel of the given capacity.
// The channel is closed when listing ends; a listing error, if any,
// is the last element. Canceling ctx stops the listing.
func (l *Lister) Stream(ctx context.Context, bucket, prefix string, buffer int) <-chan Result {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	results := make(chan Result, buffer)

	go func() {
		defer close(results)

		uri := URI(l.backend.Scheme(), bucket, prefix)
		l.logger.InfoContext(ctx, "listing objects", "uri", uri, "mode", "stream")

		start := time.Now()
		count := 0
		err := l.backend.ListObjects(ctx, bucket, prefix, func(key string) error {
			if IsFolderMarker(key) {
				return nil
			}
			select {
			case results <- Result{Key: key}:
				count++
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			l.logger.ErrorContext(ctx, "listing failed", "uri", uri, "error", err)
			// the consumer may have stopped reading; do not block forever
			select {
			case results <- Result{Err: wrap(err, bucket, prefix)}:
			case <-ctx.Done():
			}
			return
		}

		l.logger.InfoContext(ctx, "listed objects",
			"uri", uri,
			"count", count,
			"elapsed", time.Since(start))
	}()

	return results
}

func wrap(err error, bucket, prefix string) error {
	e := errors.NewError(errors.OpList, err).WithBucket(bucket)
	if prefix != "" {
		e = e.WithMessage("prefix " + prefix)
	}
	return e
}
