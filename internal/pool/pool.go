// Package pool runs work items on a fixed number of goroutines.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pool is a fixed-size worker pool. Items are handed to workers through an
// unbuffered channel, so at most Size items are being processed at once.
type Pool[T any] struct {
	size int
}

// New creates a pool of size workers. Sizes below one are raised to one.
func New[T any](size int) *Pool[T] {
	if size < 1 {
		size = 1
	}
	return &Pool[T]{size: size}
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int {
	return p.size
}

// Run starts the workers, calls produce to submit items and blocks until
// every submitted item was consumed.
//
// The first error returned by produce or consume cancels the context passed
// to both; items not yet started are then dropped and submit returns the
// cancellation error. Run returns that first error.
func (p *Pool[T]) Run(
	ctx context.Context,
	produce func(ctx context.Context, submit func(T) error) error,
	consume func(ctx context.Context, item T) error,
) error {
	group, ctx := errgroup.WithContext(ctx)
	items := make(chan T)

	for i := 0; i < p.size; i++ {
		group.Go(func() error {
			for item := range items {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := consume(ctx, item); err != nil {
					return err
				}
			}
			return nil
		})
	}

	submit := func(item T) error {
		select {
		case items <- item:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	group.Go(func() error {
		defer close(items)
		return produce(ctx, submit)
	})

	return group.Wait()
}

// RunSlice consumes every element of items with the pool.
func (p *Pool[T]) RunSlice(ctx context.Context, items []T, consume func(ctx context.Context, item T) error) error {
	return p.Run(ctx, func(ctx context.Context, submit func(T) error) error {
		for _, item := range items {
			if err := submit(item); err != nil {
				return err
			}
		}
		return nil
	}, consume)
}
