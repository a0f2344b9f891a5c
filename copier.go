package slicecopy

import (
	"context"
	"log/slog"
	"time"

	scerrors "github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/internal/lister"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/internal/slicing"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

// Copier lists a source prefix and copies every object into its slice
// folder under the destination directory.
// A Copier is safe for concurrent use; each Run has its own state.
type Copier struct {
	backend slicetypes.Backend
	config  *slicetypes.Config
	lister  *lister.Lister
	logger  *slog.Logger
}

// New creates a Copier over backend.
func New(backend slicetypes.Backend, opts ...slicetypes.Option) (*Copier, error) {
	if backend == nil {
		return nil, scerrors.NewError(scerrors.OpConfig, scerrors.ErrInvalidConfig).
			WithMessage("backend is required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validation.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Streaming && cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	return &Copier{
		backend: backend,
		config:  cfg,
		lister:  lister.New(backend, cfg.Logger),
		logger:  cfg.Logger,
	}, nil
}

// DestinationKey returns the key sourceKey is copied to and its slice index.
func DestinationKey(dir, sourceKey string, slices int) (string, int, error) {
	return slicing.DestinationKey(dir, sourceKey, slices)
}

// Run copies every object under job.SourcePrefix into its slice folder.
//
// The returned Result is nil only when job is rejected before any backend
// call. Otherwise it describes what happened, also when err is non-nil.
func (c *Copier) Run(ctx context.Context, job slicetypes.Job) (*slicetypes.Result, error) {
	if err := validation.ValidateJob(job); err != nil {
		return nil, err
	}

	r := newRun(c, job)
	if c.config.Streaming {
		return r.stream(ctx)
	}
	return r.batch(ctx)
}

// Plan lists job.SourcePrefix and derives every task without copying.
// Unparseable file names fail the plan unless the parse error policy is skip,
// in which case they are left out.
func (c *Copier) Plan(ctx context.Context, job slicetypes.Job) ([]slicetypes.Task, error) {
	if err := validation.ValidateJob(job); err != nil {
		return nil, err
	}

	keys, err := c.lister.List(ctx, job.SourceBucket, job.SourcePrefix)
	if err != nil {
		return nil, err
	}

	tasks := make([]slicetypes.Task, 0, len(keys))
	for _, key := range keys {
		task, err := newTask(job, key)
		if err != nil {
			if c.config.ParseErrorPolicy == slicetypes.ParseErrorSkip {
				c.logger.WarnContext(ctx, "skipping object", "key", key, "error", err)
				continue
			}
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func newTask(job slicetypes.Job, key string) (slicetypes.Task, error) {
	dst, slice, err := slicing.DestinationKey(job.DestinationDir, key, job.Slices)
	if err != nil {
		return slicetypes.Task{}, err
	}
	return slicetypes.Task{
		SourceBucket:      job.SourceBucket,
		SourceKey:         key,
		DestinationBucket: job.DestinationBucket,
		DestinationKey:    dst,
		Slice:             slice,
	}, nil
}

// batch lists everything, derives every task, then copies.
func (r *run) batch(ctx context.Context) (*slicetypes.Result, error) {
	c := r.copier

	listStart := time.Now()
	keys, err := c.lister.List(ctx, r.job.SourceBucket, r.job.SourcePrefix)
	r.observePhase("list", time.Since(listStart))
	if err != nil {
		return r.fail(err)
	}
	r.result.Listed = len(keys)
	r.addListed(len(keys))

	tasks := make([]slicetypes.Task, 0, len(keys))
	for _, key := range keys {
		task, err := newTask(r.job, key)
		if err != nil {
			if skipErr := r.skip(ctx, key, err); skipErr != nil {
				return r.fail(skipErr)
			}
			continue
		}
		tasks = append(tasks, task)
	}

	r.counter.AddTotal(int64(len(tasks)))
	c.logger.InfoContext(ctx, "copy started",
		"tasks", len(tasks),
		"workers", c.config.MaxWorkers,
		"slices", r.job.Slices,
		"dry_run", c.config.DryRun)

	copyStart := time.Now()
	runErr := pool.New[slicetypes.Task](c.config.MaxWorkers).Run(ctx,
		func(ctx context.Context, submit func(slicetypes.Task) error) error {
			for _, task := range tasks {
				if err := submit(task); err != nil {
					return err
				}
				r.dispatched()
			}
			return nil
		},
		r.execute,
	)

	return r.finish(ctx, copyStart, runErr)
}

// stream derives and dispatches tasks while keys are still being listed.
func (r *run) stream(ctx context.Context) (*slicetypes.Result, error) {
	c := r.copier

	c.logger.InfoContext(ctx, "copy started",
		"mode", "stream",
		"queue", c.config.QueueSize,
		"workers", c.config.MaxWorkers,
		"slices", r.job.Slices,
		"dry_run", c.config.DryRun)

	start := time.Now()
	runErr := pool.New[slicetypes.Task](c.config.MaxWorkers).Run(ctx,
		func(ctx context.Context, submit func(slicetypes.Task) error) error {
			defer func() {
				r.observePhase("list", time.Since(start))
			}()

			for res := range c.lister.Stream(ctx, r.job.SourceBucket, r.job.SourcePrefix, c.config.QueueSize) {
				if res.Err != nil {
					return res.Err
				}
				r.listed()

				task, err := newTask(r.job, res.Key)
				if err != nil {
					if skipErr := r.skip(ctx, res.Key, err); skipErr != nil {
						return skipErr
					}
					continue
				}

				r.counter.AddTotal(1)
				if err := submit(task); err != nil {
					return err
				}
				r.dispatched()
			}
			return ctx.Err()
		},
		r.execute,
	)

	return r.finish(ctx, start, runErr)
}
