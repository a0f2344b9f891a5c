package slicecopy

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	scerrors "github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/internal/progress"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

// run is the state of one Copier.Run call.
type run struct {
	copier  *Copier
	job     slicetypes.Job
	counter *progress.Counter

	mu        sync.Mutex
	result    *slicetypes.Result
	firstErr  error
	collected *multierror.Error
	reportErr error
}

func newRun(c *Copier, job slicetypes.Job) *run {
	return &run{
		copier:  c,
		job:     job,
		counter: progress.NewCounter(0, c.config.ProgressTracker),
		result:  &slicetypes.Result{},
	}
}

// execute runs one task. Under fail-fast its error stops the pool;
// otherwise the error is only recorded.
func (r *run) execute(ctx context.Context, task slicetypes.Task) error {
	c := r.copier

	if c.config.DryRun {
		r.record(ctx, slicetypes.TaskResult{Task: task, Status: slicetypes.StatusPlanned})
		r.counter.Increment()
		return nil
	}

	start := time.Now()
	err := c.backend.CopyObject(ctx, task.SourceBucket, task.SourceKey, task.DestinationBucket, task.DestinationKey)
	elapsed := time.Since(start)

	if err != nil {
		err = copyError(task, err)
		c.logger.WarnContext(ctx, "copy failed",
			"source", task.SourceKey,
			"destination", task.DestinationKey,
			"error", err)
		r.record(ctx, slicetypes.TaskResult{Task: task, Status: slicetypes.StatusFailed, Err: err, Duration: elapsed})

		if c.config.FailurePolicy == slicetypes.FailurePolicyFailFast {
			return err
		}
		return nil
	}

	c.logger.DebugContext(ctx, "copied object",
		"source", task.SourceKey,
		"destination", task.DestinationKey,
		"slice", task.Slice,
		"elapsed", elapsed)
	r.record(ctx, slicetypes.TaskResult{Task: task, Status: slicetypes.StatusCopied, Duration: elapsed})
	r.counter.Increment()
	return nil
}

// skip handles an unparseable key. Under the abort policy it returns the
// error that ends the run.
func (r *run) skip(ctx context.Context, key string, err error) error {
	c := r.copier
	if c.config.ParseErrorPolicy != slicetypes.ParseErrorSkip {
		c.logger.ErrorContext(ctx, "cannot derive destination", "key", key, "error", err)
		return err
	}

	c.logger.WarnContext(ctx, "skipping object", "key", key, "error", err)
	r.record(ctx, slicetypes.TaskResult{
		Task: slicetypes.Task{
			SourceBucket:      r.job.SourceBucket,
			SourceKey:         key,
			DestinationBucket: r.job.DestinationBucket,
		},
		Status: slicetypes.StatusSkipped,
		Err:    err,
	})
	return nil
}

// record folds one task result into the run result.
func (r *run) record(ctx context.Context, res slicetypes.TaskResult) {
	c := r.copier

	r.mu.Lock()
	switch res.Status {
	case slicetypes.StatusCopied:
		r.result.Copied++
	case slicetypes.StatusPlanned:
		r.result.Planned++
	case slicetypes.StatusSkipped:
		r.result.Skipped++
		r.result.Failures = append(r.result.Failures, res)
	case slicetypes.StatusFailed:
		r.result.Failed++
		r.result.Failures = append(r.result.Failures, res)
		if r.firstErr == nil {
			r.firstErr = res.Err
		}
		r.collected = multierror.Append(r.collected, res.Err)
	}
	r.mu.Unlock()

	if c.config.Metrics != nil {
		c.config.Metrics.ObserveTask(res.Status, string(scerrors.CodeOf(res.Err)), res.Duration)
	}

	if c.config.Reporter != nil {
		if err := c.config.Reporter.Record(res); err != nil {
			c.logger.ErrorContext(ctx, "report write failed", "source", res.SourceKey, "error", err)
			r.mu.Lock()
			if r.reportErr == nil {
				r.reportErr = err
			}
			r.mu.Unlock()
		}
	}
}

func (r *run) listed() {
	r.mu.Lock()
	r.result.Listed++
	r.mu.Unlock()
	r.addListed(1)
}

func (r *run) dispatched() {
	r.mu.Lock()
	r.result.Dispatched++
	r.mu.Unlock()
}

func (r *run) addListed(n int) {
	if m := r.copier.config.Metrics; m != nil {
		m.AddListed(n)
	}
}

func (r *run) observePhase(phase string, d time.Duration) {
	if phase == "list" {
		r.mu.Lock()
		r.result.ListDuration = d
		r.mu.Unlock()
	}
	if m := r.copier.config.Metrics; m != nil {
		m.ObservePhase(phase, d)
	}
}

// finish applies the failure policy to the outcome of the pool.
func (r *run) finish(ctx context.Context, start time.Time, runErr error) (*slicetypes.Result, error) {
	c := r.copier

	r.mu.Lock()
	defer r.mu.Unlock()

	r.result.CopyDuration = time.Since(start)
	if m := c.config.Metrics; m != nil {
		m.ObservePhase("copy", r.result.CopyDuration)
	}

	if runErr != nil && isContextErr(runErr) && !stderrors.Is(runErr, scerrors.ErrCanceled) {
		runErr = scerrors.NewError(scerrors.OpCopy, fmt.Errorf("%w: %w", scerrors.ErrCanceled, runErr))
	}

	var err error
	switch c.config.FailurePolicy {
	case slicetypes.FailurePolicyCollect:
		var merr *multierror.Error
		if runErr != nil {
			merr = multierror.Append(merr, runErr)
		}
		if r.collected != nil {
			merr = multierror.Append(merr, r.collected.Errors...)
		}
		err = merr.ErrorOrNil()
	default:
		// wait-all and fail-fast: a pool error (listing, parsing, the
		// fail-fast copy error or cancellation) wins over recorded failures
		err = runErr
		if err == nil {
			err = r.firstErr
		}
	}
	if err == nil {
		err = r.reportErr
	}

	c.logger.InfoContext(ctx, "copy finished",
		"listed", r.result.Listed,
		"copied", r.result.Copied,
		"failed", r.result.Failed,
		"skipped", r.result.Skipped,
		"planned", r.result.Planned,
		"elapsed", r.result.CopyDuration)

	if err != nil {
		r.counter.Fail(err)
		return r.result, err
	}
	r.counter.Complete()
	return r.result, nil
}

// fail ends a run that stopped before any task was dispatched.
func (r *run) fail(err error) (*slicetypes.Result, error) {
	r.counter.Fail(err)
	return r.result, err
}

// copyError wraps a backend copy error with the task's destination.
func copyError(task slicetypes.Task, err error) error {
	if isContextErr(err) {
		err = fmt.Errorf("%w: %w", scerrors.ErrCanceled, err)
	}
	return scerrors.NewObjectError(scerrors.OpCopy, task.DestinationBucket, task.DestinationKey, err).
		WithMessage("copy from " + task.SourceBucket + "/" + task.SourceKey)
}

func isContextErr(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
