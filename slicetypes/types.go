// Package slicetypes provides shared type definitions for the slicecopy module.
package slicetypes

import (
	"context"
	"log/slog"
	"time"
)

// Backend is the narrow view of an object store the copier depends on.
// Implementations must be safe for concurrent use by multiple goroutines.
type Backend interface {
	// Scheme returns the URI scheme used in logs (e.g., "s3", "gs").
	Scheme() string

	// ListObjects calls fn for every raw key under prefix, in discovery order.
	// Folder markers are passed through; filtering is the lister's job.
	// Returning an error from fn stops the enumeration with that error.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(key string) error) error

	// CopyObject duplicates srcBucket/srcKey to dstBucket/dstKey server-side,
	// creating or overwriting the destination.
	CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
}

// Job describes one slice copy run.
type Job struct {
	// SourceBucket is the bucket objects are listed from
	SourceBucket string

	// SourcePrefix limits listing to keys under this prefix (empty means whole bucket)
	SourcePrefix string

	// DestinationBucket is the bucket objects are copied into
	DestinationBucket string

	// DestinationDir is the directory the numbered slice folders are created under
	DestinationDir string

	// Slices is the number of destination slice folders
	Slices int
}

// Task binds one source object to its destination.
type Task struct {
	SourceBucket      string
	SourceKey         string
	DestinationBucket string
	DestinationKey    string

	// Slice is the slice index in [0, Job.Slices)
	Slice int
}

// TaskStatus is the outcome of a single task.
type TaskStatus string

// Task outcomes
const (
	// StatusCopied means the backend copy succeeded
	StatusCopied TaskStatus = "copied"

	// StatusFailed means the backend copy returned an error
	StatusFailed TaskStatus = "failed"

	// StatusSkipped means the key was not dispatched (unparseable file name under ParseErrorSkip)
	StatusSkipped TaskStatus = "skipped"

	// StatusPlanned means the task was derived in dry-run mode and not executed
	StatusPlanned TaskStatus = "planned"
)

// TaskResult is the typed outcome of one task.
type TaskResult struct {
	Task

	// Status is the task outcome
	Status TaskStatus

	// Err is set for failed and skipped tasks
	Err error

	// Duration is how long the copy call took
	Duration time.Duration
}

// Result summarizes a run.
type Result struct {
	// Listed is the number of keys the lister returned (folder markers excluded)
	Listed int

	// Dispatched is the number of tasks handed to the worker pool.
	// Under fail-fast or cancellation some of them may never start.
	Dispatched int

	// Copied is the number of successful copies
	Copied int

	// Failed is the number of copies that returned an error
	Failed int

	// Skipped is the number of keys whose file name could not be sliced
	Skipped int

	// Planned is the number of tasks derived but not executed (dry run)
	Planned int

	// Failures holds failed and skipped task results
	Failures []TaskResult

	// ListDuration is how long listing took (batch mode only)
	ListDuration time.Duration

	// CopyDuration is the wall-clock time of the copy phase
	CopyDuration time.Duration
}

// ProgressTracker receives task-level progress.
// Update is called with the number of finished tasks and the total known so far;
// in streaming mode total grows while the listing is still running.
type ProgressTracker interface {
	// Update is called once per successfully finished task
	Update(completed, total int64)

	// Complete is called when every task finished
	Complete()

	// Error is called when the run ends with an error
	Error(err error)
}

// MetricsRecorder receives run metrics. The metrics package provides a
// Prometheus-backed implementation.
type MetricsRecorder interface {
	// AddListed records keys returned by the lister
	AddListed(n int)

	// ObserveTask records one finished task
	ObserveTask(status TaskStatus, code string, duration time.Duration)

	// ObservePhase records the wall-clock duration of a run phase ("list", "copy")
	ObservePhase(phase string, duration time.Duration)
}

// Reporter receives every task result, e.g. to write a run report.
// Record is called from worker goroutines and must be safe for concurrent use.
type Reporter interface {
	Record(result TaskResult) error
}

// FailurePolicy selects how copy failures affect the rest of the run.
type FailurePolicy string

// Failure policies
const (
	// FailurePolicyWaitAll lets every task finish and returns the first observed error
	FailurePolicyWaitAll FailurePolicy = "wait-all"

	// FailurePolicyFailFast cancels tasks that have not started after the first error
	FailurePolicyFailFast FailurePolicy = "fail-fast"

	// FailurePolicyCollect runs everything and returns all errors aggregated
	FailurePolicyCollect FailurePolicy = "collect"
)

// ParseErrorPolicy selects what happens to keys whose file name has no numeric token.
type ParseErrorPolicy string

// Parse error policies
const (
	// ParseErrorAbort fails the run on the first unparseable file name
	ParseErrorAbort ParseErrorPolicy = "abort"

	// ParseErrorSkip records the key as skipped and continues
	ParseErrorSkip ParseErrorPolicy = "skip"
)

// Configuration types for functional options

// Config holds configuration for the copier.
type Config struct {
	MaxWorkers       int
	FailurePolicy    FailurePolicy
	ParseErrorPolicy ParseErrorPolicy
	Streaming        bool
	QueueSize        int
	DryRun           bool
	Logger           *slog.Logger
	ProgressTracker  ProgressTracker
	Metrics          MetricsRecorder
	Reporter         Reporter
}

// Option is a functional option for configuring the copier.
type Option func(*Config)
