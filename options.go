package slicecopy

import (
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

const (
	// DefaultMaxWorkers is the worker count used when none is given.
	DefaultMaxWorkers = 2

	// DefaultSlices is the slice count the command line tool uses when none is given.
	DefaultSlices = 2

	// DefaultQueueSize bounds the key queue in streaming mode.
	DefaultQueueSize = 1000
)

func defaultConfig() *slicetypes.Config {
	return &slicetypes.Config{
		MaxWorkers:       DefaultMaxWorkers,
		FailurePolicy:    slicetypes.FailurePolicyWaitAll,
		ParseErrorPolicy: slicetypes.ParseErrorAbort,
	}
}

// WithMaxWorkers sets how many copies may run at the same time.
// Default is 2. Values below one are rejected by New.
func WithMaxWorkers(n int) slicetypes.Option {
	return func(c *slicetypes.Config) {
		c.MaxWorkers = n
	}
}

// WithLogger sets the logger. Default discards all output.
func WithLogger(logger *slog.Logger) slicetypes.Option {
	return func(c *slicetypes.Config) {
		c.Logger = logger
	}
}

// WithProgress sets the tracker notified after every successful copy.
func WithProgress(tracker slicetypes.ProgressTracker) slicetypes.Option {
	return func(c *slicetypes.Config) {
		c.ProgressTracker = tracker
	}
}

// WithFailurePolicy selects how copy failures affect the rest of the run.
// Default is FailurePolicyWaitAll.
func WithFailurePolicy(policy slicetypes.FailurePolicy) slicetypes.Option {
	return func(c *slicetypes.Config) {
		c.FailurePolicy = policy
	}
}

// WithParseErrorPolicy selects what happens to keys without a numeric
// file name prefix. Default is ParseErrorAbort.
func WithParseErrorPolicy(policy slicetypes.ParseErrorPolicy) slicetypes.Option {
	return func(c *slicetypes.Config) {
		c.ParseErrorPolicy = policy
	}
}

// WithStreaming makes copies start while listing is still running.
// Listed keys wait in a queue of queueSize entries; zero selects DefaultQueueSize.
func WithStreaming(queueSize int) slicetypes.Option {
	return func(c *slicetypes.Config) {
		c.Streaming = true
		c.QueueSize = queueSize
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m slicetypes.MetricsRecorder) slicetypes.Option {
	return func(c *slicetypes.Config) {
		c.Metrics = m
	}
}

// WithReporter sets the receiver of every task result.
func WithReporter(r slicetypes.Reporter) slicetypes.Option {
	return func(c *slicetypes.Config) {
		c.Reporter = r
	}
}

// WithDryRun derives every task without copying anything.
func WithDryRun(dryRun bool) slicetypes.Option {
	return func(c *slicetypes.Config) {
		c.DryRun = dryRun
	}
}
