package progress

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// LogTracker reports progress as log records, at most once per interval
// plus once when the last known task finishes.
type LogTracker struct {
	mu       sync.Mutex
	logger   *slog.Logger
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewLogTracker creates a tracker logging through logger every interval.
func NewLogTracker(logger *slog.Logger, interval time.Duration) *LogTracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogTracker{
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// Update implements slicetypes.ProgressTracker.
func (l *LogTracker) Update(completed, total int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if completed < total && now.Sub(l.last) < l.interval {
		return
	}
	l.last = now

	pct := 100.0
	if total > 0 {
		pct = float64(completed) * 100 / float64(total)
	}
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, "progress",
		slog.Int64("completed", completed),
		slog.Int64("total", total),
		slog.String("percent", formatPercent(pct)))
}

// Complete implements slicetypes.ProgressTracker.
func (l *LogTracker) Complete() {}

// Error implements slicetypes.ProgressTracker.
func (l *LogTracker) Error(err error) {
	l.logger.Warn("progress stopped", "error", err)
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}
