package progress

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// DefaultDescription is shown in front of the bar.
const DefaultDescription = "Copying files"

// renderInterval is the shortest time between two redraws. The final state
// is always drawn.
const renderInterval = 65 * time.Millisecond

// Bar renders progress as a terminal progress bar counting files.
type Bar struct {
	mu          sync.Mutex
	w           io.Writer
	description string
	bar         *progressbar.ProgressBar
	max         int64
}

// NewBar creates a bar writing to w. The bar is drawn on the first update.
func NewBar(w io.Writer, description string) *Bar {
	if description == "" {
		description = DefaultDescription
	}
	return &Bar{
		w:           w,
		description: description,
	}
}

func (b *Bar) ensure(total int64) {
	if b.bar == nil {
		b.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(b.w),
			progressbar.OptionSetDescription(b.description),
			progressbar.OptionSetItsString("file"),
			progressbar.OptionShowIts(),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(renderInterval),
			progressbar.OptionOnCompletion(func() {
				_, _ = io.WriteString(b.w, "\n")
			}),
		)
		b.max = total
		return
	}
	if total != b.max {
		b.bar.ChangeMax64(total)
		b.max = total
	}
}

// Update implements slicetypes.ProgressTracker.
func (b *Bar) Update(completed, total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ensure(total)
	_ = b.bar.Set64(completed)
}

// Complete implements slicetypes.ProgressTracker.
func (b *Bar) Complete() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil && !b.bar.IsFinished() {
		_ = b.bar.Finish()
	}
}

// Error implements slicetypes.ProgressTracker. The bar is left where it stopped.
func (b *Bar) Error(error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		_ = b.bar.Exit()
		_, _ = io.WriteString(b.w, "\n")
	}
}
