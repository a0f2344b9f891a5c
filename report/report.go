// Package report writes per-task run reports as JSON lines.
package report

import (
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

// Entry is one line of the report.
type Entry struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Slice       int    `json:"slice"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
}

// NewEntry converts a task result into a report entry.
func NewEntry(res slicetypes.TaskResult) Entry {
	e := Entry{
		Source:      res.SourceBucket + "/" + res.SourceKey,
		Destination: res.DestinationBucket + "/" + res.DestinationKey,
		Slice:       res.Slice,
		Status:      string(res.Status),
		DurationMS:  res.Duration.Milliseconds(),
	}
	// skipped keys have no destination
	if res.DestinationKey == "" {
		e.Destination = ""
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	return e
}

// Writer implements slicetypes.Reporter on a billy filesystem.
// It is safe for concurrent use.
type Writer struct {
	mu   sync.Mutex
	file billy.File
	enc  *json.Encoder
	n    int
}

// Create creates (or truncates) the report file at name, creating parent
// directories as needed.
func Create(fs billy.Filesystem, name string) (*Writer, error) {
	if dir := path.Dir(name); dir != "." && dir != "/" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("report: mkdirall %q: %w", dir, err)
		}
	}

	f, err := fs.Create(name)
	if err != nil {
		return nil, fmt.Errorf("report: create %q: %w", name, err)
	}

	return &Writer{file: f, enc: json.NewEncoder(f)}, nil
}

// Record implements slicetypes.Reporter.
func (w *Writer) Record(res slicetypes.TaskResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("report: write after close")
	}
	if err := w.enc.Encode(NewEntry(res)); err != nil {
		return fmt.Errorf("report: write %q: %w", w.file.Name(), err)
	}
	w.n++
	return nil
}

// Count returns the number of entries written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Close closes the report file. Closing twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return fmt.Errorf("report: close: %w", err)
	}
	return nil
}
