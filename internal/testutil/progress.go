package testutil

import "sync"

// MockProgressTracker is a mock implementation of slicetypes.ProgressTracker for testing.
// It is safe for concurrent use.
type MockProgressTracker struct {
	mu sync.Mutex

	UpdateCalled   bool
	CompleteCalled bool
	ErrorCalled    bool
	Completed      int64
	Total          int64
	LastError      error
	Updates        []ProgressUpdate
}

// ProgressUpdate represents a single progress update event.
type ProgressUpdate struct {
	Completed int64
	Total     int64
}

// Update records a progress update.
func (m *MockProgressTracker) Update(completed, total int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalled = true
	m.Completed = completed
	m.Total = total
	m.Updates = append(m.Updates, ProgressUpdate{
		Completed: completed,
		Total:     total,
	})
}

// Complete marks the run as complete.
func (m *MockProgressTracker) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalled = true
}

// Error records an error.
func (m *MockProgressTracker) Error(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCalled = true
	m.LastError = err
}

// Snapshot returns a copy of the recorded updates.
func (m *MockProgressTracker) Snapshot() []ProgressUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ProgressUpdate(nil), m.Updates...)
}

// Reset clears the mock tracker state.
func (m *MockProgressTracker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalled = false
	m.CompleteCalled = false
	m.ErrorCalled = false
	m.Completed = 0
	m.Total = 0
	m.LastError = nil
	m.Updates = nil
}
