package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// MockWriter records schedules instead of exporting them.
type MockWriter struct {
	WriteFunc      func(ctx context.Context, schedule *model.Schedule) error
	LastSchedule   *model.Schedule
	WriteCalls     []WriteCall
	WriteCallCount int
	mu             sync.Mutex
}

// WriteCall represents a single call to Write.
type WriteCall struct {
	Error    error
	Schedule *model.Schedule
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{
		WriteCalls: make([]WriteCall, 0),
	}
}

// Write implements ScheduleWriter.
func (m *MockWriter) Write(ctx context.Context, schedule *model.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount++
	m.LastSchedule = schedule

	var err error
	if m.WriteFunc != nil {
		err = m.WriteFunc(ctx, schedule)
	}

	m.WriteCalls = append(m.WriteCalls, WriteCall{
		Schedule: schedule,
		Error:    err,
	})

	return err
}

// GetWriteCalls returns a copy of all write calls.
func (m *MockWriter) GetWriteCalls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// SetWriteError configures the mock to return err from every Write call.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(_ context.Context, _ *model.Schedule) error {
		return err
	}
}
