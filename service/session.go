package service

import (
	"sync"
	"time"
)

// PollWindow is the period during which votes are accepted. It closes at its
// deadline or when an admin closes it, whichever comes first.
type PollWindow struct {
	mu       sync.RWMutex
	opened   time.Time
	deadline time.Time
	closed   time.Time
	isActive bool
	now      func() time.Time
}

// PollStatus is the reportable state of a PollWindow.
type PollStatus struct {
	IsOpen   bool       `json:"isOpen"`
	Opened   time.Time  `json:"opened"`
	Deadline *time.Time `json:"deadline,omitempty"`
	Closed   *time.Time `json:"closed,omitempty"`
}

// NewPollWindow opens a window now. A zero duration means no deadline.
func NewPollWindow(duration time.Duration) *PollWindow {
	return newPollWindow(duration, time.Now)
}

func newPollWindow(duration time.Duration, now func() time.Time) *PollWindow {
	start := now()
	w := &PollWindow{
		opened:   start,
		isActive: true,
		now:      now,
	}
	if duration > 0 {
		w.deadline = start.Add(duration)
	}
	return w
}

func (w *PollWindow) IsOpen() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.isOpen()
}

func (w *PollWindow) isOpen() bool {
	return w.isActive && (w.deadline.IsZero() || w.now().Before(w.deadline))
}

// Close ends the window. It reports false if the window was already closed.
func (w *PollWindow) Close() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isOpen() {
		return false
	}
	w.isActive = false
	w.closed = w.now()
	return true
}

func (w *PollWindow) Status() PollStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := PollStatus{IsOpen: w.isOpen(), Opened: w.opened}
	if !w.deadline.IsZero() {
		d := w.deadline
		status.Deadline = &d
	}
	if !w.closed.IsZero() {
		c := w.closed
		status.Closed = &c
	}
	return status
}
