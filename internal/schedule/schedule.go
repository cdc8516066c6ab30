// Package schedule runs cancellable deferred tasks on an injectable clock.
package schedule

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler creates deferred tasks. In production use clockwork.NewRealClock();
// tests drive a clockwork.FakeClock.
type Scheduler struct {
	clock clockwork.Clock
}

func New(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{clock: clock}
}

func (s *Scheduler) Clock() clockwork.Clock {
	return s.clock
}

// Task is a single deferred call. A cancelled task never runs its function.
type Task struct {
	fn        func()
	timer     clockwork.Timer
	once      sync.Once
	cancelled atomic.Bool
	fired     atomic.Bool
}

// After schedules fn to run once d has elapsed on the scheduler's clock.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	t := &Task{fn: fn}
	t.timer = s.clock.AfterFunc(d, t.run)
	return t
}

func (t *Task) run() {
	if t.cancelled.Load() {
		return
	}
	t.fired.Store(true)
	t.fn()
}

// Cancel stops the task. It is safe to call on a nil, fired or already
// cancelled task.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		t.cancelled.Store(true)
		if t.timer != nil {
			t.timer.Stop()
		}
	})
}

func (t *Task) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}

func (t *Task) Fired() bool {
	return t != nil && t.fired.Load()
}
