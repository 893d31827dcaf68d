package session

import (
	"context"
	"sync"
	"time"
)

// DefaultDelay is the pause after the last keystroke before suggestions are
// computed.
const DefaultDelay = 300 * time.Millisecond

// Scheduler runs fn once after d and returns a function that cancels it.
// The returned stop reports whether the call was prevented.
type Scheduler func(d time.Duration, fn func()) (stop func() bool)

// TimerScheduler schedules with time.AfterFunc.
func TimerScheduler(d time.Duration, fn func()) func() bool {
	t := time.AfterFunc(d, fn)
	return t.Stop
}

// Debouncer runs at most one delayed task at a time. Scheduling a new task
// cancels the previous one outright, and a task that was superseded after it
// started cannot be observed by its caller (see Current).
type Debouncer struct {
	delay    time.Duration
	schedule Scheduler

	mu     sync.Mutex
	gen    uint64
	stop   func() bool
	cancel context.CancelFunc
}

// NewDebouncer creates a debouncer. A nil scheduler uses real timers.
func NewDebouncer(delay time.Duration, schedule Scheduler) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if schedule == nil {
		schedule = TimerScheduler
	}
	return &Debouncer{delay: delay, schedule: schedule}
}

// Delay returns the configured delay.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule cancels any pending task and schedules task to run after the
// delay. The task receives a context that is cancelled as soon as another
// task is scheduled or Cancel is called, plus its generation number.
func (d *Debouncer) Schedule(parent context.Context, task func(ctx context.Context, gen uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	d.gen++
	gen := d.gen

	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	d.stop = d.schedule(d.delay, func() {
		if ctx.Err() != nil {
			return
		}
		task(ctx, gen)
	})
	return gen
}

// Current reports whether gen is still the latest scheduled task.
func (d *Debouncer) Current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen == gen && d.cancel != nil
}

// Done marks gen finished, if it is still current.
func (d *Debouncer) Done(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen == gen {
		d.cancelLocked()
	}
}

// Pending reports whether a task is scheduled and not yet finished.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// Cancel drops the pending task, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.gen++
}

func (d *Debouncer) cancelLocked() {
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
