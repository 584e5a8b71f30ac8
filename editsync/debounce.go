package editsync

import (
	"sync"
	"time"
)

// Stopper cancels a scheduled task. *time.Timer implements it.
type Stopper interface {
	Stop() bool
}

// Scheduler runs f after d. Tests inject a manual scheduler instead of wall-clock timers.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// RealScheduler is backed by time.AfterFunc.
var RealScheduler Scheduler = realScheduler{}

// Debouncer owns at most one pending task. Every Schedule cancels the pending task and
// replaces it with a new one, so f only runs after a quiet period of delay.
type Debouncer struct {
	delay     time.Duration
	scheduler Scheduler

	mu         sync.Mutex
	task       Stopper
	generation uint64
}

func NewDebouncer(delay time.Duration, scheduler Scheduler) *Debouncer {
	if scheduler == nil {
		scheduler = RealScheduler
	}
	return &Debouncer{delay: delay, scheduler: scheduler}
}

func (d *Debouncer) Schedule(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.task != nil {
		d.task.Stop()
	}
	d.generation++
	gen := d.generation
	d.task = d.scheduler.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if gen != d.generation {
			// replaced after the timer had already fired
			d.mu.Unlock()
			return
		}
		d.task = nil
		d.mu.Unlock()
		f()
	})
}

// Cancel drops the pending task, it returns false if there was none.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	if d.task == nil {
		return false
	}
	d.task.Stop()
	d.task = nil
	return true
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.task != nil
}
