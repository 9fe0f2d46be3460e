// Package schedule runs delayed and recurring callbacks behind an interface
// so timing-dependent code can be driven by a virtual clock in tests.
package schedule

import (
	"sync"
	"time"
)

// Task is a scheduled callback that can be cancelled.
type Task interface {
	// Stop cancels the task. It reports whether the task was still armed.
	// Stopping a stopped or fired one-shot task is a no-op.
	Stop() bool
}

// Scheduler arms one-shot and recurring callbacks.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
	Every(d time.Duration, f func()) Task
}

// Real schedules on the wall clock.
type Real struct{}

// NewReal returns a wall-clock scheduler.
func NewReal() Real {
	return Real{}
}

// AfterFunc runs f once after d, in its own goroutine.
func (Real) AfterFunc(d time.Duration, f func()) Task {
	return timerTask{time.AfterFunc(d, f)}
}

// Every runs f every d until stopped. Ticks are not queued: if f is still
// running when the next tick is due, that tick is dropped.
func (Real) Every(d time.Duration, f func()) Task {
	t := &tickerTask{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go t.run(f)
	return t
}

type timerTask struct {
	t *time.Timer
}

func (t timerTask) Stop() bool {
	return t.t.Stop()
}

type tickerTask struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickerTask) run(f func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			// Stop may race with a tick that was already delivered.
			select {
			case <-t.done:
				return
			default:
			}
			f()
		}
	}
}

// Stop does not wait for a callback that is already running.
func (t *tickerTask) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
		stopped = true
	})
	return stopped
}
