package schedule

import (
	"sync"
	"time"
)

// Fake is a virtual-time Scheduler. Nothing fires until Advance is called;
// callbacks then run synchronously on the caller's goroutine, in due order.
type Fake struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*fakeTask
}

// NewFake returns a scheduler whose clock starts at zero.
func NewFake() *Fake {
	return &Fake{}
}

type fakeTask struct {
	owner  *Fake
	seq    int
	due    time.Duration
	period time.Duration
	fn     func()
	armed  bool
}

func (t *fakeTask) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	was := t.armed
	t.armed = false
	return was
}

// AfterFunc arms f to run once after d of virtual time.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Task {
	return f.add(d, 0, fn)
}

// Every arms fn to run every d of virtual time.
func (f *Fake) Every(d time.Duration, fn func()) Task {
	return f.add(d, d, fn)
}

func (f *Fake) add(d, period time.Duration, fn func()) *fakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &fakeTask{owner: f, seq: f.seq, due: f.now + d, period: period, fn: fn, armed: true}
	f.tasks = append(f.tasks, t)
	return t
}

// Advance moves the clock forward by d, firing every task that comes due.
// Tasks armed by callbacks fire within the same call if they fall inside d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now + d
	for {
		next := f.nextDueLocked(target)
		if next == nil {
			break
		}
		f.now = next.due
		if next.period > 0 {
			next.due += next.period
		} else {
			next.armed = false
		}
		fn := next.fn
		f.mu.Unlock()
		fn()
		f.mu.Lock()
	}
	f.now = target
	f.compactLocked()
	f.mu.Unlock()
}

func (f *Fake) nextDueLocked(limit time.Duration) *fakeTask {
	var next *fakeTask
	for _, t := range f.tasks {
		if !t.armed || t.due > limit {
			continue
		}
		if next == nil || t.due < next.due || (t.due == next.due && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (f *Fake) compactLocked() {
	live := f.tasks[:0]
	for _, t := range f.tasks {
		if t.armed {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(f.tasks); i++ {
		f.tasks[i] = nil
	}
	f.tasks = live
}

// Now returns the virtual time elapsed since NewFake.
func (f *Fake) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Armed returns the number of tasks still scheduled to fire.
func (f *Fake) Armed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tasks {
		if t.armed {
			n++
		}
	}
	return n
}
