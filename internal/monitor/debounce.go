package monitor

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid events per key into one callback fired once the
// key has been quiet for the delay.
type Debouncer struct {
	delay    time.Duration
	callback func(key string)

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
}

// NewDebouncer returns a debouncer invoking callback after delay.
func NewDebouncer(delay time.Duration, callback func(key string)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		callback: callback,
		pending:  make(map[string]*time.Timer),
	}
}

// Add schedules key, resetting its timer when already pending.
func (d *Debouncer) Add(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addLocked(key)
}

func (d *Debouncer) addLocked(key string) {
	if d.stopped {
		return
	}
	if timer, ok := d.pending[key]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A re-Add may have replaced this timer after it fired.
		if d.pending[key] != timer {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		stopped := d.stopped
		d.mu.Unlock()

		if !stopped && d.callback != nil {
			d.callback(key)
		}
	})
	d.pending[key] = timer
}

// Stop cancels all pending callbacks and ignores later Adds.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, timer := range d.pending {
		timer.Stop()
		delete(d.pending, key)
	}
}

// Pending returns the number of keys waiting to fire.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
