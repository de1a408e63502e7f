package services

import (
	"sync"
	"sync/atomic"
	"time"
)

// Debouncer runs a callback once a quiet period has passed since the last
// Trigger. A superseded timer is stopped before the new one is armed, and
// every callback carries a generation so a late delivery can be recognised
// as stale by the receiver.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger cancels any pending callback and schedules fn after the delay.
func (d *Debouncer) Trigger(fn func(gen uint64)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := gen == d.gen
		if current {
			d.timer = nil
		}
		d.mu.Unlock()

		if current {
			fn(gen)
		}
	})
}

// Current reports whether gen is still the latest scheduled generation.
func (d *Debouncer) Current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen == d.gen
}

// Pending reports whether a callback is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel stops any pending callback. Idempotent.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// FrameCoalescer delivers at most one value per frame interval. A value
// submitted while a frame is pending replaces the pending one, so only the
// latest value of a burst is delivered.
type FrameCoalescer[T any] struct {
	interval time.Duration
	deliver  func(T)

	mu         sync.Mutex
	pending    T
	hasPending bool
	timer      *time.Timer
	stopped    bool

	coalesced uint64
}

func NewFrameCoalescer[T any](interval time.Duration, deliver func(T)) *FrameCoalescer[T] {
	return &FrameCoalescer[T]{
		interval: interval,
		deliver:  deliver,
	}
}

// Submit records v for the next frame (non-blocking).
func (c *FrameCoalescer[T]) Submit(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	if c.hasPending {
		atomic.AddUint64(&c.coalesced, 1)
	}
	c.pending = v
	c.hasPending = true

	if c.timer == nil {
		c.timer = time.AfterFunc(c.interval, c.flush)
	}
}

func (c *FrameCoalescer[T]) flush() {
	c.mu.Lock()
	v, ok := c.pending, c.hasPending
	var zero T
	c.pending = zero
	c.hasPending = false
	c.timer = nil
	stopped := c.stopped
	c.mu.Unlock()

	if ok && !stopped {
		c.deliver(v)
	}
}

// Coalesced returns how many submitted values were replaced before delivery.
func (c *FrameCoalescer[T]) Coalesced() uint64 {
	return atomic.LoadUint64(&c.coalesced)
}

// Stop cancels the pending frame. Idempotent.
func (c *FrameCoalescer[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	c.hasPending = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
