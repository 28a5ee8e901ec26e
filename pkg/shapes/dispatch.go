package shapes

import "sync"

// Dispatcher decides on which goroutine an async callback runs.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// Inline runs callbacks on the goroutine that performed the request.
var Inline Dispatcher = DispatcherFunc(func(fn func()) { fn() })

// SerialDispatcher runs callbacks one at a time, in arrival order, on a
// single goroutine it owns. Callbacks must not block on Dispatch themselves.
type SerialDispatcher struct {
	mu      sync.RWMutex
	stopped bool
	queue   chan func()
	done    chan struct{}
	once    sync.Once
}

// NewSerialDispatcher starts the dispatcher goroutine. buffer bounds the queue.
func NewSerialDispatcher(buffer int) *SerialDispatcher {
	if buffer < 0 {
		buffer = 0
	}
	d := &SerialDispatcher{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *SerialDispatcher) loop() {
	defer close(d.done)
	for fn := range d.queue {
		fn()
	}
}

// Dispatch enqueues fn. After Stop, fn runs on the caller's goroutine so it
// is still invoked exactly once.
func (d *SerialDispatcher) Dispatch(fn func()) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		fn()
		return
	}
	d.queue <- fn
}

// Stop drains queued callbacks and stops the dispatcher goroutine.
func (d *SerialDispatcher) Stop() {
	d.once.Do(func() {
		d.mu.Lock()
		d.stopped = true
		close(d.queue)
		d.mu.Unlock()
	})
	<-d.done
}
