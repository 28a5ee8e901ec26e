package reporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Target pairs a reporter with the events it wants.
type Target struct {
	Reporter Reporter
	Notify   Notify
}

// Delivery summarizes one Report call.
type Delivery struct {
	Sent    int
	Skipped int
	Failed  int
}

// Fanout delivers each event concurrently to every target that wants it. It
// remembers the last outcome per endpoint to drive NotifyChanges.
type Fanout struct {
	targets []Target

	mu   sync.Mutex
	last map[string]string
}

// NewFanout drops targets without a reporter. A missing Notify means NotifyAll.
func NewFanout(targets ...Target) *Fanout {
	f := &Fanout{last: make(map[string]string)}
	for _, t := range targets {
		if t.Reporter == nil {
			continue
		}
		if t.Notify == "" {
			t.Notify = NotifyAll
		}
		f.targets = append(f.targets, t)
	}
	return f
}

// Report delivers evt and waits for every selected target. Errors from
// individual targets are joined in target order.
func (f *Fanout) Report(ctx context.Context, evt Event) (Delivery, error) {
	var d Delivery
	if f == nil || len(f.targets) == 0 {
		return d, nil
	}
	changed := f.observe(evt)

	errs := make([]error, len(f.targets))
	var wg sync.WaitGroup
	for i, t := range f.targets {
		if !t.Notify.wants(evt, changed) {
			d.Skipped++
			continue
		}
		d.Sent++
		wg.Add(1)
		go func(i int, rep Reporter) {
			defer wg.Done()
			if err := rep.Report(ctx, evt); err != nil {
				errs[i] = fmt.Errorf("%s reporter %q: %w", rep.Type(), rep.ID(), err)
			}
		}(i, t.Reporter)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			d.Failed++
		}
	}
	d.Sent -= d.Failed
	return d, errors.Join(errs...)
}

// observe records evt as the latest outcome of its endpoint and reports
// whether it differs from the one before. The first outcome counts as a change.
func (f *Fanout) observe(evt Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, seen := f.last[evt.Endpoint]
	f.last[evt.Endpoint] = evt.Outcome
	return !seen || prev != evt.Outcome
}

// Size returns the number of targets.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.targets)
}

// Close releases reporters that hold connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, t := range f.targets {
		if c, ok := t.Reporter.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close reporter %q: %w", t.Reporter.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
