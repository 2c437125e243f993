package lookout

import (
	"errors"
	"sync"
)

// ErrorsCollector accumulates soft assertion failures for later reporting.
// It is safe for concurrent use.
type ErrorsCollector struct {
	mu   sync.Mutex
	errs []error
}

// Record appends err. Nil errors are ignored.
func (c *ErrorsCollector) Record(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// Errors returns a copy of the recorded failures in order.
func (c *ErrorsCollector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]error, len(c.errs))
	copy(cp, c.errs)
	return cp
}

// Len returns the number of recorded failures.
func (c *ErrorsCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// Err joins all recorded failures, or returns nil if there are none.
func (c *ErrorsCollector) Err() error {
	return errors.Join(c.Errors()...)
}

// Reset discards all recorded failures.
func (c *ErrorsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = nil
}
