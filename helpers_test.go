package lookout_test

import (
	"sync"
	"testing"
	"time"

	"github.com/cboone/lookout"
	"github.com/cboone/lookout/internal/fakedriver"
)

// fakeClock advances only when a wait sleeps, so timeouts cost nothing.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// openPage returns a strict page over s with a one second timeout on a fake
// clock. opts are applied last.
func openPage(t *testing.T, s *fakedriver.Session, opts ...lookout.Option) *lookout.Page {
	t.Helper()
	base := []lookout.Option{
		lookout.WithClock(newFakeClock()),
		lookout.WithTimeout(time.Second),
		lookout.WithPollInterval(100 * time.Millisecond),
		lookout.WithCollectionsTimeout(time.Second),
		lookout.WithCollectionsPollInterval(100 * time.Millisecond),
	}
	return lookout.Open(t, s, append(base, opts...)...)
}

// recorder keeps every finished step.
type recorder struct {
	mu     sync.Mutex
	before int
	events []string
}

func (r *recorder) BeforeEvent(*lookout.LogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.before++
}

func (r *recorder) AfterEvent(ev *lookout.LogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev.String())
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}
