package lookout

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock advances only when Sleep is called.
type manualClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func TestWaiterSucceedsAfterRetries(t *testing.T) {
	clock := newManualClock()
	w := Waiter{Timeout: time.Second, PollInterval: 100 * time.Millisecond, Clock: clock}

	calls := 0
	res := w.Poll(func() Probe {
		calls++
		if calls < 3 {
			return Probe{Err: ErrNoSuchElement}
		}
		return Probe{OK: true, Observed: true, Actual: "visible"}
	})

	assert.Equal(t, Success, res.Outcome)
	assert.Equal(t, 3, res.Polls)
	assert.GreaterOrEqual(t, res.Elapsed, 200*time.Millisecond)
	assert.Equal(t, "visible", res.Actual)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, clock.sleeps)
}

func TestWaiterAbortsOnFirstPoll(t *testing.T) {
	clock := newManualClock()
	w := Waiter{Timeout: time.Second, PollInterval: 100 * time.Millisecond, Clock: clock}

	res := w.Poll(func() Probe {
		return Probe{Err: ErrInvalidSelector}
	})

	assert.Equal(t, Aborted, res.Outcome)
	assert.Equal(t, Abort, res.Verdict)
	assert.Equal(t, 1, res.Polls)
	assert.Zero(t, res.Elapsed)
	assert.Empty(t, clock.sleeps)
	require.ErrorIs(t, res.Err, ErrInvalidSelector)
}

func TestWaiterPropagates(t *testing.T) {
	w := Waiter{Timeout: time.Second, PollInterval: 100 * time.Millisecond, Clock: newManualClock()}

	cfgErr := &ConfigurationError{Op: "head", Msg: "bad"}
	res := w.Poll(func() Probe { return Probe{Err: cfgErr} })

	assert.Equal(t, Aborted, res.Outcome)
	assert.Equal(t, Propagate, res.Verdict)
	assert.Same(t, cfgErr, res.Err)
}

func TestWaiterZeroTimeoutPollsOnce(t *testing.T) {
	clock := newManualClock()
	w := Waiter{Timeout: 0, PollInterval: 100 * time.Millisecond, Clock: clock}

	calls := 0
	res := w.Poll(func() Probe {
		calls++
		return Probe{Err: ErrNoSuchElement}
	})

	assert.Equal(t, TimedOut, res.Outcome)
	assert.Equal(t, 1, calls)
	assert.Empty(t, clock.sleeps)
}

func TestWaiterZeroTimeoutCanSucceed(t *testing.T) {
	w := Waiter{Clock: newManualClock()}
	res := w.Poll(func() Probe { return Probe{OK: true} })
	assert.Equal(t, Success, res.Outcome)
}

func TestWaiterTimesOut(t *testing.T) {
	clock := newManualClock()
	w := Waiter{Timeout: 500 * time.Millisecond, PollInterval: 100 * time.Millisecond, Clock: clock}

	res := w.Poll(func() Probe {
		return Probe{Observed: true, Actual: "hidden"}
	})

	assert.Equal(t, TimedOut, res.Outcome)
	assert.Equal(t, 6, res.Polls)
	assert.Equal(t, 500*time.Millisecond, res.Elapsed)
	assert.True(t, res.Observed)
	assert.Equal(t, "hidden", res.Actual)
	assert.NoError(t, res.Err)
}

func TestWaiterKeepsLastObservation(t *testing.T) {
	w := Waiter{Timeout: 300 * time.Millisecond, PollInterval: 100 * time.Millisecond, Clock: newManualClock()}

	calls := 0
	res := w.Poll(func() Probe {
		calls++
		if calls == 2 {
			return Probe{Observed: true, Actual: "seen once"}
		}
		return Probe{Err: ErrStaleElement}
	})

	assert.Equal(t, TimedOut, res.Outcome)
	assert.True(t, res.Observed)
	assert.Equal(t, "seen once", res.Actual)
	require.ErrorIs(t, res.Err, ErrStaleElement)
}

func TestWaiterCustomClassify(t *testing.T) {
	fatal := errors.New("fatal")
	w := Waiter{
		Timeout:      time.Second,
		PollInterval: 100 * time.Millisecond,
		Clock:        newManualClock(),
		Classify: func(err error) Verdict {
			if errors.Is(err, fatal) {
				return Propagate
			}
			return Retry
		},
	}

	res := w.Poll(func() Probe { return Probe{Err: fatal} })
	assert.Equal(t, Aborted, res.Outcome)
	assert.Equal(t, 1, res.Polls)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "timed out", TimedOut.String())
	assert.Equal(t, "aborted", Aborted.String())
}
