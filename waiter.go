package lookout

import (
	"fmt"
	"time"
)

// Clock is the time source of a Waiter.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Outcome is the terminal state of a wait.
type Outcome int

// Outcomes of a Poll.
const (
	Success Outcome = iota
	TimedOut
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case TimedOut:
		return "timed out"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Probe is the result of one poll.
type Probe struct {
	// OK reports that the operation succeeded or the condition held.
	OK bool
	// Observed reports that resolution succeeded on this poll.
	Observed bool
	// Actual describes what the condition saw.
	Actual string
	Err    error
}

// Result is what a Waiter reports once it stops polling. Actual and Observed
// come from the last poll that resolved anything; Err is the last error seen.
type Result struct {
	Outcome  Outcome
	Elapsed  time.Duration
	Polls    int
	Observed bool
	Actual   string
	Err      error
	// Verdict is the classification of Err when Outcome is Aborted.
	Verdict Verdict
}

// Waiter repeatedly runs a probe until it succeeds, the timeout expires, or
// the probe returns an error that must not be retried.
type Waiter struct {
	Timeout      time.Duration
	PollInterval time.Duration
	Clock        Clock
	// Classify defaults to the package-level Classify.
	Classify func(error) Verdict
}

// Poll runs probe at least once. Elapsed time is measured from entry, and
// the interval between polls is fixed.
func (w Waiter) Poll(probe func() Probe) Result {
	clock := w.Clock
	if clock == nil {
		clock = SystemClock
	}
	classify := w.classifier()

	start := clock.Now()
	var res Result
	for {
		p := probe()
		res.Polls++

		if p.Observed {
			res.Observed = true
			res.Actual = p.Actual
		}
		if p.OK {
			res.Outcome = Success
			res.Elapsed = clock.Now().Sub(start)
			return res
		}
		if p.Err != nil {
			res.Err = p.Err
			if v := classify(p.Err); v != Retry {
				res.Outcome = Aborted
				res.Verdict = v
				res.Elapsed = clock.Now().Sub(start)
				return res
			}
		}

		res.Elapsed = clock.Now().Sub(start)
		if res.Elapsed >= w.Timeout {
			res.Outcome = TimedOut
			return res
		}

		clock.Sleep(w.PollInterval)
	}
}

// classifier returns w.Classify, or Classify when it is unset.
func (w Waiter) classifier() func(error) Verdict {
	if w.Classify != nil {
		return w.Classify
	}
	return Classify
}
