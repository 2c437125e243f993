package lookout

import (
	"context"
	"iter"
	"strconv"
	"time"
)

// Collection is a lazy reference to an ordered list of elements. Views built
// from it (Filter, Head, Get, ...) are lazy too: nothing is queried until a
// terminal call such as Size, Texts or Should.
type Collection struct {
	page *Page
	src  Source
}

func (c *Collection) String() string { return c.src.String() }

// Source returns the source the collection resolves through.
func (c *Collection) Source() Source { return c.src }

// Filter keeps the elements satisfying cond, re-evaluated on every
// resolution.
func (c *Collection) Filter(cond Condition) *Collection {
	return &Collection{page: c.page, src: filterSource{parent: c.src, cond: cond}}
}

// Exclude drops the elements satisfying cond.
func (c *Collection) Exclude(cond Condition) *Collection {
	return &Collection{page: c.page, src: filterSource{parent: c.src, cond: cond, exclude: true}}
}

// Head keeps the first n elements. n must be at least 1; otherwise the
// first terminal call fails with a ConfigurationError.
func (c *Collection) Head(n int) *Collection {
	return &Collection{page: c.page, src: headSource{parent: c.src, n: n}}
}

// Tail keeps the last n elements. n must be at least 1.
func (c *Collection) Tail(n int) *Collection {
	return &Collection{page: c.page, src: tailSource{parent: c.src, n: n}}
}

// Get returns the element at index i (0-indexed). An index beyond the
// current size is treated as "not found yet".
func (c *Collection) Get(i int) *Element {
	return &Element{page: c.page, src: indexSource{parent: c.src, i: i}}
}

// First returns the first element.
func (c *Collection) First() *Element {
	return c.Get(0)
}

// Last returns the last element.
func (c *Collection) Last() *Element {
	return &Element{page: c.page, src: lastSource{parent: c.src}}
}

// Find returns the first element satisfying cond.
func (c *Collection) Find(cond Condition) *Element {
	return &Element{page: c.page, src: findSource{parent: c.src, cond: cond}}
}

// Size returns the current number of elements without waiting.
func (c *Collection) Size(ctx context.Context) (int, error) {
	hs, err := c.page.resolveNow(ctx, c.src)
	return len(hs), err
}

// Texts returns the current texts without waiting.
func (c *Collection) Texts(ctx context.Context) ([]string, error) {
	hs, err := c.page.resolveNow(ctx, c.src)
	if err != nil {
		return nil, err
	}
	return texts(ctx, hs)
}

// Capture records the current texts without waiting.
func (c *Collection) Capture(ctx context.Context) (*Capture, error) {
	ts, err := c.Texts(ctx)
	if err != nil {
		return nil, err
	}
	return newCapture(ts), nil
}

// All iterates over the elements. The live size is checked before each
// step, so elements added while iterating are visited; iteration stops at
// the first resolution error.
func (c *Collection) All(ctx context.Context) iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		for i := 0; ; i++ {
			hs, err := c.src.ResolveMany(ctx)
			if err != nil || i >= len(hs) {
				return
			}
			if !yield(c.Get(i)) {
				return
			}
		}
	}
}

// Should waits until every condition holds, each within the collections
// timeout.
func (c *Collection) Should(ctx context.Context, conds ...CollectionCondition) error {
	return c.should(ctx, "should", conds)
}

// ShouldBe is Should, worded for conditions such as EmptyCollection.
func (c *Collection) ShouldBe(ctx context.Context, conds ...CollectionCondition) error {
	return c.should(ctx, "should be", conds)
}

// ShouldHave is Should, worded for conditions such as Size or Texts.
func (c *Collection) ShouldHave(ctx context.Context, conds ...CollectionCondition) error {
	return c.should(ctx, "should have", conds)
}

// ShouldHaveSize waits until the collection has exactly n elements.
func (c *Collection) ShouldHaveSize(ctx context.Context, n int) error {
	return c.should(ctx, "should have", []CollectionCondition{Size(n)})
}

// WaitUntil waits for cond with optional per-call timing. It is never
// softened.
func (c *Collection) WaitUntil(ctx context.Context, cond CollectionCondition, wopts ...WaitOption) error {
	if c.page.cfgErr != nil {
		return c.page.cfgErr
	}
	cfg := c.page.cfg
	timeout, interval, err := timing(cfg.CollectionsTimeout, cfg.CollectionsPollInterval, wopts)
	if err != nil {
		return err
	}
	ev := c.page.steps.BeginStep(c.String(), "wait until", cond)
	err = c.poll(ctx, "wait until", timeout, interval, cond)
	c.page.steps.CommitStep(ev, err)
	return err
}

func (c *Collection) should(ctx context.Context, verb string, conds []CollectionCondition) error {
	if c.page.cfgErr != nil {
		return c.page.cfgErr
	}
	cfg := c.page.cfg

	args := make([]any, len(conds))
	for i, cond := range conds {
		args[i] = cond
	}
	ev := c.page.steps.BeginStep(c.String(), verb, args...)
	var err error
	for _, cond := range conds {
		if err = c.poll(ctx, verb, cfg.CollectionsTimeout, cfg.CollectionsPollInterval, cond); err != nil {
			break
		}
	}
	c.page.steps.CommitStep(ev, err)
	return c.page.settle(err)
}

// poll resolves the collection and evaluates cond until it holds.
func (c *Collection) poll(ctx context.Context, verb string, timeout, interval time.Duration, cond CollectionCondition) error {
	var (
		last []Handle
		diff string
	)
	res := c.page.waiter(timeout, interval).Poll(func() Probe {
		hs, err := c.src.ResolveMany(ctx)
		if err != nil {
			return Probe{Err: err}
		}
		last = hs
		v, err := cond.check(ctx, hs)
		if err != nil {
			return Probe{Observed: true, Actual: "size " + strconv.Itoa(len(hs)), Err: err}
		}
		diff = v.diff
		return Probe{OK: v.ok, Observed: true, Actual: v.actual}
	})

	return conclude(res, failure{
		target:    c.String(),
		verb:      verb,
		condition: cond.String(),
		expected:  cond.expected,
		unmet:     ErrConditionUnmet,
		timeout:   timeout,
		state: func() string {
			return describeHandles(ctx, last)
		},
		diff: func() string { return diff },
	})
}
