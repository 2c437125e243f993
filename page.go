package lookout

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Page is the entry point: it binds a driver Session to an immutable Config,
// a step log and a collector for soft assertion failures.
// It is created with New or Open.
type Page struct {
	session  Session
	cfg      Config
	cfgErr   error
	clock    Clock
	classify func(error) Verdict
	steps    *StepLog
	errs     *ErrorsCollector
}

// New returns a Page driving session. The configuration starts from
// DefaultConfig and is then adjusted by opts. An invalid configuration is
// reported by every operation on the page. A bad environment is not, once
// WithConfig has replaced it.
func New(session Session, userOpts ...Option) *Page {
	cfg, envErr := DefaultConfig()

	opts := options{config: cfg, clock: SystemClock, classify: Classify}
	for _, o := range userOpts {
		o(&opts)
	}
	cfgErr := opts.config.Validate()
	if envErr != nil && !opts.configSet {
		cfgErr = envErr
	}
	if opts.classify == nil {
		opts.classify = Classify
	}

	steps := NewStepLog()
	for name, l := range opts.listeners {
		steps.AddListener(name, l)
	}

	return &Page{
		session:  session,
		cfg:      opts.config,
		cfgErr:   cfgErr,
		clock:    opts.clock,
		classify: opts.classify,
		steps:    steps,
		errs:     &ErrorsCollector{},
	}
}

// Open is New for tests. An invalid configuration fails the test at once,
// and soft assertion failures are reported through t.Errorf during cleanup.
func Open(t testing.TB, session Session, opts ...Option) *Page {
	t.Helper()

	p := New(session, opts...)
	if p.cfgErr != nil {
		t.Fatalf("lookout: open: %v", p.cfgErr)
	}

	t.Cleanup(func() {
		if n := p.errs.Len(); n > 0 {
			t.Errorf("lookout: %d soft assertion(s) failed:\n%v", n, p.errs.Err())
		}
	})

	return p
}

// Element returns a lazy reference to the first element matching sel.
// No driver call happens until an action or assertion is applied.
func (p *Page) Element(sel Selector) *Element {
	return &Element{page: p, src: selectorSource{session: p.session, sel: sel}}
}

// Elements returns a lazy reference to every element matching sel.
func (p *Page) Elements(sel Selector) *Collection {
	return &Collection{page: p, src: selectorSource{session: p.session, sel: sel, many: true}}
}

// ElementFrom wraps an arbitrary Source.
func (p *Page) ElementFrom(src Source) *Element {
	return &Element{page: p, src: src}
}

// ElementsFrom wraps an arbitrary Source as a collection.
func (p *Page) ElementsFrom(src Source) *Collection {
	return &Collection{page: p, src: src}
}

// Config returns the page configuration.
func (p *Page) Config() Config { return p.cfg }

// Errors returns the collector holding soft assertion failures.
func (p *Page) Errors() *ErrorsCollector { return p.errs }

// Steps returns the step log, for adding or removing listeners.
func (p *Page) Steps() *StepLog { return p.steps }

func (p *Page) waiter(timeout, interval time.Duration) Waiter {
	return Waiter{Timeout: timeout, PollInterval: interval, Clock: p.clock, Classify: p.classify}
}

// timing applies per-call wait options on top of the configured values.
func timing(timeout, interval time.Duration, wopts []WaitOption) (time.Duration, time.Duration, error) {
	wo := waitOptions{}
	for _, o := range wopts {
		o(&wo)
	}
	if wo.timeout < 0 {
		return 0, 0, &ConfigurationError{Op: "wait", Msg: "negative timeout: " + wo.timeout.String()}
	}
	if wo.pollInterval < 0 {
		return 0, 0, &ConfigurationError{Op: "wait", Msg: "negative poll interval: " + wo.pollInterval.String()}
	}
	if wo.timeout > 0 {
		timeout = wo.timeout
	}
	if wo.pollInterval > 0 {
		interval = wo.pollInterval
	}
	return timeout, interval, nil
}

// failure describes a wait for conclude.
type failure struct {
	target    string
	verb      string
	condition string
	expected  string
	unmet     error
	state     func() string
	diff      func() string
	timeout   time.Duration
}

// conclude turns a wait result into the error returned to the caller.
func conclude(res Result, f failure) error {
	switch res.Outcome {
	case Success:
		return nil
	case Aborted:
		if res.Verdict == Abort {
			return &InvalidQueryError{Target: f.target, Err: res.Err}
		}
		return res.Err
	}

	ae := &AssertionError{
		Kind:      ErrElementNotFound,
		Target:    f.target,
		Verb:      f.verb,
		Condition: f.condition,
		Expected:  f.expected,
		State:     notLoaded,
		Timeout:   f.timeout,
		Elapsed:   res.Elapsed,
		Polls:     res.Polls,
		Cause:     res.Err,
	}
	if res.Observed {
		ae.Kind = f.unmet
		ae.Actual = res.Actual
		ae.State = f.state()
		if f.diff != nil {
			ae.Diff = f.diff()
		}
	}
	return ae
}

// settle applies the assertion mode to the outcome of a should-style call.
// Only timeouts are softened; fatal errors always reach the caller.
func (p *Page) settle(err error) error {
	var ae *AssertionError
	if p.cfg.AssertionMode == Soft && errors.As(err, &ae) {
		p.errs.Record(err)
		return nil
	}
	return err
}

// resolveNow performs one resolution outside any wait, for reads that never
// retry. Selector errors still surface as InvalidQueryError.
func (p *Page) resolveNow(ctx context.Context, src Source) ([]Handle, error) {
	hs, err := src.ResolveMany(ctx)
	if err != nil && p.classify(err) == Abort {
		return nil, &InvalidQueryError{Target: src.String(), Err: err}
	}
	return hs, err
}
