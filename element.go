package lookout

import (
	"context"
	"strings"
	"time"
)

// Element is a lazy reference to a single element. It implements Handle, so
// it can stand in for a raw driver handle, but every call resolves the
// element again and retries transient failures until the page timeout.
type Element struct {
	page *Page
	src  Source
}

var _ Handle = (*Element)(nil)

// String describes the logical reference, e.g. $$(".item")[2].
func (e *Element) String() string { return e.src.String() }

// Source returns the source the element resolves through.
func (e *Element) Source() Source { return e.src }

// Text waits for the element and returns its visible text.
func (e *Element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.act(ctx, "get text", nil, func(ctx context.Context, h Handle) (err error) {
		text, err = h.Text(ctx)
		return err
	})
	return text, err
}

// TagName waits for the element and returns its lower-case tag name.
func (e *Element) TagName(ctx context.Context) (string, error) {
	var tag string
	err := e.act(ctx, "get tag name", nil, func(ctx context.Context, h Handle) (err error) {
		tag, err = h.TagName(ctx)
		return err
	})
	return tag, err
}

// Attribute waits for the element and returns the named attribute.
func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := e.act(ctx, "get attribute", []any{name}, func(ctx context.Context, h Handle) (err error) {
		value, ok, err = h.Attribute(ctx, name)
		return err
	})
	return value, ok, err
}

// Displayed reports whether the element is displayed. A missing element is
// not displayed; only selector errors are returned.
func (e *Element) Displayed(ctx context.Context) (bool, error) {
	var shown bool
	err := e.run(ctx, "is displayed", nil, 0, 0, Condition{
		name:   "displayed check",
		absent: true,
		check: func(ctx context.Context, h Handle) (bool, string, error) {
			var err error
			shown, err = h.Displayed(ctx)
			if err != nil {
				// Stale or otherwise unreadable counts as not displayed.
				shown = false
			}
			return true, displayedString(shown), nil
		},
	}, ErrActionFailed)
	return shown, err
}

// IsDisplayed is Displayed without the error.
func (e *Element) IsDisplayed(ctx context.Context) bool {
	shown, _ := e.Displayed(ctx)
	return shown
}

// Exists reports whether the element can be found right now, without
// waiting.
func (e *Element) Exists(ctx context.Context) (bool, error) {
	hs, err := e.page.resolveNow(ctx, e.src)
	if err != nil {
		if e.page.classify(err) == Retry {
			return false, nil
		}
		return false, err
	}
	return len(hs) > 0, nil
}

// Click waits for the element and clicks it.
func (e *Element) Click(ctx context.Context) error {
	return e.act(ctx, "click", nil, func(ctx context.Context, h Handle) error {
		return h.Click(ctx)
	})
}

// SendKeys waits for the element and types text into it.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	return e.act(ctx, "send keys", []any{text}, func(ctx context.Context, h Handle) error {
		return h.SendKeys(ctx, text)
	})
}

// Clear waits for the element and clears its value.
func (e *Element) Clear(ctx context.Context) error {
	return e.act(ctx, "clear", nil, func(ctx context.Context, h Handle) error {
		return h.Clear(ctx)
	})
}

// SetValue replaces the element value: an empty text clears the field,
// anything else clears it, types text and fires change when
// Config.SetValueChangeEvent is set and the handle can dispatch events.
//
// With Config.VersatileSetValue a <select> gets the option whose value is
// text selected, and a radio button selects the radio of the same query
// whose value is text.
func (e *Element) SetValue(ctx context.Context, text string) error {
	cfg := e.page.cfg
	return e.act(ctx, "set value", []any{text}, func(ctx context.Context, h Handle) error {
		if cfg.VersatileSetValue {
			done, err := e.setVersatile(ctx, h, text)
			if done || err != nil {
				return err
			}
		}
		if err := h.Clear(ctx); err != nil {
			return err
		}
		if text == "" {
			return nil
		}
		if err := h.SendKeys(ctx, text); err != nil {
			return err
		}
		if d, ok := h.(EventDispatcher); ok && cfg.SetValueChangeEvent {
			return d.DispatchEvent(ctx, "change")
		}
		return nil
	})
}

// setVersatile handles the select and radio cases of SetValue. done is
// false for every other element.
func (e *Element) setVersatile(ctx context.Context, h Handle, value string) (done bool, err error) {
	tag, err := h.TagName(ctx)
	if err != nil {
		return false, err
	}
	switch tag {
	case "select":
		return true, selectOptions(ctx, h, optionWithValue(value), "with value: "+value)
	case "input":
		typ, _, err := h.Attribute(ctx, "type")
		if err != nil {
			return false, err
		}
		if strings.EqualFold(typ, "radio") {
			return true, selectRadio(ctx, e.src, value)
		}
	}
	return false, nil
}

// SelectOptionByValue selects the options of a <select> whose value
// attribute is value. A single select only gets the first one.
func (e *Element) SelectOptionByValue(ctx context.Context, value string) error {
	return e.act(ctx, "select option by value", []any{value}, func(ctx context.Context, h Handle) error {
		return selectOptions(ctx, h, optionWithValue(value), "with value: "+value)
	})
}

// SelectOptionContainingText selects the options of a <select> whose
// whitespace-normalized text contains text. A single select only gets the
// first one.
func (e *Element) SelectOptionContainingText(ctx context.Context, text string) error {
	return e.act(ctx, "select option containing text", []any{text}, func(ctx context.Context, h Handle) error {
		return selectOptions(ctx, h, optionContaining(text), "containing text: "+text)
	})
}

// SelectRadio clicks the radio button with the given value among every
// element the reference matches, e.g. $("input[name=size]").
func (e *Element) SelectRadio(ctx context.Context, value string) error {
	return e.act(ctx, "select radio", []any{value}, func(ctx context.Context, _ Handle) error {
		return selectRadio(ctx, e.src, value)
	})
}

// Press sends special keys to the element.
func (e *Element) Press(ctx context.Context, keys ...Key) error {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k.Name()
	}
	return e.act(ctx, "press", args, func(ctx context.Context, h Handle) error {
		return h.SendKeys(ctx, joinKeys(keys))
	})
}

// Should waits until every condition holds.
func (e *Element) Should(ctx context.Context, conds ...Condition) error {
	return e.should(ctx, "should", conds, false)
}

// ShouldBe is Should, worded for state conditions such as Visible.
func (e *Element) ShouldBe(ctx context.Context, conds ...Condition) error {
	return e.should(ctx, "should be", conds, false)
}

// ShouldHave is Should, worded for value conditions such as Text.
func (e *Element) ShouldHave(ctx context.Context, conds ...Condition) error {
	return e.should(ctx, "should have", conds, false)
}

// ShouldNot waits until no condition holds.
func (e *Element) ShouldNot(ctx context.Context, conds ...Condition) error {
	return e.should(ctx, "should not", conds, true)
}

// ShouldNotBe is ShouldNot, worded for state conditions.
func (e *Element) ShouldNotBe(ctx context.Context, conds ...Condition) error {
	return e.should(ctx, "should not be", conds, true)
}

// ShouldNotHave is ShouldNot, worded for value conditions.
func (e *Element) ShouldNotHave(ctx context.Context, conds ...Condition) error {
	return e.should(ctx, "should not have", conds, true)
}

// WaitUntil waits for cond with optional per-call timing. Unlike Should it
// is never softened.
func (e *Element) WaitUntil(ctx context.Context, cond Condition, wopts ...WaitOption) error {
	return e.waitFor(ctx, "wait until", cond, wopts)
}

// WaitWhile waits until cond stops holding.
func (e *Element) WaitWhile(ctx context.Context, cond Condition, wopts ...WaitOption) error {
	return e.waitFor(ctx, "wait while", Not(cond), wopts)
}

func (e *Element) waitFor(ctx context.Context, verb string, cond Condition, wopts []WaitOption) error {
	if e.page.cfgErr != nil {
		return e.page.cfgErr
	}
	cfg := e.page.cfg
	timeout, interval, err := timing(cfg.Timeout, cfg.PollInterval, wopts)
	if err != nil {
		return err
	}
	return e.run(ctx, verb, []any{cond}, timeout, interval, cond, ErrConditionUnmet)
}

func (e *Element) should(ctx context.Context, verb string, conds []Condition, negate bool) error {
	if e.page.cfgErr != nil {
		return e.page.cfgErr
	}
	cfg := e.page.cfg

	args := make([]any, len(conds))
	for i, c := range conds {
		args[i] = c
	}
	ev := e.page.steps.BeginStep(e.String(), verb, args...)
	var err error
	for _, c := range conds {
		if negate {
			c = Not(c)
		}
		if err = e.poll(ctx, verb, cfg.Timeout, cfg.PollInterval, c, ErrConditionUnmet); err != nil {
			break
		}
	}
	e.page.steps.CommitStep(ev, err)
	return e.page.settle(err)
}

// act runs op against a freshly resolved element until it returns nil.
func (e *Element) act(ctx context.Context, verb string, args []any, op func(context.Context, Handle) error) error {
	if e.page.cfgErr != nil {
		return e.page.cfgErr
	}
	cfg := e.page.cfg
	return e.run(ctx, verb, args, cfg.Timeout, cfg.PollInterval, Condition{
		name: verb,
		check: func(ctx context.Context, h Handle) (bool, string, error) {
			if err := op(ctx, h); err != nil {
				return false, "", err
			}
			return true, "", nil
		},
	}, ErrActionFailed)
}

// run is one logged, waited call.
func (e *Element) run(ctx context.Context, verb string, args []any, timeout, interval time.Duration, cond Condition, unmet error) error {
	ev := e.page.steps.BeginStep(e.String(), verb, args...)
	err := e.poll(ctx, verb, timeout, interval, cond, unmet)
	e.page.steps.CommitStep(ev, err)
	return err
}

// poll resolves the element and evaluates cond until it holds.
func (e *Element) poll(ctx context.Context, verb string, timeout, interval time.Duration, cond Condition, unmet error) error {
	var last Handle
	w := e.page.waiter(timeout, interval)
	classify := w.classifier()
	res := w.Poll(func() Probe {
		h, err := e.src.ResolveOne(ctx)
		if err != nil {
			if cond.absent && classify(err) == Retry {
				return Probe{OK: true}
			}
			return Probe{Err: err}
		}
		last = h
		ok, actual, err := cond.check(ctx, h)
		return Probe{OK: ok, Observed: true, Actual: actual, Err: err}
	})

	f := failure{
		target:    e.String(),
		verb:      verb,
		condition: cond.String(),
		expected:  cond.expected,
		unmet:     unmet,
		timeout:   timeout,
		state: func() string {
			return describeHandle(ctx, last)
		},
	}
	if unmet == ErrActionFailed {
		f.condition = ""
	}
	return conclude(res, f)
}
