// Package playwrightdriver implements lookout.Session on top of
// playwright-go.
//
// Playwright calls do not take a context. The driver checks ctx before each
// call and bounds actions with ActionTimeout instead.
package playwrightdriver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/cboone/lookout"
)

// DefaultActionTimeout bounds a single click or key press.
const DefaultActionTimeout = 500 * time.Millisecond

// Session drives one playwright page.
type Session struct {
	page playwright.Page

	// ActionTimeout bounds a single click. lookout retries failed actions,
	// so this should stay well below the page timeout.
	ActionTimeout time.Duration
}

var _ lookout.Session = (*Session)(nil)

// New wraps page.
func New(page playwright.Page) *Session {
	return &Session{page: page, ActionTimeout: DefaultActionTimeout}
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url)
	return mapError(err)
}

// FindOne implements lookout.Session.
func (s *Session) FindOne(ctx context.Context, sel lookout.Selector) (lookout.Handle, error) {
	hs, err := s.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return nil, fmt.Errorf("playwrightdriver: %s: %w", sel, lookout.ErrNoSuchElement)
	}
	return hs[0], nil
}

// FindAll implements lookout.Session.
func (s *Session) FindAll(ctx context.Context, sel lookout.Selector) ([]lookout.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := selector(sel)
	if err != nil {
		return nil, err
	}
	els, err := s.page.QuerySelectorAll(q)
	if err != nil {
		return nil, fmt.Errorf("playwrightdriver: %s: %w", sel, mapError(err))
	}
	return s.wrap(els), nil
}

func (s *Session) wrap(els []playwright.ElementHandle) []lookout.Handle {
	hs := make([]lookout.Handle, len(els))
	for i, el := range els {
		hs[i] = &Element{session: s, el: el}
	}
	return hs
}

// selector renders sel in playwright's selector syntax.
func selector(sel lookout.Selector) (string, error) {
	switch sel.Strategy {
	case lookout.ByCSS:
		return "css=" + sel.Value, nil
	case lookout.ByXPath:
		return "xpath=" + sel.Value, nil
	default:
		return "", fmt.Errorf("playwrightdriver: strategy %s: %w", sel.Strategy, errors.ErrUnsupported)
	}
}

// Element wraps a playwright element handle.
type Element struct {
	session *Session
	el      playwright.ElementHandle
}

var (
	_ lookout.Handle          = (*Element)(nil)
	_ lookout.Scope           = (*Element)(nil)
	_ lookout.EventDispatcher = (*Element)(nil)
)

const (
	staleMarker = "lookout: stale element"
	guard       = `if (!e.isConnected) throw new Error("` + staleMarker + `");`

	textJS      = `e => {` + guard + ` return e.innerText ?? e.textContent ?? ""; }`
	tagJS       = `e => {` + guard + ` return e.tagName.toLowerCase(); }`
	displayedJS = `e => {` + guard + `
		const s = window.getComputedStyle(e);
		if (s.visibility === "hidden" || s.display === "none") return false;
		return e.getClientRects().length > 0;
	}`
	attributeJS = `(e, name) => {` + guard + `
		if (name === "value" && "value" in e) return [true, String(e.value)];
		if (!e.hasAttribute(name)) return [false, ""];
		return [true, e.getAttribute(name)];
	}`
	clearJS = `e => {` + guard + `
		if ("value" in e) e.value = "";
		else if (e.isContentEditable) e.textContent = "";
		e.dispatchEvent(new Event("input", {bubbles: true}));
		e.dispatchEvent(new Event("change", {bubbles: true}));
	}`
	connectedJS = `e => e.isConnected`
	dispatchJS  = `(e, name) => {` + guard + ` e.dispatchEvent(new Event(name, {bubbles: true})); }`
	// An option inside a closed dropdown has no box to click, so it is
	// selected the way a user pick would leave it.
	optionJS = `e => {` + guard + `
		if (e.tagName !== "OPTION") return "";
		const s = e.closest("select");
		if (e.disabled || (s && s.disabled)) return "disabled";
		e.selected = true;
		if (s) {
			s.dispatchEvent(new Event("input", {bubbles: true}));
			s.dispatchEvent(new Event("change", {bubbles: true}));
		}
		return "selected";
	}`
)

func (e *Element) eval(ctx context.Context, js string, arg ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := e.el.Evaluate(js, arg...)
	return v, mapError(err)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	v, err := e.eval(ctx, textJS)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	v, err := e.eval(ctx, displayedJS)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.eval(ctx, attributeJS, name)
	if err != nil {
		return "", false, err
	}
	return decodePair(v)
}

// decodePair reads the [found, value] array returned by attributeJS.
func decodePair(v any) (string, bool, error) {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return "", false, fmt.Errorf("playwrightdriver: unexpected attribute result %v", v)
	}
	found, _ := pair[0].(bool)
	value, _ := pair[1].(string)
	return value, found, nil
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	v, err := e.eval(ctx, tagJS)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (e *Element) Clear(ctx context.Context) error {
	_, err := e.eval(ctx, clearJS)
	return err
}

// connected reports a stale error once the node has left the document.
func (e *Element) connected(ctx context.Context) error {
	v, err := e.eval(ctx, connectedJS)
	if err != nil {
		return err
	}
	if ok, _ := v.(bool); !ok {
		return fmt.Errorf("playwrightdriver: node detached: %w", lookout.ErrStaleElement)
	}
	return nil
}

func (e *Element) timeout() *float64 {
	return playwright.Float(float64(e.session.ActionTimeout.Milliseconds()))
}

// FindAll implements lookout.Scope. XPath is evaluated relative to the
// element.
func (e *Element) FindAll(ctx context.Context, sel lookout.Selector) ([]lookout.Handle, error) {
	if err := e.connected(ctx); err != nil {
		return nil, err
	}
	q, err := selector(sel)
	if err != nil {
		return nil, err
	}
	els, err := e.el.QuerySelectorAll(q)
	if err != nil {
		return nil, fmt.Errorf("playwrightdriver: %s: %w", sel, mapError(err))
	}
	return e.session.wrap(els), nil
}

// DispatchEvent implements lookout.EventDispatcher.
func (e *Element) DispatchEvent(ctx context.Context, name string) error {
	_, err := e.eval(ctx, dispatchJS, name)
	return err
}

// Click waits at most ActionTimeout for the element to become actionable.
// Options are selected directly.
func (e *Element) Click(ctx context.Context) error {
	v, err := e.eval(ctx, optionJS)
	if err != nil {
		return err
	}
	switch v {
	case "selected":
		return nil
	case "disabled":
		return fmt.Errorf("playwrightdriver: click: disabled option: %w", lookout.ErrNotInteractable)
	}
	err = e.el.Click(playwright.ElementHandleClickOptions{Timeout: e.timeout()})
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("playwrightdriver: click: %w: %w", lookout.ErrNotInteractable, err)
	}
	return mapError(err)
}

// SendKeys focuses the element, inserts plain text and presses special keys
// by name.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	shown, err := e.Displayed(ctx)
	if err != nil {
		return err
	}
	if !shown {
		return fmt.Errorf("playwrightdriver: send keys: %w", lookout.ErrNotInteractable)
	}
	if err := e.el.Focus(); err != nil {
		return mapError(err)
	}
	kb := e.session.page.Keyboard()
	for _, part := range lookout.SplitKeys(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if name, ok := keyName(part); ok {
			err = kb.Press(name)
		} else {
			err = kb.InsertText(part)
		}
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

// keyName reports the playwright key name for a part holding a single
// special key. Playwright names keys the way lookout does.
func keyName(part string) (string, bool) {
	rs := []rune(part)
	if len(rs) != 1 {
		return "", false
	}
	k, ok := lookout.KeyByRune(rs[0])
	if !ok {
		return "", false
	}
	if k == lookout.Space {
		return " ", true
	}
	return k.Name(), true
}

// mapError translates playwright failures into lookout's driver errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTargetClosed) {
		return fmt.Errorf("%w: %w", lookout.ErrEnvironment, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, staleMarker),
		strings.Contains(msg, "Element is not attached to the DOM"),
		strings.Contains(msg, "JSHandle is disposed"),
		strings.Contains(msg, "Execution context was destroyed"):
		return fmt.Errorf("%w: %w", lookout.ErrStaleElement, err)
	case strings.Contains(msg, "is not a valid selector"),
		strings.Contains(msg, "Unexpected token"),
		strings.Contains(msg, "is not a valid XPath expression"),
		strings.Contains(msg, "Failed to parse selector"):
		return fmt.Errorf("%w: %w", lookout.ErrInvalidSelector, err)
	case strings.Contains(msg, "Element is not visible"),
		strings.Contains(msg, "Element is outside of the viewport"),
		strings.Contains(msg, "intercepts pointer events"):
		return fmt.Errorf("%w: %w", lookout.ErrNotInteractable, err)
	}
	return err
}
