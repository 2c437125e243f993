// Package roddriver implements lookout.Session on top of go-rod.
package roddriver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/cboone/lookout"
)

// Session drives one rod page.
type Session struct {
	page *rod.Page
}

var _ lookout.Session = (*Session)(nil)

// New wraps page.
func New(page *rod.Page) *Session {
	return &Session{page: page}
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return mapError(err)
	}
	return mapError(p.WaitLoad())
}

// FindOne implements lookout.Session.
func (s *Session) FindOne(ctx context.Context, sel lookout.Selector) (lookout.Handle, error) {
	hs, err := s.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return nil, fmt.Errorf("roddriver: %s: %w", sel, lookout.ErrNoSuchElement)
	}
	return hs[0], nil
}

// FindAll implements lookout.Session.
func (s *Session) FindAll(ctx context.Context, sel lookout.Selector) ([]lookout.Handle, error) {
	return findAll(s.page.Context(ctx), sel)
}

// finder is implemented by both *rod.Page and *rod.Element.
type finder interface {
	Elements(selector string) (rod.Elements, error)
	ElementsX(xpath string) (rod.Elements, error)
}

func findAll(f finder, sel lookout.Selector) ([]lookout.Handle, error) {
	var (
		els rod.Elements
		err error
	)
	switch sel.Strategy {
	case lookout.ByCSS:
		els, err = f.Elements(sel.Value)
	case lookout.ByXPath:
		els, err = f.ElementsX(sel.Value)
	default:
		err = fmt.Errorf("strategy %s: %w", sel.Strategy, errors.ErrUnsupported)
	}
	if err != nil {
		return nil, fmt.Errorf("roddriver: %s: %w", sel, mapError(err))
	}
	hs := make([]lookout.Handle, len(els))
	for i, el := range els {
		hs[i] = &Element{el: el}
	}
	return hs, nil
}

// Element wraps a rod element. Every call checks that the node is still
// attached to the document.
type Element struct {
	el *rod.Element
}

var (
	_ lookout.Handle          = (*Element)(nil)
	_ lookout.Scope           = (*Element)(nil)
	_ lookout.EventDispatcher = (*Element)(nil)
)

// live returns the element bound to ctx, or a stale error once the node has
// left the document.
func (e *Element) live(ctx context.Context) (*rod.Element, error) {
	el := e.el.Context(ctx)
	res, err := el.Eval(`() => this.isConnected`)
	if err != nil {
		return nil, mapError(err)
	}
	if !res.Value.Bool() {
		return nil, fmt.Errorf("roddriver: node detached: %w", lookout.ErrStaleElement)
	}
	return el, nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	el, err := e.live(ctx)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	return text, mapError(err)
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	el, err := e.live(ctx)
	if err != nil {
		return false, err
	}
	shown, err := el.Visible()
	return shown, mapError(err)
}

// Attribute reads the live value property for "value" and the DOM
// attribute for everything else.
func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	el, err := e.live(ctx)
	if err != nil {
		return "", false, err
	}
	if name == "value" {
		v, err := el.Property(name)
		if err != nil {
			return "", false, mapError(err)
		}
		if !v.Nil() {
			return v.Str(), true, nil
		}
	}
	attr, err := el.Attribute(name)
	if err != nil {
		return "", false, mapError(err)
	}
	if attr == nil {
		return "", false, nil
	}
	return *attr, true, nil
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	el, err := e.live(ctx)
	if err != nil {
		return "", err
	}
	res, err := el.Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return "", mapError(err)
	}
	return res.Value.Str(), nil
}

const clearJS = `() => {
	if ("value" in this) this.value = "";
	else if (this.isContentEditable) this.textContent = "";
	this.dispatchEvent(new Event("input", {bubbles: true}));
	this.dispatchEvent(new Event("change", {bubbles: true}));
}`

func (e *Element) Clear(ctx context.Context) error {
	el, err := e.live(ctx)
	if err != nil {
		return err
	}
	_, err = el.Eval(clearJS)
	return mapError(err)
}

// FindAll implements lookout.Scope. XPath is evaluated relative to the
// element.
func (e *Element) FindAll(ctx context.Context, sel lookout.Selector) ([]lookout.Handle, error) {
	el, err := e.live(ctx)
	if err != nil {
		return nil, err
	}
	return findAll(el, sel)
}

// DispatchEvent implements lookout.EventDispatcher.
func (e *Element) DispatchEvent(ctx context.Context, name string) error {
	el, err := e.live(ctx)
	if err != nil {
		return err
	}
	_, err = el.Eval(`(name) => this.dispatchEvent(new Event(name, {bubbles: true}))`, name)
	return mapError(err)
}

// optionJS selects an <option> the way a user pick would leave it; an option
// of a closed dropdown has no box to click.
const optionJS = `() => {
	if (this.tagName !== "OPTION") return "";
	const s = this.closest("select");
	if (this.disabled || (s && s.disabled)) return "disabled";
	this.selected = true;
	if (s) {
		s.dispatchEvent(new Event("input", {bubbles: true}));
		s.dispatchEvent(new Event("change", {bubbles: true}));
	}
	return "selected";
}`

// Click scrolls the element into view and clicks a point inside it. Unlike
// rod's own Click it never waits for the element to become interactable.
// Options are selected directly.
func (e *Element) Click(ctx context.Context) error {
	el, err := e.live(ctx)
	if err != nil {
		return err
	}
	res, err := el.Eval(optionJS)
	if err != nil {
		return mapError(err)
	}
	switch res.Value.Str() {
	case "selected":
		return nil
	case "disabled":
		return fmt.Errorf("roddriver: click: disabled option: %w", lookout.ErrNotInteractable)
	}
	if err := el.ScrollIntoView(); err != nil {
		return mapError(err)
	}
	pt, err := el.Interactable()
	if err != nil {
		return mapError(err)
	}
	p := el.Page().Context(ctx)
	if err := p.Mouse.MoveTo(*pt); err != nil {
		return mapError(err)
	}
	return mapError(p.Mouse.Click(proto.InputMouseButtonLeft, 1))
}

// SendKeys focuses the element, inserts plain text and types special keys.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	el, err := e.live(ctx)
	if err != nil {
		return err
	}
	shown, err := el.Visible()
	if err != nil {
		return mapError(err)
	}
	if !shown {
		return fmt.Errorf("roddriver: send keys: %w", lookout.ErrNotInteractable)
	}
	if err := el.Focus(); err != nil {
		return mapError(err)
	}
	p := el.Page().Context(ctx)
	for _, part := range lookout.SplitKeys(text) {
		if k, ok := translateKey(part); ok {
			err = p.Keyboard.Type(k)
		} else {
			err = p.InsertText(part)
		}
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

// mapError translates rod failures into lookout's driver errors. Covered
// and shapeless elements unwrap to rod.NotInteractableError.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var (
		notFound    *rod.ElementNotFoundError
		objNotFound *rod.ObjectNotFoundError
		evalErr     *rod.EvalError
		notInter    *rod.NotInteractableError
		pageGone    *rod.PageNotFoundError
		cdpErr      *cdp.Error
	)
	switch {
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: %w", lookout.ErrNoSuchElement, err)
	case errors.As(err, &objNotFound):
		return fmt.Errorf("%w: %w", lookout.ErrStaleElement, err)
	case errors.As(err, &notInter):
		return fmt.Errorf("%w: %w", lookout.ErrNotInteractable, err)
	case errors.As(err, &pageGone):
		return fmt.Errorf("%w: %w", lookout.ErrEnvironment, err)
	case errors.As(err, &evalErr):
		if evalErr.RuntimeExceptionDetails != nil && evalErr.Exception != nil && invalidSelector(evalErr.Exception.Description) {
			return fmt.Errorf("%w: %w", lookout.ErrInvalidSelector, err)
		}
	case errors.As(err, &cdpErr):
		msg := cdpErr.Message
		switch {
		case invalidSelector(msg):
			return fmt.Errorf("%w: %w", lookout.ErrInvalidSelector, err)
		case strings.Contains(msg, "Could not find object with given id"),
			strings.Contains(msg, "Cannot find context with specified id"),
			strings.Contains(msg, "Execution context was destroyed"),
			strings.Contains(msg, "No node with given id"):
			return fmt.Errorf("%w: %w", lookout.ErrStaleElement, err)
		case strings.Contains(msg, "Session with given id not found"),
			strings.Contains(msg, "Not attached to an active page"):
			return fmt.Errorf("%w: %w", lookout.ErrEnvironment, err)
		}
	}
	return err
}

func invalidSelector(msg string) bool {
	return strings.Contains(msg, "is not a valid selector") ||
		strings.Contains(msg, "is not a valid XPath expression") ||
		strings.Contains(msg, "SyntaxError")
}

var keyMap = map[lookout.Key]input.Key{
	lookout.Backspace:  input.Backspace,
	lookout.Tab:        input.Tab,
	lookout.Enter:      input.Enter,
	lookout.Shift:      input.ShiftLeft,
	lookout.Control:    input.ControlLeft,
	lookout.Alt:        input.AltLeft,
	lookout.Escape:     input.Escape,
	lookout.Space:      input.Space,
	lookout.PageUp:     input.PageUp,
	lookout.PageDown:   input.PageDown,
	lookout.End:        input.End,
	lookout.Home:       input.Home,
	lookout.ArrowLeft:  input.ArrowLeft,
	lookout.ArrowUp:    input.ArrowUp,
	lookout.ArrowRight: input.ArrowRight,
	lookout.ArrowDown:  input.ArrowDown,
	lookout.Delete:     input.Delete,
	lookout.F1:         input.F1,
	lookout.F2:         input.F2,
	lookout.F3:         input.F3,
	lookout.F4:         input.F4,
	lookout.F5:         input.F5,
	lookout.F6:         input.F6,
	lookout.F7:         input.F7,
	lookout.F8:         input.F8,
	lookout.F9:         input.F9,
	lookout.F10:        input.F10,
	lookout.F11:        input.F11,
	lookout.F12:        input.F12,
}

// translateKey reports the rod key for a part holding a single special key.
func translateKey(part string) (input.Key, bool) {
	rs := []rune(part)
	if len(rs) != 1 {
		return 0, false
	}
	k, ok := lookout.KeyByRune(rs[0])
	if !ok {
		return 0, false
	}
	rk, ok := keyMap[k]
	return rk, ok
}
