package fakedriver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cboone/lookout"
)

// Method names accepted by Element.FailNext.
const (
	MethodText      = "text"
	MethodDisplayed = "displayed"
	MethodClick     = "click"
	MethodAttribute = "attribute"
	MethodSendKeys  = "sendKeys"
	MethodClear     = "clear"
	MethodTagName   = "tagName"
	MethodFindAll   = "findAll"
	MethodDispatch  = "dispatchEvent"
)

// Element is a scripted element. It is safe for concurrent use.
type Element struct {
	mu     sync.Mutex
	tag    string
	text   string
	attrs  map[string]string
	hidden bool
	stale  bool
	errs   map[string][]error
	clicks int
	keys   []string
	events []string
	kids   map[lookout.Selector][]*Element
}

var (
	_ lookout.Handle          = (*Element)(nil)
	_ lookout.Scope           = (*Element)(nil)
	_ lookout.EventDispatcher = (*Element)(nil)
)

// NewElement returns a visible element. attrs are name/value pairs.
func NewElement(tag, text string, attrs ...string) *Element {
	el := &Element{
		tag:   tag,
		text:  text,
		attrs: make(map[string]string),
		errs:  make(map[string][]error),
		kids:  make(map[lookout.Selector][]*Element),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		el.attrs[attrs[i]] = attrs[i+1]
	}
	return el
}

// Texts returns one <li> element per text, the common fixture for
// collection tests.
func Texts(texts ...string) []*Element {
	els := make([]*Element, len(texts))
	for i, t := range texts {
		els[i] = NewElement("li", t)
	}
	return els
}

// SetText changes the element text.
func (e *Element) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = text
}

// SetHidden changes whether the element is displayed.
func (e *Element) SetHidden(hidden bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hidden = hidden
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
}

// RemoveAttr removes an attribute.
func (e *Element) RemoveAttr(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.attrs, name)
}

// SetChildren replaces the descendants FindAll returns for sel.
func (e *Element) SetChildren(sel lookout.Selector, els ...*Element) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.kids[sel] = els
}

// Events returns the names of every dispatched event, in order.
func (e *Element) Events() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

// MarkStale makes every later call fail with lookout.ErrStaleElement, as if
// the page had replaced the node.
func (e *Element) MarkStale() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stale = true
}

// FailNext queues errors returned by the next calls of method.
func (e *Element) FailNext(method string, errs ...error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs[method] = append(e.errs[method], errs...)
}

// Clicks returns how many clicks succeeded.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Keys returns every SendKeys payload that succeeded, in order.
func (e *Element) Keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]string, len(e.keys))
	copy(cp, e.keys)
	return cp
}

// Value returns the value attribute.
func (e *Element) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attrs["value"]
}

// begin locks the element and returns the queued or stale error for method.
// The caller must unlock.
func (e *Element) begin(ctx context.Context, method string) error {
	e.mu.Lock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.stale {
		return fmt.Errorf("fakedriver: %s: %w", method, lookout.ErrStaleElement)
	}
	if q := e.errs[method]; len(q) > 0 {
		e.errs[method] = q[1:]
		return q[0]
	}
	return nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	defer e.mu.Unlock()
	if err := e.begin(ctx, MethodText); err != nil {
		return "", err
	}
	if e.hidden {
		return "", nil
	}
	return e.text, nil
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	defer e.mu.Unlock()
	if err := e.begin(ctx, MethodDisplayed); err != nil {
		return false, err
	}
	return !e.hidden, nil
}

func (e *Element) Click(ctx context.Context) error {
	defer e.mu.Unlock()
	if err := e.begin(ctx, MethodClick); err != nil {
		return err
	}
	if e.hidden {
		return fmt.Errorf("fakedriver: click: %w", lookout.ErrNotInteractable)
	}
	e.clicks++
	return nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	defer e.mu.Unlock()
	if err := e.begin(ctx, MethodAttribute); err != nil {
		return "", false, err
	}
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	defer e.mu.Unlock()
	if err := e.begin(ctx, MethodSendKeys); err != nil {
		return err
	}
	if e.hidden {
		return fmt.Errorf("fakedriver: send keys: %w", lookout.ErrNotInteractable)
	}
	e.keys = append(e.keys, text)
	var plain strings.Builder
	for _, part := range lookout.SplitKeys(text) {
		if _, ok := lookout.KeyByRune([]rune(part)[0]); !ok {
			plain.WriteString(part)
		}
	}
	e.attrs["value"] += plain.String()
	return nil
}

func (e *Element) Clear(ctx context.Context) error {
	defer e.mu.Unlock()
	if err := e.begin(ctx, MethodClear); err != nil {
		return err
	}
	e.attrs["value"] = ""
	return nil
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	defer e.mu.Unlock()
	if err := e.begin(ctx, MethodTagName); err != nil {
		return "", err
	}
	return e.tag, nil
}

// FindAll implements lookout.Scope.
func (e *Element) FindAll(ctx context.Context, sel lookout.Selector) ([]lookout.Handle, error) {
	defer e.mu.Unlock()
	if err := e.begin(ctx, MethodFindAll); err != nil {
		return nil, err
	}
	hs := make([]lookout.Handle, len(e.kids[sel]))
	for i, el := range e.kids[sel] {
		hs[i] = el
	}
	return hs, nil
}

// DispatchEvent implements lookout.EventDispatcher.
func (e *Element) DispatchEvent(ctx context.Context, name string) error {
	defer e.mu.Unlock()
	if err := e.begin(ctx, MethodDispatch); err != nil {
		return err
	}
	e.events = append(e.events, name)
	return nil
}
