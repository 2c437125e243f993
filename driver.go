package lookout

import (
	"context"
	"errors"
	"fmt"
)

// Session is the browser capability lookout drives. Implementations live in
// the driver adapter packages (chromedpdriver, roddriver, playwrightdriver,
// seleniumdriver) and must report failures using the sentinel errors below so
// that Classify can tell transient absence from permanent mistakes.
type Session interface {
	// FindOne returns the first element matching sel, or an error wrapping
	// ErrNoSuchElement when there is none.
	FindOne(ctx context.Context, sel Selector) (Handle, error)

	// FindAll returns every element matching sel in document order. Zero
	// matches is an empty slice and a nil error.
	FindAll(ctx context.Context, sel Selector) ([]Handle, error)
}

// Handle is a momentarily valid reference to one element. Any call may fail
// with ErrStaleElement once the page replaces the underlying node.
type Handle interface {
	Text(ctx context.Context) (string, error)
	Displayed(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	SendKeys(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	TagName(ctx context.Context) (string, error)
}

// Scope is implemented by handles that can search their own subtree.
// Option selection requires it.
type Scope interface {
	// FindAll returns the descendants matching sel in document order. XPath
	// selectors are evaluated relative to the element.
	FindAll(ctx context.Context, sel Selector) ([]Handle, error)
}

// EventDispatcher is implemented by handles that can fire DOM events.
// SetValue uses it to fire change after typing; handles without it skip the
// event.
type EventDispatcher interface {
	DispatchEvent(ctx context.Context, name string) error
}

// Driver errors. Adapters wrap their library's native errors with these so
// callers can match them with errors.Is.
var (
	ErrNoSuchElement   = errors.New("no such element")
	ErrStaleElement    = errors.New("stale element reference")
	ErrNotInteractable = errors.New("element not interactable")
	ErrInvalidSelector = errors.New("invalid selector")
)

// Strategy selects how a Selector value is interpreted.
type Strategy int

// Selector strategies.
const (
	ByCSS Strategy = iota
	ByXPath
)

func (s Strategy) String() string {
	switch s {
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Selector is a driver query.
type Selector struct {
	Strategy Strategy
	Value    string
}

// CSS returns a CSS selector.
func CSS(value string) Selector {
	return Selector{Strategy: ByCSS, Value: value}
}

// XPath returns an XPath selector.
func XPath(value string) Selector {
	return Selector{Strategy: ByXPath, Value: value}
}

func (s Selector) String() string {
	if s.Strategy == ByCSS {
		return s.Value
	}
	return "By." + s.Strategy.String() + ": " + s.Value
}
