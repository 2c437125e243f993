// Package seleniumdriver implements lookout.Session on top of a W3C
// WebDriver client.
//
// WebDriver calls do not take a context; the driver checks ctx before each
// call. lookout's special keys share WebDriver's code points, so SendKeys
// text is passed through unchanged.
package seleniumdriver

import (
	"context"
	"errors"
	"fmt"

	"github.com/tebeka/selenium"

	"github.com/cboone/lookout"
)

// Session drives one WebDriver session.
type Session struct {
	wd selenium.WebDriver
}

var _ lookout.Session = (*Session)(nil)

// New wraps wd. The implicit wait is switched off so that lookout's own
// polling decides how long to wait.
func New(wd selenium.WebDriver) (*Session, error) {
	if err := wd.SetImplicitWaitTimeout(0); err != nil {
		return nil, fmt.Errorf("seleniumdriver: reset implicit wait: %w", mapError(err))
	}
	return &Session{wd: wd}, nil
}

// Dial opens a session on the WebDriver server at url.
func Dial(url string, caps selenium.Capabilities) (*Session, error) {
	wd, err := selenium.NewRemote(caps, url)
	if err != nil {
		return nil, fmt.Errorf("seleniumdriver: new session: %w: %w", lookout.ErrEnvironment, err)
	}
	return New(wd)
}

// Quit ends the WebDriver session.
func (s *Session) Quit() error {
	return s.wd.Quit()
}

// Navigate loads url.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(s.wd.Get(url))
}

func by(sel lookout.Selector) (string, error) {
	switch sel.Strategy {
	case lookout.ByCSS:
		return selenium.ByCSSSelector, nil
	case lookout.ByXPath:
		return selenium.ByXPATH, nil
	default:
		return "", fmt.Errorf("seleniumdriver: strategy %s: %w", sel.Strategy, errors.ErrUnsupported)
	}
}

// FindOne implements lookout.Session.
func (s *Session) FindOne(ctx context.Context, sel lookout.Selector) (lookout.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	using, err := by(sel)
	if err != nil {
		return nil, err
	}
	we, err := s.wd.FindElement(using, sel.Value)
	if err != nil {
		return nil, fmt.Errorf("seleniumdriver: %s: %w", sel, mapError(err))
	}
	return &Element{wd: s.wd, we: we}, nil
}

// FindAll implements lookout.Session.
func (s *Session) FindAll(ctx context.Context, sel lookout.Selector) ([]lookout.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	using, err := by(sel)
	if err != nil {
		return nil, err
	}
	wes, err := s.wd.FindElements(using, sel.Value)
	if err != nil {
		return nil, fmt.Errorf("seleniumdriver: %s: %w", sel, mapError(err))
	}
	return wrap(s.wd, wes), nil
}

func wrap(wd selenium.WebDriver, wes []selenium.WebElement) []lookout.Handle {
	hs := make([]lookout.Handle, len(wes))
	for i, we := range wes {
		hs[i] = &Element{wd: wd, we: we}
	}
	return hs
}

// Element wraps a WebDriver element reference.
type Element struct {
	wd selenium.WebDriver
	we selenium.WebElement
}

var (
	_ lookout.Handle          = (*Element)(nil)
	_ lookout.Scope           = (*Element)(nil)
	_ lookout.EventDispatcher = (*Element)(nil)
)

// FindAll implements lookout.Scope.
func (e *Element) FindAll(ctx context.Context, sel lookout.Selector) ([]lookout.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	using, err := by(sel)
	if err != nil {
		return nil, err
	}
	wes, err := e.we.FindElements(using, sel.Value)
	if err != nil {
		return nil, fmt.Errorf("seleniumdriver: %s: %w", sel, mapError(err))
	}
	return wrap(e.wd, wes), nil
}

const dispatchJS = `arguments[0].dispatchEvent(new Event(arguments[1], {bubbles: true}));`

// DispatchEvent implements lookout.EventDispatcher.
func (e *Element) DispatchEvent(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.wd.ExecuteScript(dispatchJS, []interface{}{e.we, name})
	return mapError(err)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.we.Text()
	return text, mapError(err)
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	shown, err := e.we.IsDisplayed()
	return shown, mapError(err)
}

// errNilValue is how the client reports a null attribute.
const errNilValue = "nil return value"

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, err := e.we.GetAttribute(name)
	if err != nil {
		if err.Error() == errNilValue {
			return "", false, nil
		}
		return "", false, mapError(err)
	}
	return v, true, nil
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tag, err := e.we.TagName()
	return tag, mapError(err)
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.we.Click())
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.we.SendKeys(text))
}

func (e *Element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(e.we.Clear())
}

// mapError translates WebDriver error codes into lookout's driver errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var wdErr *selenium.Error
	if !errors.As(err, &wdErr) {
		return err
	}
	switch wdErr.Err {
	case "no such element":
		return fmt.Errorf("%w: %w", lookout.ErrNoSuchElement, err)
	case "stale element reference":
		return fmt.Errorf("%w: %w", lookout.ErrStaleElement, err)
	case "invalid selector":
		return fmt.Errorf("%w: %w", lookout.ErrInvalidSelector, err)
	case "element not interactable", "element click intercepted", "invalid element state":
		return fmt.Errorf("%w: %w", lookout.ErrNotInteractable, err)
	case "invalid session id", "no such window", "session not created":
		return fmt.Errorf("%w: %w", lookout.ErrEnvironment, err)
	}
	return err
}
