package seleniumdriver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tebeka/selenium"

	"github.com/cboone/lookout"
)

// stubDriver answers finds from a fixed table. Methods it does not override
// panic through the nil embedded interface.
type stubDriver struct {
	selenium.WebDriver
	found    map[string][]selenium.WebElement
	implicit time.Duration
	calls    int
	events   []any
}

func (d *stubDriver) ExecuteScript(script string, args []interface{}) (interface{}, error) {
	if script == dispatchJS && len(args) == 2 {
		d.events = append(d.events, args[1])
	}
	return nil, nil
}

func (d *stubDriver) SetImplicitWaitTimeout(t time.Duration) error {
	d.implicit = t
	return nil
}

func (d *stubDriver) FindElement(by, value string) (selenium.WebElement, error) {
	d.calls++
	if by == selenium.ByCSSSelector && value == "li[" {
		return nil, &selenium.Error{Err: "invalid selector", Message: "bad css"}
	}
	els := d.found[by+" "+value]
	if len(els) == 0 {
		return nil, &selenium.Error{Err: "no such element", Message: value}
	}
	return els[0], nil
}

func (d *stubDriver) FindElements(by, value string) ([]selenium.WebElement, error) {
	d.calls++
	return d.found[by+" "+value], nil
}

type stubElement struct {
	selenium.WebElement
	tag    string
	text   string
	shown  bool
	attrs  map[string]string
	stale  bool
	typed  string
	clicks int
	kids   map[string][]selenium.WebElement
}

func (e *stubElement) check() error {
	if e.stale {
		return &selenium.Error{Err: "stale element reference", Message: "gone"}
	}
	return nil
}

func (e *stubElement) Text() (string, error) { return e.text, e.check() }
func (e *stubElement) IsDisplayed() (bool, error) { return e.shown, e.check() }
func (e *stubElement) TagName() (string, error) { return e.tag, e.check() }
func (e *stubElement) Click() error {
	e.clicks++
	return e.check()
}

func (e *stubElement) FindElements(by, value string) ([]selenium.WebElement, error) {
	return e.kids[by+" "+value], e.check()
}
func (e *stubElement) Clear() error {
	e.typed = ""
	return e.check()
}

func (e *stubElement) SendKeys(keys string) error {
	e.typed += keys
	return e.check()
}

func (e *stubElement) GetAttribute(name string) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	v, ok := e.attrs[name]
	if !ok {
		return "", errors.New(errNilValue)
	}
	return v, nil
}

type instantClock struct{ now time.Time }

func (c *instantClock) Now() time.Time { return c.now }
func (c *instantClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

func newPage(t *testing.T, d *stubDriver) *lookout.Page {
	t.Helper()
	d.implicit = time.Minute
	s, err := New(d)
	require.NoError(t, err)
	require.Zero(t, d.implicit)
	return lookout.New(s,
		lookout.WithClock(&instantClock{}),
		lookout.WithTimeout(time.Second),
		lookout.WithPollInterval(100*time.Millisecond),
		lookout.WithCollectionsTimeout(time.Second),
		lookout.WithCollectionsPollInterval(100*time.Millisecond),
	)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"no such element", lookout.ErrNoSuchElement},
		{"stale element reference", lookout.ErrStaleElement},
		{"invalid selector", lookout.ErrInvalidSelector},
		{"element not interactable", lookout.ErrNotInteractable},
		{"element click intercepted", lookout.ErrNotInteractable},
		{"invalid session id", lookout.ErrEnvironment},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := &selenium.Error{Err: tt.code, Message: "details"}
			got := mapError(err)
			require.ErrorIs(t, got, tt.want)
			require.ErrorIs(t, got, err)
		})
	}
}

func TestMapErrorPassesThrough(t *testing.T) {
	assert.NoError(t, mapError(nil))

	other := errors.New("connection refused")
	assert.Same(t, other, mapError(other))

	unknown := &selenium.Error{Err: "unknown error", Message: "boom"}
	assert.Same(t, unknown, mapError(unknown))
}

func TestBy(t *testing.T) {
	using, err := by(lookout.CSS("li"))
	require.NoError(t, err)
	assert.Equal(t, selenium.ByCSSSelector, using)

	using, err = by(lookout.XPath("//li"))
	require.NoError(t, err)
	assert.Equal(t, selenium.ByXPATH, using)
}

func TestSessionThroughPage(t *testing.T) {
	ctx := context.Background()
	name := &stubElement{tag: "input", shown: true, attrs: map[string]string{"value": "old", "id": "name"}}
	d := &stubDriver{found: map[string][]selenium.WebElement{
		"css selector #name": {name},
		"css selector li": {
			&stubElement{tag: "li", text: "One", shown: true},
			&stubElement{tag: "li", text: "Two"},
			&stubElement{tag: "li", text: "Three", shown: true},
		},
	}}
	page := newPage(t, d)

	require.NoError(t, page.Elements(lookout.CSS("li")).ShouldHave(ctx, lookout.Size(3)))
	require.NoError(t, page.Elements(lookout.CSS("li")).Filter(lookout.Visible).ShouldHave(ctx, lookout.ExactTexts("One", "Three")))

	el := page.Element(lookout.CSS("#name"))
	require.NoError(t, el.ShouldHave(ctx, lookout.Attribute("id")))
	require.NoError(t, el.ShouldNotHave(ctx, lookout.Attribute("title")))
	require.NoError(t, el.Press(ctx, lookout.Enter))
	assert.Equal(t, string(lookout.Enter), name.typed)
}

func TestSelectAndChangeEvent(t *testing.T) {
	ctx := context.Background()
	opt := &stubElement{tag: "option", shown: true, attrs: map[string]string{"value": "m"}}
	sel := &stubElement{tag: "select", shown: true, attrs: map[string]string{}, kids: map[string][]selenium.WebElement{
		selenium.ByXPATH + ` .//option[@value = "m"]`: {opt},
	}}
	name := &stubElement{tag: "input", shown: true, attrs: map[string]string{"value": ""}}
	d := &stubDriver{found: map[string][]selenium.WebElement{
		"css selector #size": {sel},
		"css selector #name": {name},
	}}
	page := newPage(t, d)

	require.NoError(t, page.Element(lookout.CSS("#size")).SelectOptionByValue(ctx, "m"))
	assert.Equal(t, 1, opt.clicks)

	require.NoError(t, page.Element(lookout.CSS("#name")).SetValue(ctx, "Ann"))
	assert.Equal(t, "Ann", name.typed)
	assert.Equal(t, []any{"change"}, d.events)
}

func TestStaleElementIsRetried(t *testing.T) {
	ctx := context.Background()
	el := &stubElement{tag: "p", text: "hi", shown: true, stale: true}
	d := &stubDriver{found: map[string][]selenium.WebElement{"css selector p": {el}}}
	page := newPage(t, d)

	err := page.Element(lookout.CSS("p")).ShouldHave(ctx, lookout.Text("hi"))
	require.ErrorIs(t, err, lookout.ErrConditionUnmet)
	assert.Greater(t, d.calls, 1)
}

func TestInvalidSelectorAborts(t *testing.T) {
	d := &stubDriver{}
	page := newPage(t, d)

	err := page.Element(lookout.CSS("li[")).ShouldBe(context.Background(), lookout.Visible)
	var iq *lookout.InvalidQueryError
	require.ErrorAs(t, err, &iq)
	assert.Equal(t, 1, d.calls)
}

func TestCancelledContext(t *testing.T) {
	s := &Session{wd: &stubDriver{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FindOne(ctx, lookout.CSS("p"))
	require.ErrorIs(t, err, context.Canceled)
}
