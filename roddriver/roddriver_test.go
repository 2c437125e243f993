package roddriver

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cboone/lookout"
)

var withRod = flag.String("with-rod", "", "The control url of a running browser")

func TestMapError(t *testing.T) {
	badCSS := &rod.EvalError{RuntimeExceptionDetails: &proto.RuntimeExceptionDetails{
		Exception: &proto.RuntimeRemoteObject{Description: "SyntaxError: Failed to execute 'querySelectorAll' on 'Document': 'li[' is not a valid selector."},
	}}
	modal := &rod.Element{Object: &proto.RuntimeRemoteObject{Description: "div#modal"}}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", &rod.ElementNotFoundError{}, lookout.ErrNoSuchElement},
		{"object gone", &rod.ObjectNotFoundError{}, lookout.ErrStaleElement},
		{"not interactable", &rod.NotInteractableError{}, lookout.ErrNotInteractable},
		{"covered", &rod.CoveredError{Element: modal}, lookout.ErrNotInteractable},
		{"invisible", fmt.Errorf("click: %w", &rod.InvisibleShapeError{Element: modal}), lookout.ErrNotInteractable},
		{"page gone", &rod.PageNotFoundError{}, lookout.ErrEnvironment},
		{"bad css", badCSS, lookout.ErrInvalidSelector},
		{"object id", &cdp.Error{Code: -32000, Message: "Could not find object with given id"}, lookout.ErrStaleElement},
		{"navigated", &cdp.Error{Code: -32000, Message: "Execution context was destroyed."}, lookout.ErrStaleElement},
		{"session", &cdp.Error{Code: -32001, Message: "Session with given id not found."}, lookout.ErrEnvironment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			require.ErrorIs(t, got, tt.want)
			assert.Contains(t, got.Error(), tt.err.Error())
		})
	}
}

func TestMapErrorPassesThrough(t *testing.T) {
	assert.NoError(t, mapError(nil))

	other := &cdp.Error{Code: -32601, Message: "method not found"}
	assert.Same(t, other, mapError(other))

	plain := &rod.EvalError{RuntimeExceptionDetails: &proto.RuntimeExceptionDetails{
		Exception: &proto.RuntimeRemoteObject{Description: "TypeError: x is undefined"},
	}}
	assert.Same(t, plain, mapError(plain))

	assert.Equal(t, lookout.Propagate, lookout.Classify(mapError(context.DeadlineExceeded)))
}

func TestTranslateKey(t *testing.T) {
	k, ok := translateKey(string(lookout.Enter))
	require.True(t, ok)
	assert.Equal(t, input.Enter, k)

	k, ok = translateKey(string(lookout.Control))
	require.True(t, ok)
	assert.Equal(t, input.ControlLeft, k)

	_, ok = translateKey("a")
	assert.False(t, ok)
	_, ok = translateKey("hello")
	assert.False(t, ok)
}

func TestKeyMapCoversEveryKey(t *testing.T) {
	for r := rune(0xe000); r <= 0xe03f; r++ {
		k, ok := lookout.KeyByRune(r)
		if !ok {
			continue
		}
		_, mapped := keyMap[k]
		assert.True(t, mapped, "key %s", k.Name())
	}
}

func newRemoteSession(t *testing.T) *Session {
	t.Helper()
	if *withRod == "" {
		t.Skip("no browser; run with -with-rod=ws://host:9222/devtools/browser/...")
	}
	browser := rod.New().ControlURL(*withRod)
	require.NoError(t, browser.Connect())
	t.Cleanup(func() { _ = browser.Close() })

	page, err := browser.Page(proto.TargetCreateTarget{})
	require.NoError(t, err)
	return New(page)
}

var (
	_ finder = (*rod.Page)(nil)
	_ finder = (*rod.Element)(nil)
)

const fixture = `<ul>
<li class="item">One</li>
<li class="item" style="display:none">Two</li>
<li class="item">Three</li>
</ul>
<input id="name" value="old" onchange="this.dataset.changed=this.value">
<button id="go" onclick="this.textContent='Clicked'">Go</button>
<form id="picks" onchange="this.dataset.picked=event.target.value">
<select id="size"><option value="s">Small</option><option value="m">Medium  size</option></select>
<input type="radio" name="color" value="red"><input type="radio" name="color" value="blue">
</form>`

func TestSessionAgainstBrowser(t *testing.T) {
	s := newRemoteSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, s.Navigate(ctx, "data:text/html,"+url.PathEscape(fixture)))

	page := lookout.New(s, lookout.WithTimeout(5*time.Second))
	items := page.Elements(lookout.CSS("li.item"))

	require.NoError(t, items.ShouldHave(ctx, lookout.Size(3)))
	require.NoError(t, items.Filter(lookout.Visible).ShouldHave(ctx, lookout.ExactTexts("One", "Three")))
	require.NoError(t, page.Elements(lookout.XPath("//li")).ShouldHave(ctx, lookout.Size(3)))

	name := page.Element(lookout.CSS("#name"))
	require.NoError(t, name.SetValue(ctx, "Alice"))
	require.NoError(t, name.ShouldHave(ctx, lookout.ExactValue("Alice")))
	require.NoError(t, name.ShouldHave(ctx, lookout.AttributeValue("data-changed", "Alice")))

	picks := page.Element(lookout.CSS("#picks"))
	size := page.Element(lookout.CSS("#size"))
	require.NoError(t, size.SelectOptionContainingText(ctx, "Medium size"))
	require.NoError(t, size.ShouldHave(ctx, lookout.ExactValue("m")))
	require.NoError(t, picks.ShouldHave(ctx, lookout.AttributeValue("data-picked", "m")))
	require.NoError(t, page.Element(lookout.CSS("input[name=color]")).SelectRadio(ctx, "blue"))
	require.NoError(t, picks.ShouldHave(ctx, lookout.AttributeValue("data-picked", "blue")))

	require.NoError(t, page.Element(lookout.CSS("#go")).Click(ctx))
	require.NoError(t, page.Element(lookout.CSS("#go")).ShouldHave(ctx, lookout.ExactText("Clicked")))

	var iq *lookout.InvalidQueryError
	err := page.Element(lookout.CSS("li[")).ShouldBe(ctx, lookout.Visible)
	require.ErrorAs(t, err, &iq)
}
