package playwrightdriver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cboone/lookout"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"closed", fmt.Errorf("%w: page closed", playwright.ErrTargetClosed), lookout.ErrEnvironment},
		{"detached", errors.New("Element is not attached to the DOM"), lookout.ErrStaleElement},
		{"guard", errors.New("Error: " + staleMarker), lookout.ErrStaleElement},
		{"bad css", errors.New("SyntaxError: 'li[' is not a valid selector"), lookout.ErrInvalidSelector},
		{"bad engine", errors.New("Failed to parse selector \"xpath=//[\""), lookout.ErrInvalidSelector},
		{"covered", errors.New("<div id=modal> intercepts pointer events"), lookout.ErrNotInteractable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			require.ErrorIs(t, got, tt.want)
			require.ErrorIs(t, got, tt.err)
		})
	}
}

func TestMapErrorPassesThrough(t *testing.T) {
	assert.NoError(t, mapError(nil))

	other := errors.New("something else")
	assert.Same(t, other, mapError(other))
}

func TestSelector(t *testing.T) {
	q, err := selector(lookout.CSS("li.item"))
	require.NoError(t, err)
	assert.Equal(t, "css=li.item", q)

	q, err = selector(lookout.XPath("//li"))
	require.NoError(t, err)
	assert.Equal(t, "xpath=//li", q)

	_, err = selector(lookout.Selector{Strategy: lookout.Strategy(9), Value: "x"})
	require.ErrorIs(t, err, errors.ErrUnsupported)
}

func TestKeyName(t *testing.T) {
	name, ok := keyName(string(lookout.Enter))
	require.True(t, ok)
	assert.Equal(t, "Enter", name)

	name, ok = keyName(string(lookout.Space))
	require.True(t, ok)
	assert.Equal(t, " ", name)

	_, ok = keyName("abc")
	assert.False(t, ok)
}

func TestDecodePair(t *testing.T) {
	v, ok, err := decodePair([]any{true, "x"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok, err = decodePair([]any{false, ""})
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = decodePair("nope")
	assert.Error(t, err)
}

func TestCancelledContext(t *testing.T) {
	s := &Session{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FindAll(ctx, lookout.CSS("li"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, lookout.Propagate, lookout.Classify(err))

	el := &Element{session: s}
	_, err = el.FindAll(ctx, lookout.XPath(".//option"))
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, el.DispatchEvent(ctx, "change"), context.Canceled)
	require.ErrorIs(t, el.Click(ctx), context.Canceled)
}

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

// TestSessionAgainstBrowser needs an installed playwright driver and
// LOOKOUT_PLAYWRIGHT=1.
func TestSessionAgainstBrowser(t *testing.T) {
	if os.Getenv("LOOKOUT_PLAYWRIGHT") == "" {
		t.Skip("set LOOKOUT_PLAYWRIGHT=1 to run against a real browser")
	}
	pw, err := playwright.Run()
	require.NoError(t, err)
	t.Cleanup(func() { _ = pw.Stop() })

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(true)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = browser.Close() })

	pg, err := browser.NewPage()
	require.NoError(t, err)
	require.NoError(t, pg.SetContent(fixture))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	page := lookout.New(New(pg), lookout.WithTimeout(5*time.Second))
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
	require.NoError(t, size.SelectOptionByValue(ctx, "m"))
	require.NoError(t, size.ShouldHave(ctx, lookout.ExactValue("m")))
	require.NoError(t, picks.ShouldHave(ctx, lookout.AttributeValue("data-picked", "m")))
	require.NoError(t, page.Element(lookout.CSS("input[name=color]")).SelectRadio(ctx, "blue"))
	require.NoError(t, picks.ShouldHave(ctx, lookout.AttributeValue("data-picked", "blue")))

	require.NoError(t, page.Element(lookout.CSS("#go")).Click(ctx))
	require.NoError(t, page.Element(lookout.CSS("#go")).ShouldHave(ctx, lookout.ExactText("Clicked")))
}
