// Package chromedpdriver implements lookout.Session on top of chromedp.
//
// Elements are tracked by their DevTools backend node ID, which stays valid
// across document queries; a node removed from the page reports
// lookout.ErrStaleElement.
package chromedpdriver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/cboone/lookout"
)

// Session drives one chromedp tab.
type Session struct {
	tab context.Context
}

var _ lookout.Session = (*Session)(nil)

// New attaches to the tab held by a chromedp context, allocating the browser
// and tab if that has not happened yet.
func New(tab context.Context) (*Session, error) {
	if chromedp.FromContext(tab) == nil {
		return nil, fmt.Errorf("chromedpdriver: context has no chromedp data: %w", lookout.ErrEnvironment)
	}
	if err := chromedp.Run(tab); err != nil {
		return nil, fmt.Errorf("chromedpdriver: start browser: %w: %w", lookout.ErrEnvironment, err)
	}
	return &Session{tab: tab}, nil
}

// Navigate loads url in the tab and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.exec(ctx, func(ctx context.Context) error {
		return chromedp.Navigate(url).Do(ctx)
	})
}

// exec runs fn against the tab, honoring cancellation of both ctx and the
// tab itself.
func (s *Session) exec(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := s.tab.Err(); err != nil {
		return fmt.Errorf("chromedpdriver: tab closed: %w: %w", lookout.ErrEnvironment, err)
	}
	c := chromedp.FromContext(s.tab)
	if c.Target == nil {
		return fmt.Errorf("chromedpdriver: no target: %w", lookout.ErrEnvironment)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.tab, cancel)
	defer stop()
	return mapError(fn(cdp.WithExecutor(ctx, c.Target)))
}

// FindOne implements lookout.Session.
func (s *Session) FindOne(ctx context.Context, sel lookout.Selector) (lookout.Handle, error) {
	hs, err := s.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return nil, fmt.Errorf("chromedpdriver: %s: %w", sel, lookout.ErrNoSuchElement)
	}
	return hs[0], nil
}

// FindAll implements lookout.Session.
func (s *Session) FindAll(ctx context.Context, sel lookout.Selector) ([]lookout.Handle, error) {
	var hs []lookout.Handle
	err := s.exec(ctx, func(ctx context.Context) error {
		ids, err := query(ctx, sel)
		if err != nil {
			return err
		}
		hs = make([]lookout.Handle, len(ids))
		for i, id := range ids {
			hs[i] = &Element{session: s, id: id}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chromedpdriver: %s: %w", sel, err)
	}
	return hs, nil
}

func query(ctx context.Context, sel lookout.Selector) ([]cdp.BackendNodeID, error) {
	switch sel.Strategy {
	case lookout.ByCSS:
		root, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return nil, err
		}
		nodes, err := dom.QuerySelectorAll(root.NodeID, sel.Value).Do(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]cdp.BackendNodeID, 0, len(nodes))
		for _, n := range nodes {
			desc, err := dom.DescribeNode().WithNodeID(n).Do(ctx)
			if err != nil {
				return nil, err
			}
			ids = append(ids, desc.BackendNodeID)
		}
		return ids, nil
	case lookout.ByXPath:
		return queryXPath(ctx, sel.Value)
	default:
		return nil, fmt.Errorf("strategy %s: %w", sel.Strategy, errors.ErrUnsupported)
	}
}

// queryXPath evaluates expr with document.evaluate, so a malformed
// expression throws instead of matching nothing. Only element nodes are
// kept.
func queryXPath(ctx context.Context, expr string) ([]cdp.BackendNodeID, error) {
	js, err := xpathJS(expr)
	if err != nil {
		return nil, err
	}
	arr, exc, err := runtime.Evaluate(js).Do(ctx)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, exc
	}
	return nodeIDs(ctx, arr)
}

// nodeIDs reads the backend node IDs out of a remote array of elements and
// releases it.
func nodeIDs(ctx context.Context, arr *runtime.RemoteObject) ([]cdp.BackendNodeID, error) {
	if arr.ObjectID == "" {
		return nil, nil
	}
	defer runtime.ReleaseObject(arr.ObjectID).Do(ctx)

	props, _, _, exc, err := runtime.GetProperties(arr.ObjectID).WithOwnProperties(true).Do(ctx)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, exc
	}
	type indexed struct {
		at  int
		obj runtime.RemoteObjectID
	}
	var items []indexed
	for _, p := range props {
		i, err := strconv.Atoi(p.Name)
		if err != nil || p.Value == nil || p.Value.ObjectID == "" {
			continue
		}
		items = append(items, indexed{i, p.Value.ObjectID})
	}
	slices.SortFunc(items, func(a, b indexed) int { return a.at - b.at })

	ids := make([]cdp.BackendNodeID, 0, len(items))
	for _, it := range items {
		desc, err := dom.DescribeNode().WithObjectID(it.obj).Do(ctx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, desc.BackendNodeID)
	}
	return ids, nil
}

func xpathJS(expr string) (string, error) {
	lit, err := json.Marshal(expr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(() => {
		const r = document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		const out = [];
		for (let i = 0; i < r.snapshotLength; i++) {
			const n = r.snapshotItem(i);
			if (n.nodeType === Node.ELEMENT_NODE) out.push(n);
		}
		return out;
	})()`, lit), nil
}

// Element is a node in the tab, addressed by backend node ID.
type Element struct {
	session *Session
	id      cdp.BackendNodeID
}

var (
	_ lookout.Handle          = (*Element)(nil)
	_ lookout.Scope           = (*Element)(nil)
	_ lookout.EventDispatcher = (*Element)(nil)
)

// Scripts run with the element as this. Each one checks that the node is
// still attached.
const (
	staleMarker = "lookout: stale element"
	guard       = `if (!this.isConnected) throw new Error("` + staleMarker + `");`

	textJS      = `function() {` + guard + ` return this.innerText ?? this.textContent ?? ""; }`
	tagJS       = `function() {` + guard + ` return this.tagName.toLowerCase(); }`
	displayedJS = `function() {` + guard + `
		const s = window.getComputedStyle(this);
		if (s.visibility === "hidden" || s.display === "none") return false;
		return this.getClientRects().length > 0;
	}`
	attributeJS = `function(name) {` + guard + `
		if (name === "value" && "value" in this) return [true, String(this.value)];
		if (!this.hasAttribute(name)) return [false, ""];
		return [true, this.getAttribute(name)];
	}`
	clearJS = `function() {` + guard + `
		if ("value" in this) this.value = "";
		else if (this.isContentEditable) this.textContent = "";
		this.dispatchEvent(new Event("input", {bubbles: true}));
		this.dispatchEvent(new Event("change", {bubbles: true}));
	}`
	dispatchJS = `function(name) {` + guard + ` this.dispatchEvent(new Event(name, {bubbles: true})); }`
	// An option inside a closed dropdown has no box to click, so it is
	// selected the way a user pick would leave it.
	optionJS = `function() {` + guard + `
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
	findJS = `function(strategy, sel) {` + guard + `
		if (strategy === "css") return Array.from(this.querySelectorAll(sel));
		const r = document.evaluate(sel, this, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		const out = [];
		for (let i = 0; i < r.snapshotLength; i++) {
			const n = r.snapshotItem(i);
			if (n.nodeType === Node.ELEMENT_NODE) out.push(n);
		}
		return out;
	}`
)

// call runs fn on the element and decodes the returned value into out.
// args are encoded as JSON literals.
func (e *Element) call(ctx context.Context, fn string, out any, args ...any) error {
	return e.session.exec(ctx, func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.id).Do(ctx)
		if err != nil {
			return err
		}
		defer runtime.ReleaseObject(obj.ObjectID).Do(ctx)

		decl, err := bind(fn, args)
		if err != nil {
			return err
		}
		res, exc, err := runtime.CallFunctionOn(decl).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		if out == nil || len(res.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(res.Value), out)
	})
}

// bind wraps fn so that it is called with args.
func bind(fn string, args []any) (string, error) {
	if len(args) == 0 {
		return fn, nil
	}
	lits := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", err
		}
		lits[i] = string(b)
	}
	return fmt.Sprintf("function() { return (%s).call(this, %s); }", fn, strings.Join(lits, ", ")), nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.call(ctx, textJS, &text)
	return text, err
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	var shown bool
	err := e.call(ctx, displayedJS, &shown)
	return shown, err
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var pair [2]json.RawMessage
	if err := e.call(ctx, attributeJS, &pair, name); err != nil {
		return "", false, err
	}
	var (
		ok    bool
		value string
	)
	if err := json.Unmarshal(pair[0], &ok); err != nil {
		return "", false, err
	}
	if err := json.Unmarshal(pair[1], &value); err != nil {
		return "", false, err
	}
	return value, ok, nil
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	var tag string
	err := e.call(ctx, tagJS, &tag)
	return tag, err
}

func (e *Element) Clear(ctx context.Context) error {
	return e.call(ctx, clearJS, nil)
}

// DispatchEvent implements lookout.EventDispatcher.
func (e *Element) DispatchEvent(ctx context.Context, name string) error {
	return e.call(ctx, dispatchJS, nil, name)
}

// FindAll implements lookout.Scope.
func (e *Element) FindAll(ctx context.Context, sel lookout.Selector) ([]lookout.Handle, error) {
	var hs []lookout.Handle
	err := e.session.exec(ctx, func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.id).Do(ctx)
		if err != nil {
			return err
		}
		defer runtime.ReleaseObject(obj.ObjectID).Do(ctx)

		decl, err := bind(findJS, []any{sel.Strategy.String(), sel.Value})
		if err != nil {
			return err
		}
		arr, exc, err := runtime.CallFunctionOn(decl).WithObjectID(obj.ObjectID).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		ids, err := nodeIDs(ctx, arr)
		if err != nil {
			return err
		}
		hs = make([]lookout.Handle, len(ids))
		for i, id := range ids {
			hs[i] = &Element{session: e.session, id: id}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chromedpdriver: %s: %w", sel, err)
	}
	return hs, nil
}

// Click scrolls the element into view and clicks the center of its first
// content box. Options are selected directly.
func (e *Element) Click(ctx context.Context) error {
	var picked string
	if err := e.call(ctx, optionJS, &picked); err != nil {
		return err
	}
	switch picked {
	case "selected":
		return nil
	case "disabled":
		return fmt.Errorf("chromedpdriver: click: disabled option: %w", lookout.ErrNotInteractable)
	}
	shown, err := e.Displayed(ctx)
	if err != nil {
		return err
	}
	if !shown {
		return fmt.Errorf("chromedpdriver: click: %w", lookout.ErrNotInteractable)
	}
	return e.session.exec(ctx, func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithBackendNodeID(e.id).Do(ctx); err != nil {
			return err
		}
		quads, err := dom.GetContentQuads().WithBackendNodeID(e.id).Do(ctx)
		if err != nil {
			return err
		}
		if len(quads) == 0 || len(quads[0]) < 8 {
			return fmt.Errorf("click: no content box: %w", lookout.ErrNotInteractable)
		}
		x, y := center(quads[0])
		return chromedp.MouseClickXY(x, y).Do(ctx)
	})
}

func center(q dom.Quad) (x, y float64) {
	for i := 0; i < 8; i += 2 {
		x += q[i]
		y += q[i+1]
	}
	return x / 4, y / 4
}

// SendKeys focuses the element and types text. Special keys are translated
// to their chromedp equivalents.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	shown, err := e.Displayed(ctx)
	if err != nil {
		return err
	}
	if !shown {
		return fmt.Errorf("chromedpdriver: send keys: %w", lookout.ErrNotInteractable)
	}
	return e.session.exec(ctx, func(ctx context.Context) error {
		if err := dom.Focus().WithBackendNodeID(e.id).Do(ctx); err != nil {
			return err
		}
		return chromedp.KeyEvent(translateKeys(text)).Do(ctx)
	})
}

// mapError translates DevTools failures into lookout's driver errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var (
		protoErr *cdproto.Error
		exc      *runtime.ExceptionDetails
	)
	switch {
	case errors.As(err, &protoErr):
		msg := protoErr.Message
		switch {
		case strings.Contains(msg, "DOM Error while querying"),
			strings.Contains(msg, "is not a valid selector"):
			return fmt.Errorf("%w: %w", lookout.ErrInvalidSelector, err)
		case strings.Contains(msg, "No node with given id"),
			strings.Contains(msg, "Could not find node with given id"),
			strings.Contains(msg, "does not belong to the document"),
			strings.Contains(msg, "Node is detached"):
			return fmt.Errorf("%w: %w", lookout.ErrStaleElement, err)
		case strings.Contains(msg, "Could not compute content quads"),
			strings.Contains(msg, "Node does not have a layout object"):
			return fmt.Errorf("%w: %w", lookout.ErrNotInteractable, err)
		}
	case errors.As(err, &exc):
		msg := exc.Error()
		switch {
		case strings.Contains(msg, staleMarker):
			return fmt.Errorf("%w: %w", lookout.ErrStaleElement, err)
		case strings.Contains(msg, "is not a valid XPath expression"),
			strings.Contains(msg, "is not a valid selector"):
			return fmt.Errorf("%w: %w", lookout.ErrInvalidSelector, err)
		}
	case errors.Is(err, chromedp.ErrInvalidContext),
		errors.Is(err, chromedp.ErrInvalidTarget),
		errors.Is(err, chromedp.ErrChannelClosed):
		return fmt.Errorf("%w: %w", lookout.ErrEnvironment, err)
	}
	return err
}
