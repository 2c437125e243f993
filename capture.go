package lookout

import (
	"context"
	"fmt"
	"strings"
)

// Capture is an immutable record of the texts a collection had at one moment.
type Capture struct {
	texts []string
	raw   string
}

// newCapture creates a Capture from element texts in document order.
func newCapture(texts []string) *Capture {
	lines := make([]string, len(texts))
	for i, t := range texts {
		// One element per line keeps snapshot files diffable.
		lines[i] = strings.ReplaceAll(reduceSpaces(t), "\n", " ")
	}
	return &Capture{
		texts: lines,
		raw:   strings.Join(lines, "\n"),
	}
}

// String returns all texts, one element per line.
func (c *Capture) String() string {
	return c.raw
}

// Texts returns a copy of the captured texts.
func (c *Capture) Texts() []string {
	cp := make([]string, len(c.texts))
	copy(cp, c.texts)
	return cp
}

// Text returns the text of a single element (0-indexed).
// Panics if i is out of range.
func (c *Capture) Text(i int) string {
	return c.texts[i]
}

// Contains reports whether any captured text contains the substring.
func (c *Capture) Contains(substr string) bool {
	return strings.Contains(c.raw, substr)
}

// Len returns the number of captured elements.
func (c *Capture) Len() int {
	return len(c.texts)
}

// describeHandle renders an element as <tag attrs>text</tag>. Driver errors
// become part of the description; diagnostics must never fail.
func describeHandle(ctx context.Context, h Handle) string {
	tag, err := h.TagName(ctx)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	var b strings.Builder
	b.WriteString("<" + tag)
	for _, attr := range []string{"id", "class", "name", "type", "value"} {
		if v, ok, err := h.Attribute(ctx, attr); err == nil && ok && v != "" {
			fmt.Fprintf(&b, " %s=%q", attr, v)
		}
	}
	if shown, err := h.Displayed(ctx); err == nil && !shown {
		b.WriteString(" displayed:false")
	}
	b.WriteString(">")
	text, err := h.Text(ctx)
	if err != nil {
		text = err.Error()
	}
	b.WriteString(reduceSpaces(text))
	b.WriteString("</" + tag + ">")
	return b.String()
}

// describeHandles renders a resolved collection for failure messages.
func describeHandles(ctx context.Context, hs []Handle) string {
	if len(hs) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteString("[")
	for i, h := range hs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n\t" + describeHandle(ctx, h))
	}
	b.WriteString("\n]")
	return b.String()
}
