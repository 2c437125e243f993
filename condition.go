package lookout

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// A Condition reports whether an element satisfies a predicate. Conditions
// never change the page.
type Condition struct {
	name     string
	expected string
	// absent is the verdict when the element does not exist.
	absent bool
	check  func(ctx context.Context, h Handle) (ok bool, actual string, err error)
}

// NewCondition builds a custom condition. check returns whether the element
// satisfies it and a description of what it saw.
func NewCondition(name string, check func(ctx context.Context, h Handle) (bool, string, error)) Condition {
	return Condition{name: name, check: check}
}

// String returns the condition description used in failure messages.
func (c Condition) String() string {
	if c.expected == "" {
		return c.name
	}
	return c.name + " " + c.expected
}

// Expected returns the expected value, if the condition has one.
func (c Condition) Expected() string { return c.expected }

// Apply evaluates the condition against a resolved element.
func (c Condition) Apply(ctx context.Context, h Handle) (ok bool, actual string, err error) {
	return c.check(ctx, h)
}

// ApplyAbsent returns the verdict for an element that does not exist.
func (c Condition) ApplyAbsent() bool { return c.absent }

// Exist matches any element that can be found.
var Exist = Condition{
	name: "exist",
	check: func(context.Context, Handle) (bool, string, error) {
		return true, "exists", nil
	},
}

// Visible matches a displayed element.
var Visible = Condition{
	name: "visible",
	check: func(ctx context.Context, h Handle) (bool, string, error) {
		ok, err := h.Displayed(ctx)
		if err != nil {
			return false, "", err
		}
		return ok, displayedString(ok), nil
	},
}

// Appear is an alias for Visible that reads better with Should.
var Appear = Visible

// Hidden matches an element that is not displayed or does not exist.
var Hidden = Condition{
	name:   "hidden",
	absent: true,
	check: func(ctx context.Context, h Handle) (bool, string, error) {
		ok, err := h.Displayed(ctx)
		if err != nil {
			return false, "", err
		}
		return !ok, displayedString(ok), nil
	},
}

// Disappear is an alias for Hidden.
var Disappear = Hidden

// Enabled matches an element without a disabled attribute.
var Enabled = Condition{
	name: "enabled",
	check: func(ctx context.Context, h Handle) (bool, string, error) {
		_, disabled, err := h.Attribute(ctx, "disabled")
		if err != nil {
			return false, "", err
		}
		return !disabled, enabledString(!disabled), nil
	},
}

// Disabled matches an element with a disabled attribute.
var Disabled = Condition{
	name: "disabled",
	check: func(ctx context.Context, h Handle) (bool, string, error) {
		_, disabled, err := h.Attribute(ctx, "disabled")
		if err != nil {
			return false, "", err
		}
		return disabled, enabledString(!disabled), nil
	},
}

// Empty matches an element with no text and no value.
var Empty = Condition{
	name: "empty",
	check: func(ctx context.Context, h Handle) (bool, string, error) {
		text, err := h.Text(ctx)
		if err != nil {
			return false, "", err
		}
		value, _, err := h.Attribute(ctx, "value")
		if err != nil {
			return false, "", err
		}
		return strings.TrimSpace(text) == "" && value == "", fmt.Sprintf("text %q, value %q", text, value), nil
	},
}

// Text matches if the element text contains s, ignoring case and collapsing
// runs of whitespace.
func Text(s string) Condition {
	return textCondition("text", s, func(actual string) bool {
		return strings.Contains(strings.ToLower(reduceSpaces(actual)), strings.ToLower(reduceSpaces(s)))
	})
}

// TextCaseSensitive matches if the element text contains s.
func TextCaseSensitive(s string) Condition {
	return textCondition("text case sensitive", s, func(actual string) bool {
		return strings.Contains(reduceSpaces(actual), reduceSpaces(s))
	})
}

// ExactText matches if the element text equals s, ignoring case and
// collapsing runs of whitespace.
func ExactText(s string) Condition {
	return textCondition("exact text", s, func(actual string) bool {
		return strings.EqualFold(reduceSpaces(actual), reduceSpaces(s))
	})
}

// ExactTextCaseSensitive matches if the element text equals s.
func ExactTextCaseSensitive(s string) Condition {
	return textCondition("exact text case sensitive", s, func(actual string) bool {
		return reduceSpaces(actual) == reduceSpaces(s)
	})
}

// MatchText matches if the element text matches the regular expression.
// The pattern is compiled once; an invalid pattern causes a panic.
func MatchText(pattern string) Condition {
	re := regexp.MustCompile(pattern)
	return Condition{
		name:     "match text",
		expected: fmt.Sprintf("%q", pattern),
		check: func(ctx context.Context, h Handle) (bool, string, error) {
			text, err := h.Text(ctx)
			if err != nil {
				return false, "", err
			}
			return re.MatchString(text), fmt.Sprintf("%q", text), nil
		},
	}
}

func textCondition(name, expected string, match func(actual string) bool) Condition {
	return Condition{
		name:     name,
		expected: fmt.Sprintf("%q", expected),
		check: func(ctx context.Context, h Handle) (bool, string, error) {
			text, err := h.Text(ctx)
			if err != nil {
				return false, "", err
			}
			return match(text), fmt.Sprintf("%q", text), nil
		},
	}
}

// Value matches if the value attribute contains v.
func Value(v string) Condition {
	return attributeCondition("value", "value", fmt.Sprintf("%q", v), func(actual string) bool {
		return strings.Contains(actual, v)
	})
}

// ExactValue matches if the value attribute equals v.
func ExactValue(v string) Condition {
	return attributeCondition("exact value", "value", fmt.Sprintf("%q", v), func(actual string) bool {
		return actual == v
	})
}

// Attribute matches if the element has the named attribute.
func Attribute(name string) Condition {
	return Condition{
		name:     "attribute",
		expected: name,
		check: func(ctx context.Context, h Handle) (bool, string, error) {
			_, ok, err := h.Attribute(ctx, name)
			if err != nil {
				return false, "", err
			}
			if !ok {
				return false, "no " + name + " attribute", nil
			}
			return true, name + " present", nil
		},
	}
}

// AttributeValue matches if the named attribute equals value.
func AttributeValue(name, value string) Condition {
	return attributeCondition("attribute", name, fmt.Sprintf("%s=%q", name, value), func(actual string) bool {
		return actual == value
	})
}

// CSSClass matches if the class attribute contains the class name.
func CSSClass(class string) Condition {
	return Condition{
		name:     "css class",
		expected: fmt.Sprintf("%q", class),
		check: func(ctx context.Context, h Handle) (bool, string, error) {
			classes, _, err := h.Attribute(ctx, "class")
			if err != nil {
				return false, "", err
			}
			for _, c := range strings.Fields(classes) {
				if c == class {
					return true, fmt.Sprintf("%q", classes), nil
				}
			}
			return false, fmt.Sprintf("%q", classes), nil
		},
	}
}

func attributeCondition(name, attr, expected string, match func(actual string) bool) Condition {
	return Condition{
		name:     name,
		expected: expected,
		check: func(ctx context.Context, h Handle) (bool, string, error) {
			actual, ok, err := h.Attribute(ctx, attr)
			if err != nil {
				return false, "", err
			}
			if !ok {
				return false, "no " + attr + " attribute", nil
			}
			return match(actual), fmt.Sprintf("%s=%q", attr, actual), nil
		},
	}
}

// Not inverts a condition, including its verdict for a missing element.
func Not(c Condition) Condition {
	return Condition{
		name:     "not " + c.name,
		expected: c.expected,
		absent:   !c.absent,
		check: func(ctx context.Context, h Handle) (bool, string, error) {
			ok, actual, err := c.check(ctx, h)
			if err != nil {
				return false, "", err
			}
			return !ok, actual, nil
		},
	}
}

// And matches when every provided condition matches.
func And(conds ...Condition) Condition {
	return Condition{
		name:   "all of: " + joinConditions(conds),
		absent: allAbsent(conds),
		check: func(ctx context.Context, h Handle) (bool, string, error) {
			actuals := make([]string, 0, len(conds))
			for _, c := range conds {
				ok, actual, err := c.check(ctx, h)
				if err != nil {
					return false, "", err
				}
				actuals = append(actuals, actual)
				if !ok {
					return false, strings.Join(actuals, ", "), nil
				}
			}
			return true, strings.Join(actuals, ", "), nil
		},
	}
}

// Or matches when at least one provided condition matches.
func Or(conds ...Condition) Condition {
	return Condition{
		name:   "any of: " + joinConditions(conds),
		absent: anyAbsent(conds),
		check: func(ctx context.Context, h Handle) (bool, string, error) {
			actuals := make([]string, 0, len(conds))
			for _, c := range conds {
				ok, actual, err := c.check(ctx, h)
				if err != nil {
					return false, "", err
				}
				actuals = append(actuals, actual)
				if ok {
					return true, strings.Join(actuals, ", "), nil
				}
			}
			return false, strings.Join(actuals, ", "), nil
		},
	}
}

func joinConditions(conds []Condition) string {
	descs := make([]string, len(conds))
	for i, c := range conds {
		descs[i] = c.String()
	}
	return strings.Join(descs, ", ")
}

func allAbsent(conds []Condition) bool {
	for _, c := range conds {
		if !c.absent {
			return false
		}
	}
	return len(conds) > 0
}

func anyAbsent(conds []Condition) bool {
	for _, c := range conds {
		if c.absent {
			return true
		}
	}
	return false
}

func displayedString(ok bool) string {
	if ok {
		return "visible"
	}
	return "hidden"
}

func enabledString(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}

// reduceSpaces trims s and collapses every run of whitespace to one space.
func reduceSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
