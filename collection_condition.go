package lookout

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// A CollectionCondition reports whether an ordered list of elements
// satisfies a predicate.
type CollectionCondition struct {
	name     string
	expected string
	check    func(ctx context.Context, hs []Handle) (collectionVerdict, error)
}

type collectionVerdict struct {
	ok     bool
	actual string
	diff   string
}

// NewCollectionCondition builds a custom collection condition.
func NewCollectionCondition(name, expected string, check func(ctx context.Context, hs []Handle) (bool, string, error)) CollectionCondition {
	return CollectionCondition{
		name:     name,
		expected: expected,
		check: func(ctx context.Context, hs []Handle) (collectionVerdict, error) {
			ok, actual, err := check(ctx, hs)
			return collectionVerdict{ok: ok, actual: actual}, err
		},
	}
}

func (c CollectionCondition) String() string {
	if c.expected == "" {
		return c.name
	}
	return c.name + " " + c.expected
}

// Expected returns the expected value rendered for failure messages.
func (c CollectionCondition) Expected() string { return c.expected }

// Size matches a collection with exactly n elements.
func Size(n int) CollectionCondition {
	return sizeCondition("size", "", n, func(size int) bool { return size == n })
}

// SizeGreaterThan matches a collection with more than n elements.
func SizeGreaterThan(n int) CollectionCondition {
	return sizeCondition("size", "> ", n, func(size int) bool { return size > n })
}

// SizeGreaterThanOrEqual matches a collection with at least n elements.
func SizeGreaterThanOrEqual(n int) CollectionCondition {
	return sizeCondition("size", ">= ", n, func(size int) bool { return size >= n })
}

// SizeLessThan matches a collection with fewer than n elements.
func SizeLessThan(n int) CollectionCondition {
	return sizeCondition("size", "< ", n, func(size int) bool { return size < n })
}

// SizeLessThanOrEqual matches a collection with at most n elements.
func SizeLessThanOrEqual(n int) CollectionCondition {
	return sizeCondition("size", "<= ", n, func(size int) bool { return size <= n })
}

// SizeNotEqual matches a collection whose size is not n.
func SizeNotEqual(n int) CollectionCondition {
	return sizeCondition("size", "<> ", n, func(size int) bool { return size != n })
}

// EmptyCollection matches a collection with no elements.
var EmptyCollection = CollectionCondition{
	name: "empty",
	check: func(_ context.Context, hs []Handle) (collectionVerdict, error) {
		return collectionVerdict{ok: len(hs) == 0, actual: "size " + strconv.Itoa(len(hs))}, nil
	},
}

func sizeCondition(name, op string, n int, match func(size int) bool) CollectionCondition {
	return CollectionCondition{
		name:     name,
		expected: op + strconv.Itoa(n),
		check: func(_ context.Context, hs []Handle) (collectionVerdict, error) {
			return collectionVerdict{ok: match(len(hs)), actual: strconv.Itoa(len(hs))}, nil
		},
	}
}

// Texts matches when the collection has one element per expected text and
// each element's text contains the corresponding expected text, ignoring case.
func Texts(expected ...string) CollectionCondition {
	return textsCondition("Texts", expected, func(actual, exp string) bool {
		return strings.Contains(strings.ToLower(reduceSpaces(actual)), strings.ToLower(reduceSpaces(exp)))
	})
}

// ExactTexts matches when the element texts equal the expected texts in
// order, ignoring case.
func ExactTexts(expected ...string) CollectionCondition {
	return textsCondition("Exact texts", expected, func(actual, exp string) bool {
		return strings.EqualFold(reduceSpaces(actual), reduceSpaces(exp))
	})
}

// TextsInAnyOrder matches when the element texts equal the expected texts in
// any order, ignoring case.
func TextsInAnyOrder(expected ...string) CollectionCondition {
	return CollectionCondition{
		name:     "TextsInAnyOrder",
		expected: bracketList(expected),
		check: func(ctx context.Context, hs []Handle) (collectionVerdict, error) {
			actual, err := texts(ctx, hs)
			if err != nil {
				return collectionVerdict{}, err
			}
			v := collectionVerdict{actual: bracketList(actual)}
			if len(actual) != len(expected) {
				return v, nil
			}
			a := normalizedSorted(actual)
			e := normalizedSorted(expected)
			v.ok = slices.Equal(a, e)
			if !v.ok {
				v.diff = textDiff(e, a)
			}
			return v, nil
		},
	}
}

func textsCondition(name string, expected []string, match func(actual, exp string) bool) CollectionCondition {
	return CollectionCondition{
		name:     name,
		expected: bracketList(expected),
		check: func(ctx context.Context, hs []Handle) (collectionVerdict, error) {
			actual, err := texts(ctx, hs)
			if err != nil {
				return collectionVerdict{}, err
			}
			v := collectionVerdict{actual: bracketList(actual), ok: len(actual) == len(expected)}
			for i := 0; v.ok && i < len(actual); i++ {
				v.ok = match(actual[i], expected[i])
			}
			if !v.ok {
				v.diff = textDiff(expected, actual)
			}
			return v, nil
		},
	}
}

// texts reads the text of every handle. A stale element fails the whole read
// so the caller retries against a fresh resolution.
func texts(ctx context.Context, hs []Handle) ([]string, error) {
	out := make([]string, len(hs))
	for i, h := range hs {
		t, err := h.Text(ctx)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func bracketList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func normalizedSorted(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = strings.ToLower(reduceSpaces(s))
	}
	slices.Sort(out)
	return out
}

// textDiff renders a unified diff of expected and actual texts, one per line.
func textDiff(expected, actual []string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        withNewlines(expected),
		B:        withNewlines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  1,
	})
	if err != nil {
		return fmt.Sprintf("(diff unavailable: %v)", err)
	}
	return diff
}

func withNewlines(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = s + "\n"
	}
	return out
}
