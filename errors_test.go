package lookout_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cboone/lookout"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want lookout.Verdict
	}{
		{"no such element", fmt.Errorf("find: %w", lookout.ErrNoSuchElement), lookout.Retry},
		{"stale element", lookout.ErrStaleElement, lookout.Retry},
		{"not interactable", lookout.ErrNotInteractable, lookout.Retry},
		{"unknown driver error", errors.New("unknown error: element click intercepted"), lookout.Retry},
		{"assertion failure", &lookout.AssertionError{Kind: lookout.ErrConditionUnmet}, lookout.Retry},
		{"invalid selector", fmt.Errorf("query: %w", lookout.ErrInvalidSelector), lookout.Abort},
		{"configuration", &lookout.ConfigurationError{Op: "head", Msg: "bad"}, lookout.Propagate},
		{"environment", fmt.Errorf("chrome: %w", lookout.ErrEnvironment), lookout.Propagate},
		{"missing file", os.ErrNotExist, lookout.Propagate},
		{"missing binary", &exec.Error{Name: "chrome", Err: exec.ErrNotFound}, lookout.Propagate},
		{"unsupported", errors.ErrUnsupported, lookout.Propagate},
		{"canceled", context.Canceled, lookout.Propagate},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), lookout.Propagate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lookout.Classify(tt.err))
		})
	}
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "retry", lookout.Retry.String())
	assert.Equal(t, "abort", lookout.Abort.String())
	assert.Equal(t, "propagate", lookout.Propagate.String())
	assert.Equal(t, "Verdict(9)", lookout.Verdict(9).String())
}

func TestAssertionErrorMessage(t *testing.T) {
	cause := fmt.Errorf("find: %w", lookout.ErrStaleElement)
	err := &lookout.AssertionError{
		Kind:      lookout.ErrConditionUnmet,
		Target:    `$$("li")`,
		Verb:      "should have",
		Condition: "size 5",
		Expected:  "5",
		Actual:    "3",
		State:     "[\n\t<li>A</li>\n]",
		Timeout:   50 * time.Millisecond,
		Elapsed:   52 * time.Millisecond,
		Polls:     6,
		Cause:     cause,
	}

	want := "lookout: should have: condition not met {$$(\"li\")}\n" +
		"    condition: size 5\n" +
		"    expected: 5\n" +
		"    actual: 3\n" +
		"    state: [\n" +
		"    \t<li>A</li>\n" +
		"    ]\n" +
		"    timeout: 50ms (elapsed 52ms, 6 polls)\n" +
		"    caused by: find: stale element reference"
	assert.Equal(t, want, err.Error())

	require.ErrorIs(t, err, lookout.ErrConditionUnmet)
	require.ErrorIs(t, err, lookout.ErrStaleElement)
	assert.NotErrorIs(t, err, lookout.ErrElementNotFound)
}

func TestAssertionErrorNotLoaded(t *testing.T) {
	err := &lookout.AssertionError{
		Kind:   lookout.ErrElementNotFound,
		Target: `$("#missing")`,
	}
	assert.Contains(t, err.Error(), "lookout: wait: element not found {$(\"#missing\")}")
	assert.Contains(t, err.Error(), "state: [not loaded yet...]")
	assert.NotContains(t, err.Error(), "caused by")
}

func TestAssertionErrorDiff(t *testing.T) {
	err := &lookout.AssertionError{
		Kind:   lookout.ErrConditionUnmet,
		Target: `$$("li")`,
		Diff:   "--- expected\n+++ actual\n",
	}
	assert.Contains(t, err.Error(), "    diff:\n      --- expected\n      +++ actual")
}

func TestInvalidQueryError(t *testing.T) {
	err := &lookout.InvalidQueryError{Target: `$("##")`, Err: lookout.ErrInvalidSelector}
	assert.Equal(t, `lookout: invalid query for $("##"): invalid selector`, err.Error())
	require.ErrorIs(t, err, lookout.ErrInvalidSelector)
}

func TestConfigurationError(t *testing.T) {
	err := &lookout.ConfigurationError{Op: "head", Msg: "count must be at least 1, got 0"}
	assert.Equal(t, "lookout: head: count must be at least 1, got 0", err.Error())
}
