package lookout

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

// Kinds of AssertionError.
var (
	ErrElementNotFound = errors.New("element not found")
	ErrConditionUnmet  = errors.New("condition not met")
	ErrActionFailed    = errors.New("action failed")
)

// ErrEnvironment marks failures of the surrounding environment (a missing
// browser binary, a closed session). They are never retried.
var ErrEnvironment = errors.New("environment error")

// Verdict is the decision Classify makes about an error raised while
// resolving an element or evaluating a condition.
type Verdict int

// Verdicts returned by Classify.
const (
	// Retry means the element may not be ready yet; keep polling.
	Retry Verdict = iota
	// Abort means waiting can never help; stop and report the query.
	Abort
	// Propagate means a programming or environment error; return it as is.
	Propagate
)

func (v Verdict) String() string {
	switch v {
	case Retry:
		return "retry"
	case Abort:
		return "abort"
	case Propagate:
		return "propagate"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Classify decides whether err is transient. Errors it does not recognize
// are retried until the timeout.
func Classify(err error) Verdict {
	if errors.Is(err, ErrInvalidSelector) {
		return Abort
	}

	var cfgErr *ConfigurationError
	switch {
	case errors.As(err, &cfgErr),
		errors.Is(err, ErrEnvironment),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, exec.ErrNotFound),
		errors.Is(err, errors.ErrUnsupported),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return Propagate
	}

	return Retry
}

// ConfigurationError reports an invalid argument to the API, such as a
// non-positive count passed to Head or a negative timeout.
type ConfigurationError struct {
	Op  string
	Msg string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("lookout: %s: %s", e.Op, e.Msg)
}

// InvalidQueryError is returned when the driver rejects a selector. The wait
// stops on first occurrence.
type InvalidQueryError struct {
	Target string
	Err    error
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("lookout: invalid query for %s: %v", e.Target, e.Err)
}

func (e *InvalidQueryError) Unwrap() error { return e.Err }

// notLoaded is rendered when resolution never succeeded during a wait.
const notLoaded = "[not loaded yet...]"

// AssertionError is the timeout failure of an action or assertion. It keeps
// everything the last poll observed.
type AssertionError struct {
	Kind      error
	Target    string
	Verb      string
	Condition string
	Expected  string
	Actual    string
	// State is the rendered element or collection as last resolved, or
	// "[not loaded yet...]".
	State   string
	Diff    string
	Timeout time.Duration
	Elapsed time.Duration
	Polls   int
	Cause   error
}

func (e *AssertionError) Error() string {
	var b strings.Builder

	verb := e.Verb
	if verb == "" {
		verb = "wait"
	}
	fmt.Fprintf(&b, "lookout: %s: %v {%s}", verb, e.Kind, e.Target)
	if e.Condition != "" {
		fmt.Fprintf(&b, "\n    condition: %s", e.Condition)
	}
	if e.Expected != "" {
		fmt.Fprintf(&b, "\n    expected: %s", e.Expected)
	}
	if e.Actual != "" {
		fmt.Fprintf(&b, "\n    actual: %s", e.Actual)
	}
	state := e.State
	if state == "" {
		state = notLoaded
	}
	fmt.Fprintf(&b, "\n    state: %s", indentContinuation(state))
	if e.Diff != "" {
		fmt.Fprintf(&b, "\n    diff:\n%s", indentBlock(e.Diff, "      "))
	}
	fmt.Fprintf(&b, "\n    timeout: %v (elapsed %v, %d polls)", e.Timeout, e.Elapsed.Round(time.Millisecond), e.Polls)
	if e.Cause != nil {
		fmt.Fprintf(&b, "\n    caused by: %v", e.Cause)
	}
	return b.String()
}

func (e *AssertionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func indentContinuation(s string) string {
	return strings.ReplaceAll(s, "\n", "\n    ")
}

func indentBlock(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNoSuchElement)
}
