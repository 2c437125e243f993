package lookout

import (
	"time"

	"go.uber.org/zap"
)

// AssertionMode decides what a timed-out assertion does.
type AssertionMode int

// Assertion modes.
const (
	// Strict returns the failure to the caller.
	Strict AssertionMode = iota
	// Soft records the failure in the page's ErrorsCollector and carries on
	// as if the assertion passed.
	Soft
)

func (m AssertionMode) String() string {
	if m == Soft {
		return "soft"
	}
	return "strict"
}

// Config holds the wait settings of a Page. A Config is a value: each wait
// copies it when it starts, so later changes never affect a running wait.
type Config struct {
	Timeout                 time.Duration
	PollInterval            time.Duration
	CollectionsTimeout      time.Duration
	CollectionsPollInterval time.Duration
	AssertionMode           AssertionMode
	// VersatileSetValue makes SetValue select options of a <select> by value
	// and pick radio buttons by value instead of typing.
	VersatileSetValue bool
	// SetValueChangeEvent fires a change event after SetValue types.
	SetValueChangeEvent bool
}

type options struct {
	config    Config
	configSet bool
	clock     Clock
	classify  func(error) Verdict
	logger    *zap.Logger
	listeners map[string]Listener
}

// Option configures a Page created by New or Open.
type Option func(*options)

// WithConfig replaces the whole configuration, including anything read from
// the environment. An invalid environment is then ignored.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
		o.configSet = true
	}
}

// WithTimeout sets how long element actions and assertions wait.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.config.Timeout = d
	}
}

// WithPollInterval sets the pause between element polls.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.config.PollInterval = d
	}
}

// WithCollectionsTimeout sets how long collection assertions wait.
func WithCollectionsTimeout(d time.Duration) Option {
	return func(o *options) {
		o.config.CollectionsTimeout = d
	}
}

// WithCollectionsPollInterval sets the pause between collection polls.
func WithCollectionsPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.config.CollectionsPollInterval = d
	}
}

// WithAssertionMode selects Strict or Soft assertions.
func WithAssertionMode(m AssertionMode) Option {
	return func(o *options) {
		o.config.AssertionMode = m
	}
}

// WithVersatileSetValue toggles Config.VersatileSetValue.
func WithVersatileSetValue(on bool) Option {
	return func(o *options) {
		o.config.VersatileSetValue = on
	}
}

// WithSetValueChangeEvent toggles Config.SetValueChangeEvent.
func WithSetValueChangeEvent(on bool) Option {
	return func(o *options) {
		o.config.SetValueChangeEvent = on
	}
}

// WithClassifier replaces Classify for every wait on the page, for drivers
// that report transient failures with errors of their own.
func WithClassifier(fn func(error) Verdict) Option {
	return func(o *options) {
		o.classify = fn
	}
}

// WithClock replaces the wall clock, for tests that simulate time.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger writes one entry per action or assertion to logger.
func WithLogger(logger *zap.Logger) Option {
	return WithListener("zap", NewZapListener(logger))
}

// WithListener registers a step listener under name.
func WithListener(name string, l Listener) Option {
	return func(o *options) {
		if o.listeners == nil {
			o.listeners = make(map[string]Listener)
		}
		o.listeners[name] = l
	}
}

// WaitOption configures a single WaitUntil or WaitWhile call.
type WaitOption func(*waitOptions)

type waitOptions struct {
	timeout      time.Duration
	pollInterval time.Duration
}

// WithinTimeout overrides the timeout for a single wait call.
// A value of 0 means "use defaults".
func WithinTimeout(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.timeout = d
	}
}

// WithWaitPollInterval overrides the polling interval for a single wait call.
// A value of 0 means "use defaults".
func WithWaitPollInterval(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.pollInterval = d
	}
}

const (
	defaultTimeout                 = 4 * time.Second
	defaultPollInterval            = 100 * time.Millisecond
	defaultCollectionsTimeout      = 6 * time.Second
	defaultCollectionsPollInterval = 200 * time.Millisecond
)

func builtinConfig() Config {
	return Config{
		Timeout:                 defaultTimeout,
		PollInterval:            defaultPollInterval,
		CollectionsTimeout:      defaultCollectionsTimeout,
		CollectionsPollInterval: defaultCollectionsPollInterval,
		AssertionMode:           Strict,
		SetValueChangeEvent:     true,
	}
}
