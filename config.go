package lookout

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by DefaultConfig.
const (
	EnvTimeout                 = "LOOKOUT_TIMEOUT"
	EnvPollInterval            = "LOOKOUT_POLL_INTERVAL"
	EnvCollectionsTimeout      = "LOOKOUT_COLLECTIONS_TIMEOUT"
	EnvCollectionsPollInterval = "LOOKOUT_COLLECTIONS_POLL_INTERVAL"
	EnvAssertionMode           = "LOOKOUT_ASSERTION_MODE"
	EnvVersatileSetValue       = "LOOKOUT_VERSATILE_SET_VALUE"
	EnvSetValueChangeEvent     = "LOOKOUT_SET_VALUE_CHANGE_EVENT"
)

// DefaultConfig returns the built-in defaults overridden by LOOKOUT_*
// environment variables. It is the only place process-wide settings enter;
// New and Open call it before applying options.
func DefaultConfig() (Config, error) {
	cfg := builtinConfig()
	err := cfg.merge(fileConfig{
		Timeout:                 os.Getenv(EnvTimeout),
		PollInterval:            os.Getenv(EnvPollInterval),
		CollectionsTimeout:      os.Getenv(EnvCollectionsTimeout),
		CollectionsPollInterval: os.Getenv(EnvCollectionsPollInterval),
		AssertionMode:           os.Getenv(EnvAssertionMode),
		VersatileSetValue:       os.Getenv(EnvVersatileSetValue),
		SetValueChangeEvent:     os.Getenv(EnvSetValueChangeEvent),
	}, "environment")
	return cfg, err
}

// LoadConfig reads a YAML file on top of DefaultConfig. Durations use Go
// syntax ("4s", "250ms"):
//
//	timeout: 4s
//	poll_interval: 100ms
//	collections_timeout: 6s
//	collections_poll_interval: 200ms
//	assertion_mode: soft
//	versatile_set_value: true
//	set_value_change_event: false
func LoadConfig(path string) (Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("lookout: config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, &ConfigurationError{Op: "config", Msg: fmt.Sprintf("%s: %v", path, err)}
	}
	err = cfg.merge(fc, path)
	return cfg, err
}

type fileConfig struct {
	Timeout                 string `yaml:"timeout"`
	PollInterval            string `yaml:"poll_interval"`
	CollectionsTimeout      string `yaml:"collections_timeout"`
	CollectionsPollInterval string `yaml:"collections_poll_interval"`
	AssertionMode           string `yaml:"assertion_mode"`
	VersatileSetValue       string `yaml:"versatile_set_value"`
	SetValueChangeEvent     string `yaml:"set_value_change_event"`
}

func (c *Config) merge(fc fileConfig, origin string) error {
	fields := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"timeout", fc.Timeout, &c.Timeout},
		{"poll_interval", fc.PollInterval, &c.PollInterval},
		{"collections_timeout", fc.CollectionsTimeout, &c.CollectionsTimeout},
		{"collections_poll_interval", fc.CollectionsPollInterval, &c.CollectionsPollInterval},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return &ConfigurationError{Op: "config", Msg: fmt.Sprintf("%s: %s: %v", origin, f.key, err)}
		}
		*f.dst = d
	}

	for _, f := range []struct {
		key string
		raw string
		dst *bool
	}{
		{"versatile_set_value", fc.VersatileSetValue, &c.VersatileSetValue},
		{"set_value_change_event", fc.SetValueChangeEvent, &c.SetValueChangeEvent},
	} {
		if f.raw == "" {
			continue
		}
		b, err := strconv.ParseBool(f.raw)
		if err != nil {
			return &ConfigurationError{Op: "config", Msg: fmt.Sprintf("%s: %s: %v", origin, f.key, err)}
		}
		*f.dst = b
	}

	switch strings.ToLower(fc.AssertionMode) {
	case "":
	case "strict":
		c.AssertionMode = Strict
	case "soft":
		c.AssertionMode = Soft
	default:
		return &ConfigurationError{Op: "config", Msg: fmt.Sprintf("%s: assertion_mode: unknown mode %q", origin, fc.AssertionMode)}
	}
	return c.Validate()
}

// Validate rejects negative timeouts and poll intervals that are not
// positive.
func (c Config) Validate() error {
	for _, f := range []struct {
		key      string
		d        time.Duration
		positive bool
	}{
		{"timeout", c.Timeout, false},
		{"poll interval", c.PollInterval, true},
		{"collections timeout", c.CollectionsTimeout, false},
		{"collections poll interval", c.CollectionsPollInterval, true},
	} {
		if f.d < 0 {
			return &ConfigurationError{Op: "config", Msg: fmt.Sprintf("negative %s: %v", f.key, f.d)}
		}
		if f.positive && f.d == 0 {
			return &ConfigurationError{Op: "config", Msg: fmt.Sprintf("zero %s", f.key)}
		}
	}
	return nil
}
