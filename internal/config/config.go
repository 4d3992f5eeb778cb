// Package config loads podctl settings from defaults, an optional TOML file
// and POD_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/multierr"

	"github.com/Ratio1/pod_sdk_go/internal/logging"
	"github.com/Ratio1/pod_sdk_go/pkg/pod"
	"github.com/Ratio1/pod_sdk_go/pkg/pod_sdk"
)

// EnvPrefix is stripped from environment variables. Nested keys use a double
// underscore: POD_TIMEOUTS__CONNECT=2s sets timeouts.connect.
const EnvPrefix = "POD_"

// Config is the resolved configuration.
type Config struct {
	URL                string    `koanf:"url"`
	Mode               string    `koanf:"mode"`
	MockSeed           string    `koanf:"mock_seed"`
	LogLevel           string    `koanf:"log_level"`
	Timeouts           Timeouts  `koanf:"timeouts"`
	Retries            Retries   `koanf:"retries"`
	RateLimit          RateLimit `koanf:"rate_limit"`
	ConditionalUpdates int       `koanf:"conditional_updates"`
	LockUpdates        bool      `koanf:"lock_updates"`
}

// Timeouts bound each HTTP exchange.
type Timeouts struct {
	Connect time.Duration `koanf:"connect"`
	Read    time.Duration `koanf:"read"`
	Overall time.Duration `koanf:"overall"`
}

// Retries configures retrying of transient failures. Max 0 disables it.
type Retries struct {
	Max       int           `koanf:"max"`
	BaseDelay time.Duration `koanf:"base_delay"`
	MaxDelay  time.Duration `koanf:"max_delay"`
}

// RateLimit caps outbound requests. RPS 0 disables it.
type RateLimit struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"mode":                pod_sdk.ModeAuto,
		"log_level":           "info",
		"timeouts.connect":    5 * time.Second,
		"timeouts.read":       5 * time.Second,
		"timeouts.overall":    10 * time.Second,
		"retries.max":         0,
		"retries.base_delay":  200 * time.Millisecond,
		"retries.max_delay":   2 * time.Second,
		"rate_limit.rps":      0.0,
		"rate_limit.burst":    1,
		"conditional_updates": 0,
		"lock_updates":        false,
	}
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps POD_RUNTIME_MODE to mode and POD_A__B to a.b.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if key == "runtime_mode" {
		return "mode"
	}
	return strings.ReplaceAll(key, "__", ".")
}

func (c *Config) normalize() {
	c.URL = strings.TrimSpace(c.URL)
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = pod_sdk.ModeAuto
	}
	c.MockSeed = strings.TrimSpace(c.MockSeed)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error

	switch c.Mode {
	case pod_sdk.ModeAuto, pod_sdk.ModeHTTP, pod_sdk.ModeMock:
	default:
		err = multierr.Append(err, fmt.Errorf("mode: unsupported value %q", c.Mode))
	}
	if c.Mode == pod_sdk.ModeHTTP && c.URL == "" {
		err = multierr.Append(err, fmt.Errorf("url: required in %s mode", pod_sdk.ModeHTTP))
	}
	if c.URL != "" {
		if _, perr := pod.ParseRef(c.URL); perr != nil {
			err = multierr.Append(err, fmt.Errorf("url: %w", perr))
		}
	}
	if _, lerr := logging.ParseLevel(c.LogLevel); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("log_level: %w", lerr))
	}
	if c.Timeouts.Connect < 0 || c.Timeouts.Read < 0 || c.Timeouts.Overall < 0 {
		err = multierr.Append(err, fmt.Errorf("timeouts: must not be negative"))
	}
	if c.Retries.Max < 0 {
		err = multierr.Append(err, fmt.Errorf("retries.max: must not be negative"))
	}
	if c.Retries.BaseDelay < 0 || c.Retries.MaxDelay < 0 {
		err = multierr.Append(err, fmt.Errorf("retries: delays must not be negative"))
	}
	if c.RateLimit.RPS < 0 {
		err = multierr.Append(err, fmt.Errorf("rate_limit.rps: must not be negative"))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		err = multierr.Append(err, fmt.Errorf("rate_limit.burst: must be at least 1"))
	}
	if c.ConditionalUpdates < 0 {
		err = multierr.Append(err, fmt.Errorf("conditional_updates: must not be negative"))
	}
	return err
}

// Settings returns the runtime selection for pod_sdk.NewFromSettings.
func (c *Config) Settings() pod_sdk.Settings {
	return pod_sdk.Settings{Mode: c.Mode, PodURL: c.URL, MockSeed: c.MockSeed}
}

// ClientOptions translates the configuration into pod client options.
func (c *Config) ClientOptions(logger *slog.Logger) []pod.Option {
	opts := []pod.Option{
		pod.WithLogger(logger),
		pod.WithTimeouts(c.Timeouts.Connect, c.Timeouts.Read, c.Timeouts.Overall),
	}
	if c.Retries.Max > 0 {
		opts = append(opts, pod.WithRetries(c.Retries.Max, c.Retries.BaseDelay, c.Retries.MaxDelay))
	}
	if c.RateLimit.RPS > 0 {
		opts = append(opts, pod.WithRateLimit(c.RateLimit.RPS, c.RateLimit.Burst))
	}
	if c.ConditionalUpdates > 0 {
		opts = append(opts, pod.WithConditionalUpdates(c.ConditionalUpdates))
	}
	if c.LockUpdates {
		opts = append(opts, pod.WithResourceLocking())
	}
	return opts
}

// Redacted returns the URL without user info, for logging.
func (c *Config) Redacted() string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return ""
	}
	return u.Redacted()
}
