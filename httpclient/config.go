/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/acronis/go-crawldispatch/config"
)

const cfgDefaultKeyPrefix = "httpclient"

// Default configuration values.
const (
	DefaultMaxConnsPerHost     = 8
	DefaultMaxIdleConnsPerHost = 4
	DefaultMaxRedirects        = 10
	DefaultDNSTimeout          = 5 * time.Second
)

const (
	cfgKeyUserAgent                  = "userAgent"
	cfgKeyMaxConnsPerHost            = "maxConnsPerHost"
	cfgKeyMaxIdleConnsPerHost        = "maxIdleConnsPerHost"
	cfgKeyMaxRedirects               = "maxRedirects"
	cfgKeyDNSServers                 = "dns.servers"
	cfgKeyDNSTimeout                 = "dns.timeout"
	cfgKeyRateLimitsEnabled          = "rateLimits.enabled"
	cfgKeyRateLimitsLimit            = "rateLimits.limit"
	cfgKeyRateLimitsBurst            = "rateLimits.burst"
	cfgKeyRateLimitsWaitTimeout      = "rateLimits.waitTimeout"
	cfgKeyRateLimitsAdaptationHeader = "rateLimits.adaptation.responseHeaderName"
	cfgKeyRateLimitsAdaptationSlack  = "rateLimits.adaptation.slackPercent"
	cfgKeyLoggerEnabled              = "logger.enabled"
	cfgKeyLoggerMode                 = "logger.mode"
	cfgKeyLoggerSlowRequestThreshold = "logger.slowRequestThreshold"
	cfgKeyMetricsEnabled             = "metrics.enabled"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Config represents options of the HTTP client that is used by the crawler for fetching targets.
// Per-request timeouts are not configured here, they are controlled by the dispatcher.
type Config struct {
	// UserAgent is sent in all requests that have no User-Agent header.
	// The module name and version are used when empty.
	UserAgent string `mapstructure:"userAgent" yaml:"userAgent" json:"userAgent"`

	// MaxConnsPerHost limits the total number of connections per host.
	MaxConnsPerHost int `mapstructure:"maxConnsPerHost" yaml:"maxConnsPerHost" json:"maxConnsPerHost"`

	// MaxIdleConnsPerHost controls the maximum idle (keep-alive) connections to keep per-host.
	MaxIdleConnsPerHost int `mapstructure:"maxIdleConnsPerHost" yaml:"maxIdleConnsPerHost" json:"maxIdleConnsPerHost"`

	// MaxRedirects is the maximum number of followed redirects. 0 means redirects are not followed
	// and the redirect response is returned as is.
	MaxRedirects int `mapstructure:"maxRedirects" yaml:"maxRedirects" json:"maxRedirects"`

	// DNS allows using custom DNS servers for resolving crawled hosts.
	DNS DNSConfig `mapstructure:"dns" yaml:"dns" json:"dns"`

	// RateLimits is a configuration for client side rate limiting.
	RateLimits RateLimitConfig `mapstructure:"rateLimits" yaml:"rateLimits" json:"rateLimits"`

	// Logger is a configuration for logging of outgoing requests.
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger" json:"logger"`

	// Metrics is a configuration for metrics of outgoing requests.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`

	keyPrefix string
}

// DNSConfig represents configuration of custom DNS resolving.
type DNSConfig struct {
	// Servers is a list of DNS servers (host:port) that are used in round-robin manner.
	Servers []string      `mapstructure:"servers" yaml:"servers" json:"servers"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// RateLimitConfig represents configuration options for HTTP client rate limits.
type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Limit       int           `mapstructure:"limit" yaml:"limit" json:"limit"`
	Burst       int           `mapstructure:"burst" yaml:"burst" json:"burst"`
	WaitTimeout time.Duration `mapstructure:"waitTimeout" yaml:"waitTimeout" json:"waitTimeout"`

	// Adaptation allows lowering the limit in accordance with the value in the response header.
	Adaptation RateLimitingRoundTripperAdaptation `mapstructure:"adaptation" yaml:"adaptation" json:"adaptation"`
}

// TransportOpts returns rate limiting round tripper options.
func (c *RateLimitConfig) TransportOpts() RateLimitingRoundTripperOpts {
	return RateLimitingRoundTripperOpts{Burst: c.Burst, WaitTimeout: c.WaitTimeout, Adaptation: c.Adaptation}
}

// LoggerConfig represents configuration options for HTTP client logs.
type LoggerConfig struct {
	Enabled              bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Mode                 LoggingMode   `mapstructure:"mode" yaml:"mode" json:"mode"`
	SlowRequestThreshold time.Duration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold" json:"slowRequestThreshold"`
}

// TransportOpts returns logging round tripper options.
func (c *LoggerConfig) TransportOpts() LoggingRoundTripperOpts {
	return LoggingRoundTripperOpts{Mode: c.Mode, SlowRequestThreshold: c.SlowRequestThreshold}
}

// MetricsConfig represents configuration options for HTTP client metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.MaxConnsPerHost = DefaultMaxConnsPerHost
	cfg.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	cfg.MaxRedirects = DefaultMaxRedirects
	cfg.DNS.Timeout = DefaultDNSTimeout
	cfg.RateLimits.Burst = DefaultRateLimitingBurst
	cfg.RateLimits.WaitTimeout = DefaultRateLimitingWaitTimeout
	cfg.Logger.Enabled = true
	cfg.Logger.Mode = LoggingModeFailed
	cfg.Metrics.Enabled = true
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxConnsPerHost, DefaultMaxConnsPerHost)
	dp.SetDefault(cfgKeyMaxIdleConnsPerHost, DefaultMaxIdleConnsPerHost)
	dp.SetDefault(cfgKeyMaxRedirects, DefaultMaxRedirects)
	dp.SetDefault(cfgKeyDNSTimeout, DefaultDNSTimeout)
	dp.SetDefault(cfgKeyRateLimitsBurst, DefaultRateLimitingBurst)
	dp.SetDefault(cfgKeyRateLimitsWaitTimeout, DefaultRateLimitingWaitTimeout)
	dp.SetDefault(cfgKeyLoggerEnabled, true)
	dp.SetDefault(cfgKeyLoggerMode, string(LoggingModeFailed))
	dp.SetDefault(cfgKeyMetricsEnabled, true)
}

// Set sets HTTP client configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.UserAgent, err = dp.GetString(cfgKeyUserAgent); err != nil {
		return err
	}

	if c.MaxConnsPerHost, err = dp.GetInt(cfgKeyMaxConnsPerHost); err != nil {
		return err
	}
	if c.MaxConnsPerHost < 0 {
		return dp.WrapKeyErr(cfgKeyMaxConnsPerHost, errors.New("must be >= 0"))
	}
	if c.MaxIdleConnsPerHost, err = dp.GetInt(cfgKeyMaxIdleConnsPerHost); err != nil {
		return err
	}
	if c.MaxIdleConnsPerHost < 0 {
		return dp.WrapKeyErr(cfgKeyMaxIdleConnsPerHost, errors.New("must be >= 0"))
	}
	if c.MaxRedirects, err = dp.GetInt(cfgKeyMaxRedirects); err != nil {
		return err
	}
	if c.MaxRedirects < 0 {
		return dp.WrapKeyErr(cfgKeyMaxRedirects, errors.New("must be >= 0"))
	}

	if c.DNS.Servers, err = dp.GetStringSlice(cfgKeyDNSServers); err != nil {
		return err
	}
	if c.DNS.Timeout, err = dp.GetDuration(cfgKeyDNSTimeout); err != nil {
		return err
	}

	if err = c.setRateLimitConfig(dp); err != nil {
		return err
	}
	if err = c.setLoggerConfig(dp); err != nil {
		return err
	}

	c.Metrics.Enabled, err = dp.GetBool(cfgKeyMetricsEnabled)
	return err
}

func (c *Config) setRateLimitConfig(dp config.DataProvider) error {
	var err error
	if c.RateLimits.Enabled, err = dp.GetBool(cfgKeyRateLimitsEnabled); err != nil {
		return err
	}
	if c.RateLimits.Burst, err = dp.GetInt(cfgKeyRateLimitsBurst); err != nil {
		return err
	}
	if c.RateLimits.WaitTimeout, err = dp.GetDuration(cfgKeyRateLimitsWaitTimeout); err != nil {
		return err
	}
	if !c.RateLimits.Enabled {
		return nil
	}

	if c.RateLimits.Limit, err = dp.GetInt(cfgKeyRateLimitsLimit); err != nil {
		return err
	}
	if c.RateLimits.Limit <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsLimit, errors.New("must be positive"))
	}
	if c.RateLimits.Burst < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsBurst, errors.New("must be >= 0"))
	}
	if c.RateLimits.WaitTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsWaitTimeout, errors.New("must be >= 0"))
	}
	if c.RateLimits.Adaptation.ResponseHeaderName, err = dp.GetString(cfgKeyRateLimitsAdaptationHeader); err != nil {
		return err
	}
	if c.RateLimits.Adaptation.SlackPercent, err = dp.GetInt(cfgKeyRateLimitsAdaptationSlack); err != nil {
		return err
	}
	if c.RateLimits.Adaptation.SlackPercent < 0 || c.RateLimits.Adaptation.SlackPercent > 100 {
		return dp.WrapKeyErr(cfgKeyRateLimitsAdaptationSlack, errors.New("must be in range [0..100]"))
	}
	return nil
}

func (c *Config) setLoggerConfig(dp config.DataProvider) error {
	var err error
	if c.Logger.Enabled, err = dp.GetBool(cfgKeyLoggerEnabled); err != nil {
		return err
	}
	var mode string
	if mode, err = dp.GetString(cfgKeyLoggerMode); err != nil {
		return err
	}
	c.Logger.Mode = LoggingMode(mode)
	if !c.Logger.Mode.IsValid() {
		return dp.WrapKeyErr(cfgKeyLoggerMode, fmt.Errorf("unknown value %q, should be one of [none, all, failed]", mode))
	}
	c.Logger.SlowRequestThreshold, err = dp.GetDuration(cfgKeyLoggerSlowRequestThreshold)
	return err
}
