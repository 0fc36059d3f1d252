/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/acronis/go-crawldispatch/config"
)

const cfgDefaultKeyPrefix = "dispatch"

// Default values of Options.
const (
	DefaultMaxConcurrency                             = 10
	DefaultRequestTimeout                             = 30 * time.Second
	DefaultThrottlingRequestBackoff                   = time.Second
	DefaultMinSequentialSuccessesToMinimiseThrottling = 5
	DefaultMaxBodySize                                = config.BytesCount(10 << 20)
)

const (
	cfgKeyMaxConcurrency                             = "maxConcurrency"
	cfgKeyDelayBetweenRequestStart                   = "delayBetweenRequestStart"
	cfgKeyDelayJitter                                = "delayJitter"
	cfgKeyRequestTimeout                             = "requestTimeout"
	cfgKeyTimeoutBeforeThrottle                      = "timeoutBeforeThrottle"
	cfgKeyThrottlingRequestBackoff                   = "throttlingRequestBackoff"
	cfgKeyMinSequentialSuccessesToMinimiseThrottling = "minSequentialSuccessesToMinimiseThrottling"
	cfgKeyMaxBodySize                                = "maxBodySize"
)

var _ config.Config = (*Options)(nil)
var _ config.KeyPrefixProvider = (*Options)(nil)

// Options controls how Processor dispatches requests.
type Options struct {
	// MaxConcurrency is the maximum number of requests that are in flight at the same time.
	MaxConcurrency int `mapstructure:"maxConcurrency" yaml:"maxConcurrency" json:"maxConcurrency"`

	// DelayBetweenRequestStart is a base delay before each request is sent.
	DelayBetweenRequestStart time.Duration `mapstructure:"delayBetweenRequestStart" yaml:"delayBetweenRequestStart" json:"delayBetweenRequestStart"`

	// DelayJitter is an upper bound of the uniformly distributed random delay added to DelayBetweenRequestStart.
	DelayJitter time.Duration `mapstructure:"delayJitter" yaml:"delayJitter" json:"delayJitter"`

	// RequestTimeout limits a single request including reading of the response body. 0 means no timeout.
	RequestTimeout time.Duration `mapstructure:"requestTimeout" yaml:"requestTimeout" json:"requestTimeout"`

	// TimeoutBeforeThrottle is a latency above which a response is considered slow and the backoff is increased.
	// 0 disables throttling.
	TimeoutBeforeThrottle time.Duration `mapstructure:"timeoutBeforeThrottle" yaml:"timeoutBeforeThrottle" json:"timeoutBeforeThrottle"`

	// ThrottlingRequestBackoff is a step of increasing and decreasing of the backoff delay.
	ThrottlingRequestBackoff time.Duration `mapstructure:"throttlingRequestBackoff" yaml:"throttlingRequestBackoff" json:"throttlingRequestBackoff"`

	// MinSequentialSuccessesToMinimiseThrottling is a number of sequential fast responses
	// after which the backoff is decreased by one step.
	MinSequentialSuccessesToMinimiseThrottling int `mapstructure:"minSequentialSuccessesToMinimiseThrottling" yaml:"minSequentialSuccessesToMinimiseThrottling" json:"minSequentialSuccessesToMinimiseThrottling"` //nolint:lll

	// MaxBodySize limits the size of the buffered response body. 0 means no limit.
	MaxBodySize config.BytesCount `mapstructure:"maxBodySize" yaml:"maxBodySize" json:"maxBodySize"`

	keyPrefix string
}

// OptionsOption is a type for functional options for the Options.
type OptionsOption func(*optionsOptions)

type optionsOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns an OptionsOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) OptionsOption {
	return func(o *optionsOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewOptions creates a new instance of the Options that may be loaded from a configuration source.
func NewOptions(options ...OptionsOption) *Options {
	opts := optionsOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, o := range options {
		o(&opts)
	}
	return &Options{keyPrefix: opts.keyPrefix}
}

// NewDefaultOptions creates a new instance of the Options with default values.
func NewDefaultOptions(options ...OptionsOption) *Options {
	opts := NewOptions(options...)
	opts.MaxConcurrency = DefaultMaxConcurrency
	opts.RequestTimeout = DefaultRequestTimeout
	opts.ThrottlingRequestBackoff = DefaultThrottlingRequestBackoff
	opts.MinSequentialSuccessesToMinimiseThrottling = DefaultMinSequentialSuccessesToMinimiseThrottling
	opts.MaxBodySize = DefaultMaxBodySize
	return opts
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (o *Options) KeyPrefix() string {
	if o.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return o.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (o *Options) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxConcurrency, DefaultMaxConcurrency)
	dp.SetDefault(cfgKeyRequestTimeout, DefaultRequestTimeout)
	dp.SetDefault(cfgKeyThrottlingRequestBackoff, DefaultThrottlingRequestBackoff)
	dp.SetDefault(cfgKeyMinSequentialSuccessesToMinimiseThrottling, DefaultMinSequentialSuccessesToMinimiseThrottling)
	dp.SetDefault(cfgKeyMaxBodySize, DefaultMaxBodySize.String())
}

// Set sets dispatching options from config.DataProvider.
func (o *Options) Set(dp config.DataProvider) error {
	var err error
	if o.MaxConcurrency, err = dp.GetInt(cfgKeyMaxConcurrency); err != nil {
		return err
	}
	if o.MinSequentialSuccessesToMinimiseThrottling, err = dp.GetInt(cfgKeyMinSequentialSuccessesToMinimiseThrottling); err != nil {
		return err
	}
	for _, d := range o.durations() {
		if *d.val, err = dp.GetDuration(d.key); err != nil {
			return err
		}
	}
	if o.MaxBodySize, err = dp.GetBytesCount(cfgKeyMaxBodySize); err != nil {
		return err
	}

	var fieldErr *optionError
	if err = o.Validate(); errors.As(err, &fieldErr) {
		return dp.WrapKeyErr(fieldErr.key, fieldErr.inner)
	}
	return err
}

// Validate checks that options are in the allowed ranges.
func (o *Options) Validate() error {
	if o.MaxConcurrency < 1 {
		return newOptionError(cfgKeyMaxConcurrency, "must be >= 1")
	}
	if o.MinSequentialSuccessesToMinimiseThrottling < 1 {
		return newOptionError(cfgKeyMinSequentialSuccessesToMinimiseThrottling, "must be >= 1")
	}
	for _, d := range o.durations() {
		if *d.val < 0 {
			return newOptionError(d.key, "must be >= 0")
		}
	}
	return nil
}

type durationOption struct {
	key string
	val *time.Duration
}

func (o *Options) durations() []durationOption {
	return []durationOption{
		{cfgKeyDelayBetweenRequestStart, &o.DelayBetweenRequestStart},
		{cfgKeyDelayJitter, &o.DelayJitter},
		{cfgKeyRequestTimeout, &o.RequestTimeout},
		{cfgKeyTimeoutBeforeThrottle, &o.TimeoutBeforeThrottle},
		{cfgKeyThrottlingRequestBackoff, &o.ThrottlingRequestBackoff},
	}
}

type optionError struct {
	key   string
	inner error
}

func newOptionError(key, msg string) *optionError {
	return &optionError{key: key, inner: errors.New(msg)}
}

func (e *optionError) Error() string {
	return fmt.Sprintf("%s: %s", e.key, e.inner)
}

func (e *optionError) Unwrap() error {
	return e.inner
}
