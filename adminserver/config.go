/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package adminserver

import (
	"errors"
	"time"

	"github.com/acronis/go-crawldispatch/config"
)

const cfgDefaultKeyPrefix = "adminServer"

// Default configuration values.
const (
	DefaultAddress            = "127.0.0.1:9090"
	DefaultReadHeaderTimeout  = 5 * time.Second
	DefaultShutdownTimeout    = 5 * time.Second
	DefaultMaxTargetsBodySize = config.BytesCount(1 << 20)
)

const (
	cfgKeyEnabled            = "enabled"
	cfgKeyAddress            = "address"
	cfgKeyReadHeaderTimeout  = "timeouts.readHeader"
	cfgKeyShutdownTimeout    = "timeouts.shutdown"
	cfgKeyMaxTargetsBodySize = "maxTargetsBodySize"
	cfgKeyPprofEnabled       = "pprof.enabled"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Config represents a set of configuration parameters for the admin HTTP server.
type Config struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Address string `mapstructure:"address" yaml:"address" json:"address"`

	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts" json:"timeouts"`

	// MaxTargetsBodySize limits the body of POST /targets.
	MaxTargetsBodySize config.BytesCount `mapstructure:"maxTargetsBodySize" yaml:"maxTargetsBodySize" json:"maxTargetsBodySize"`

	Pprof PprofConfig `mapstructure:"pprof" yaml:"pprof" json:"pprof"`

	keyPrefix string
}

// TimeoutsConfig represents timeouts of the admin HTTP server.
type TimeoutsConfig struct {
	ReadHeader time.Duration `mapstructure:"readHeader" yaml:"readHeader" json:"readHeader"`
	Shutdown   time.Duration `mapstructure:"shutdown" yaml:"shutdown" json:"shutdown"`
}

// PprofConfig controls profiling endpoints under /debug.
type PprofConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix(cfgDefaultKeyPrefix)
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Address: DefaultAddress,
		Timeouts: TimeoutsConfig{
			ReadHeader: DefaultReadHeaderTimeout,
			Shutdown:   DefaultShutdownTimeout,
		},
		MaxTargetsBodySize: DefaultMaxTargetsBodySize,
		Pprof:              PprofConfig{Enabled: true},
		keyPrefix:          cfgDefaultKeyPrefix,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the admin server in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyEnabled, true)
	dp.SetDefault(cfgKeyAddress, DefaultAddress)
	dp.SetDefault(cfgKeyReadHeaderTimeout, DefaultReadHeaderTimeout)
	dp.SetDefault(cfgKeyShutdownTimeout, DefaultShutdownTimeout)
	dp.SetDefault(cfgKeyMaxTargetsBodySize, DefaultMaxTargetsBodySize.String())
	dp.SetDefault(cfgKeyPprofEnabled, true)
}

// Set sets admin server configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}
	if c.Address, err = dp.GetString(cfgKeyAddress); err != nil {
		return err
	}
	if c.Enabled && c.Address == "" {
		return dp.WrapKeyErr(cfgKeyAddress, errors.New("must not be empty"))
	}
	if c.Timeouts.ReadHeader, err = dp.GetDuration(cfgKeyReadHeaderTimeout); err != nil {
		return err
	}
	if c.Timeouts.Shutdown, err = dp.GetDuration(cfgKeyShutdownTimeout); err != nil {
		return err
	}
	if c.MaxTargetsBodySize, err = dp.GetBytesCount(cfgKeyMaxTargetsBodySize); err != nil {
		return err
	}
	if c.Pprof.Enabled, err = dp.GetBool(cfgKeyPprofEnabled); err != nil {
		return err
	}
	return nil
}
