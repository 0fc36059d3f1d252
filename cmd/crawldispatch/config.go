/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"errors"
	"time"

	"github.com/acronis/go-crawldispatch/adminserver"
	"github.com/acronis/go-crawldispatch/config"
	"github.com/acronis/go-crawldispatch/dispatch"
	"github.com/acronis/go-crawldispatch/httpclient"
	"github.com/acronis/go-crawldispatch/log"
)

const envVarsPrefix = "CRAWLDISPATCH"

const (
	cfgKeyCrawlSeeds            = "seeds"
	cfgKeyCrawlSeedsFile        = "seedsFile"
	cfgKeyCrawlOutput           = "output"
	cfgKeyCrawlProgressInterval = "progressInterval"
	cfgKeyCrawlStopTimeout      = "stopTimeout"
)

const (
	defaultProgressInterval = 10 * time.Second
	defaultStopTimeout      = 30 * time.Second
)

// AppConfig aggregates configurations of all crawler components.
type AppConfig struct {
	Log         *log.Config
	Dispatch    *dispatch.Options
	HTTPClient  *httpclient.Config
	AdminServer *adminserver.Config
	Crawl       *CrawlConfig
}

// NewAppConfig creates a new AppConfig.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Log:         log.NewConfig(),
		Dispatch:    dispatch.NewOptions(),
		HTTPClient:  httpclient.NewConfig(),
		AdminServer: adminserver.NewConfig(),
		Crawl:       &CrawlConfig{},
	}
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *AppConfig) SetProviderDefaults(dp config.DataProvider) {
	config.CallSetProviderDefaultsForFields(c, dp)
}

// Set sets configuration values from config.DataProvider.
func (c *AppConfig) Set(dp config.DataProvider) error {
	return config.CallSetForFields(c, dp)
}

// CrawlConfig describes what is crawled and where results are written.
type CrawlConfig struct {
	// Seeds are the initial targets.
	Seeds []string `mapstructure:"seeds" yaml:"seeds" json:"seeds"`

	// SeedsFile is a path to a file with additional initial targets, one per line.
	SeedsFile string `mapstructure:"seedsFile" yaml:"seedsFile" json:"seedsFile"`

	// Output is a path to a file where results are written as JSON lines. Stdout is used if empty.
	Output string `mapstructure:"output" yaml:"output" json:"output"`

	// ProgressInterval is an interval of logging the crawl progress. 0 disables progress logging.
	ProgressInterval time.Duration `mapstructure:"progressInterval" yaml:"progressInterval" json:"progressInterval"`

	// StopTimeout limits waiting for in-flight requests on shutdown.
	StopTimeout time.Duration `mapstructure:"stopTimeout" yaml:"stopTimeout" json:"stopTimeout"`
}

var _ config.Config = (*CrawlConfig)(nil)
var _ config.KeyPrefixProvider = (*CrawlConfig)(nil)

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *CrawlConfig) KeyPrefix() string {
	return "crawl"
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *CrawlConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyCrawlProgressInterval, defaultProgressInterval)
	dp.SetDefault(cfgKeyCrawlStopTimeout, defaultStopTimeout)
}

// Set sets crawl configuration values from config.DataProvider.
func (c *CrawlConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Seeds, err = dp.GetStringSlice(cfgKeyCrawlSeeds); err != nil {
		return err
	}
	if c.SeedsFile, err = dp.GetString(cfgKeyCrawlSeedsFile); err != nil {
		return err
	}
	if c.Output, err = dp.GetString(cfgKeyCrawlOutput); err != nil {
		return err
	}
	if c.ProgressInterval, err = dp.GetDuration(cfgKeyCrawlProgressInterval); err != nil {
		return err
	}
	if c.ProgressInterval < 0 {
		return dp.WrapKeyErr(cfgKeyCrawlProgressInterval, errors.New("must be >= 0"))
	}
	if c.StopTimeout, err = dp.GetDuration(cfgKeyCrawlStopTimeout); err != nil {
		return err
	}
	if c.StopTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyCrawlStopTimeout, errors.New("must be >= 0"))
	}
	return nil
}
