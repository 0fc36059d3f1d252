/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testFetchConfig struct {
	Workers int
	Timeout time.Duration
}

func (c *testFetchConfig) KeyPrefix() string {
	return "fetch"
}

func (c *testFetchConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("workers", 2)
	dp.SetDefault("timeout", "10s")
}

func (c *testFetchConfig) Set(dp DataProvider) error {
	var err error
	if c.Workers, err = dp.GetInt("workers"); err != nil {
		return err
	}
	c.Timeout, err = dp.GetDuration("timeout")
	return err
}

type testOutputConfig struct {
	Path string
}

func (c *testOutputConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("output.path", "-")
}

func (c *testOutputConfig) Set(dp DataProvider) error {
	var err error
	c.Path, err = dp.GetString("output.path")
	return err
}

type testAppConfig struct {
	Fetch  *testFetchConfig
	Output *testOutputConfig
	Absent *testOutputConfig
	hidden *testOutputConfig
}

func (c *testAppConfig) SetProviderDefaults(dp DataProvider) {
	CallSetProviderDefaultsForFields(c, dp)
}

func (c *testAppConfig) Set(dp DataProvider) error {
	return CallSetForFields(c, dp)
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Run("defaults are used", func(t *testing.T) {
		fetchCfg := &testFetchConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, fetchCfg)
		require.NoError(t, err)
		require.Equal(t, 2, fetchCfg.Workers)
		require.Equal(t, 10*time.Second, fetchCfg.Timeout)
	})

	t.Run("values with key prefix", func(t *testing.T) {
		fetchCfg := &testFetchConfig{}
		yamlData := "fetch:\n  workers: 8\n  timeout: 1m\n"
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(yamlData), DataTypeYAML, fetchCfg)
		require.NoError(t, err)
		require.Equal(t, 8, fetchCfg.Workers)
		require.Equal(t, time.Minute, fetchCfg.Timeout)
	})

	t.Run("invalid value", func(t *testing.T) {
		fetchCfg := &testFetchConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"fetch":{"workers":"many"}}`), DataTypeJSON, fetchCfg)
		require.ErrorContains(t, err, "fetch.workers")
	})

	t.Run("aggregated config", func(t *testing.T) {
		appCfg := &testAppConfig{Fetch: &testFetchConfig{}, Output: &testOutputConfig{}, hidden: &testOutputConfig{}}
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"fetch":{"workers":3},"output":{"path":"/tmp/out.jsonl"}}`), DataTypeJSON, appCfg)
		require.NoError(t, err)
		require.Equal(t, 3, appCfg.Fetch.Workers)
		require.Equal(t, "/tmp/out.jsonl", appCfg.Output.Path)
		require.Nil(t, appCfg.Absent)
		require.Empty(t, appCfg.hidden.Path)
	})
}

func TestLoader_LoadFromFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "crawler.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("fetch:\n  workers: 5\n"), 0o600))

	fetchCfg := &testFetchConfig{}
	require.NoError(t, NewLoader(NewViperAdapter()).LoadFromFile(cfgPath, DataTypeFromPath(cfgPath), fetchCfg))
	require.Equal(t, 5, fetchCfg.Workers)

	err := NewLoader(NewViperAdapter()).LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"), DataTypeYAML, fetchCfg)
	require.Error(t, err)
}

func TestLoader_LoadDefaults_EnvVars(t *testing.T) {
	t.Setenv("CRAWLTEST_FETCH_WORKERS", "12")
	fetchCfg := &testFetchConfig{}
	require.NoError(t, NewDefaultLoader("crawltest").LoadDefaults(fetchCfg))
	require.Equal(t, 12, fetchCfg.Workers)
	require.Equal(t, 10*time.Second, fetchCfg.Timeout)
}

func TestDataTypeFromPath(t *testing.T) {
	require.Equal(t, DataTypeJSON, DataTypeFromPath("/etc/crawler/config.JSON"))
	require.Equal(t, DataTypeYAML, DataTypeFromPath("config.yml"))
	require.Equal(t, DataTypeYAML, DataTypeFromPath("config"))
}
