/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-crawldispatch/internal/libinfo"
	"github.com/acronis/go-crawldispatch/log"
	"github.com/acronis/go-crawldispatch/log/logtest"
)

func newRedirectingServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		hops, _ := strconv.Atoi(r.URL.Query().Get("hops"))
		if hops > 0 {
			http.Redirect(rw, r, "/?hops="+strconv.Itoa(hops-1), http.StatusFound)
			return
		}
		rw.Header().Set("X-Echo-User-Agent", r.Header.Get("User-Agent"))
		rw.WriteHeader(http.StatusOK)
	}))
}

func TestNewWithOpts(t *testing.T) {
	server := newRedirectingServer()
	defer server.Close()

	t.Run("default user agent", func(t *testing.T) {
		client, err := New(NewDefaultConfig())
		require.NoError(t, err)
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, libinfo.UserAgent(), resp.Header.Get("X-Echo-User-Agent"))
	})

	t.Run("custom user agent", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.UserAgent = "my-crawler/2.0"
		client := Must(cfg)
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, "my-crawler/2.0", resp.Header.Get("X-Echo-User-Agent"))
	})

	t.Run("redirects are limited", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.MaxRedirects = 2
		client := Must(cfg)

		resp, err := client.Get(server.URL + "/?hops=2")
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode)

		_, err = client.Get(server.URL + "/?hops=3") //nolint:bodyclose
		require.ErrorContains(t, err, "stopped after 2 redirects")
	})

	t.Run("redirects are not followed", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.MaxRedirects = 0
		resp, err := Must(cfg).Get(server.URL + "/?hops=1")
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusFound, resp.StatusCode)
	})

	t.Run("logging and metrics", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Logger.Mode = LoggingModeAll
		collector := NewPrometheusMetricsCollector("")
		logger := logtest.NewRecorder()
		client, err := NewWithOpts(cfg, Opts{Collector: collector})
		require.NoError(t, err)

		req, err := http.NewRequestWithContext(log.NewContextWithLogger(context.Background(), logger), http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		_, found := logger.FindEntry("client http request finished")
		require.True(t, found)
		require.Equal(t, 1, testutil.CollectAndCount(collector.Durations))
	})

	t.Run("rate limits", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.RateLimits.Enabled = true
		_, err := New(cfg)
		require.EqualError(t, err, "create rate limiting round tripper: rate limit must be positive")
	})

	t.Run("custom DNS servers", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.DNS.Servers = []string{"127.0.0.1:53"}
		transport := newBaseTransport(cfg)
		require.NotNil(t, transport.DialContext)
		require.Equal(t, DefaultMaxConnsPerHost, transport.MaxConnsPerHost)
		require.Equal(t, DefaultMaxIdleConnsPerHost, transport.MaxIdleConnsPerHost)
	})
}
