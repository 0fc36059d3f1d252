/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds the HTTP client that the crawler dispatcher uses as its transport.
// The client is a chain of round trippers (logging, metrics, client side rate limiting, User-Agent)
// on top of a tuned http.Transport.
package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/acronis/go-crawldispatch/internal/libinfo"
	"github.com/acronis/go-crawldispatch/log"
	"github.com/acronis/go-crawldispatch/netutil"
)

// Opts provides options for NewWithOpts function.
type Opts struct {
	// Delegate is the innermost RoundTripper in the chain. A tuned clone of http.DefaultTransport is used by default.
	Delegate http.RoundTripper

	// LoggerProvider is a function that provides a context-specific logger.
	// log.GetLoggerFromContext is used by default.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// Collector is a metrics collector. Metrics are not collected when it's nil.
	Collector MetricsCollector
}

// New creates an HTTP client for crawling in accordance with the passed config.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates an HTTP client for crawling in accordance with the passed config and options.
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	var err error
	delegate := opts.Delegate
	if delegate == nil {
		delegate = newBaseTransport(cfg)
	}

	if cfg.Logger.Enabled {
		logOpts := cfg.Logger.TransportOpts()
		logOpts.LoggerProvider = opts.LoggerProvider
		delegate = NewLoggingRoundTripperWithOpts(delegate, logOpts)
	}

	if cfg.Metrics.Enabled && opts.Collector != nil {
		delegate = NewMetricsRoundTripper(delegate, opts.Collector)
	}

	if cfg.RateLimits.Enabled {
		delegate, err = NewRateLimitingRoundTripperWithOpts(delegate, cfg.RateLimits.Limit, cfg.RateLimits.TransportOpts())
		if err != nil {
			return nil, fmt.Errorf("create rate limiting round tripper: %w", err)
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = libinfo.UserAgent()
	}
	delegate = NewUserAgentRoundTripper(delegate, userAgent)

	return &http.Client{Transport: delegate, CheckRedirect: makeCheckRedirect(cfg.MaxRedirects)}, nil
}

// Must creates an HTTP client for crawling and panics if any error occurs.
func Must(cfg *Config) *http.Client {
	client, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

func newBaseTransport(cfg *Config) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxConnsPerHost = cfg.MaxConnsPerHost
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	if len(cfg.DNS.Servers) != 0 {
		resolver := netutil.NewCustomDNSResolver(cfg.DNS.Servers, cfg.DNS.Timeout)
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second, Resolver: resolver}
		transport.DialContext = dialer.DialContext
	}
	return transport
}

func makeCheckRedirect(maxRedirects int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if maxRedirects == 0 {
			return http.ErrUseLastResponse
		}
		if len(via) > maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
}
