/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Default parameter values for RateLimitingRoundTripper.
const (
	DefaultRateLimitingBurst       = 1
	DefaultRateLimitingWaitTimeout = 15 * time.Second
)

// RateLimitingRoundTripperAdaptation describes how the limit follows the value announced by the crawled site.
type RateLimitingRoundTripperAdaptation struct {
	// ResponseHeaderName is a name of the response header with the allowed number of requests per second.
	ResponseHeaderName string `mapstructure:"responseHeaderName" yaml:"responseHeaderName" json:"responseHeaderName"`

	// SlackPercent is subtracted from the announced limit to stay below it.
	SlackPercent int `mapstructure:"slackPercent" yaml:"slackPercent" json:"slackPercent"`
}

// RateLimitingRoundTripperOpts represents an options for RateLimitingRoundTripper.
type RateLimitingRoundTripperOpts struct {
	Burst       int
	WaitTimeout time.Duration
	Adaptation  RateLimitingRoundTripperAdaptation
}

// RateLimitingRoundTripper limits the rate of outgoing requests of the crawler.
// The limit may be lowered dynamically by the value from the response header (see Adaptation),
// it never exceeds the configured RateLimit.
type RateLimitingRoundTripper struct {
	Delegate    http.RoundTripper
	RateLimit   int
	Burst       int
	WaitTimeout time.Duration
	Adaptation  RateLimitingRoundTripperAdaptation

	limiter *rate.Limiter
}

// NewRateLimitingRoundTripper creates a new RateLimitingRoundTripper with specified rate limit.
func NewRateLimitingRoundTripper(delegate http.RoundTripper, rateLimit int) (*RateLimitingRoundTripper, error) {
	return NewRateLimitingRoundTripperWithOpts(delegate, rateLimit, RateLimitingRoundTripperOpts{})
}

// NewRateLimitingRoundTripperWithOpts creates a new RateLimitingRoundTripper with specified rate limit and options.
func NewRateLimitingRoundTripperWithOpts(
	delegate http.RoundTripper, rateLimit int, opts RateLimitingRoundTripperOpts,
) (*RateLimitingRoundTripper, error) {
	switch {
	case rateLimit <= 0:
		return nil, fmt.Errorf("rate limit must be positive")
	case opts.Burst < 0:
		return nil, fmt.Errorf("burst must be positive")
	case opts.Adaptation.SlackPercent < 0 || opts.Adaptation.SlackPercent > 100:
		return nil, fmt.Errorf("slack percent must be in range [0..100]")
	}
	if opts.Burst == 0 {
		opts.Burst = DefaultRateLimitingBurst
	}
	if opts.WaitTimeout == 0 {
		opts.WaitTimeout = DefaultRateLimitingWaitTimeout
	}
	return &RateLimitingRoundTripper{
		Delegate:    delegate,
		RateLimit:   rateLimit,
		Burst:       opts.Burst,
		WaitTimeout: opts.WaitTimeout,
		Adaptation:  opts.Adaptation,
		limiter:     rate.NewLimiter(rate.Limit(rateLimit), opts.Burst),
	}, nil
}

// CurrentLimit returns the rate limit (requests per second) that is applied at the moment.
func (rt *RateLimitingRoundTripper) CurrentLimit() int {
	return int(rt.limiter.Limit())
}

// RoundTrip waits for the rate limiter and executes a single HTTP transaction.
func (rt *RateLimitingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(r.Context(), rt.WaitTimeout)
	defer cancel()

	if err := rt.limiter.Wait(ctx); err != nil {
		if r.Body != nil {
			_ = r.Body.Close() // Per RoundTripper contract.
		}
		if errors.Is(r.Context().Err(), context.Canceled) {
			return nil, r.Context().Err()
		}
		return nil, &RateLimitingWaitError{Inner: err}
	}

	resp, err := rt.Delegate.RoundTrip(r)
	if err != nil {
		return resp, err
	}
	if rt.Adaptation.ResponseHeaderName != "" {
		rt.adaptLimit(resp.Header.Get(rt.Adaptation.ResponseHeaderName))
	}
	return resp, nil
}

// adaptLimit restores the configured limit when the header is missing or malformed.
func (rt *RateLimitingRoundTripper) adaptLimit(headerVal string) {
	newLimit := rt.RateLimit
	if announced, err := strconv.Atoi(headerVal); err == nil && announced >= 0 {
		announced = announced * (100 - rt.Adaptation.SlackPercent) / 100
		if announced == 0 {
			announced = 1 // Keep crawling slowly instead of stopping at all.
		}
		if announced < newLimit {
			newLimit = announced
		}
	}
	if rt.limiter.Limit() != rate.Limit(newLimit) {
		rt.limiter.SetLimit(rate.Limit(newLimit))
	}
}

// RateLimitingWaitError is returned in RoundTrip method of RateLimitingRoundTripper
// when the request cannot be sent within WaitTimeout.
type RateLimitingWaitError struct {
	Inner error
}

func (e *RateLimitingWaitError) Error() string {
	return fmt.Sprintf("wait due to client side rate limiting: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *RateLimitingWaitError) Unwrap() error {
	return e.Inner
}
