/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRateLimitingRoundTripperWithOpts(t *testing.T) {
	tests := []struct {
		name       string
		rateLimit  int
		opts       RateLimitingRoundTripperOpts
		wantErrMsg string
	}{
		{name: "rate limit is zero", rateLimit: 0, wantErrMsg: "rate limit must be positive"},
		{name: "rate limit is negative", rateLimit: -5, wantErrMsg: "rate limit must be positive"},
		{
			name:       "burst is negative",
			rateLimit:  1,
			opts:       RateLimitingRoundTripperOpts{Burst: -1},
			wantErrMsg: "burst must be positive",
		},
		{
			name:       "slack percent > 100",
			rateLimit:  1,
			opts:       RateLimitingRoundTripperOpts{Adaptation: RateLimitingRoundTripperAdaptation{SlackPercent: 101}},
			wantErrMsg: "slack percent must be in range [0..100]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRateLimitingRoundTripperWithOpts(http.DefaultTransport, tt.rateLimit, tt.opts)
			require.EqualError(t, err, tt.wantErrMsg)
		})
	}

	rt, err := NewRateLimitingRoundTripper(http.DefaultTransport, 3)
	require.NoError(t, err)
	require.Equal(t, DefaultRateLimitingBurst, rt.Burst)
	require.Equal(t, DefaultRateLimitingWaitTimeout, rt.WaitTimeout)
	require.Equal(t, 3, rt.CurrentLimit())
}

func TestRateLimitingRoundTripper_RoundTrip(t *testing.T) {
	const allowedDeviation = 100 * time.Millisecond

	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	t.Run("second request waits for a token", func(t *testing.T) {
		rt, err := NewRateLimitingRoundTripperWithOpts(http.DefaultTransport, 2, RateLimitingRoundTripperOpts{})
		require.NoError(t, err)
		client := &http.Client{Transport: rt}

		start := time.Now()
		for i := 0; i < 2; i++ {
			resp, err := client.Get(server.URL)
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())
		}
		require.WithinDuration(t, start.Add(time.Second/2), time.Now(), allowedDeviation)
	})

	t.Run("wait timeout is exceeded", func(t *testing.T) {
		rt, err := NewRateLimitingRoundTripperWithOpts(http.DefaultTransport, 1,
			RateLimitingRoundTripperOpts{WaitTimeout: 100 * time.Millisecond})
		require.NoError(t, err)
		client := &http.Client{Transport: rt}

		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		_, err = client.Get(server.URL) //nolint:bodyclose
		var waitErr *RateLimitingWaitError
		require.ErrorAs(t, err, &waitErr)
	})

	t.Run("canceled request context is returned as is", func(t *testing.T) {
		rt, err := NewRateLimitingRoundTripper(http.DefaultTransport, 1)
		require.NoError(t, err)
		client := &http.Client{Transport: rt}

		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		_, err = client.Do(req) //nolint:bodyclose
		require.ErrorIs(t, err, context.Canceled)
		var waitErr *RateLimitingWaitError
		require.False(t, errors.As(err, &waitErr))
	})
}

func TestRateLimitingRoundTripper_Adaptation(t *testing.T) {
	const header = "X-Crawl-Rate"

	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if v := r.URL.Query().Get("rate"); v != "" {
			rw.Header().Set(header, v)
		}
		rw.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tests := []struct {
		name      string
		rateLimit int
		slack     int
		announced []string
		wantLimit int
	}{
		{name: "lowered by header", rateLimit: 100, announced: []string{"10"}, wantLimit: 10},
		{name: "slack is applied", rateLimit: 100, slack: 20, announced: []string{"10"}, wantLimit: 8},
		{name: "never above configured", rateLimit: 100, announced: []string{"500"}, wantLimit: 100},
		{name: "zero becomes one", rateLimit: 100, announced: []string{"0"}, wantLimit: 1},
		{name: "malformed restores configured", rateLimit: 100, announced: []string{"10", "foo"}, wantLimit: 100},
		{name: "missing restores configured", rateLimit: 100, announced: []string{"10", ""}, wantLimit: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := NewRateLimitingRoundTripperWithOpts(http.DefaultTransport, tt.rateLimit, RateLimitingRoundTripperOpts{
				Burst:      10,
				Adaptation: RateLimitingRoundTripperAdaptation{ResponseHeaderName: header, SlackPercent: tt.slack},
			})
			require.NoError(t, err)
			client := &http.Client{Transport: rt}
			for _, v := range tt.announced {
				u := server.URL
				if v != "" {
					u += "?rate=" + v
				}
				resp, err := client.Get(u)
				require.NoError(t, err)
				require.NoError(t, resp.Body.Close())
			}
			require.Equal(t, tt.wantLimit, rt.CurrentLimit())
			require.Equal(t, tt.rateLimit, rt.RateLimit)
		})
	}
}
