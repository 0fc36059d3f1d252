/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-crawldispatch/log"
	"github.com/acronis/go-crawldispatch/log/logtest"
)

func TestLoggingRoundTripper_RoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			rw.WriteHeader(http.StatusNotFound)
		case "/slow":
			time.Sleep(50 * time.Millisecond)
			rw.WriteHeader(http.StatusOK)
		default:
			rw.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	tests := []struct {
		name      string
		opts      LoggingRoundTripperOpts
		path      string
		wantEntry string
	}{
		{name: "failed mode, success", opts: LoggingRoundTripperOpts{Mode: LoggingModeFailed}, path: "/"},
		{
			name:      "failed mode, error status",
			opts:      LoggingRoundTripperOpts{Mode: LoggingModeFailed},
			path:      "/missing",
			wantEntry: "client http request finished with error status",
		},
		{name: "all mode, fast request", opts: LoggingRoundTripperOpts{Mode: LoggingModeAll, SlowRequestThreshold: time.Second}, path: "/"},
		{
			name:      "all mode, slow request",
			opts:      LoggingRoundTripperOpts{Mode: LoggingModeAll, SlowRequestThreshold: 10 * time.Millisecond},
			path:      "/slow",
			wantEntry: "client http request finished",
		},
		{name: "none mode, error status", opts: LoggingRoundTripperOpts{Mode: LoggingModeNone}, path: "/missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := logtest.NewRecorder()
			client := &http.Client{Transport: NewLoggingRoundTripperWithOpts(http.DefaultTransport, tt.opts)}
			req, err := http.NewRequestWithContext(
				log.NewContextWithLogger(context.Background(), logger), http.MethodGet, server.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := client.Do(req)
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())

			if tt.wantEntry == "" {
				require.Empty(t, logger.Entries())
				return
			}
			require.Len(t, logger.Entries(), 1)
			entry, found := logger.FindEntry(tt.wantEntry)
			require.True(t, found)
			urlField, found := entry.FindField("url")
			require.True(t, found)
			require.Equal(t, server.URL+tt.path, string(urlField.Bytes))
			statusField, found := entry.FindField("status")
			require.True(t, found)
			require.Equal(t, int64(resp.StatusCode), statusField.Int)
		})
	}
}

func TestLoggingRoundTripper_MasksURLCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	u, err := url.Parse(server.URL + "/private?access_token=SECRET&page=2")
	require.NoError(t, err)
	u.User = url.UserPassword("bob", "hunter2")

	logger := logtest.NewRecorder()
	client := &http.Client{Transport: NewLoggingRoundTripperWithOpts(http.DefaultTransport, LoggingRoundTripperOpts{
		LoggerProvider: func(ctx context.Context) log.FieldLogger { return logger },
	})}
	resp, err := client.Get(u.String())
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	entry, found := logger.FindEntry("client http request finished with error status")
	require.True(t, found)
	urlField, found := entry.FindField("url")
	require.True(t, found)
	require.Equal(t, "http://bob:***@"+u.Host+"/private?access_token=***&page=2", string(urlField.Bytes))
}

func TestLoggingRoundTripper_TransportError(t *testing.T) {
	logger := logtest.NewRecorder()
	rt := NewLoggingRoundTripperWithOpts(http.DefaultTransport, LoggingRoundTripperOpts{
		LoggerProvider: func(ctx context.Context) log.FieldLogger { return logger },
	})
	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1:1/", nil)
	require.NoError(t, err)
	_, err = (&http.Client{Transport: rt}).Do(req) //nolint:bodyclose
	require.Error(t, err)

	entry, found := logger.FindEntry("client http request failed")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)
	_, found = entry.FindField("error")
	require.True(t, found)
}

func TestLoggingRoundTripper_NoLogger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := &http.Client{Transport: NewLoggingRoundTripper(http.DefaultTransport)}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
