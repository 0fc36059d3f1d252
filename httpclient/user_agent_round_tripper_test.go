/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserAgentRoundTripper_RoundTrip(t *testing.T) {
	const echoHeader = "X-Echo-User-Agent"

	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set(echoHeader, r.Header.Get("User-Agent"))
		rw.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	const crawlerUA = "go-crawldispatch/v1.0.0"

	tests := []struct {
		name          string
		reqUserAgent  string
		strategy      UserAgentUpdateStrategy
		wantUserAgent string
	}{
		{name: "set if empty", strategy: UserAgentUpdateStrategySetIfEmpty, wantUserAgent: crawlerUA},
		{name: "set if empty, existing", reqUserAgent: "bot/0.1", strategy: UserAgentUpdateStrategySetIfEmpty, wantUserAgent: "bot/0.1"},
		{name: "append, empty", strategy: UserAgentUpdateStrategyAppend, wantUserAgent: crawlerUA},
		{name: "append, existing", reqUserAgent: "bot/0.1", strategy: UserAgentUpdateStrategyAppend, wantUserAgent: "bot/0.1 " + crawlerUA},
		{name: "prepend, empty", strategy: UserAgentUpdateStrategyPrepend, wantUserAgent: crawlerUA},
		{name: "prepend, existing", reqUserAgent: "bot/0.1", strategy: UserAgentUpdateStrategyPrepend, wantUserAgent: crawlerUA + " bot/0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, server.URL, nil)
			require.NoError(t, err)
			if tt.reqUserAgent != "" {
				req.Header.Set("User-Agent", tt.reqUserAgent)
			}
			rt := NewUserAgentRoundTripperWithOpts(http.DefaultTransport, crawlerUA, UserAgentRoundTripperOpts{UpdateStrategy: tt.strategy})
			resp, err := (&http.Client{Transport: rt}).Do(req)
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())
			require.Equal(t, tt.wantUserAgent, resp.Header.Get(echoHeader))
			require.Equal(t, tt.reqUserAgent, req.Header.Get("User-Agent"), "original request must not be modified")
		})
	}
}
