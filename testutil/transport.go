/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// StubResponse describes how StubTransport responds for a URL path.
type StubResponse struct {
	Status int // http.StatusOK if 0
	Header http.Header
	Body   string
	Delay  time.Duration // respects the request context
	Err    error
	Panic  interface{}
}

// StubTransport imitates a crawled site without network.
// It records the order of requests and the maximum number of concurrently running requests.
type StubTransport struct {
	mu        sync.Mutex
	responses map[string]StubResponse
	fallback  StubResponse
	calls     []string
	active    int
	maxActive int
}

// NewStubTransport creates a new StubTransport which responds 200 OK with an empty body by default.
func NewStubTransport() *StubTransport {
	return &StubTransport{responses: make(map[string]StubResponse)}
}

// Handle sets the response for the URL path.
func (st *StubTransport) Handle(path string, resp StubResponse) *StubTransport {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.responses[path] = resp
	return st
}

// HandleDefault sets the response for paths without explicit responses.
func (st *StubTransport) HandleDefault(resp StubResponse) *StubTransport {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.fallback = resp
	return st
}

// Do implements the crawler transport.
func (st *StubTransport) Do(req *http.Request) (*http.Response, error) {
	st.mu.Lock()
	resp, ok := st.responses[req.URL.Path]
	if !ok {
		resp = st.fallback
	}
	st.calls = append(st.calls, req.URL.String())
	st.active++
	if st.active > st.maxActive {
		st.maxActive = st.active
	}
	st.mu.Unlock()
	defer func() {
		st.mu.Lock()
		st.active--
		st.mu.Unlock()
	}()

	if resp.Panic != nil {
		panic(resp.Panic)
	}
	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-req.Context().Done():
			return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: req.Context().Err()}
		case <-timer.C:
		}
	}
	if resp.Err != nil {
		return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: resp.Err}
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	header := resp.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}, nil
}

// Calls returns URLs of all requests in the order they were sent.
func (st *StubTransport) Calls() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]string(nil), st.calls...)
}

// MaxActive returns the maximum number of requests that were running at the same time.
func (st *StubTransport) MaxActive() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.maxActive
}
