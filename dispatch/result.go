/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"context"
	"net/http"
	"time"
)

// Transport issues HTTP requests for the crawler. *http.Client satisfies this interface.
// The request context carries the deadline of the request and the request-scoped logger.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// TransportFunc is an adapter to allow the use of ordinary functions as Transport.
type TransportFunc func(req *http.Request) (*http.Response, error)

// Do calls f(req).
func (f TransportFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// ResultSink consumes results of requests. Results are delivered one by one in completion order.
// If Deliver returns an error, Processor.Process is aborted with this error.
type ResultSink interface {
	Deliver(ctx context.Context, result *RequestResult) error
}

// ResultSinkFunc is an adapter to allow the use of ordinary functions as ResultSink.
type ResultSinkFunc func(ctx context.Context, result *RequestResult) error

// Deliver calls f(ctx, result).
func (f ResultSinkFunc) Deliver(ctx context.Context, result *RequestResult) error {
	return f(ctx, result)
}

// RequestContext describes a scheduled request. It's created when the target is taken from the queue.
type RequestContext struct {
	// Seq is a sequence number of the request, unique and strictly increasing within a run.
	Seq uint64

	// RunID identifies the Process call which has issued the request.
	RunID string

	Target Target

	// StartDelay is the delay before sending the request (base delay + jitter + backoff at the moment of scheduling).
	StartDelay time.Duration

	// Timeout is the timeout of the request. 0 means no timeout.
	Timeout time.Duration
}

// RequestResult is a result of a request delivered to ResultSink.
// Either Err is set (soft failure: transport error, timeout, too large body)
// or StatusCode, Header and Body are filled.
type RequestResult struct {
	Seq    uint64
	Target Target

	// StartedAt is a time when the request was sent (after StartDelay).
	StartedAt time.Time

	StartDelay time.Duration

	// Elapsed includes sending of the request and reading of the whole body.
	// It doesn't include StartDelay.
	Elapsed time.Duration

	StatusCode int
	Header     http.Header
	Body       []byte

	Err error
}

// Failed reports whether the request is finished with a soft failure.
func (r *RequestResult) Failed() bool {
	return r.Err != nil
}
