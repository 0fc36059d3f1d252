/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package dispatch implements the outbound-request dispatcher of a web crawler.
//
// Processor accepts a growing set of targets (Add may be called concurrently with a running Process),
// fetches them over a Transport while keeping at most Options.MaxConcurrency requests in flight,
// and delivers every result to a ResultSink. Pacing between request starts is adapted to the observed latency:
// one slow response increases the shared backoff delay, a streak of fast responses decreases it.
//
// Per-request transport errors and timeouts are not errors of the run, they are delivered to the sink
// as RequestResult.Err. Process fails only when its context is canceled, when the sink returns an error
// or when a request fails in an unexpected way (FatalError).
package dispatch
