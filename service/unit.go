/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package service provides the lifecycle of the crawler process: units (the crawl worker, the admin server)
// are started together and stopped gracefully by OS signal, context cancellation or a fatal error of any unit.
package service

// Unit represents a part of the service with its own lifecycle.
type Unit interface {
	// Start runs the unit. It may return immediately after initialization
	// or block for the whole lifetime of the unit.
	// On failure it writes an error to fatalErr. The channel must not be used after Start returns.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start has failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is an interface for objects that can register their own metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
