/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains helpers for testing the crawler dispatcher and its surroundings:
// error chain and Prometheus assertions, network helpers and a stub crawler transport.
package testutil

type tHelper interface {
	Helper()
}
