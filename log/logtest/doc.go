/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides a recording implementation of log.FieldLogger for tests
// that check what the dispatcher and the transport log.
package logtest
