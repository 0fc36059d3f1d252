/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"errors"
	"fmt"
)

// ErrInvalidTarget is returned when a target cannot be fetched by the crawler.
var ErrInvalidTarget = errors.New("invalid target")

// ErrRequestTimeout is set (wrapped) in RequestResult.Err when the request is not finished within Options.RequestTimeout.
var ErrRequestTimeout = errors.New("request timeout")

// ErrBodyTooLarge is set (wrapped) in RequestResult.Err when the response body exceeds Options.MaxBodySize.
var ErrBodyTooLarge = errors.New("response body too large")

// ErrAlreadyRunning is returned by Processor.Process when another Process call of the same Processor is in progress.
var ErrAlreadyRunning = errors.New("processor is already running")

// FatalError is returned by Processor.Process when a request fails in an unexpected way
// (e.g. the transport panics or violates its contract). Such errors abort the whole run.
type FatalError struct {
	Seq    uint64
	Target Target
	Inner  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("request #%d (%s) failed unexpectedly: %s", e.Seq, e.Target, e.Inner)
}

// Unwrap returns the next error in the error chain.
func (e *FatalError) Unwrap() error {
	return e.Inner
}
