/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import "context"

type ctxKey int

const ctxKeyLogger ctxKey = iota

// NewContextWithLogger creates a new context with the logger.
// The dispatcher uses it to pass a request-scoped logger down to the transport.
func NewContextWithLogger(ctx context.Context, logger FieldLogger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// GetLoggerFromContext extracts the logger from the context. Nil is returned if there is no logger.
func GetLoggerFromContext(ctx context.Context) FieldLogger {
	value := ctx.Value(ctxKeyLogger)
	if value == nil {
		return nil
	}
	return value.(FieldLogger)
}
