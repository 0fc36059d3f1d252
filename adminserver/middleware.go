/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package adminserver

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/xid"

	"github.com/acronis/go-crawldispatch/log"
)

const (
	headerRequestID = "X-Request-ID"

	recoveryStackSize = 8192
)

// requestLogging puts a logger with the request id into the request context
// and logs the completed request. Admin endpoints are called rarely, so every request is logged.
func requestLogging(logger log.FieldLogger, excludedEndpoints ...string) func(next http.Handler) http.Handler {
	excluded := make(map[string]struct{}, len(excludedEndpoints))
	for _, e := range excludedEndpoints {
		excluded[e] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			requestID := r.Header.Get(headerRequestID)
			if requestID == "" {
				requestID = xid.New().String()
			}
			rw.Header().Set(headerRequestID, requestID)

			reqLogger := logger.With(
				log.String("request_id", requestID),
				log.String("method", r.Method),
				log.String("uri", r.RequestURI),
				log.String("remote_addr", r.RemoteAddr),
			)
			wrw := chimiddleware.NewWrapResponseWriter(rw, r.ProtoMajor)
			next.ServeHTTP(wrw, r.WithContext(log.NewContextWithLogger(r.Context(), reqLogger)))

			if _, ok := excluded[r.URL.Path]; ok && wrw.Status() < http.StatusBadRequest {
				return
			}
			duration := time.Since(startTime)
			reqLogger.Info(
				fmt.Sprintf("response completed in %.3fs", duration.Seconds()),
				log.Int64("duration_ms", duration.Milliseconds()),
				log.Int("status", wrw.Status()),
				log.Int("bytes_sent", wrw.BytesWritten()),
			)
		})
	}
}

// recovery recovers from panics in handlers, logs the panic value with a stacktrace and responds with 500.
func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(p)
				}
				if logger := log.GetLoggerFromContext(r.Context()); logger != nil {
					stack := make([]byte, recoveryStackSize)
					stack = stack[:runtime.Stack(stack, false)]
					logger.Error(fmt.Sprintf("Panic: %+v", p), log.Bytes("stack", stack))
				}
				respondError(rw, r, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(rw, r)
	})
}
