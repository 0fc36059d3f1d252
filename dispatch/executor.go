/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"code.cloudfoundry.org/bytefmt"

	"github.com/acronis/go-crawldispatch/log"
)

type outcomeKind int

const (
	outcomeDelivered outcomeKind = iota // success or soft failure, goes to the sink
	outcomeCanceled
	outcomeFatal
)

// outcome is what an execution reports to the admission loop.
type outcome struct {
	seq    uint64
	kind   outcomeKind
	result *RequestResult
	err    error
}

type executor struct {
	transport   Transport
	maxBodySize int64 // 0 means no limit
}

// execute runs a single request. It never panics and never blocks after ctx is done
// (as long as the transport respects the request context).
func (e *executor) execute(ctx context.Context, rc RequestContext, logger log.FieldLogger) (out outcome) {
	defer func() {
		if p := recover(); p != nil {
			if err, ok := p.(error); ok {
				out = e.fatal(rc, fmt.Errorf("panic: %w", err))
				return
			}
			out = e.fatal(rc, fmt.Errorf("panic: %v", p))
		}
	}()

	if !waitStartDelay(ctx, rc.StartDelay) {
		return outcome{seq: rc.Seq, kind: outcomeCanceled}
	}

	reqCtx, cancel := ctx, context.CancelFunc(func() {})
	if rc.Timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, rc.Timeout)
	}
	defer cancel()

	req, err := http.NewRequestWithContext(log.NewContextWithLogger(reqCtx, logger), http.MethodGet, rc.Target.String(), nil)
	if err != nil {
		return e.fatal(rc, fmt.Errorf("create request: %w", err))
	}

	result := &RequestResult{Seq: rc.Seq, Target: rc.Target, StartDelay: rc.StartDelay, StartedAt: time.Now()}
	resp, err := e.transport.Do(req)
	if err != nil {
		result.Elapsed = time.Since(result.StartedAt)
		return e.softFailure(ctx, reqCtx, rc, result, err)
	}
	if resp == nil {
		return e.fatal(rc, errors.New("transport returned neither response nor error"))
	}

	body, err := e.readBody(resp)
	result.Elapsed = time.Since(result.StartedAt)
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return e.softFailure(ctx, reqCtx, rc, result, fmt.Errorf("read response body: %w", err))
	}
	if ctx.Err() != nil {
		return outcome{seq: rc.Seq, kind: outcomeCanceled}
	}

	result.StatusCode = resp.StatusCode
	result.Header = resp.Header
	result.Body = body
	return outcome{seq: rc.Seq, kind: outcomeDelivered, result: result}
}

// waitStartDelay reports false if ctx is done before the delay has passed.
func waitStartDelay(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *executor) readBody(resp *http.Response) ([]byte, error) {
	if resp.Body == nil {
		return nil, nil
	}
	if e.maxBodySize <= 0 {
		return io.ReadAll(resp.Body)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > e.maxBodySize {
		return nil, fmt.Errorf("%w: more than %s", ErrBodyTooLarge, bytefmt.ByteSize(uint64(e.maxBodySize)))
	}
	return body, nil
}

// softFailure turns a request error into a result, unless the error is caused by the run cancellation.
func (e *executor) softFailure(ctx, reqCtx context.Context, rc RequestContext, result *RequestResult, err error) outcome {
	if ctx.Err() != nil {
		return outcome{seq: rc.Seq, kind: outcomeCanceled}
	}
	if rc.Timeout > 0 && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w (%s): %w", ErrRequestTimeout, rc.Timeout, err)
	}
	result.Err = err
	return outcome{seq: rc.Seq, kind: outcomeDelivered, result: result}
}

func (e *executor) fatal(rc RequestContext, err error) outcome {
	return outcome{seq: rc.Seq, kind: outcomeFatal, err: &FatalError{Seq: rc.Seq, Target: rc.Target, Inner: err}}
}
