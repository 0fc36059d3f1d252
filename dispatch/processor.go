/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/xid"
	"go.uber.org/atomic"

	"github.com/acronis/go-crawldispatch/log"
)

// ProcessorOpts represents options for the Processor.
type ProcessorOpts struct {
	// Logger is used for logging of runs and requests. Logging is disabled if it's nil.
	Logger log.FieldLogger

	// MetricsCollector is used for collecting metrics. Metrics are disabled if it's nil.
	MetricsCollector MetricsCollector
}

// Processor dispatches crawler requests.
// Targets may be added at any time, they are fetched by Process.
// Only one Process call may be active at a time.
type Processor struct {
	queue   *targetQueue
	pending atomic.Int64
	running atomic.Bool

	logger  log.FieldLogger
	metrics MetricsCollector
}

// NewProcessor creates a new Processor without logging and metrics.
func NewProcessor() *Processor {
	return NewProcessorWithOpts(ProcessorOpts{})
}

// NewProcessorWithOpts creates a new Processor with the provided options.
func NewProcessorWithOpts(opts ProcessorOpts) *Processor {
	p := &Processor{logger: opts.Logger, metrics: opts.MetricsCollector}
	if p.logger == nil {
		p.logger = log.NewDisabledLogger()
	}
	if p.metrics == nil {
		p.metrics = disabledMetrics{}
	}
	p.queue = newTargetQueue(&p.pending)
	return p
}

// Add enqueues the target. It never blocks and may be called concurrently with Process.
func (p *Processor) Add(target Target) {
	p.AddAll(target)
}

// AddAll enqueues targets preserving their order.
func (p *Processor) AddAll(targets ...Target) {
	p.queue.push(targets...)
	p.metrics.SetPending(p.PendingRequests())
}

// PendingRequests returns the number of queued requests plus the number of requests that are not delivered yet.
func (p *Processor) PendingRequests() int {
	return int(p.pending.Load())
}

// Process fetches queued targets (including ones that are added during the call) and delivers results to the sink.
// It returns the number of issued requests when the queue is empty and all requests are delivered.
//
// Process is aborted with an error if:
//   - ctx is done (the error wraps ctx.Err()), requests in flight are canceled and never delivered;
//   - sink returns an error (it's returned as is);
//   - a request fails unexpectedly (*FatalError).
//
// Targets which are still queued after an abort stay in the queue.
func (p *Processor) Process(ctx context.Context, transport Transport, sink ResultSink, opts Options) (int, error) {
	if transport == nil || sink == nil {
		return 0, errors.New("transport and sink must be provided")
	}
	if err := opts.Validate(); err != nil {
		return 0, fmt.Errorf("invalid options: %w", err)
	}
	if !p.running.CompareAndSwap(false, true) {
		return 0, ErrAlreadyRunning
	}
	defer p.running.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := newRun(p, transport, sink, &opts)
	// Every run starts without backoff, the gauge may still hold the value from the previous run.
	p.metrics.SetBackoff(r.backoff.current())
	r.logger.Info("crawl run started", log.Int("pending", p.PendingRequests()), log.Int("max_concurrency", opts.MaxConcurrency))
	startedAt := time.Now()

	err := r.loop(runCtx)
	if err != nil {
		p.pending.Sub(int64(len(r.inFlight)))
		p.metrics.SetInFlight(0)
		p.metrics.SetPending(p.PendingRequests())
		r.logger.Error("crawl run aborted", log.Int("issued", r.issued),
			log.Int("abandoned", len(r.inFlight)), log.Error(err))
		return r.issued, err
	}
	r.logger.Info("crawl run finished", log.Int("issued", r.issued),
		log.DurationIn("duration_ms", time.Since(startedAt), time.Millisecond))
	return r.issued, nil
}

// run holds the state of a single Process call. It's accessed only from the goroutine that runs the loop.
type run struct {
	p        *Processor
	id       string
	sink     ResultSink
	opts     *Options
	logger   log.FieldLogger
	exec     *executor
	backoff  *backoffController
	inFlight map[uint64]RequestContext
	done     chan outcome
	seq      uint64
	issued   int
}

func newRun(p *Processor, transport Transport, sink ResultSink, opts *Options) *run {
	id := xid.New().String()
	return &run{
		p:        p,
		id:       id,
		sink:     sink,
		opts:     opts,
		logger:   p.logger.With(log.String("run_id", id)),
		exec:     &executor{transport: transport, maxBodySize: int64(opts.MaxBodySize)},
		backoff:  newBackoffController(opts),
		inFlight: make(map[uint64]RequestContext, opts.MaxConcurrency),
		done:     make(chan outcome, opts.MaxConcurrency),
	}
}

func (r *run) loop(ctx context.Context) error {
	for len(r.inFlight) > 0 || r.p.queue.len() > 0 {
		if err := r.checkCanceled(ctx); err != nil {
			return err
		}
		r.admit(ctx)
		if err := r.checkCanceled(ctx); err != nil {
			return err
		}
		completed, err := r.waitCompletions(ctx)
		if err != nil {
			return err
		}
		for _, o := range completed {
			if err = r.complete(ctx, o); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) checkCanceled(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("crawl run %s canceled: %w", r.id, ctx.Err())
	}
	return nil
}

// admit starts queued requests while there are free slots.
func (r *run) admit(ctx context.Context) {
	for len(r.inFlight) < r.opts.MaxConcurrency {
		target, ok := r.p.queue.pop()
		if !ok {
			break
		}
		r.seq++
		rc := RequestContext{
			Seq:        r.seq,
			RunID:      r.id,
			Target:     target,
			StartDelay: r.startDelay(),
			Timeout:    r.opts.RequestTimeout,
		}
		r.inFlight[rc.Seq] = rc
		r.issued++

		reqLogger := r.logger.With(log.Uint64("seq", rc.Seq), log.String("target", target.Redacted()))
		reqLogger.Debug("crawl request scheduled", log.DurationIn("start_delay_ms", rc.StartDelay, time.Millisecond))
		r.p.metrics.ObserveStartDelay(rc.StartDelay)

		go func() {
			r.done <- r.exec.execute(ctx, rc, reqLogger)
		}()
	}
	r.p.metrics.SetInFlight(len(r.inFlight))
}

// startDelay is base delay + uniform jitter + the backoff at the moment of scheduling.
func (r *run) startDelay() time.Duration {
	delay := r.opts.DelayBetweenRequestStart + r.backoff.current()
	if r.opts.DelayJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(r.opts.DelayJitter))) //nolint:gosec // jitter doesn't need crypto rand
	}
	return delay
}

// waitCompletions blocks until at least one request completes and returns all completed ones.
// It also returns (with nothing) when new targets are added and there is a free slot for them.
func (r *run) waitCompletions(ctx context.Context) ([]outcome, error) {
	var pushed <-chan struct{}
	if len(r.inFlight) < r.opts.MaxConcurrency {
		pushed = r.p.queue.pushed()
	}

	var completed []outcome
	select {
	case o := <-r.done:
		completed = append(completed, o)
	case <-pushed:
		return nil, nil
	case <-ctx.Done():
		return nil, r.checkCanceled(ctx)
	}
	for {
		select {
		case o := <-r.done:
			completed = append(completed, o)
		default:
			return completed, nil
		}
	}
}

func (r *run) complete(ctx context.Context, o outcome) error {
	rc := r.inFlight[o.seq]
	delete(r.inFlight, o.seq)
	r.p.pending.Dec()
	r.p.metrics.SetInFlight(len(r.inFlight))
	r.p.metrics.SetPending(r.p.PendingRequests())

	logger := r.logger.With(log.Uint64("seq", rc.Seq), log.String("target", rc.Target.Redacted()))
	switch o.kind {
	case outcomeFatal:
		r.p.metrics.IncRequests(OutcomeFatal)
		return o.err
	case outcomeCanceled:
		r.p.metrics.IncRequests(OutcomeCanceled)
		logger.Debug("crawl request canceled")
		return nil
	}

	res := o.result
	label := OutcomeSuccess
	if res.Failed() {
		label = OutcomeFailure
		logger.Debug("crawl request failed",
			log.DurationIn("elapsed_ms", res.Elapsed, time.Millisecond), log.Error(res.Err))
	} else {
		logger.Debug("crawl request completed", log.Int("status", res.StatusCode),
			log.Int("body_size", len(res.Body)), log.DurationIn("elapsed_ms", res.Elapsed, time.Millisecond))
	}
	r.p.metrics.IncRequests(label)
	r.p.metrics.ObserveRequestDuration(label, res.Elapsed)

	if err := r.sink.Deliver(ctx, res); err != nil {
		return err
	}

	prev := r.backoff.current()
	if r.backoff.observe(res.Elapsed) {
		r.p.metrics.SetBackoff(r.backoff.current())
		r.logger.Info("crawl backoff changed",
			log.DurationIn("prev_backoff_ms", prev, time.Millisecond),
			log.DurationIn("backoff_ms", r.backoff.current(), time.Millisecond),
			log.DurationIn("elapsed_ms", res.Elapsed, time.Millisecond))
	}
	return nil
}
