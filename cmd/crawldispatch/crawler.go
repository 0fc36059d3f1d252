/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/acronis/go-crawldispatch/adminserver"
	"github.com/acronis/go-crawldispatch/dispatch"
	"github.com/acronis/go-crawldispatch/httpclient"
	"github.com/acronis/go-crawldispatch/log"
	"github.com/acronis/go-crawldispatch/service"
)

// crawlWorker runs a single crawl. When the crawl is finished, onFinish is called to stop the rest of the service.
// Targets submitted via the admin server go through it, so none of them is accepted once the crawl is over.
type crawlWorker struct {
	processor *dispatch.Processor
	transport dispatch.Transport
	sink      dispatch.ResultSink
	opts      dispatch.Options
	logger    log.FieldLogger
	onFinish  func()

	mu       sync.Mutex
	finished bool
}

var _ service.Worker = (*crawlWorker)(nil)
var _ adminserver.TargetAdder = (*crawlWorker)(nil)

func (w *crawlWorker) Run(ctx context.Context) error {
	var issued int
	for {
		n, err := w.processor.Process(ctx, w.transport, w.sink, w.opts)
		issued += n
		if err != nil {
			w.stopAccepting()
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				w.logger.Warn("crawl interrupted", log.Int("issued", issued),
					log.Int("pending", w.processor.PendingRequests()))
				return nil
			}
			return fmt.Errorf("crawl: %w", err)
		}
		if w.tryFinish() {
			break
		}
		// Targets were submitted after the run had drained the queue.
		w.logger.Info("crawl resumed", log.Int("pending", w.processor.PendingRequests()))
	}
	w.logger.Info("crawl completed", log.Int("issued", issued))
	if w.onFinish != nil {
		w.onFinish()
	}
	return nil
}

// SubmitTargets enqueues targets unless the crawl is over.
func (w *crawlWorker) SubmitTargets(targets ...dispatch.Target) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return adminserver.ErrTargetsNotAccepted
	}
	w.processor.AddAll(targets...)
	return nil
}

func (w *crawlWorker) PendingRequests() int {
	return w.processor.PendingRequests()
}

// tryFinish stops accepting targets if nothing is pending. Submission holds the same lock,
// so a target is either seen here as pending or rejected.
func (w *crawlWorker) tryFinish() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.processor.PendingRequests() != 0 {
		return false
	}
	w.finished = true
	return true
}

func (w *crawlWorker) stopAccepting() {
	w.mu.Lock()
	w.finished = true
	w.mu.Unlock()
}

func newProgressReporter(processor *dispatch.Processor, logger log.FieldLogger) service.Worker {
	return service.WorkerFunc(func(ctx context.Context) error {
		logger.Info("crawl progress", log.Int("pending", processor.PendingRequests()))
		return nil
	})
}

// metricsRegisterer registers the dispatcher and transport metrics for the lifetime of the service.
type metricsRegisterer struct {
	dispatch  *dispatch.PrometheusMetrics
	transport *httpclient.PrometheusMetricsCollector
}

func (m *metricsRegisterer) MustRegisterMetrics() {
	m.dispatch.MustRegister()
	m.transport.MustRegister()
}

func (m *metricsRegisterer) UnregisterMetrics() {
	m.dispatch.Unregister()
	m.transport.Unregister()
}

// loadSeeds parses seeds from the config and the seeds file.
// Invalid seeds are logged and skipped.
func loadSeeds(cfg *CrawlConfig, logger log.FieldLogger) ([]dispatch.Target, error) {
	raws := append([]string{}, cfg.Seeds...)
	if cfg.SeedsFile != "" {
		fileSeeds, err := readSeedsFile(cfg.SeedsFile)
		if err != nil {
			return nil, err
		}
		raws = append(raws, fileSeeds...)
	}

	targets := make([]dispatch.Target, 0, len(raws))
	for _, raw := range raws {
		target, err := dispatch.ParseTarget(raw)
		if err != nil {
			logger.Warn("seed is skipped", log.String("seed", raw), log.Error(err))
			continue
		}
		targets = append(targets, target)
	}
	if len(targets) == 0 {
		return nil, errors.New("no valid seed targets")
	}
	return targets, nil
}

func readSeedsFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the trusted config
	if err != nil {
		return nil, fmt.Errorf("open seeds file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var seeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("read seeds file: %w", err)
	}
	return seeds, nil
}
