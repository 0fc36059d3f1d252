/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package adminserver provides the admin HTTP server of the crawler.
// It exposes Prometheus metrics, health-check, crawl status, profiling endpoints
// and allows submitting newly discovered targets into the running crawl.
package adminserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"

	"github.com/acronis/go-crawldispatch/log"
	"github.com/acronis/go-crawldispatch/service"
)

// Admin server endpoints.
const (
	EndpointMetrics = "/metrics"
	EndpointHealthz = "/healthz"
	EndpointTargets = "/targets"
	EndpointStatus  = "/status"
	EndpointDebug   = "/debug"
)

// Opts represents options for creating AdminServer.
type Opts struct {
	// Gatherer is used for /metrics. prometheus.DefaultGatherer is used if nil.
	Gatherer prometheus.Gatherer
}

// AdminServer represents the admin HTTP server. chi.Router is used as a handler.
// It implements service.Unit interface.
type AdminServer struct {
	URL             string
	HTTPServer      *http.Server
	HTTPRouter      chi.Router
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration

	port           atomic.Int32
	started        atomic.Bool
	httpServerDone chan struct{}
}

var _ service.Unit = (*AdminServer)(nil)

// New creates a new admin HTTP server.
func New(cfg *Config, adder TargetAdder, logger log.FieldLogger) *AdminServer {
	return NewWithOpts(cfg, adder, logger, Opts{})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts(cfg *Config, adder TargetAdder, logger log.FieldLogger, opts Opts) *AdminServer {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	router := chi.NewRouter()
	router.Use(requestLogging(logger, EndpointMetrics, EndpointHealthz), recovery)
	router.Get(EndpointHealthz, healthCheckHandler)
	router.Handle(EndpointMetrics, promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	router.Get(EndpointStatus, newStatusHandler(adder))
	router.Method(http.MethodPost, EndpointTargets, &addTargetsHandler{adder: adder, maxBodySize: int64(cfg.MaxTargetsBodySize)})
	if cfg.Pprof.Enabled {
		router.Mount(EndpointDebug, chimiddleware.Profiler())
	}

	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: cfg.Timeouts.ReadHeader,
	}
	return &AdminServer{
		URL:             "http://" + httpServer.Addr,
		HTTPServer:      httpServer,
		HTTPRouter:      router,
		Logger:          logger,
		ShutdownTimeout: cfg.Timeouts.Shutdown,
		httpServerDone:  make(chan struct{}),
	}
}

// Start starts the admin HTTP server in a blocking way. It's supposed to be called in a separate goroutine.
// If a fatal error occurs, it's sent into the passed fatalError channel.
func (s *AdminServer) Start(fatalError chan<- error) {
	defer close(s.httpServerDone)
	s.started.Store(true)

	logger := s.Logger.With(log.String("address", s.HTTPServer.Addr))
	logger.Info("starting admin HTTP server...")

	listener, err := net.Listen("tcp", s.HTTPServer.Addr)
	if err != nil {
		logger.Error("admin HTTP server error", log.Error(err))
		fatalError <- err
		return
	}
	if _, portStr, splitErr := net.SplitHostPort(listener.Addr().String()); splitErr == nil {
		if port, parseErr := strconv.ParseInt(portStr, 10, 32); parseErr == nil {
			s.port.Store(int32(port))
		}
	}

	if err = s.HTTPServer.Serve(listener); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("admin HTTP server closed")
			return
		}
		logger.Error("admin HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops the admin HTTP server (gracefully or not).
func (s *AdminServer) Stop(gracefully bool) error {
	if !gracefully {
		s.Logger.Info("closing admin HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("admin HTTP server closing error", log.Error(err))
			return err
		}
		s.waitDone()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	s.Logger.Info("shutting down admin HTTP server...", log.Duration("timeout", s.ShutdownTimeout))
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		s.Logger.Error("admin HTTP server shutting down error", log.Error(err))
		return err
	}
	s.waitDone()
	return nil
}

func (s *AdminServer) waitDone() {
	if s.started.Load() {
		<-s.httpServerDone
	}
}

// GetPort returns the port the server listens on. It's 0 until the listener is created.
func (s *AdminServer) GetPort() int {
	return int(s.port.Load())
}
