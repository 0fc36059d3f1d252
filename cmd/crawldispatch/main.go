/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command crawldispatch fetches seed targets (and targets submitted via the admin server)
// with adaptive pacing and writes results as JSON lines.
package main

import (
	"context"
	"fmt"
	"io"
	golog "log"
	"os"

	"github.com/spf13/pflag"

	"github.com/acronis/go-crawldispatch/adminserver"
	"github.com/acronis/go-crawldispatch/config"
	"github.com/acronis/go-crawldispatch/dispatch"
	"github.com/acronis/go-crawldispatch/httpclient"
	"github.com/acronis/go-crawldispatch/log"
	"github.com/acronis/go-crawldispatch/service"
)

func main() {
	if err := runApp(context.Background(), os.Args[1:], os.Stdout); err != nil {
		golog.Fatal(err)
	}
}

func runApp(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := loadAppConfig(args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerClose := log.NewLogger(cfg.Log)
	defer loggerClose()

	seeds, err := loadSeeds(cfg.Crawl, logger)
	if err != nil {
		return err
	}

	output := stdout
	if cfg.Crawl.Output != "" {
		f, openErr := os.OpenFile(cfg.Crawl.Output, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) //nolint:gosec // path comes from the trusted config
		if openErr != nil {
			return fmt.Errorf("open output: %w", openErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				logger.Error("closing output error", log.Error(closeErr))
			}
		}()
		output = f
	}

	dispatchMetrics := dispatch.NewPrometheusMetrics()
	transportMetrics := httpclient.NewPrometheusMetricsCollector("")
	client, err := httpclient.NewWithOpts(cfg.HTTPClient, httpclient.Opts{Collector: transportMetrics})
	if err != nil {
		return fmt.Errorf("create http client: %w", err)
	}

	processor := dispatch.NewProcessorWithOpts(dispatch.ProcessorOpts{Logger: logger, MetricsCollector: dispatchMetrics})
	processor.AddAll(seeds...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	crawler := &crawlWorker{
		processor: processor,
		transport: client,
		sink:      newJSONLinesSink(output),
		opts:      *cfg.Dispatch,
		logger:    logger,
		onFinish:  cancel,
	}
	units := []service.Unit{
		service.NewWorkerUnitWithOpts(crawler, service.WorkerUnitOpts{
			MetricsRegisterer:   &metricsRegisterer{dispatch: dispatchMetrics, transport: transportMetrics},
			GracefulStopTimeout: cfg.Crawl.StopTimeout,
		}),
	}
	if cfg.Crawl.ProgressInterval > 0 {
		progress := service.NewPeriodicWorkerWithOpts(newProgressReporter(processor, logger), cfg.Crawl.ProgressInterval,
			logger, service.PeriodicWorkerOpts{InitialDelay: cfg.Crawl.ProgressInterval})
		units = append(units, service.NewWorkerUnit(progress))
	}
	if cfg.AdminServer.Enabled {
		units = append(units, adminserver.New(cfg.AdminServer, crawler, logger))
	}

	return service.New(logger, service.NewCompositeUnit(units...)).StartContext(ctx)
}

func loadAppConfig(args []string) (*AppConfig, error) {
	flags := pflag.NewFlagSet("crawldispatch", pflag.ContinueOnError)
	cfgPath := flags.StringP("config", "c", "", "path to the configuration file (YAML or JSON)")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg := NewAppConfig()
	cfgLoader := config.NewDefaultLoader(envVarsPrefix)
	if *cfgPath == "" {
		return cfg, cfgLoader.LoadDefaults(cfg)
	}
	return cfg, cfgLoader.LoadFromFile(*cfgPath, config.DataTypeFromPath(*cfgPath), cfg)
}
