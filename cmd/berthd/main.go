// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// berthd binds the endpoints described in a YAML file and serves them until
// it receives SIGINT or SIGTERM.
//
//	berthd -config /etc/berthd.yaml
//
// Tracing is configured from the standard JAEGER_* environment variables.
// Set JAEGER_DISABLED=true to turn it off.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	jaegerzap "github.com/uber/jaeger-client-go/log/zap"
	"go.uber.org/berth/berthconfig"
	"go.uber.org/berth/internal/admin"
	"go.uber.org/berth/internal/builtin"
	"go.uber.org/multierr"
	"go.uber.org/net/metrics"
	"go.uber.org/zap"
)

const _serviceName = "berthd"

func main() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := run(os.Args[1:], signals); err != nil {
		fmt.Fprintln(os.Stderr, "berthd:", err)
		os.Exit(1)
	}
}

func run(args []string, stop <-chan os.Signal) (err error) {
	flags := flag.NewFlagSet(_serviceName, flag.ContinueOnError)
	configPath := flags.String("config", "berthd.yaml", "path to the YAML configuration")
	shutdownTimeout := flags.Duration("shutdown-timeout", 30*time.Second, "how long to wait for endpoints to drain on shutdown")
	if err := flags.Parse(args); err != nil {
		return err
	}

	configurator := berthconfig.New()
	if err := builtin.Register(configurator); err != nil {
		return err
	}

	f, err := os.Open(*configPath)
	if err != nil {
		return err
	}
	cfg, err := configurator.LoadConfigFromYAML(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to load %v: %v", *configPath, err)
	}

	logger, err := cfg.Logging.Build()
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, closer, err := newTracer(logger)
	if err != nil {
		return fmt.Errorf("failed to build tracer: %v", err)
	}
	defer func() { err = multierr.Append(err, closer.Close()) }()

	prom := prometheus.NewRegistry()
	prom.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	m, err := configurator.NewManager(cfg, berthconfig.Deps{
		Logger:     logger,
		Tracer:     tracer,
		Metrics:    metrics.New().Scope(),
		Prometheus: prom,
	})
	if err != nil {
		return err
	}

	var adminServer *admin.Server
	if cfg.Admin.Address != "" {
		adminServer = admin.New(cfg.Admin.Address, m,
			admin.WithLogger(logger),
			admin.WithGatherer(prom),
			admin.WithStopTimeout(*shutdownTimeout),
		)
		if err := adminServer.Start(); err != nil {
			return fmt.Errorf("failed to start admin server: %v", err)
		}
	}

	ctx := context.Background()
	if err := m.StartEndpoints(ctx, cfg.Endpoints...); err != nil {
		if adminServer != nil {
			err = multierr.Append(err, adminServer.Stop(ctx))
		}
		return err
	}
	logger.Info("berthd started", zap.Int("endpoints", len(cfg.Endpoints)))

	sig := <-stop
	logger.Info("shutting down", zap.Stringer("signal", sig))

	ctx, cancel := context.WithTimeout(ctx, *shutdownTimeout)
	defer cancel()
	err = m.StopAll(ctx)
	if adminServer != nil {
		err = multierr.Append(err, adminServer.Stop(ctx))
	}
	return err
}

func newTracer(logger *zap.Logger) (opentracing.Tracer, io.Closer, error) {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = _serviceName
	}
	return cfg.NewTracer(jaegercfg.Logger(jaegerzap.NewLogger(logger)))
}
