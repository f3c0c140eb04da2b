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

// Package berthfx provides a berth Manager to fx applications. Endpoints
// from the configuration are started when the application starts and every
// endpoint is stopped when it stops.
package berthfx

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uber-go/tally"
	"go.uber.org/berth"
	"go.uber.org/berth/berthconfig"
	"go.uber.org/fx"
	"go.uber.org/net/metrics"
	"go.uber.org/zap"
)

// Module provides a *berth.Manager and starts the configured endpoints.
//
// It depends on a *berthconfig.Configurator and a berthconfig.Config.
var Module = fx.Options(
	fx.Provide(NewManager),
	fx.Invoke(StartEndpoints),
)

// ManagerParams defines the dependencies of this module.
type ManagerParams struct {
	fx.In

	Lifecycle    fx.Lifecycle
	Configurator *berthconfig.Configurator
	Config       berthconfig.Config

	Logger     *zap.Logger           `optional:"true"`
	Tracer     opentracing.Tracer    `optional:"true"`
	Metrics    *metrics.Scope        `optional:"true"`
	Tally      tally.Scope           `optional:"true"`
	Prometheus prometheus.Registerer `optional:"true"`
}

// ManagerResult defines the values produced by this module.
type ManagerResult struct {
	fx.Out

	Manager *berth.Manager
}

// NewManager builds a Manager and stops all of its endpoints when the
// application stops.
func NewManager(p ManagerParams) (ManagerResult, error) {
	m, err := p.Configurator.NewManager(p.Config, berthconfig.Deps{
		Logger:     p.Logger,
		Tracer:     p.Tracer,
		Metrics:    p.Metrics,
		Tally:      p.Tally,
		Prometheus: p.Prometheus,
	})
	if err != nil {
		return ManagerResult{}, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return m.StopAll(ctx)
		},
	})
	return ManagerResult{Manager: m}, nil
}

// StartParams defines the dependencies of StartEndpoints.
type StartParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Manager   *berth.Manager
	Config    berthconfig.Config
}

// StartEndpoints starts the configured endpoints when the application
// starts.
func StartEndpoints(p StartParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return p.Manager.StartEndpoints(ctx, p.Config.Endpoints...)
		},
	})
}
