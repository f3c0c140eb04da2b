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

package berthconfig

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"sort"

	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uber-go/tally"
	"go.uber.org/berth"
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/bertherrors"
	"go.uber.org/berth/internal/config"
	"go.uber.org/berth/internal/interpolate"
	"go.uber.org/berth/observability"
	"go.uber.org/berth/registry"
	"go.uber.org/multierr"
	"go.uber.org/net/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// Config is a loaded and validated configuration.
type Config struct {
	Logging LoggingConfig

	// Observers names the observers every endpoint reports to.
	Observers []string

	// Endpoints are the enabled endpoints, in configuration order, with
	// their handlers resolved.
	Endpoints []berth.Endpoint

	Admin AdminConfig
}

// LoggingConfig is the logging section of a Config.
type LoggingConfig struct {
	Level       zapcore.Level
	Development bool

	// Levels are used by the log observer.
	Levels observability.Levels
}

// Build builds a zap logger at the configured level.
func (c LoggingConfig) Build(opts ...zap.Option) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(c.Level)
	return zc.Build(opts...)
}

// AdminConfig is the admin section of a Config.
type AdminConfig struct {
	// Address the admin HTTP server listens on. Empty disables it.
	Address string
}

// Deps are the runtime dependencies of a Manager built by a Configurator.
type Deps struct {
	Logger     *zap.Logger
	Tracer     opentracing.Tracer
	Registry   *registry.Registry
	Metrics    *metrics.Scope
	Tally      tally.Scope
	Prometheus prometheus.Registerer
}

// Configurator builds Managers using runtime configuration.
//
// A new Configurator knows about the built-in protocols and observers but
// not about any handlers. Register them with RegisterHandler.
type Configurator struct {
	protocols map[string]berth.ListenerFactory
	handlers  map[string]dispatch.Handler
	observers *observability.Registry
	resolver  interpolate.VariableResolver
}

// Option customizes a Configurator.
type Option func(*Configurator)

// InterpolationResolver sets the resolver used for ${VAR} references.
// Defaults to os.LookupEnv.
func InterpolationResolver(r interpolate.VariableResolver) Option {
	return func(c *Configurator) {
		c.resolver = r
	}
}

// Observers replaces the registry observer names are resolved in.
func Observers(r *observability.Registry) Option {
	return func(c *Configurator) {
		c.observers = r
	}
}

// New sets up a new Configurator.
func New(opts ...Option) *Configurator {
	c := &Configurator{
		protocols: berth.DefaultProtocols(),
		handlers:  make(map[string]dispatch.Handler),
		observers: observability.DefaultRegistry(),
		resolver:  os.LookupEnv,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterProtocol teaches the Configurator a protocol. A protocol with the
// same name is replaced.
func (c *Configurator) RegisterProtocol(name string, f berth.ListenerFactory) error {
	if name == "" {
		return errors.New("name is required")
	}
	if f == nil {
		return fmt.Errorf("protocol %q: factory is required", name)
	}
	c.protocols[name] = f
	return nil
}

// MustRegisterProtocol is RegisterProtocol that panics on error.
func (c *Configurator) MustRegisterProtocol(name string, f berth.ListenerFactory) {
	if err := c.RegisterProtocol(name, f); err != nil {
		panic(err)
	}
}

// RegisterHandler makes h available to endpoints under name. Names are
// unique.
func (c *Configurator) RegisterHandler(name string, h dispatch.Handler) error {
	if name == "" {
		return errors.New("name is required")
	}
	if h == nil {
		return fmt.Errorf("handler %q is nil", name)
	}
	if _, ok := c.handlers[name]; ok {
		return fmt.Errorf("handler %q is already registered", name)
	}
	c.handlers[name] = h
	return nil
}

// MustRegisterHandler is RegisterHandler that panics on error.
func (c *Configurator) MustRegisterHandler(name string, h dispatch.Handler) {
	if err := c.RegisterHandler(name, h); err != nil {
		panic(err)
	}
}

// LoadConfigFromYAML loads a Config from YAML data.
func (c *Configurator) LoadConfigFromYAML(r io.Reader) (Config, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return Config{}, err
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal(b, &data); err != nil {
		return Config{}, err
	}
	return c.LoadConfig(data)
}

// LoadConfig loads a Config from a map[string]interface{} or
// map[interface{}]interface{}. Every problem found is reported.
func (c *Configurator) LoadConfig(data interface{}) (Config, error) {
	var raw berthConfig
	if err := config.DecodeInto(&raw, data, config.InterpolateWith(c.resolver)); err != nil {
		return Config{}, err
	}
	return c.load(&raw)
}

func (c *Configurator) load(raw *berthConfig) (_ Config, err error) {
	var cfg Config
	raw.Logging.fill(&cfg)
	cfg.Admin.Address = raw.Admin.Address

	known := c.observers.Names()
	for _, name := range raw.Observers {
		if i := sort.SearchStrings(known, name); i == len(known) || known[i] != name {
			err = multierr.Append(err, fmt.Errorf("unknown observer %q, available: %v", name, known))
		}
	}
	cfg.Observers = raw.Observers

	names := make(map[string]struct{})
	ports := make(map[int]string)
	for i, e := range raw.Endpoints {
		if e.Disabled {
			continue
		}
		ep, e2 := c.loadEndpoint(i, &e)
		if e2 != nil {
			err = multierr.Append(err, e2)
			continue
		}
		if _, ok := names[ep.Name]; ok {
			err = multierr.Append(err, fmt.Errorf("endpoint %q is defined more than once", ep.Name))
			continue
		}
		names[ep.Name] = struct{}{}
		if other, ok := ports[ep.Config.Port]; ok {
			err = multierr.Append(err, fmt.Errorf(
				"endpoints %q and %q both bind port %d", other, ep.Name, ep.Config.Port))
			continue
		}
		ports[ep.Config.Port] = ep.Name
		cfg.Endpoints = append(cfg.Endpoints, ep)
	}

	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Configurator) loadEndpoint(i int, e *endpoint) (berth.Endpoint, error) {
	if e.Name == "" {
		return berth.Endpoint{}, fmt.Errorf("endpoint %d: name is required", i)
	}
	if _, ok := c.protocols[e.Protocol]; !ok {
		return berth.Endpoint{}, fmt.Errorf("endpoint %q: unknown protocol %q", e.Name, e.Protocol)
	}
	h, ok := c.handlers[e.Handler]
	if !ok {
		return berth.Endpoint{}, fmt.Errorf("endpoint %q: unknown handler %q", e.Name, e.Handler)
	}
	cfg := e.endpointConfig()
	if err := cfg.Validate(); err != nil {
		return berth.Endpoint{}, fmt.Errorf("endpoint %q: %s", e.Name, bertherrors.FromError(err).Message())
	}
	return berth.Endpoint{
		Name:     e.Name,
		Protocol: e.Protocol,
		Config:   cfg,
		Handler:  h,
	}, nil
}

// NewManager builds a Manager for cfg. The observers named in cfg are
// built from deps.
func (c *Configurator) NewManager(cfg Config, deps Deps) (*berth.Manager, error) {
	levels := cfg.Logging.Levels
	observer, err := c.observers.Build(cfg.Observers, observability.Deps{
		Logger:     deps.Logger,
		Levels:     &levels,
		Metrics:    deps.Metrics,
		Tally:      deps.Tally,
		Prometheus: deps.Prometheus,
	})
	if err != nil {
		return nil, err
	}

	protocols := make(map[string]berth.ListenerFactory, len(c.protocols))
	for name, f := range c.protocols {
		protocols[name] = f
	}
	return berth.NewManager(berth.Config{
		Protocols: protocols,
		Observers: []dispatch.Observer{observer},
		Tracer:    deps.Tracer,
		Registry:  deps.Registry,
		Logging:   berth.LoggingConfig{Zap: deps.Logger},
	}), nil
}
