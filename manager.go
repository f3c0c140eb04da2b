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

package berth

import (
	"context"
	"net"
	"sort"
	"sync"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/berth/api/dispatch"
	"go.uber.org/berth/bertherrors"
	"go.uber.org/berth/internal/errorsync"
	intsync "go.uber.org/berth/internal/sync"
	"go.uber.org/berth/pkg/lifecycle"
	"go.uber.org/berth/registry"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Endpoint describes a listener to start.
type Endpoint struct {
	// Name identifies the endpoint. Starting an endpoint whose name already
	// owns the port is a no-op.
	Name string

	// Protocol names the ListenerFactory that builds the listener.
	Protocol string

	Config  dispatch.EndpointConfig
	Handler dispatch.Handler
}

// StartResult is the outcome of a successful StartEndpoint.
type StartResult int

const (
	// Started means a new listener was bound.
	Started StartResult = iota + 1
	// AlreadyRunning means the endpoint was already bound to the port.
	AlreadyRunning
)

func (r StartResult) String() string {
	switch r {
	case Started:
		return "started"
	case AlreadyRunning:
		return "already-running"
	default:
		return "unknown"
	}
}

// EndpointStatus describes a running endpoint.
type EndpointStatus struct {
	registry.Binding

	State lifecycle.State
	Addr  net.Addr
	Stats dispatch.PoolStats
}

type running struct {
	endpoint Endpoint
	listener dispatch.Listener
}

// Manager starts and stops endpoints. Start and stop calls for the same
// port are serialized; calls for different ports run in parallel.
type Manager struct {
	logger    *zap.Logger
	observer  dispatch.Observer
	tracer    opentracing.Tracer
	protocols map[string]ListenerFactory
	registry  *registry.Registry

	ports intsync.KeyedMutex

	mu      sync.RWMutex
	running map[int]*running
}

// NewManager builds a new Manager using the specified Config.
func NewManager(cfg Config) *Manager {
	protocols := cfg.Protocols
	if protocols == nil {
		protocols = DefaultProtocols()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = opentracing.GlobalTracer()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = registry.New()
	}
	return &Manager{
		logger:    cfg.Logging.logger(),
		observer:  dispatch.MultiObserver(cfg.Observers...),
		tracer:    tracer,
		protocols: protocols,
		registry:  reg,
		running:   make(map[int]*running),
	}
}

// Registry returns the registry the manager records bindings in.
func (m *Manager) Registry() *registry.Registry { return m.registry }

// Protocols returns the names of the protocols the manager can start,
// sorted.
func (m *Manager) Protocols() []string {
	names := make([]string, 0, len(m.protocols))
	for name := range m.protocols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartEndpoint binds ep.Config.Port for ep.
//
// If ep.Name already owns the port, no listener is created and
// AlreadyRunning is returned. If a different endpoint owns the port, a
// *bertherrors.PortInUseError is returned and the existing endpoint is left
// untouched.
func (m *Manager) StartEndpoint(ep Endpoint) (StartResult, error) {
	if ep.Name == "" {
		return 0, bertherrors.InvalidArgumentErrorf("endpoint name is required")
	}
	factory, ok := m.protocols[ep.Protocol]
	if !ok {
		return 0, bertherrors.InvalidArgumentErrorf("endpoint %q: unknown protocol %q", ep.Name, ep.Protocol)
	}

	port := ep.Config.Port
	logger := m.logger.With(
		zap.String("endpoint", ep.Name),
		zap.String("protocol", ep.Protocol),
		zap.Int("port", port),
	)

	unlock := m.ports.Lock(port)
	defer unlock()

	status, err := m.registry.Register(registry.Binding{
		Port:     port,
		Endpoint: ep.Name,
		Protocol: ep.Protocol,
	})
	if err != nil {
		if bertherrors.IsPortInUse(err) {
			logger.Warn("port conflict", zap.Error(err))
		}
		return 0, err
	}

	if status == registry.AlreadyRegistered {
		if _, ok := m.lookup(port); ok {
			logger.Info("endpoint already running")
			return AlreadyRunning, nil
		}
		// The binding outlived its listener. Start a fresh one.
	}

	listener := factory(ep.Name, ListenerDeps{
		Logger:   m.logger,
		Observer: m.observer,
		Tracer:   m.tracer,
	})
	if err := listener.Start(ep.Config, ep.Handler); err != nil {
		m.registry.UnregisterOwned(port, ep.Name)
		logger.Error("failed to start endpoint", zap.Error(err))
		return 0, err
	}

	m.mu.Lock()
	m.running[port] = &running{endpoint: ep, listener: listener}
	m.mu.Unlock()

	logger.Info("endpoint started")
	return Started, nil
}

// StartEndpoints starts eps in order. If one fails to start, the endpoints
// this call started are stopped again and the error is returned.
func (m *Manager) StartEndpoints(ctx context.Context, eps ...Endpoint) error {
	var started []int
	for _, ep := range eps {
		res, err := m.StartEndpoint(ep)
		if err != nil {
			for _, port := range started {
				err = multierr.Append(err, m.StopEndpoint(ctx, port))
			}
			return err
		}
		if res == Started {
			started = append(started, ep.Config.Port)
		}
	}
	return nil
}

// StopEndpoint stops the endpoint bound to port and frees the port in the
// registry, even when the listener did not stop cleanly.
func (m *Manager) StopEndpoint(ctx context.Context, port int) error {
	unlock := m.ports.Lock(port)
	defer unlock()

	r, ok := m.lookup(port)
	if !ok {
		if m.registry.Unregister(port) {
			m.logger.Warn("removed binding without a listener", zap.Int("port", port))
		}
		return bertherrors.NotFoundErrorf("no endpoint is bound to port %d", port)
	}

	err := r.listener.Stop(ctx)

	m.mu.Lock()
	delete(m.running, port)
	m.mu.Unlock()
	m.registry.Unregister(port)

	logger := m.logger.With(zap.String("endpoint", r.endpoint.Name), zap.Int("port", port))
	if err != nil {
		logger.Error("endpoint stopped with errors", zap.Error(err))
	} else {
		logger.Info("endpoint stopped")
	}
	return err
}

// StopAll stops every running endpoint in parallel and returns their
// combined errors.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	ports := make([]int, 0, len(m.running))
	for port := range m.running {
		ports = append(ports, port)
	}
	m.mu.RUnlock()

	var wait errorsync.ErrorWaiter
	for _, port := range ports {
		port := port
		wait.Submit(func() error {
			err := m.StopEndpoint(ctx, port)
			if bertherrors.ErrorCode(err) == bertherrors.CodeNotFound {
				// Stopped concurrently.
				return nil
			}
			return err
		})
	}
	return wait.Wait()
}

// Endpoints returns the status of every running endpoint ordered by port.
func (m *Manager) Endpoints() []EndpointStatus {
	var out []EndpointStatus
	for _, b := range m.registry.Bindings() {
		r, ok := m.lookup(b.Port)
		if !ok || r.endpoint.Name != b.Endpoint {
			continue
		}
		out = append(out, EndpointStatus{
			Binding: b,
			State:   r.listener.State(),
			Addr:    r.listener.Addr(),
			Stats:   r.listener.Stats(),
		})
	}
	return out
}

// Listener returns the listener bound to port.
func (m *Manager) Listener(port int) (dispatch.Listener, bool) {
	r, ok := m.lookup(port)
	if !ok {
		return nil, false
	}
	return r.listener, true
}

func (m *Manager) lookup(port int) (*running, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.running[port]
	return r, ok
}
